package events

// BridgeEvent is a system level notification: connection health, user and
// sign in changes, rescan requests and command failures.
type BridgeEvent struct {
	// Type is the message group, "event" or "system" for most notifications.
	Type string

	// Result is "success", "fail" or "" when the cluster sends none.
	Result string

	Command string

	// Only set on fail notifications
	ErrorCode    string
	ErrorMessage string
}

// Failed reports whether the notification describes a failure.
func (e BridgeEvent) Failed() bool {
	return e.Result == "fail"
}

// Listener receives notifications from the Router.
//
// All methods are called on the connection's read goroutine. They must
// return quickly and must not block on a command response; hand the work to
// another goroutine instead.
type Listener interface {
	// PlayerStateChanged reports one changed attribute of a player: "state",
	// "volume" or "mute".
	PlayerStateChanged(pid, attribute, value string)

	// PlayerMediaChanged reports the now playing media of a player.
	PlayerMediaChanged(pid string, media map[string]string)

	BridgeEvent(ev BridgeEvent)
}
