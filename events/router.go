package events

import (
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/luma/heosbridge/protocol"
	"github.com/luma/heosbridge/storage"
)

const (
	TypeEvent  = "event"
	TypeSystem = "system"

	ResultSuccess = "success"
	ResultFail    = "fail"

	ConnectionLost     = "connection_lost"
	ConnectionRestored = "connection_restored"
)

// Sender issues follow up commands, usually a *client.Conn.
type Sender interface {
	Send(cmd protocol.Command) error
}

// Router applies decoded messages to the store and notifies the listener.
// It implements client.Handler.
type Router struct {
	store    storage.Store
	listener Listener
	sender   Sender
	log      *zap.Logger
}

func NewRouter(store storage.Store, listener Listener, sender Sender, log *zap.Logger) *Router {
	return &Router{
		store:    store,
		listener: listener,
		sender:   sender,
		log:      log.Named("router"),
	}
}

// HandleMessage routes one message. Failures become a single fail
// BridgeEvent, unknown messages are ignored.
func (r *Router) HandleMessage(msg *protocol.Message) {
	defer func() {
		if v := recover(); v != nil {
			r.log.Error("panic while routing message",
				zap.String("command", msg.ID()),
				zap.Any("panic", v))
		}
	}()

	if msg.Failed() {
		r.log.Warn("command failed",
			zap.String("command", msg.ID()),
			zap.String("code", msg.ErrorCode),
			zap.String("message", msg.ErrorMessage))

		r.listener.BridgeEvent(BridgeEvent{
			Type:         string(msg.Group),
			Result:       ResultFail,
			Command:      msg.Name,
			ErrorCode:    msg.ErrorCode,
			ErrorMessage: msg.ErrorMessage,
		})
		return
	}

	switch route := Classify(msg.Group, msg.Name); route {
	case RouteNowPlayingChanged:
		r.send(protocol.GetNowPlayingMedia(msg.PID()))

	case RoutePlayerStateChanged, RoutePlayState:
		r.playerState(msg)

	case RoutePlayerVolumeChanged:
		r.playerVolume(msg.PID(), msg.Attributes.Get(protocol.KeyLevel))
		r.playerMute(msg.PID(), msg.Attributes.Get(protocol.KeyMute))

	case RouteVolume:
		r.playerVolume(msg.PID(), msg.Attributes.Get(protocol.KeyLevel))

	case RouteMute:
		// get_mute answers with state=on|off
		r.playerMute(msg.PID(), msg.Attributes.Get(protocol.KeyState))

	case RoutePlayersChanged, RouteGroupsChanged:
		r.listener.BridgeEvent(BridgeEvent{Type: TypeEvent, Command: msg.Name})

	case RouteUserChanged:
		r.listener.BridgeEvent(BridgeEvent{Type: TypeSystem, Result: ResultSuccess, Command: msg.Name})

	case RouteGroupVolumeChanged:
		r.store.UpdateGroup(msg.GID(), func(g *storage.Group) bool {
			return g.UpdateState(msg.Attributes)
		})

	case RouteNowPlayingMedia:
		r.nowPlayingMedia(msg)

	case RoutePlayerInfo:
		r.playerInfo(msg)

	case RoutePlayers:
		r.players(msg)

	case RouteGroups:
		r.groups(msg)

	case RouteBrowse:
		r.browse(msg)

	case RouteSignIn:
		if msg.Attributes.Get(protocol.KeyUnderProcess) != "true" {
			r.listener.BridgeEvent(BridgeEvent{Type: TypeSystem, Result: ResultSuccess, Command: msg.Name})
		}

	default:
		r.log.Debug("ignoring message", zap.String("command", msg.ID()), zap.Stringer("route", route))
	}
}

func (r *Router) ConnectionLost() {
	r.listener.BridgeEvent(BridgeEvent{Type: TypeEvent, Result: ResultFail, Command: ConnectionLost})
}

func (r *Router) ConnectionRestored() {
	r.listener.BridgeEvent(BridgeEvent{Type: TypeEvent, Result: ResultSuccess, Command: ConnectionRestored})
}

func (r *Router) playerState(msg *protocol.Message) {
	pid := msg.PID()

	r.store.UpdatePlayer(pid, func(p *storage.Player) bool {
		return p.UpdateState(map[string]string{protocol.KeyState: msg.Attributes.Get(protocol.KeyState)})
	})

	r.listener.PlayerStateChanged(pid, "state", msg.Attributes.Get(protocol.KeyState))
}

func (r *Router) playerVolume(pid, level string) {
	r.store.UpdatePlayer(pid, func(p *storage.Player) bool {
		return p.UpdateState(map[string]string{protocol.KeyLevel: level})
	})

	r.listener.PlayerStateChanged(pid, "volume", level)
}

func (r *Router) playerMute(pid, mute string) {
	r.store.UpdatePlayer(pid, func(p *storage.Player) bool {
		return p.UpdateState(map[string]string{protocol.KeyMute: mute})
	})

	r.listener.PlayerStateChanged(pid, "mute", mute)
}

// nowPlayingMedia completes the fetch started by player_now_playing_changed.
func (r *Router) nowPlayingMedia(msg *protocol.Message) {
	pid := msg.PID()

	media := map[string]string{}
	if len(msg.Payload) > 0 {
		media = msg.Payload[0]
	}

	r.store.UpdatePlayer(pid, func(p *storage.Player) bool {
		return p.UpdateMedia(media)
	})

	r.listener.PlayerMediaChanged(pid, media)
}

func (r *Router) playerInfo(msg *protocol.Message) {
	for _, record := range msg.Payload {
		r.upsertPlayer(record)
	}
}

// players replaces the known players with the payload of get_players.
func (r *Router) players(msg *protocol.Message) {
	pids := make([]string, 0, len(msg.Payload))

	for _, record := range msg.Payload {
		if pid := r.upsertPlayer(record); pid != "" {
			pids = append(pids, pid)
		}
	}

	if removed := r.store.RetainPlayers(pids); len(removed) > 0 {
		r.log.Info("players removed", zap.Strings("pids", removed))
	}
}

func (r *Router) upsertPlayer(record protocol.Attributes) string {
	pid := record.Get(protocol.KeyPID)
	if pid == "" {
		return ""
	}

	r.store.UpsertPlayer(pid, func(p *storage.Player) bool {
		changed := !p.Online
		p.Online = true
		return p.UpdateInfo(record) || changed
	})

	return pid
}

// groups replaces the known groups with the payload of get_groups. Members
// are nested records: [{"name":..., "pid":..., "role":"leader"}, ...].
func (r *Router) groups(msg *protocol.Message) {
	gids := make([]string, 0, len(msg.Payload))

	for _, record := range msg.Payload {
		gid := record.Get(protocol.KeyGID)
		if gid == "" {
			continue
		}

		members := parseMembers(record.Get("players"))
		for _, member := range members {
			r.store.UpsertPlayer(member[protocol.KeyPID], func(p *storage.Player) bool {
				if p.Name != "" {
					return false
				}

				return p.UpdateInfo(map[string]string{protocol.KeyName: member[protocol.KeyName]})
			})
		}

		r.store.UpsertGroup(gid, func(g *storage.Group) bool {
			changed := g.UpdateInfo(record)
			return g.UpdatePlayers(members) || changed
		})

		gids = append(gids, gid)
	}

	if removed := r.store.RetainGroups(gids); len(removed) > 0 {
		r.log.Info("groups removed", zap.Strings("gids", removed))
	}
}

func (r *Router) browse(msg *protocol.Message) {
	records := make([]map[string]string, 0, len(msg.Payload))
	for _, record := range msg.Payload {
		records = append(records, record)
	}

	switch msg.Attributes.Get(protocol.KeySID) {
	case protocol.SourceFavorites:
		r.store.SetFavorites(records)

	case protocol.SourcePlaylists:
		r.store.SetPlaylists(records)
	}
}

func (r *Router) send(cmd protocol.Command) {
	if err := r.sender.Send(cmd); err != nil {
		r.log.Warn("failed to send follow up command", zap.String("command", cmd.ID()), zap.Error(err))
	}
}

func parseMembers(raw string) []map[string]string {
	members := make([]map[string]string, 0)

	gjson.Parse(raw).ForEach(func(_, member gjson.Result) bool {
		pid := member.Get(protocol.KeyPID)
		if !pid.Exists() {
			return true
		}

		members = append(members, map[string]string{
			protocol.KeyPID:  pid.String(),
			protocol.KeyName: member.Get(protocol.KeyName).String(),
			"role":           member.Get("role").String(),
		})
		return true
	})

	return members
}
