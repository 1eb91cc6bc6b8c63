package protocol

import (
	"strings"
)

// Group is the first half of a command identifier, e.g. "player" in
// "player/get_play_state".
type Group string

const (
	GroupSystem Group = "system"
	GroupPlayer Group = "player"
	GroupGroup  Group = "group"
	GroupBrowse Group = "browse"
	GroupEvent  Group = "event"
)

// System commands
const (
	CmdHeartBeat               = "heart_beat"
	CmdRegisterForChangeEvents = "register_for_change_events"
	CmdSignIn                  = "sign_in"
	CmdSignOut                 = "sign_out"
	CmdReboot                  = "reboot"
)

// Player commands
const (
	CmdGetPlayers         = "get_players"
	CmdGetPlayerInfo      = "get_player_info"
	CmdGetPlayState       = "get_play_state"
	CmdSetPlayState       = "set_play_state"
	CmdGetVolume          = "get_volume"
	CmdSetVolume          = "set_volume"
	CmdGetMute            = "get_mute"
	CmdSetMute            = "set_mute"
	CmdGetNowPlayingMedia = "get_now_playing_media"
)

// Group commands
const (
	CmdGetGroups      = "get_groups"
	CmdSetGroup       = "set_group"
	CmdSetGroupVolume = "set_volume"
	CmdSetGroupMute   = "set_mute"
)

// Browse commands
const (
	CmdGetMusicSources = "get_music_sources"
	CmdBrowse          = "browse"
	CmdPlayStream      = "play_stream"
	CmdAddToQueue      = "add_to_queue"
)

// Events pushed by the cluster once a connection registered for change events.
const (
	EventPlayerNowPlayingChanged  = "player_now_playing_changed"
	EventPlayerNowPlayingProgress = "player_now_playing_progress"
	EventPlayerStateChanged       = "player_state_changed"
	EventPlayerVolumeChanged      = "player_volume_changed"
	EventPlayerQueueChanged       = "player_queue_changed"
	EventPlayersChanged           = "players_changed"
	EventGroupsChanged            = "groups_changed"
	EventGroupVolumeChanged       = "group_volume_changed"
	EventSourcesChanged           = "sources_changed"
	EventUserChanged              = "user_changed"
)

// Well known music source ids for the browse commands.
const (
	SourcePlaylists = "1025"
	SourceFavorites = "1028"
)

// Attribute keys that carry meaning for the client.
const (
	KeyPID          = "pid"
	KeyGID          = "gid"
	KeySID          = "sid"
	KeyCID          = "cid"
	KeyMID          = "mid"
	KeyName         = "name"
	KeyState        = "state"
	KeyLevel        = "level"
	KeyMute         = "mute"
	KeyEnable       = "enable"
	KeyErrorID      = "eid"
	KeyErrorText    = "text"
	KeyUnderProcess = "under_process"
)

// Param is one key/value pair of a command. Params keep their order on the
// wire.
type Param struct {
	Key   string
	Value string
}

// P is shorthand for building a Param.
func P(key, value string) Param {
	return Param{Key: key, Value: value}
}

// Command is a single instruction sent to the cluster.
type Command struct {
	Group  Group
	Name   string
	Params []Param
}

// NewCommand builds a Command.
func NewCommand(group Group, name string, params ...Param) Command {
	return Command{Group: group, Name: name, Params: params}
}

// ID returns the "group/name" identifier of the command.
func (c Command) ID() string {
	return string(c.Group) + "/" + c.Name
}

// Param returns the value of the named parameter and whether it is present.
func (c Command) Param(key string) (string, bool) {
	for _, p := range c.Params {
		if p.Key == key {
			return p.Value, true
		}
	}

	return "", false
}

func (c Command) String() string {
	return strings.TrimRight(string(Encode(c.Group, c.Name, c.Params...)), "\r\n")
}
