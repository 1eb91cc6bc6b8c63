package protocol

import (
	"strconv"
	"strings"
)

// PlayState is the transport state of a player or group.
type PlayState string

const (
	StatePlay  PlayState = "play"
	StatePause PlayState = "pause"
	StateStop  PlayState = "stop"
)

// OnOff renders a boolean the way the cluster expects it.
func OnOff(on bool) string {
	if on {
		return "on"
	}

	return "off"
}

func HeartBeat() Command {
	return NewCommand(GroupSystem, CmdHeartBeat)
}

func RegisterForChangeEvents(enable bool) Command {
	return NewCommand(GroupSystem, CmdRegisterForChangeEvents, P(KeyEnable, OnOff(enable)))
}

func SignIn(username, password string) Command {
	return NewCommand(GroupSystem, CmdSignIn, P("un", username), P("pw", password))
}

func SignOut() Command {
	return NewCommand(GroupSystem, CmdSignOut)
}

func Reboot() Command {
	return NewCommand(GroupSystem, CmdReboot)
}

func GetPlayers() Command {
	return NewCommand(GroupPlayer, CmdGetPlayers)
}

func GetPlayerInfo(pid string) Command {
	return NewCommand(GroupPlayer, CmdGetPlayerInfo, P(KeyPID, pid))
}

func GetPlayState(pid string) Command {
	return NewCommand(GroupPlayer, CmdGetPlayState, P(KeyPID, pid))
}

func SetPlayState(pid string, state PlayState) Command {
	return NewCommand(GroupPlayer, CmdSetPlayState, P(KeyPID, pid), P(KeyState, string(state)))
}

func GetVolume(pid string) Command {
	return NewCommand(GroupPlayer, CmdGetVolume, P(KeyPID, pid))
}

// SetVolume clamps level into 0..100.
func SetVolume(pid string, level int) Command {
	return NewCommand(GroupPlayer, CmdSetVolume, P(KeyPID, pid), P(KeyLevel, strconv.Itoa(clampLevel(level))))
}

func GetMute(pid string) Command {
	return NewCommand(GroupPlayer, CmdGetMute, P(KeyPID, pid))
}

func SetMute(pid string, mute bool) Command {
	return NewCommand(GroupPlayer, CmdSetMute, P(KeyPID, pid), P(KeyState, OnOff(mute)))
}

func GetNowPlayingMedia(pid string) Command {
	return NewCommand(GroupPlayer, CmdGetNowPlayingMedia, P(KeyPID, pid))
}

func GetGroups() Command {
	return NewCommand(GroupGroup, CmdGetGroups)
}

// GroupPlayers creates (or reshapes) a group. The first pid becomes the
// leader.
func GroupPlayers(pids ...string) Command {
	return NewCommand(GroupGroup, CmdSetGroup, P(KeyPID, strings.Join(pids, ",")))
}

// Ungroup dissolves the group led by leader.
func Ungroup(leader string) Command {
	return NewCommand(GroupGroup, CmdSetGroup, P(KeyPID, leader))
}

func SetGroupVolume(gid string, level int) Command {
	return NewCommand(GroupGroup, CmdSetGroupVolume, P(KeyGID, gid), P(KeyLevel, strconv.Itoa(clampLevel(level))))
}

func SetGroupMute(gid string, mute bool) Command {
	return NewCommand(GroupGroup, CmdSetGroupMute, P(KeyGID, gid), P(KeyState, OnOff(mute)))
}

func GetMusicSources() Command {
	return NewCommand(GroupBrowse, CmdGetMusicSources)
}

func Browse(sid string) Command {
	return NewCommand(GroupBrowse, CmdBrowse, P(KeySID, sid))
}

func GetFavorites() Command {
	return Browse(SourceFavorites)
}

func GetPlaylists() Command {
	return Browse(SourcePlaylists)
}

// PlayStation starts a station. Empty cid and name are left off the wire.
func PlayStation(pid, sid, cid, mid, name string) Command {
	params := []Param{P(KeyPID, pid), P(KeySID, sid)}
	if cid != "" {
		params = append(params, P(KeyCID, cid))
	}

	params = append(params, P(KeyMID, mid))

	if name != "" {
		params = append(params, P(KeyName, name))
	}

	return NewCommand(GroupBrowse, CmdPlayStream, params...)
}

// AddContainerToQueuePlayNow adds the container to the queue and starts
// playing it right away (aid=1).
func AddContainerToQueuePlayNow(pid, sid, cid string) Command {
	return NewCommand(GroupBrowse, CmdAddToQueue, P(KeyPID, pid), P(KeySID, sid), P(KeyCID, cid), P("aid", "1"))
}

func clampLevel(level int) int {
	switch {
	case level < 0:
		return 0
	case level > 100:
		return 100
	default:
		return level
	}
}
