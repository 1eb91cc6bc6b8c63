package client

import (
	"github.com/luma/heosbridge/protocol"
)

// Convenience wrappers around Send. Responses arrive through the Handler.

func (c *Conn) HeartBeat() error {
	return c.Send(protocol.HeartBeat())
}

func (c *Conn) RegisterForChangeEvents(enable bool) error {
	return c.Send(protocol.RegisterForChangeEvents(enable))
}

func (c *Conn) SignIn(username, password string) error {
	return c.Send(protocol.SignIn(username, password))
}

func (c *Conn) SignOut() error {
	return c.Send(protocol.SignOut())
}

func (c *Conn) Reboot() error {
	return c.Send(protocol.Reboot())
}

func (c *Conn) GetPlayers() error {
	return c.Send(protocol.GetPlayers())
}

func (c *Conn) GetPlayerInfo(pid string) error {
	return c.Send(protocol.GetPlayerInfo(pid))
}

func (c *Conn) GetPlayState(pid string) error {
	return c.Send(protocol.GetPlayState(pid))
}

func (c *Conn) SetPlayState(pid string, state protocol.PlayState) error {
	return c.Send(protocol.SetPlayState(pid, state))
}

func (c *Conn) GetVolume(pid string) error {
	return c.Send(protocol.GetVolume(pid))
}

func (c *Conn) SetVolume(pid string, level int) error {
	return c.Send(protocol.SetVolume(pid, level))
}

func (c *Conn) GetMute(pid string) error {
	return c.Send(protocol.GetMute(pid))
}

func (c *Conn) SetMute(pid string, mute bool) error {
	return c.Send(protocol.SetMute(pid, mute))
}

func (c *Conn) GetNowPlayingMedia(pid string) error {
	return c.Send(protocol.GetNowPlayingMedia(pid))
}

func (c *Conn) GetGroups() error {
	return c.Send(protocol.GetGroups())
}

// GroupPlayers groups pids, the first one becomes the leader.
func (c *Conn) GroupPlayers(pids ...string) error {
	return c.Send(protocol.GroupPlayers(pids...))
}

// Ungroup dissolves the group led by leader.
func (c *Conn) Ungroup(leader string) error {
	return c.Send(protocol.Ungroup(leader))
}

func (c *Conn) SetGroupVolume(gid string, level int) error {
	return c.Send(protocol.SetGroupVolume(gid, level))
}

func (c *Conn) SetGroupMute(gid string, mute bool) error {
	return c.Send(protocol.SetGroupMute(gid, mute))
}

func (c *Conn) GetMusicSources() error {
	return c.Send(protocol.GetMusicSources())
}

func (c *Conn) GetFavorites() error {
	return c.Send(protocol.GetFavorites())
}

func (c *Conn) GetPlaylists() error {
	return c.Send(protocol.GetPlaylists())
}

func (c *Conn) PlayStation(pid, sid, cid, mid, name string) error {
	return c.Send(protocol.PlayStation(pid, sid, cid, mid, name))
}

// AddContainerToQueue replaces the queue of pid with the container and
// starts playing it.
func (c *Conn) AddContainerToQueue(pid, sid, cid string) error {
	return c.Send(protocol.AddContainerToQueuePlayNow(pid, sid, cid))
}
