package api

import (
	"github.com/luma/heosbridge/storage"
)

type playerView struct {
	PID      string `json:"pid"`
	Name     string `json:"name"`
	NameHash string `json:"name_hash"`
	Model    string `json:"model"`
	Version  string `json:"version"`
	IP       string `json:"ip"`
	Network  string `json:"network"`
	Serial   string `json:"serial"`
	Online   bool   `json:"online"`

	State string `json:"state"`
	Level int    `json:"level"`
	Mute  bool   `json:"mute"`

	NowPlaying storage.NowPlaying `json:"now_playing"`
}

func newPlayerView(p storage.Player) playerView {
	return playerView{
		PID:        p.ID,
		Name:       p.Name,
		NameHash:   p.NameHash,
		Model:      p.Model,
		Version:    p.Version,
		IP:         p.IP,
		Network:    p.Network,
		Serial:     p.Serial,
		Online:     p.Online,
		State:      string(p.State),
		Level:      p.Level,
		Mute:       p.Mute,
		NowPlaying: p.NowPlaying,
	}
}

type groupView struct {
	GID         string   `json:"gid"`
	Name        string   `json:"name"`
	NameHash    string   `json:"name_hash"`
	Leader      string   `json:"leader"`
	Members     []string `json:"members"`
	MembersHash string   `json:"members_hash"`

	State string `json:"state"`
	Level int    `json:"level"`
	Mute  bool   `json:"mute"`
}

func newGroupView(g storage.Group) groupView {
	members := g.Members
	if members == nil {
		members = []string{}
	}

	return groupView{
		GID:         g.ID,
		Name:        g.Name,
		NameHash:    g.NameHash,
		Leader:      g.Leader,
		Members:     members,
		MembersHash: g.MembersHash,
		State:       string(g.State),
		Level:       g.Level,
		Mute:        g.Mute,
	}
}

// updateView is one message of the /events stream. Player or Group holds
// the entity after the change, neither is set for removals and browse
// results.
type updateView struct {
	Kind    string `json:"kind"`
	ID      string `json:"id,omitempty"`
	Created bool   `json:"created,omitempty"`
	Removed bool   `json:"removed,omitempty"`

	Player *playerView `json:"player,omitempty"`
	Group  *groupView  `json:"group,omitempty"`
}
