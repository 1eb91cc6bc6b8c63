package storage

import (
	"strconv"
)

// Player is one addressable audio output of the cluster.
type Player struct {
	MediaEntity

	Model   string
	Version string
	IP      string
	Network string
	Serial  string
	Online  bool

	State PlayState
	Level int
	Mute  bool

	NowPlaying NowPlaying
}

func NewPlayer(pid string) *Player {
	return &Player{MediaEntity: MediaEntity{ID: pid}}
}

// UpdateInfo merges the recognized info keys (name, model, version, ip,
// network, serial) and reports whether anything changed.
func (p *Player) UpdateInfo(attrs map[string]string) bool {
	changed := false

	if name, ok := attrs["name"]; ok {
		changed = p.setName(name) || changed
	}

	changed = setString(&p.Model, attrs, "model") || changed
	changed = setString(&p.Version, attrs, "version") || changed
	changed = setString(&p.IP, attrs, "ip") || changed
	changed = setString(&p.Network, attrs, "network") || changed
	changed = setString(&p.Serial, attrs, "serial") || changed

	return changed
}

// UpdateState merges state, level and mute. Values the cluster would
// never send are ignored.
func (p *Player) UpdateState(attrs map[string]string) bool {
	changed := false

	if state, ok := ParsePlayState(attrs["state"]); ok && state != p.State {
		p.State = state
		changed = true
	}

	if level, ok := parseLevel(attrs["level"]); ok && level != p.Level {
		p.Level = level
		changed = true
	}

	if mute, ok := parseOnOff(attrs["mute"]); ok && mute != p.Mute {
		p.Mute = mute
		changed = true
	}

	return changed
}

// UpdateMedia replaces the now playing descriptor with the recognized keys
// of attrs.
func (p *Player) UpdateMedia(attrs map[string]string) bool {
	media := NowPlaying{
		Type:     attrs["type"],
		Song:     attrs["song"],
		Artist:   attrs["artist"],
		Album:    attrs["album"],
		ImageURL: attrs["image_url"],
		Station:  attrs["station"],
		MID:      attrs["mid"],
		SID:      attrs["sid"],
		QID:      attrs["qid"],
		AlbumID:  attrs["album_id"],
	}

	if media == p.NowPlaying {
		return false
	}

	p.NowPlaying = media
	return true
}

// Info returns the info sub-map as the cluster reports it.
func (p *Player) Info() map[string]string {
	return map[string]string{
		"pid":     p.ID,
		"name":    p.Name,
		"model":   p.Model,
		"version": p.Version,
		"ip":      p.IP,
		"network": p.Network,
		"serial":  p.Serial,
	}
}

// StateInfo returns the state sub-map as the cluster reports it.
func (p *Player) StateInfo() map[string]string {
	return map[string]string{
		"state": string(p.State),
		"level": strconv.Itoa(p.Level),
		"mute":  onOff(p.Mute),
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}

	return "off"
}
