package storage

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// PlayState is the transport state of a player or group.
type PlayState string

const (
	StateUnknown PlayState = ""
	StatePlay    PlayState = "play"
	StatePause   PlayState = "pause"
	StateStop    PlayState = "stop"
)

// ParsePlayState accepts only the three states the cluster reports.
func ParsePlayState(s string) (PlayState, bool) {
	switch state := PlayState(s); state {
	case StatePlay, StatePause, StateStop:
		return state, true

	default:
		return StateUnknown, false
	}
}

// MediaEntity is the identity shared by players and groups. It is embedded
// in both.
type MediaEntity struct {
	ID       string
	Name     string
	NameHash string
}

func (m *MediaEntity) setName(name string) bool {
	if m.Name == name && m.NameHash == HashName(name) {
		return false
	}

	m.Name = name
	m.NameHash = HashName(name)

	return true
}

// HashName returns the change detection hash of a name. A missing name
// (null on the wire, which decodes to "") hashes to "".
func HashName(name string) string {
	if name == "" {
		return ""
	}

	return strconv.FormatUint(xxhash.Sum64String(name), 10)
}

// HashMembers hashes a sorted copy of pids, so any ordering of the same set
// yields the same hash. pids itself is left untouched.
func HashMembers(pids []string) string {
	sorted := append([]string(nil), pids...)
	sort.Strings(sorted)

	d := xxhash.New()
	for _, pid := range sorted {
		_, _ = d.WriteString(pid)
		_, _ = d.Write([]byte{0})
	}

	return strconv.FormatUint(d.Sum64(), 10)
}

// NowPlaying describes the media a player is currently playing.
type NowPlaying struct {
	Type     string `json:"type,omitempty"`
	Song     string `json:"song,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Station  string `json:"station,omitempty"`
	MID      string `json:"mid,omitempty"`
	SID      string `json:"sid,omitempty"`
	QID      string `json:"qid,omitempty"`
	AlbumID  string `json:"album_id,omitempty"`
}

// Attributes returns the now playing descriptor as the flat map listeners
// receive.
func (n NowPlaying) Attributes() map[string]string {
	return map[string]string{
		"type":      n.Type,
		"song":      n.Song,
		"artist":    n.Artist,
		"album":     n.Album,
		"image_url": n.ImageURL,
		"station":   n.Station,
		"mid":       n.MID,
		"sid":       n.SID,
		"qid":       n.QID,
		"album_id":  n.AlbumID,
	}
}

func parseLevel(s string) (int, bool) {
	level, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}

	switch {
	case level < 0:
		level = 0
	case level > 100:
		level = 100
	}

	return level, true
}

func parseOnOff(s string) (bool, bool) {
	switch s {
	case "on", "true":
		return true, true
	case "off", "false":
		return false, true
	default:
		return false, false
	}
}

func setString(dst *string, attrs map[string]string, key string) bool {
	value, ok := attrs[key]
	if !ok || *dst == value {
		return false
	}

	*dst = value
	return true
}
