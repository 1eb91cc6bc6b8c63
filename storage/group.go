package storage

import (
	"strconv"
)

// Group is a set of players playing in sync, led by one of them.
type Group struct {
	MediaEntity

	Leader string

	// Members keeps the order the cluster reported. MembersHash does not
	// depend on it.
	Members     []string
	MembersHash string

	State PlayState
	Level int
	Mute  bool
}

func NewGroup(gid string) *Group {
	return &Group{
		MediaEntity: MediaEntity{ID: gid},
		MembersHash: HashMembers(nil),
	}
}

// UpdateInfo merges name, gid and leader. A null name yields an empty
// NameHash.
func (g *Group) UpdateInfo(attrs map[string]string) bool {
	changed := false

	if name, ok := attrs["name"]; ok {
		changed = g.setName(name) || changed
	}

	changed = setString(&g.ID, attrs, "gid") || changed
	changed = setString(&g.Leader, attrs, "leader") || changed

	return changed
}

// UpdateState merges state, level and mute.
func (g *Group) UpdateState(attrs map[string]string) bool {
	changed := false

	if state, ok := ParsePlayState(attrs["state"]); ok && state != g.State {
		g.State = state
		changed = true
	}

	if level, ok := parseLevel(attrs["level"]); ok && level != g.Level {
		g.Level = level
		changed = true
	}

	if mute, ok := parseOnOff(attrs["mute"]); ok && mute != g.Mute {
		g.Mute = mute
		changed = true
	}

	return changed
}

// UpdatePlayers replaces the member list with the pids of members and
// recomputes MembersHash from a sorted copy. A member with role=leader
// becomes the leader.
func (g *Group) UpdatePlayers(members []map[string]string) bool {
	pids := make([]string, 0, len(members))
	leader := g.Leader

	for _, member := range members {
		pid, ok := member["pid"]
		if !ok {
			continue
		}

		pids = append(pids, pid)

		if member["role"] == "leader" {
			leader = pid
		}
	}

	hash := HashMembers(pids)
	changed := hash != g.MembersHash || leader != g.Leader || !equalOrder(pids, g.Members)

	g.Members = pids
	g.MembersHash = hash
	g.Leader = leader

	return changed
}

// HasMember reports whether pid belongs to the group.
func (g *Group) HasMember(pid string) bool {
	for _, member := range g.Members {
		if member == pid {
			return true
		}
	}

	return false
}

func (g *Group) Info() map[string]string {
	return map[string]string{
		"gid":    g.ID,
		"name":   g.Name,
		"leader": g.Leader,
	}
}

func (g *Group) StateInfo() map[string]string {
	return map[string]string{
		"state": string(g.State),
		"level": strconv.Itoa(g.Level),
		"mute":  onOff(g.Mute),
	}
}

func (g *Group) clone() Group {
	c := *g
	c.Members = append([]string(nil), g.Members...)
	return c
}

func equalOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
