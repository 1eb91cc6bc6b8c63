package storage

import (
	"errors"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var ErrInvalidSnapshot = errors.New("storage: invalid snapshot")

const emptySnapshot = `{"players":[],"groups":[],"favorites":[],"playlists":[]}`

type InmemoryStore struct {
	mu        sync.RWMutex
	players   map[string]*Player
	groups    map[string]*Group
	favorites []map[string]string
	playlists []map[string]string

	updateMu    sync.Mutex
	updateChans []chan *Update

	// stop willl be closed when Close() is called
	stop      chan struct{}
	closeOnce sync.Once
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		players:     make(map[string]*Player),
		groups:      make(map[string]*Group),
		stop:        make(chan struct{}),
		updateChans: make([]chan *Update, 0),
	}
}

func (i *InmemoryStore) Close() error {
	i.closeOnce.Do(func() {
		close(i.stop)

		i.updateMu.Lock()
		defer i.updateMu.Unlock()

		for _, updateChan := range i.updateChans {
			close(updateChan)
		}

		i.updateChans = nil
	})

	return nil
}

// UpsertPlayer creates the player when missing and applies update to it.
func (i *InmemoryStore) UpsertPlayer(pid string, update func(p *Player) bool) {
	i.mu.Lock()
	p, ok := i.players[pid]
	if !ok {
		p = NewPlayer(pid)
		i.players[pid] = p
	}

	changed := update(p) || !ok
	i.mu.Unlock()

	if changed {
		i.notify(&Update{Kind: KindPlayer, ID: pid, Created: !ok})
	}
}

// UpdatePlayer applies update to an existing player. It reports whether
// the player was found.
func (i *InmemoryStore) UpdatePlayer(pid string, update func(p *Player) bool) bool {
	i.mu.Lock()
	p, ok := i.players[pid]
	changed := ok && update(p)
	i.mu.Unlock()

	if changed {
		i.notify(&Update{Kind: KindPlayer, ID: pid})
	}

	return ok
}

func (i *InmemoryStore) RemovePlayer(pid string) bool {
	i.mu.Lock()
	_, ok := i.players[pid]
	delete(i.players, pid)
	i.mu.Unlock()

	if ok {
		i.notify(&Update{Kind: KindPlayer, ID: pid, Removed: true})
	}

	return ok
}

// RetainPlayers removes every player not in pids and returns the removed
// ids.
func (i *InmemoryStore) RetainPlayers(pids []string) []string {
	keep := toSet(pids)

	i.mu.Lock()
	removed := make([]string, 0)
	for pid := range i.players {
		if _, ok := keep[pid]; !ok {
			delete(i.players, pid)
			removed = append(removed, pid)
		}
	}
	i.mu.Unlock()

	sort.Strings(removed)
	for _, pid := range removed {
		i.notify(&Update{Kind: KindPlayer, ID: pid, Removed: true})
	}

	return removed
}

// Player returns a copy of the player.
func (i *InmemoryStore) Player(pid string) (Player, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	p, ok := i.players[pid]
	if !ok {
		return Player{}, false
	}

	return *p, true
}

// Players returns copies of all players ordered by pid.
func (i *InmemoryStore) Players() []Player {
	i.mu.RLock()
	defer i.mu.RUnlock()

	players := make([]Player, 0, len(i.players))
	for _, p := range i.players {
		players = append(players, *p)
	}

	sort.Slice(players, func(a, b int) bool { return players[a].ID < players[b].ID })
	return players
}

func (i *InmemoryStore) UpsertGroup(gid string, update func(g *Group) bool) {
	i.mu.Lock()
	g, ok := i.groups[gid]
	if !ok {
		g = NewGroup(gid)
		i.groups[gid] = g
	}

	changed := update(g) || !ok
	i.mu.Unlock()

	if changed {
		i.notify(&Update{Kind: KindGroup, ID: gid, Created: !ok})
	}
}

func (i *InmemoryStore) UpdateGroup(gid string, update func(g *Group) bool) bool {
	i.mu.Lock()
	g, ok := i.groups[gid]
	changed := ok && update(g)
	i.mu.Unlock()

	if changed {
		i.notify(&Update{Kind: KindGroup, ID: gid})
	}

	return ok
}

func (i *InmemoryStore) RemoveGroup(gid string) bool {
	i.mu.Lock()
	_, ok := i.groups[gid]
	delete(i.groups, gid)
	i.mu.Unlock()

	if ok {
		i.notify(&Update{Kind: KindGroup, ID: gid, Removed: true})
	}

	return ok
}

func (i *InmemoryStore) RetainGroups(gids []string) []string {
	keep := toSet(gids)

	i.mu.Lock()
	removed := make([]string, 0)
	for gid := range i.groups {
		if _, ok := keep[gid]; !ok {
			delete(i.groups, gid)
			removed = append(removed, gid)
		}
	}
	i.mu.Unlock()

	sort.Strings(removed)
	for _, gid := range removed {
		i.notify(&Update{Kind: KindGroup, ID: gid, Removed: true})
	}

	return removed
}

func (i *InmemoryStore) Group(gid string) (Group, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	g, ok := i.groups[gid]
	if !ok {
		return Group{}, false
	}

	return g.clone(), true
}

func (i *InmemoryStore) Groups() []Group {
	i.mu.RLock()
	defer i.mu.RUnlock()

	groups := make([]Group, 0, len(i.groups))
	for _, g := range i.groups {
		groups = append(groups, g.clone())
	}

	sort.Slice(groups, func(a, b int) bool { return groups[a].ID < groups[b].ID })
	return groups
}

func (i *InmemoryStore) SetFavorites(records []map[string]string) {
	i.mu.Lock()
	i.favorites = cloneRecords(records)
	i.mu.Unlock()

	i.notify(&Update{Kind: KindFavorites})
}

func (i *InmemoryStore) Favorites() []map[string]string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return cloneRecords(i.favorites)
}

func (i *InmemoryStore) SetPlaylists(records []map[string]string) {
	i.mu.Lock()
	i.playlists = cloneRecords(records)
	i.mu.Unlock()

	i.notify(&Update{Kind: KindPlaylists})
}

func (i *InmemoryStore) Playlists() []map[string]string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return cloneRecords(i.playlists)
}

// ListenToUpdates returns a buffered channel receiving every Update. A
// listener that falls behind loses updates instead of blocking writers.
func (i *InmemoryStore) ListenToUpdates() <-chan *Update {
	i.updateMu.Lock()
	defer i.updateMu.Unlock()

	updateChan := make(chan *Update, 255)
	if !i.isRunning() {
		close(updateChan)
		return updateChan
	}

	i.updateChans = append(i.updateChans, updateChan)

	return updateChan
}

// StopListening closes ch and stops sending to it.
func (i *InmemoryStore) StopListening(ch <-chan *Update) {
	i.updateMu.Lock()
	defer i.updateMu.Unlock()

	for n, updateChan := range i.updateChans {
		if updateChan == ch {
			close(updateChan)
			i.updateChans = append(i.updateChans[:n], i.updateChans[n+1:]...)
			return
		}
	}
}

func (i *InmemoryStore) notify(update *Update) {
	i.updateMu.Lock()
	defer i.updateMu.Unlock()

	if !i.isRunning() {
		return
	}

	for _, updateChan := range i.updateChans {
		select {
		case updateChan <- update:
		default:
		}
	}
}

// Backup writes the store as a JSON snapshot that Restore accepts.
func (i *InmemoryStore) Backup() (doc []byte, err error) {
	doc = []byte(emptySnapshot)

	for _, p := range i.Players() {
		if doc, err = sjson.SetBytes(doc, "players.-1", playerRecord(p)); err != nil {
			return nil, err
		}
	}

	for _, g := range i.Groups() {
		if doc, err = sjson.SetBytes(doc, "groups.-1", groupRecord(g)); err != nil {
			return nil, err
		}
	}

	if favorites := i.Favorites(); len(favorites) > 0 {
		if doc, err = sjson.SetBytes(doc, "favorites", favorites); err != nil {
			return nil, err
		}
	}

	if playlists := i.Playlists(); len(playlists) > 0 {
		if doc, err = sjson.SetBytes(doc, "playlists", playlists); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// Restore replaces the whole content of the store with a snapshot.
func (i *InmemoryStore) Restore(values []byte) error {
	if !gjson.ValidBytes(values) {
		return ErrInvalidSnapshot
	}

	snapshot := gjson.ParseBytes(values)
	if !snapshot.IsObject() {
		return ErrInvalidSnapshot
	}

	players := make(map[string]*Player)
	snapshot.Get("players").ForEach(func(_, value gjson.Result) bool {
		if p := restorePlayer(value); p != nil {
			players[p.ID] = p
		}
		return true
	})

	groups := make(map[string]*Group)
	snapshot.Get("groups").ForEach(func(_, value gjson.Result) bool {
		if g := restoreGroup(value); g != nil {
			groups[g.ID] = g
		}
		return true
	})

	i.mu.Lock()
	i.players = players
	i.groups = groups
	i.favorites = restoreRecords(snapshot.Get("favorites"))
	i.playlists = restoreRecords(snapshot.Get("playlists"))
	i.mu.Unlock()

	for pid := range players {
		i.notify(&Update{Kind: KindPlayer, ID: pid})
	}

	for gid := range groups {
		i.notify(&Update{Kind: KindGroup, ID: gid})
	}

	return nil
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

func playerRecord(p Player) map[string]interface{} {
	return map[string]interface{}{
		"pid":         p.ID,
		"name":        p.Name,
		"model":       p.Model,
		"version":     p.Version,
		"ip":          p.IP,
		"network":     p.Network,
		"serial":      p.Serial,
		"online":      p.Online,
		"state":       string(p.State),
		"level":       p.Level,
		"mute":        p.Mute,
		"now_playing": p.NowPlaying,
	}
}

func groupRecord(g Group) map[string]interface{} {
	return map[string]interface{}{
		"gid":     g.ID,
		"name":    g.Name,
		"leader":  g.Leader,
		"players": g.Members,
		"state":   string(g.State),
		"level":   g.Level,
		"mute":    g.Mute,
	}
}

func restorePlayer(value gjson.Result) *Player {
	pid := value.Get("pid").String()
	if pid == "" {
		return nil
	}

	attrs := flatten(value)

	p := NewPlayer(pid)
	p.UpdateInfo(attrs)
	p.UpdateState(attrs)
	p.UpdateMedia(flatten(value.Get("now_playing")))

	online := value.Get("online")
	p.Online = !online.Exists() || online.Bool()

	return p
}

func restoreGroup(value gjson.Result) *Group {
	gid := value.Get("gid").String()
	if gid == "" {
		return nil
	}

	attrs := flatten(value)

	g := NewGroup(gid)
	g.UpdateInfo(attrs)
	g.UpdateState(attrs)

	members := make([]map[string]string, 0)
	value.Get("players").ForEach(func(_, member gjson.Result) bool {
		if member.IsObject() {
			members = append(members, flatten(member))
		} else {
			members = append(members, map[string]string{"pid": member.String()})
		}
		return true
	})

	g.UpdatePlayers(members)

	return g
}

func restoreRecords(value gjson.Result) []map[string]string {
	if !value.IsArray() {
		return nil
	}

	records := make([]map[string]string, 0)
	value.ForEach(func(_, record gjson.Result) bool {
		records = append(records, flatten(record))
		return true
	})

	return records
}

// flatten returns the scalar fields of a JSON object as strings.
func flatten(object gjson.Result) map[string]string {
	attrs := make(map[string]string)

	object.ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() || value.IsArray() {
			return true
		}

		attrs[key.String()] = value.String()
		return true
	})

	return attrs
}

func cloneRecords(records []map[string]string) []map[string]string {
	if records == nil {
		return nil
	}

	clone := make([]map[string]string, len(records))
	for n, record := range records {
		clone[n] = make(map[string]string, len(record))
		for k, v := range record {
			clone[n][k] = v
		}
	}

	return clone
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return set
}

var _ Store = (*InmemoryStore)(nil)
