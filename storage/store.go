package storage

// Kind names the collection an Update refers to.
type Kind string

const (
	KindPlayer    Kind = "player"
	KindGroup     Kind = "group"
	KindFavorites Kind = "favorites"
	KindPlaylists Kind = "playlists"
)

// Update is sent to every ListenToUpdates channel after a change.
type Update struct {
	Kind Kind
	ID   string

	// Created is set when the entity was first seen, Removed when it left
	// the cluster.
	Created bool
	Removed bool
}

// Store is the local model of the cluster. The mutation callbacks run under
// the store's write lock: they must not call back into the store. A callback
// returns true when it changed the entity, which triggers an Update.
type Store interface {
	UpsertPlayer(pid string, update func(p *Player) bool)
	UpdatePlayer(pid string, update func(p *Player) bool) bool
	RemovePlayer(pid string) bool
	RetainPlayers(pids []string) []string
	Player(pid string) (Player, bool)
	Players() []Player

	UpsertGroup(gid string, update func(g *Group) bool)
	UpdateGroup(gid string, update func(g *Group) bool) bool
	RemoveGroup(gid string) bool
	RetainGroups(gids []string) []string
	Group(gid string) (Group, bool)
	Groups() []Group

	SetFavorites(records []map[string]string)
	Favorites() []map[string]string
	SetPlaylists(records []map[string]string)
	Playlists() []map[string]string

	Restore(values []byte) error
	Backup() ([]byte, error)

	ListenToUpdates() <-chan *Update
	StopListening(ch <-chan *Update)

	Close() error
}
