package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luma/heosbridge/client"
	"github.com/luma/heosbridge/events"
	"github.com/luma/heosbridge/protocol"
	"github.com/luma/heosbridge/storage"
)

type Options struct {
	// Credentials of the HEOS account, sign in is skipped without a username
	Username string
	Password string

	// HeartbeatInterval overrides the connection's default interval
	HeartbeatInterval time.Duration

	Log *zap.Logger
}

// Status is a point in time view of the bridge.
type Status struct {
	Online   bool   `json:"online"`
	LoggedIn bool   `json:"logged_in"`
	State    string `json:"state"`
	Session  string `json:"session,omitempty"`
	Addr     string `json:"addr"`
}

// Bridge owns the connection to a cluster. It runs the initialize sequence
// (connect, heartbeat, sign in, scans), rescans when the cluster reports
// players or groups changed and reconnects when the connection is lost.
type Bridge struct {
	conn     *client.Conn
	store    storage.Store
	registry *events.Registry
	router   *events.Router
	opts     Options
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	online       bool
	loggedIn     bool
	initializing bool
	rerun        bool
	closed       bool
	wg           sync.WaitGroup
}

func New(conn *client.Conn, store storage.Store, opts Options) *Bridge {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	registry := events.NewRegistry(log)

	b := &Bridge{
		conn:     conn,
		store:    store,
		registry: registry,
		router:   events.NewRouter(store, registry, conn, log),
		opts:     opts,
		log:      log.Named("bridge"),
	}

	b.ctx, b.cancel = context.WithCancel(context.Background())

	conn.SetHandler(b.router)
	registry.Register(b)

	return b
}

// Registry is where additional listeners subscribe to notifications.
func (b *Bridge) Registry() *events.Registry {
	return b.registry
}

func (b *Bridge) Store() storage.Store {
	return b.store
}

func (b *Bridge) Conn() *client.Conn {
	return b.conn
}

// Start blocks until the first initialize sequence completed, ctx was
// cancelled or the bridge was closed.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return client.ErrClosed
	}
	b.initializing = true
	b.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-b.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	return b.initialize(ctx, false)
}

func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Status{
		Online:   b.online,
		LoggedIn: b.loggedIn,
		State:    b.conn.State().String(),
		Session:  b.conn.Session(),
		Addr:     b.conn.Addr(),
	}
}

// Close stops any reconnect in progress and closes the connection. It must
// not be called from a listener.
func (b *Bridge) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	err := b.conn.Close()
	b.wg.Wait()

	b.registry.Unregister(b)

	return err
}

// initialize runs the connect sequence. It is the only caller of Establish.
// A connection lost while it runs makes it start over, with the initial
// delay, until it ends on a live connection.
func (b *Bridge) initialize(ctx context.Context, withInitialDelay bool) error {
	for {
		b.mu.Lock()
		b.rerun = false
		b.mu.Unlock()

		if err := b.conn.Establish(ctx, withInitialDelay); err != nil {
			if !errors.Is(err, client.ErrClosed) && !errors.Is(err, context.Canceled) {
				b.log.Error("Failed to connect", zap.Error(err))
			}

			b.mu.Lock()
			b.initializing = false
			b.mu.Unlock()

			return err
		}

		b.conn.StartHeartbeat(b.opts.HeartbeatInterval)

		if b.setOnlineIfConnected() {
			b.log.Info("Bridge online", zap.String("addr", b.conn.Addr()))
		}

		if b.opts.Username != "" {
			b.send(protocol.SignIn(b.opts.Username, b.opts.Password))
		}

		b.send(protocol.GetPlayers())
		b.send(protocol.GetGroups())

		// Without an account the browse results are fetched right away, a sign
		// in fetches them once it completes
		if b.opts.Username == "" {
			b.fetchMedia()
		}

		if b.finishInitialize() {
			return nil
		}

		b.log.Warn("Connection lost while initializing, starting over")
		withInitialDelay = true
	}
}

// finishInitialize ends the running initialize unless the connection was
// lost in the meantime. Checked under the same lock reinitialize takes, so
// no loss goes unnoticed.
func (b *Bridge) finishInitialize() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed && (b.rerun || b.conn.State() != client.Connected) {
		return false
	}

	b.initializing = false
	return true
}

// reinitialize starts a background initialize. When one is running it is
// asked to start over instead.
func (b *Bridge) reinitialize() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	if b.initializing {
		b.rerun = true
		return
	}

	b.initializing = true
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		_ = b.initialize(b.ctx, true)
	}()
}

func (b *Bridge) fetchMedia() {
	b.send(protocol.GetFavorites())
	b.send(protocol.GetPlaylists())
}

func (b *Bridge) send(cmd protocol.Command) {
	if err := b.conn.Send(cmd); err != nil {
		b.log.Warn("Failed to send command", zap.String("command", cmd.ID()), zap.Error(err))
	}
}

func (b *Bridge) setOnline(online bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.online = online
	if !online {
		b.loggedIn = false
	}
}

// setOnlineIfConnected marks the bridge online unless the connection was
// already lost again.
func (b *Bridge) setOnlineIfConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn.State() != client.Connected {
		return false
	}

	b.online = true
	return true
}

func (b *Bridge) setLoggedIn() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.loggedIn = true
}

func (b *Bridge) PlayerStateChanged(pid, attribute, value string) {
	b.log.Debug("Player state changed",
		zap.String("pid", pid),
		zap.String("attribute", attribute),
		zap.String("value", value))
}

func (b *Bridge) PlayerMediaChanged(pid string, media map[string]string) {
	b.log.Debug("Player media changed", zap.String("pid", pid), zap.Any("media", media))
}

func (b *Bridge) BridgeEvent(ev events.BridgeEvent) {
	if ev.Failed() && ev.Command != events.ConnectionLost {
		b.log.Warn("Command failed",
			zap.String("type", ev.Type),
			zap.String("command", ev.Command),
			zap.String("code", ev.ErrorCode),
			zap.String("message", ev.ErrorMessage))
		return
	}

	switch ev.Command {
	case events.ConnectionLost:
		b.log.Warn("Bridge offline")
		b.setOnline(false)
		b.reinitialize()

	case events.ConnectionRestored:
		b.log.Info("Connection restored")

	case protocol.EventPlayersChanged:
		b.send(protocol.GetPlayers())

	case protocol.EventGroupsChanged:
		b.send(protocol.GetGroups())

	case protocol.CmdSignIn:
		b.setLoggedIn()
		b.fetchMedia()

	case protocol.EventUserChanged:
		b.fetchMedia()
	}
}

var _ events.Listener = (*Bridge)(nil)
