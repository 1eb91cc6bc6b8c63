package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/heosbridge/protocol"
	"github.com/luma/heosbridge/storage"
)

const (
	WriteQueueSize = 127
)

var ErrConnClosed = errors.New("connection closed")

// TCP simulates a cluster coordinator: it answers commands against its
// store and pushes change events to the connections that registered for
// them.
type TCP struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr string

	reuseport    bool
	numListeners int
	listeners    []*TCPListener

	store   storage.Store
	updates <-chan *storage.Update

	userMu sync.Mutex
	user   string

	log   *zap.Logger
	trace bool
}

func NewTCP(options Options) *TCP {
	numListeners := options.NumListeners

	if numListeners < 1 {
		numListeners = runtime.NumCPU()
	}

	if !options.Reuseport {
		numListeners = 1
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &TCP{
		addr:         net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		reuseport:    options.Reuseport,
		numListeners: numListeners,
		listeners:    make([]*TCPListener, 0, numListeners),
		trace:        options.Trace,
		store:        options.Store,
		log:          log,
	}
}

// Start binds every listener before returning. Connections are served in
// the background until Close.
func (t *TCP) Start(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	t.cancel = cancel

	t.log.Info("Starting tcp listeners", zap.Int("count", t.numListeners))

	for i := 0; i < t.numListeners; i++ {
		listener, err := t.listen()
		if err != nil {
			cancel()
			return multierr.Append(
				fmt.Errorf("failed to listen on %s: %w", t.addr, err),
				t.closeListeners(),
			)
		}

		if i == 0 {
			// Later listeners share the port the first one got
			t.addr = listener.Addr().String()
		}

		t.startListener(ctx, listener)
	}

	t.updates = t.store.ListenToUpdates()

	t.stopWaiter.Add(1)
	go func() {
		defer t.stopWaiter.Done()
		t.watchStore(ctx, t.updates)
	}()

	return nil
}

func (t *TCP) Store() storage.Store {
	return t.store
}

// Addr is the address the listeners are bound to.
func (t *TCP) Addr() string {
	return t.addr
}

func (t *TCP) Port() int {
	_, port, _ := net.SplitHostPort(t.addr)
	p, _ := strconv.Atoi(port)
	return p
}

// Connections returns the number of open client connections.
func (t *TCP) Connections() int {
	n := 0
	for _, listener := range t.listeners {
		n += listener.numConns()
	}

	return n
}

func (t *TCP) listen() (net.Listener, error) {
	if t.reuseport {
		return reuseport.Listen("tcp", t.addr)
	}

	return net.Listen("tcp", t.addr)
}

func (t *TCP) startListener(ctx context.Context, ln net.Listener) {
	listener := NewTCPListener(
		ctx,
		ln,
		t,
		t.log.Named("listener").With(zap.Int("listener", len(t.listeners))),
	)

	t.listeners = append(t.listeners, listener)

	t.stopWaiter.Add(1)
	go func() {
		defer t.stopWaiter.Done()

		if err := listener.Serve(); err != nil {
			t.log.Error("Failed to accept", zap.Error(err))
		}
	}()
}

// Close immediately closes all listeners and connections.
func (t *TCP) Close() error {
	t.log.Info("Stopping TCP server")

	if t.cancel != nil {
		t.cancel()
	}

	err := t.closeListeners()

	if t.updates != nil {
		t.store.StopListening(t.updates)
	}

	t.stopWaiter.Wait()
	t.log.Info("TCP server stopped")

	return err
}

func (t *TCP) closeListeners() (err error) {
	for _, listener := range t.listeners {
		err = multierr.Append(err, listener.Close())
	}

	return err
}

// Drop severs every client connection but keeps listening, like a
// coordinator that restarts.
func (t *TCP) Drop() {
	for _, listener := range t.listeners {
		listener.closeConns()
	}
}

// Broadcast pushes an event to every connection registered for change
// events.
func (t *TCP) Broadcast(name string, params ...protocol.Param) (err error) {
	line, err := protocol.EncodeEvent(name, params...)
	if err != nil {
		return err
	}

	for _, listener := range t.listeners {
		err = multierr.Append(err, listener.WriteEvent(line))
	}

	return err
}

// watchStore turns players and groups appearing or leaving into
// players_changed and groups_changed events.
func (t *TCP) watchStore(ctx context.Context, updates <-chan *storage.Update) {
	for {
		select {
		case <-ctx.Done():
			return

		case update, ok := <-updates:
			if !ok {
				return
			}

			if !update.Created && !update.Removed {
				continue
			}

			var err error
			switch update.Kind {
			case storage.KindPlayer:
				err = t.Broadcast(protocol.EventPlayersChanged)

			case storage.KindGroup:
				err = t.Broadcast(protocol.EventGroupsChanged)
			}

			if err != nil {
				t.log.Warn("Failed to broadcast store update", zap.Error(err))
			}
		}
	}
}

type TCPListener struct {
	ctx context.Context

	listener net.Listener
	server   *TCP
	log      *zap.Logger

	mu          sync.Mutex
	activeConns map[*TCPConn]struct{}

	loopWaiter sync.WaitGroup
}

func NewTCPListener(
	ctx context.Context,
	listener net.Listener,
	server *TCP,
	log *zap.Logger,
) *TCPListener {
	return &TCPListener{
		ctx:         ctx,
		listener:    listener,
		server:      server,
		activeConns: make(map[*TCPConn]struct{}),
		log:         log,
	}
}

// Close stops accepting, closes the active connections and waits for
// their loops to exit.
func (t *TCPListener) Close() error {
	err := t.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}

	t.closeConns()
	t.loopWaiter.Wait()

	return err
}

func (t *TCPListener) Serve() error {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				// The listener was closed while we were waiting for new
				// connections, that's fine.
				return nil
			}

			return err
		}

		tcpConn := NewTCPConn(t.ctx, conn.(*net.TCPConn), t.server, t.log.Named("conn"))
		t.addConn(tcpConn)

		t.loopWaiter.Add(1)
		go func() {
			defer t.loopWaiter.Done()
			defer t.removeConn(tcpConn)

			tcpConn.Start()
		}()
	}
}

func (t *TCPListener) WriteEvent(line []byte) (err error) {
	for _, conn := range t.conns() {
		if !conn.Registered() {
			continue
		}

		if _, werr := conn.Write(line); werr != nil {
			err = multierr.Append(err, werr)
		}
	}

	return err
}

func (t *TCPListener) closeConns() {
	for _, conn := range t.conns() {
		conn.Close()
	}
}

func (t *TCPListener) conns() []*TCPConn {
	t.mu.Lock()
	defer t.mu.Unlock()

	conns := make([]*TCPConn, 0, len(t.activeConns))
	for conn := range t.activeConns {
		conns = append(conns, conn)
	}

	return conns
}

func (t *TCPListener) numConns() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.activeConns)
}

func (t *TCPListener) addConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeConns[conn] = struct{}{}
}

func (t *TCPListener) removeConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.activeConns, conn)
}

type TCPConn struct {
	ctx        context.Context
	cancel     context.CancelFunc
	loopWaiter sync.WaitGroup

	id     string
	conn   *net.TCPConn
	server *TCP

	// registered is set by system/register_for_change_events?enable=on
	registered atomic.Bool

	writeQueue chan []byte

	closeOnce sync.Once
	closeErr  error

	log *zap.Logger
}

func NewTCPConn(
	parentCtx context.Context,
	conn *net.TCPConn,
	server *TCP,
	log *zap.Logger,
) *TCPConn {
	ctx, cancel := context.WithCancel(parentCtx)
	id := uuid.NewString()

	return &TCPConn{
		ctx:        ctx,
		cancel:     cancel,
		id:         id,
		conn:       conn,
		server:     server,
		writeQueue: make(chan []byte, WriteQueueSize),
		log:        log.With(zap.String("conn", id), zap.String("remote", conn.RemoteAddr().String())),
	}
}

func (t *TCPConn) Registered() bool {
	return t.registered.Load()
}

// Close stops both loops, flushing queued writes first, and closes the
// socket.
func (t *TCPConn) Close() error {
	t.cancel()

	// Unblock the read loop
	_ = t.conn.SetReadDeadline(time.Now())

	t.loopWaiter.Wait()

	return t.closeSocket()
}

func (t *TCPConn) closeSocket() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})

	return t.closeErr
}

// Start runs the read and write loops until the client leaves or Close is
// called.
func (t *TCPConn) Start() {
	t.loopWaiter.Add(2)

	go func() {
		defer t.loopWaiter.Done()
		t.ReadLoop()
	}()

	go func() {
		defer t.loopWaiter.Done()
		t.WriteLoop()
	}()

	t.loopWaiter.Wait()

	if err := t.closeSocket(); err != nil {
		t.log.Debug("Connection did not close cleanly", zap.Error(err))
	}
}

func (t *TCPConn) ReadLoop() {
	log := t.log.Named("readLoop")

	defer func() {
		// Stop the write loop once it has drained
		t.cancel()
		log.Debug("Read loop exited")
	}()

	reader := bufio.NewReader(t.conn)

	for {
		cmd, err := protocol.ReadCommand(reader)
		if err != nil {
			var parseErr *protocol.ParseError
			if errors.As(err, &parseErr) {
				log.Warn("Failed to parse client command", zap.Error(err))
				continue
			}

			if t.isRunning() && !errors.Is(err, io.EOF) && !strings.Contains(err.Error(), "connection reset") {
				log.Warn("Failed to read client command", zap.Error(err))
			}

			return
		}

		if t.server.trace {
			log.Debug("Read", zap.String("command", cmd.String()))
		}

		if err := t.server.dispatch(t, cmd); err != nil {
			log.Warn("Failed to dispatch command",
				zap.String("command", cmd.ID()),
				zap.Error(err))
		}
	}
}

func (t *TCPConn) WriteLoop() {
	log := t.log.Named("writeLoop")

	defer log.Debug("Write loop exited")

	for {
		select {
		case <-t.ctx.Done():
			t.drain(log)
			return

		// These are responses from the read loop and broadcast events
		case data := <-t.writeQueue:
			t.write(log, data)
		}
	}
}

func (t *TCPConn) drain(log *zap.Logger) {
	for {
		select {
		case data := <-t.writeQueue:
			t.write(log, data)

		default:
			return
		}
	}
}

func (t *TCPConn) write(log *zap.Logger, data []byte) {
	if t.server.trace {
		log.Debug("Write", zap.ByteString("data", protocol.RemoveTrailingCR(data)))
	}

	if _, err := t.conn.Write(data); err != nil {
		log.Warn("Failed to write from write queue", zap.Error(err))
	}
}

// Write queues data for the write loop.
func (t *TCPConn) Write(data []byte) (int, error) {
	if !t.isRunning() {
		return 0, ErrConnClosed
	}

	select {
	case t.writeQueue <- data:
		return len(data), nil

	case <-t.ctx.Done():
		return 0, ErrConnClosed
	}
}

// isRunning returns true if Close has not been called
func (t *TCPConn) isRunning() bool {
	select {
	case <-t.ctx.Done():
		// if we can read on this channel then it's been closed
		return false

	default:
		return true
	}
}
