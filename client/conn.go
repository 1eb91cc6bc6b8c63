package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luma/heosbridge/protocol"
)

// Handler receives everything read from the cluster. Its methods run on the
// read goroutine (ConnectionLost may also run on the heartbeat goroutine)
// and must not block. They must not call Close.
type Handler interface {
	HandleMessage(msg *protocol.Message)
	ConnectionLost()
	ConnectionRestored()
}

// Conn is the single control connection to a cluster.
type Conn struct {
	opts Options
	log  *zap.Logger

	stateMu sync.Mutex
	state   State
	conn    net.Conn
	session string
	handler Handler

	// lost is set when a live connection failed, so the next successful
	// Establish reports ConnectionRestored
	lost bool

	establishMu sync.Mutex
	writeMu     sync.Mutex

	// unix nanos of the last line read
	lastRead int64

	heartbeatMu   sync.Mutex
	heartbeatStop chan struct{}

	// done will be closed when Close() is called
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func New(opts Options) *Conn {
	opts = opts.withDefaults()

	return &Conn{
		opts: opts,
		log:  opts.Log.With(zap.String("addr", opts.addr())),
		done: make(chan struct{}),
	}
}

// SetHandler sets the receiver of messages and connection health changes.
func (c *Conn) SetHandler(h Handler) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	c.handler = h
}

func (c *Conn) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	return c.state
}

// Session returns an id unique to the current socket, "" when there is none.
func (c *Conn) Session() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	return c.session
}

func (c *Conn) Addr() string {
	return c.opts.addr()
}

// Establish connects to the cluster and registers for change events. It
// returns immediately when already connected and otherwise blocks, retrying
// every RetryInterval, until it succeeds, ctx is cancelled or Close is
// called. Concurrent calls are serialized.
func (c *Conn) Establish(ctx context.Context, withInitialDelay bool) error {
	c.establishMu.Lock()
	defer c.establishMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}

	if c.State() == Connected {
		return nil
	}

	if withInitialDelay {
		if err := c.wait(ctx, c.opts.InitialDelay); err != nil {
			return err
		}
	}

	for attempt := 1; ; attempt++ {
		c.transition(Connecting)

		err := c.connect(ctx)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrClosed) {
			return err
		}

		c.log.Warn("Connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("retryIn", c.opts.RetryInterval),
			zap.Error(err))

		c.transition(Reconnecting)

		if err := c.wait(ctx, c.opts.RetryInterval); err != nil {
			return err
		}
	}
}

func (c *Conn) connect(ctx context.Context) error {
	ctx, cancel := c.withDone(ctx)
	defer cancel()

	dialer := net.Dialer{Timeout: c.opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.opts.addr())
	if err != nil {
		if c.isClosed() {
			return ErrClosed
		}

		return &ConnectionError{Message: "dial failed", Cause: err}
	}

	if err := c.write(conn, protocol.RegisterForChangeEvents(true)); err != nil {
		conn.Close()
		return &ConnectionError{Message: "handshake failed", Cause: err}
	}

	c.stateMu.Lock()
	if c.isClosed() {
		c.stateMu.Unlock()
		conn.Close()
		return ErrClosed
	}

	c.conn = conn
	c.state = Connected
	c.session = uuid.NewString()
	restored := c.lost
	c.lost = false
	handler := c.handler
	session := c.session

	c.touch()
	c.wg.Add(1)
	c.stateMu.Unlock()

	c.log.Info("Connected", zap.String("session", session))

	go c.readLoop(conn)

	if restored && handler != nil {
		handler.ConnectionRestored()
	}

	return nil
}

// Send writes one command. It fails with ErrNotConnected unless Connected.
// A failed write marks the connection as lost.
func (c *Conn) Send(cmd protocol.Command) error {
	if c.isClosed() {
		return ErrClosed
	}

	c.stateMu.Lock()
	conn, state := c.conn, c.state
	c.stateMu.Unlock()

	if state != Connected || conn == nil {
		return ErrNotConnected
	}

	if err := c.write(conn, cmd); err != nil {
		cerr := &ConnectionError{Message: "write " + cmd.ID() + " failed", Cause: err}
		c.connectionLost(conn, cerr)
		return cerr
	}

	return nil
}

// Close stops the connection for good. It unblocks Establish and waits for
// the read and heartbeat goroutines.
func (c *Conn) Close() (err error) {
	c.closeOnce.Do(func() {
		close(c.done)

		c.stateMu.Lock()
		conn := c.conn
		c.conn = nil
		c.session = ""
		c.state = Disconnected
		c.stateMu.Unlock()

		if conn != nil {
			err = conn.Close()
		}

		c.stopHeartbeat()
		c.wg.Wait()

		c.log.Info("Closed")
	})

	return err
}

func (c *Conn) readLoop(conn net.Conn) {
	defer c.wg.Done()

	log := c.log.Named("readLoop")
	reader := bufio.NewReader(conn)

	for {
		msg, err := protocol.ReadMessage(reader)
		if err != nil {
			var parseErr *protocol.ParseError
			if errors.As(err, &parseErr) {
				c.touch()
				log.Warn("Discarding malformed line", zap.Error(err))
				continue
			}

			if !c.isClosed() {
				c.connectionLost(conn, &ConnectionError{Message: "read failed", Cause: err})
			}

			return
		}

		c.touch()

		if h := c.currentHandler(); h != nil {
			h.HandleMessage(msg)
		}
	}
}

// connectionLost moves a live connection to Reconnecting. Reports for a
// socket that was already replaced or closed are ignored.
func (c *Conn) connectionLost(conn net.Conn, cause error) {
	c.stateMu.Lock()
	if c.conn != conn || c.state != Connected {
		c.stateMu.Unlock()
		return
	}

	c.conn = nil
	c.session = ""
	c.state = Reconnecting
	c.lost = true
	handler := c.handler
	c.stateMu.Unlock()

	conn.Close()

	c.log.Warn("Connection lost", zap.Error(cause))

	if handler != nil {
		handler.ConnectionLost()
	}
}

func (c *Conn) write(conn net.Conn, cmd protocol.Command) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return protocol.WriteCommand(conn, cmd)
}

func (c *Conn) transition(state State) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.isClosed() {
		return
	}

	c.state = state
}

func (c *Conn) currentHandler() Handler {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	return c.handler
}

func (c *Conn) touch() {
	atomic.StoreInt64(&c.lastRead, time.Now().UnixNano())
}

func (c *Conn) sinceLastRead() time.Duration {
	return time.Since(time.Unix(0, atomic.LoadInt64(&c.lastRead)))
}

// wait sleeps for d unless ctx is cancelled or Close is called first.
func (c *Conn) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil

	case <-ctx.Done():
		return ctx.Err()

	case <-c.done:
		return ErrClosed
	}
}

// withDone returns a context that is also cancelled by Close.
func (c *Conn) withDone(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// isClosed returns true if Close has been called
func (c *Conn) isClosed() bool {
	select {
	case <-c.done:
		return true

	default:
		return false
	}
}
