package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/luma/heosbridge/events"
)

const (
	DefaultPrefix    = "heos"
	DefaultQueueSize = 255
)

// Publisher sends payloads to a pub/sub channel.
type Publisher interface {
	Ping(ctx context.Context) error
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

type Options struct {
	Addr     string
	Password string
	DB       int

	// Prefix of the channel, notifications go to "<prefix>:events"
	Prefix string

	// QueueSize bounds the notifications waiting to be published
	QueueSize int

	Log *zap.Logger
}

// Redis publishes every listener notification as JSON on a Redis channel.
// Notifications are queued without blocking and published from a background
// goroutine, a full queue drops them.
type Redis struct {
	publisher Publisher
	channel   string
	instance  string
	queue     chan []byte
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewRedis returns a relay publishing through a go-redis client.
func NewRedis(opts Options) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return New(&redisPublisher{client: client}, opts)
}

// New returns a relay publishing through p.
func New(p Publisher, opts Options) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}

	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Redis{
		publisher: p,
		channel:   opts.Prefix + ":events",
		instance:  uuid.NewString(),
		queue:     make(chan []byte, opts.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	r.log = log.Named("relay").With(zap.String("channel", r.channel), zap.String("instance", r.instance))

	return r
}

// Channel is the channel notifications are published on.
func (r *Redis) Channel() string {
	return r.channel
}

// Start checks the server is reachable and starts publishing.
func (r *Redis) Start(ctx context.Context) error {
	if err := r.publisher.Ping(ctx); err != nil {
		return err
	}

	r.wg.Add(1)
	go r.publishLoop()

	r.log.Info("Relay started")

	return nil
}

// Close stops publishing. Queued notifications are published first.
func (r *Redis) Close() (err error) {
	r.closeOnce.Do(func() {
		r.cancel()
		r.wg.Wait()

		err = r.publisher.Close()
	})

	return err
}

func (r *Redis) PlayerStateChanged(pid, attribute, value string) {
	r.enqueue(encodeStateChange(r.instance, time.Now(), pid, attribute, value))
}

func (r *Redis) PlayerMediaChanged(pid string, media map[string]string) {
	r.enqueue(encodeMediaChange(r.instance, time.Now(), pid, media))
}

func (r *Redis) BridgeEvent(ev events.BridgeEvent) {
	r.enqueue(encodeBridgeEvent(r.instance, time.Now(), ev))
}

func (r *Redis) enqueue(payload []byte, err error) {
	if err != nil {
		r.log.Error("Failed to encode notification", zap.Error(err))
		return
	}

	select {
	case r.queue <- payload:
	default:
		r.log.Warn("Relay queue full, dropping notification")
	}
}

func (r *Redis) publishLoop() {
	defer r.wg.Done()

	for {
		select {
		case payload := <-r.queue:
			r.publish(payload)

		case <-r.ctx.Done():
			r.drain()
			return
		}
	}
}

func (r *Redis) drain() {
	for {
		select {
		case payload := <-r.queue:
			r.publish(payload)
		default:
			return
		}
	}
}

func (r *Redis) publish(payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.publisher.Publish(ctx, r.channel, payload); err != nil {
		r.log.Warn("Failed to publish notification", zap.Error(err))
	}
}

type redisPublisher struct {
	client *redis.Client
}

func (p *redisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

var _ events.Listener = (*Redis)(nil)
