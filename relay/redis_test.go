package relay_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/luma/heosbridge/events"
	"github.com/luma/heosbridge/relay"
)

var _ = Describe("relay / Redis", func() {
	var (
		pub *publisher
		r   *relay.Redis
	)

	BeforeEach(func() {
		pub = &publisher{}
		r = relay.New(pub, relay.Options{Prefix: "test", Log: zap.NewNop()})
	})

	AfterEach(func() {
		r.Close()
	})

	It("publishes on <prefix>:events", func() {
		Expect(r.Start(context.Background())).To(Succeed())

		r.PlayerStateChanged("1", "volume", "30")

		Eventually(pub.count).Should(Equal(1))
		Expect(pub.channels()).To(ConsistOf("test:events"))
	})

	It("encodes player state changes", func() {
		Expect(r.Start(context.Background())).To(Succeed())

		r.PlayerStateChanged("1", "state", "play")

		Eventually(pub.count).Should(Equal(1))
		payload := pub.payload(0)
		Expect(payload.Get("kind").String()).To(Equal(relay.KindPlayerState))
		Expect(payload.Get("pid").String()).To(Equal("1"))
		Expect(payload.Get("attribute").String()).To(Equal("state"))
		Expect(payload.Get("value").String()).To(Equal("play"))
		Expect(payload.Get("instance").String()).NotTo(BeEmpty())
		Expect(payload.Get("time").String()).NotTo(BeEmpty())
	})

	It("encodes media as an object", func() {
		Expect(r.Start(context.Background())).To(Succeed())

		r.PlayerMediaChanged("1", map[string]string{"song": "Song", "artist": "Artist"})

		Eventually(pub.count).Should(Equal(1))
		Expect(pub.payload(0).Get("media").Raw).To(MatchJSON(`{"song":"Song","artist":"Artist"}`))
	})

	It("includes error details of failed commands only", func() {
		Expect(r.Start(context.Background())).To(Succeed())

		r.BridgeEvent(events.BridgeEvent{Type: "player", Result: "fail", Command: "set_volume", ErrorCode: "9", ErrorMessage: "Parameter out of range"})
		r.BridgeEvent(events.BridgeEvent{Type: "event", Command: "players_changed"})

		Eventually(pub.count).Should(Equal(2))

		failed := pub.payload(0)
		Expect(failed.Get("kind").String()).To(Equal(relay.KindBridge))
		Expect(failed.Get("error.code").String()).To(Equal("9"))
		Expect(failed.Get("error.message").String()).To(Equal("Parameter out of range"))

		rescan := pub.payload(1)
		Expect(rescan.Get("command").String()).To(Equal("players_changed"))
		Expect(rescan.Get("result").String()).To(Equal(""))
		Expect(rescan.Get("error").Exists()).To(BeFalse())
	})

	It("publishes queued notifications on Close()", func() {
		r.BridgeEvent(events.BridgeEvent{Type: "event", Command: "groups_changed"})
		Expect(r.Start(context.Background())).To(Succeed())

		Expect(r.Close()).To(Succeed())
		Expect(pub.count()).To(Equal(1))
		Expect(pub.closed).To(BeTrue())
	})

	It("does not block when the queue is full", func() {
		r = relay.New(pub, relay.Options{QueueSize: 1, Log: zap.NewNop()})

		Expect(func() {
			for n := 0; n < 10; n++ {
				r.PlayerStateChanged("1", "volume", "1")
			}
		}).NotTo(Panic())
	})

	It("fails to start when the server is unreachable", func() {
		pub.pingErr = errors.New("connection refused")

		Expect(r.Start(context.Background())).To(MatchError("connection refused"))
	})
})

type publisher struct {
	mu       sync.Mutex
	messages []message
	pingErr  error
	closed   bool
}

type message struct {
	channel string
	payload []byte
}

func (p *publisher) Ping(ctx context.Context) error {
	return p.pingErr
}

func (p *publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, message{channel, payload})
	return nil
}

func (p *publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return nil
}

func (p *publisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.messages)
}

func (p *publisher) channels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	channels := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		channels = append(channels, m.channel)
	}

	return channels
}

func (p *publisher) payload(n int) gjson.Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	return gjson.ParseBytes(p.messages[n].payload)
}
