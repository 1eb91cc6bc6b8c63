package bridge_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/heosbridge/bridge"
	"github.com/luma/heosbridge/client"
	"github.com/luma/heosbridge/events"
	"github.com/luma/heosbridge/protocol"
	"github.com/luma/heosbridge/storage"
	"github.com/luma/heosbridge/transport"
)

var _ = Describe("bridge / Bridge", func() {
	var (
		cluster *transport.TCP
		store   *storage.InmemoryStore
		b       *bridge.Bridge
		rec     *recorder
	)

	start := func(opts bridge.Options) {
		conn := client.New(client.Options{
			Host:          "127.0.0.1",
			Port:          cluster.Port(),
			RetryInterval: 10 * time.Millisecond,
			InitialDelay:  10 * time.Millisecond,
		})

		opts.Log = zap.NewNop()
		b = bridge.New(conn, store, opts)
		b.Registry().Register(rec)

		Expect(b.Start(context.Background())).To(Succeed())
	}

	BeforeEach(func() {
		simStore := storage.NewInmemoryStore()
		Expect(simStore.Restore(transport.DefaultCluster)).To(Succeed())

		cluster = transport.NewTCP(transport.Options{Host: "127.0.0.1", Store: simStore, Log: zap.NewNop()})
		Expect(cluster.Start(context.Background())).To(Succeed())

		store = storage.NewInmemoryStore()
		rec = &recorder{}
	})

	AfterEach(func() {
		if b != nil {
			b.Close()
			b = nil
		}

		cluster.Close()
		cluster.Store().Close()
		store.Close()
	})

	It("loads players, groups and browse results once online", func() {
		start(bridge.Options{})

		Expect(b.Status().Online).To(BeTrue())
		Expect(b.Status().State).To(Equal("connected"))

		Eventually(store.Players).Should(HaveLen(3))
		Eventually(store.Groups).Should(HaveLen(1))
		Eventually(store.Favorites).Should(HaveLen(2))
		Eventually(store.Playlists).Should(HaveLen(2))

		g, _ := store.Group("1203884391")
		Expect(g.Leader).To(Equal("1203884391"))
		Expect(g.Members).To(ConsistOf("1203884391", "844915123"))
	})

	It("signs in when it has credentials", func() {
		start(bridge.Options{Username: "user@example.com", Password: "secret"})

		Eventually(func() bool { return b.Status().LoggedIn }).Should(BeTrue())
		Eventually(store.Favorites).Should(HaveLen(2))
		Eventually(func() int { return rec.count("sign_in") }).Should(Equal(1))
	})

	It("rescans groups when the cluster reports a change", func() {
		start(bridge.Options{})
		Eventually(store.Groups).Should(HaveLen(1))

		other, err := net.Dial("tcp", cluster.Addr())
		Expect(err).To(Succeed())
		defer other.Close()

		Expect(protocol.WriteCommand(other, protocol.GroupPlayers("-1465850739", "844915123"))).To(Succeed())

		Eventually(func() bool {
			_, ok := store.Group("-1465850739")
			return ok
		}).Should(BeTrue())

		Eventually(func() bool {
			_, ok := store.Group("1203884391")
			return ok
		}).Should(BeFalse())
	})

	It("goes offline and reconnects when the connection drops", func() {
		start(bridge.Options{})
		Eventually(cluster.Connections).Should(Equal(1))

		cluster.Drop()

		Eventually(func() int { return rec.count(events.ConnectionLost) }).Should(Equal(1))
		Eventually(func() int { return rec.count(events.ConnectionRestored) }).Should(Equal(1))
		Eventually(func() bool { return b.Status().Online }).Should(BeTrue())
		Expect(b.Conn().State()).To(Equal(client.Connected))
	})

	It("starts over when the connection drops while initializing", func() {
		flaky := newFlakyCluster(cluster.Addr(), 2)
		defer flaky.Close()

		conn := client.New(client.Options{
			Host:          "127.0.0.1",
			Port:          flaky.Port(),
			RetryInterval: 10 * time.Millisecond,
			InitialDelay:  10 * time.Millisecond,
		})

		b = bridge.New(conn, store, bridge.Options{Log: zap.NewNop()})
		b.Registry().Register(rec)

		Expect(b.Start(context.Background())).To(Succeed())

		Eventually(func() string { return b.Status().State }).Should(Equal("connected"))
		Eventually(func() bool { return b.Status().Online }).Should(BeTrue())
		Eventually(store.Players).Should(HaveLen(3))
		Expect(flaky.Accepted()).To(BeNumerically(">", 2))

		Consistently(func() bool {
			status := b.Status()
			return status.Online == (status.State == "connected")
		}, 200*time.Millisecond).Should(BeTrue())
	})

	It("Close() unblocks a Start against an unreachable cluster", func() {
		port := cluster.Port()
		cluster.Close()

		conn := client.New(client.Options{Host: "127.0.0.1", Port: port, RetryInterval: 10 * time.Millisecond})
		b = bridge.New(conn, store, bridge.Options{Log: zap.NewNop()})

		result := make(chan error, 1)
		go func() { result <- b.Start(context.Background()) }()

		Eventually(conn.State).Should(Equal(client.Reconnecting))
		Expect(b.Close()).To(Succeed())

		Eventually(result).Should(Receive(HaveOccurred()))
		Expect(b.Status().Online).To(BeFalse())
	})
})

type recorder struct {
	mu     sync.Mutex
	events []events.BridgeEvent
}

func (r *recorder) PlayerStateChanged(pid, attribute, value string) {}

func (r *recorder) PlayerMediaChanged(pid string, media map[string]string) {}

func (r *recorder) BridgeEvent(ev events.BridgeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)
}

func (r *recorder) count(command string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, ev := range r.events {
		if ev.Command == command {
			n++
		}
	}

	return n
}

// flakyCluster hangs up on the first connections right after the
// registration line and forwards the later ones to a cluster.
type flakyCluster struct {
	listener net.Listener
	upstream string
	drops    int32
	accepted int32
	wg       sync.WaitGroup
}

func newFlakyCluster(upstream string, drops int32) *flakyCluster {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).To(Succeed())

	f := &flakyCluster{listener: l, upstream: upstream, drops: drops}

	f.wg.Add(1)
	go f.acceptLoop()

	return f
}

func (f *flakyCluster) Port() int {
	return f.listener.Addr().(*net.TCPAddr).Port
}

func (f *flakyCluster) Accepted() int32 {
	return atomic.LoadInt32(&f.accepted)
}

func (f *flakyCluster) Close() {
	f.listener.Close()
	f.wg.Wait()
}

func (f *flakyCluster) acceptLoop() {
	defer f.wg.Done()

	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}

		if atomic.AddInt32(&f.accepted, 1) <= f.drops {
			go hangUp(conn)
			continue
		}

		go forward(conn, f.upstream)
	}
}

func hangUp(conn net.Conn) {
	_, _ = bufio.NewReader(conn).ReadString('\n')

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}

	conn.Close()
}

func forward(conn net.Conn, upstream string) {
	defer conn.Close()

	up, err := net.Dial("tcp", upstream)
	if err != nil {
		return
	}
	defer up.Close()

	done := make(chan struct{}, 2)

	go func() {
		_, _ = io.Copy(up, conn)
		done <- struct{}{}
	}()

	go func() {
		_, _ = io.Copy(conn, up)
		done <- struct{}{}
	}()

	<-done
}
