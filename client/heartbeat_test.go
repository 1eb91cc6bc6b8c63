package client_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/heosbridge/client"
)

var _ = Describe("client / heartbeat", func() {
	var (
		cluster *fakeCluster
		h       *handler
		conn    *client.Conn
		p       *peer
	)

	BeforeEach(func() {
		cluster = newFakeCluster()
		h = &handler{}
		conn = client.New(client.Options{
			Host:              "127.0.0.1",
			Port:              cluster.Port(),
			HeartbeatInterval: 30 * time.Millisecond,
			RetryInterval:     10 * time.Millisecond,
		})
		conn.SetHandler(h)

		Expect(conn.Establish(context.Background(), false)).To(Succeed())
		p = cluster.Accept()
		p.ReadLine()
	})

	AfterEach(func() {
		conn.Close()
		cluster.Close()
	})

	It("sends heart_beat while the cluster answers", func() {
		conn.StartHeartbeat(0)

		for n := 0; n < 3; n++ {
			Expect(p.ReadLine()).To(Equal("heos://system/heart_beat"))
			p.WriteLine(`{"heos":{"command":"system/heart_beat","result":"success","message":""}}`)
		}

		Expect(conn.State()).To(Equal(client.Connected))
		Expect(h.Lost()).To(Equal(0))
	})

	It("reports the connection lost when the cluster stays silent", func() {
		conn.StartHeartbeat(20 * time.Millisecond)

		Eventually(conn.State).Should(Equal(client.Reconnecting))
		Eventually(h.Lost).Should(Equal(1))
	})

	It("replaces a running heartbeat", func() {
		conn.StartHeartbeat(time.Hour)
		conn.StartHeartbeat(20 * time.Millisecond)

		Eventually(h.Lost).Should(Equal(1))
	})

	It("stops with Close()", func() {
		conn.StartHeartbeat(20 * time.Millisecond)

		Expect(conn.Close()).To(Succeed())
		Consistently(h.Lost, 100*time.Millisecond).Should(Equal(0))
	})
})
