package events_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/heosbridge/events"
)

var _ = Describe("events / Registry", func() {
	var registry *events.Registry

	BeforeEach(func() {
		registry = events.NewRegistry(zap.NewNop())
	})

	It("registers a listener once", func() {
		l := &recorder{}

		Expect(registry.Register(l)).To(BeTrue())
		Expect(registry.Register(l)).To(BeFalse())
		Expect(registry.Len()).To(Equal(1))

		registry.BridgeEvent(events.BridgeEvent{Type: "event", Command: "players_changed"})
		Expect(l.Calls()).To(HaveLen(1))
	})

	It("unregisters listeners", func() {
		l := &recorder{}
		registry.Register(l)

		Expect(registry.Unregister(l)).To(BeTrue())
		Expect(registry.Unregister(l)).To(BeFalse())

		registry.PlayerStateChanged("1", "state", "play")
		Expect(l.Calls()).To(BeEmpty())
	})

	It("refuses listeners that are not pointers", func() {
		l := tally{counts: map[string]int{}}

		Expect(func() {
			Expect(registry.Register(l)).To(BeFalse())
			Expect(registry.Register(l)).To(BeFalse())
			Expect(registry.Unregister(l)).To(BeFalse())
			Expect(registry.Register(nil)).To(BeFalse())
		}).NotTo(Panic())

		Expect(registry.Len()).To(BeZero())

		registry.PlayerStateChanged("1", "state", "play")
		Expect(l.counts).To(BeEmpty())
	})

	It("keeps notifying when a listener panics", func() {
		first, last := &recorder{}, &recorder{}
		registry.Register(first)
		registry.Register(&panicker{})
		registry.Register(last)

		Expect(func() {
			registry.PlayerStateChanged("1", "volume", "40")
			registry.PlayerMediaChanged("1", map[string]string{"song": "Song"})
		}).NotTo(Panic())

		Expect(first.Calls()).To(Equal([]string{"state 1 volume=40", "media 1"}))
		Expect(last.Calls()).To(Equal(first.Calls()))
	})

	It("gives every listener its own copy of the media", func() {
		a, b := &recorder{}, &recorder{}
		registry.Register(a)
		registry.Register(b)

		registry.PlayerMediaChanged("1", map[string]string{"song": "Song"})
		a.media["1"]["song"] = "changed"

		Expect(b.media["1"]).To(HaveKeyWithValue("song", "Song"))
	})
})
