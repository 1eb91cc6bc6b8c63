package storage_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/luma/heosbridge/storage"
)

var _ = Describe("storage / InmemoryStore", func() {
	var store *storage.InmemoryStore

	BeforeEach(func() {
		store = storage.NewInmemoryStore()
	})

	AfterEach(func() {
		store.Close()
	})

	Describe("Close()", func() {
		It("does not panic when closed twice", func() {
			Expect(func() { store.Close() }).NotTo(Panic())
			Expect(func() { store.Close() }).NotTo(Panic())
		})

		It("closes update channels", func() {
			updates := store.ListenToUpdates()
			store.Close()

			Eventually(updates).Should(BeClosed())
		})
	})

	It("an empty store backs up to empty collections", func() {
		value, err := store.Backup()
		Expect(err).To(Succeed())
		Expect(string(value)).To(MatchJSON(`{"players":[],"groups":[],"favorites":[],"playlists":[]}`))
	})

	Describe("players", func() {
		It("creates a player on upsert", func() {
			store.UpsertPlayer("1", func(p *storage.Player) bool {
				return p.UpdateInfo(map[string]string{"name": "Kitchen"})
			})

			p, ok := store.Player("1")
			Expect(ok).To(BeTrue())
			Expect(p.Name).To(Equal("Kitchen"))
		})

		It("does not create a player on update", func() {
			found := store.UpdatePlayer("1", func(p *storage.Player) bool { return true })

			Expect(found).To(BeFalse())
			Expect(store.Players()).To(BeEmpty())
		})

		It("returns copies", func() {
			store.UpsertPlayer("1", func(p *storage.Player) bool { return false })

			p, _ := store.Player("1")
			p.Level = 99

			again, _ := store.Player("1")
			Expect(again.Level).To(Equal(0))
		})

		It("removes players missing from a retained set", func() {
			for _, pid := range []string{"1", "2", "3"} {
				store.UpsertPlayer(pid, func(p *storage.Player) bool { return false })
			}

			Expect(store.RetainPlayers([]string{"2"})).To(Equal([]string{"1", "3"}))
			Expect(store.Players()).To(HaveLen(1))
			Expect(store.Players()[0].ID).To(Equal("2"))
		})
	})

	Describe("groups", func() {
		It("returns member lists that cannot alter the store", func() {
			store.UpsertGroup("1", func(g *storage.Group) bool {
				return g.UpdatePlayers([]map[string]string{{"pid": "1"}, {"pid": "2"}})
			})

			g, ok := store.Group("1")
			Expect(ok).To(BeTrue())
			g.Members[0] = "9"

			again, _ := store.Group("1")
			Expect(again.Members).To(Equal([]string{"1", "2"}))
		})

		It("removes groups", func() {
			store.UpsertGroup("1", func(g *storage.Group) bool { return false })

			Expect(store.RemoveGroup("1")).To(BeTrue())
			Expect(store.RemoveGroup("1")).To(BeFalse())
		})
	})

	Describe("ListenToUpdates()", func() {
		It("sends on the update channel when an entity changes", func() {
			updates := store.ListenToUpdates()

			store.UpsertPlayer("1", func(p *storage.Player) bool { return false })

			Eventually(updates).Should(Receive(Equal(&storage.Update{Kind: storage.KindPlayer, ID: "1", Created: true})))
		})

		It("does not send when nothing changed", func() {
			store.UpsertPlayer("1", func(p *storage.Player) bool { return false })
			updates := store.ListenToUpdates()

			store.UpdatePlayer("1", func(p *storage.Player) bool { return false })

			Consistently(updates).ShouldNot(Receive())
		})

		It("sends removals", func() {
			store.UpsertGroup("1", func(g *storage.Group) bool { return false })
			updates := store.ListenToUpdates()

			store.RetainGroups(nil)

			Eventually(updates).Should(Receive(Equal(&storage.Update{Kind: storage.KindGroup, ID: "1", Removed: true})))
		})

		It("does not block when a listener falls behind", func() {
			store.ListenToUpdates()

			Expect(func() {
				for n := 0; n < 1000; n++ {
					store.SetFavorites(nil)
				}
			}).NotTo(Panic())
		})

		It("stops sending after StopListening()", func() {
			updates := store.ListenToUpdates()
			store.StopListening(updates)

			Eventually(updates).Should(BeClosed())
			Expect(func() { store.SetPlaylists(nil) }).NotTo(Panic())
		})
	})

	Describe("Backup() / Restore()", func() {
		It("round trips players, groups and browse results", func() {
			store.UpsertPlayer("1", func(p *storage.Player) bool {
				p.Online = true
				p.UpdateInfo(map[string]string{"name": "Kitchen", "model": "HEOS 1"})
				p.UpdateState(map[string]string{"state": "play", "level": "25", "mute": "off"})
				return p.UpdateMedia(map[string]string{"song": "Song"})
			})
			store.UpsertGroup("7", func(g *storage.Group) bool {
				g.UpdateInfo(map[string]string{"name": "Downstairs"})
				return g.UpdatePlayers([]map[string]string{{"pid": "2"}, {"pid": "1", "role": "leader"}})
			})
			store.SetFavorites([]map[string]string{{"mid": "s1", "name": "Radio"}})

			snapshot, err := store.Backup()
			Expect(err).To(Succeed())
			Expect(gjson.GetBytes(snapshot, "players.0.now_playing.song").String()).To(Equal("Song"))

			restored := storage.NewInmemoryStore()
			defer restored.Close()
			Expect(restored.Restore(snapshot)).To(Succeed())

			Expect(restored.Players()).To(Equal(store.Players()))
			Expect(restored.Groups()).To(Equal(store.Groups()))
			Expect(restored.Favorites()).To(Equal(store.Favorites()))
		})

		It("accepts member records as objects", func() {
			err := store.Restore([]byte(`{"groups":[{"gid":"1","name":"G","players":[{"pid":"5","role":"leader"},{"pid":"6","role":"member"}]}]}`))
			Expect(err).To(Succeed())

			g, ok := store.Group("1")
			Expect(ok).To(BeTrue())
			Expect(g.Leader).To(Equal("5"))
			Expect(g.Members).To(Equal([]string{"5", "6"}))
		})

		It("rejects invalid snapshots", func() {
			Expect(store.Restore([]byte(`{"players":`))).To(MatchError(storage.ErrInvalidSnapshot))
			Expect(store.Restore([]byte(`[]`))).To(MatchError(storage.ErrInvalidSnapshot))
		})
	})
})
