package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luma/heosbridge/client"
	"github.com/luma/heosbridge/protocol"
	"github.com/luma/heosbridge/storage"
)

type playStateRequest struct {
	State string `json:"state" binding:"required"`
}

type volumeRequest struct {
	Level *int `json:"level" binding:"required,min=0,max=100"`
}

type muteRequest struct {
	Mute *bool `json:"mute" binding:"required"`
}

// stationRequest plays a station (mid) or queues a container (cid).
type stationRequest struct {
	SID  string `json:"sid"`
	CID  string `json:"cid"`
	MID  string `json:"mid"`
	Name string `json:"name"`
}

type groupRequest struct {
	PIDs []string `json:"pids" binding:"required,min=2"`
}

func (h *handlers) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.status())
}

func (h *handlers) getState(c *gin.Context) {
	doc, err := h.store.Backup()
	if err != nil {
		h.log.Error("Failed to back up store", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", doc)
}

func (h *handlers) listPlayers(c *gin.Context) {
	players := h.store.Players()

	views := make([]playerView, 0, len(players))
	for _, p := range players {
		views = append(views, newPlayerView(p))
	}

	c.JSON(http.StatusOK, views)
}

func (h *handlers) getPlayer(c *gin.Context) {
	p, ok := h.player(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, newPlayerView(p))
}

func (h *handlers) setPlayState(c *gin.Context) {
	p, ok := h.player(c)
	if !ok {
		return
	}

	var req playStateRequest
	if !bind(c, &req) {
		return
	}

	state, ok := storage.ParsePlayState(req.State)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state must be play, pause or stop"})
		return
	}

	h.sent(c, h.commands.SetPlayState(p.ID, protocol.PlayState(state)))
}

func (h *handlers) setVolume(c *gin.Context) {
	p, ok := h.player(c)
	if !ok {
		return
	}

	var req volumeRequest
	if !bind(c, &req) {
		return
	}

	h.sent(c, h.commands.SetVolume(p.ID, *req.Level))
}

func (h *handlers) setMute(c *gin.Context) {
	p, ok := h.player(c)
	if !ok {
		return
	}

	var req muteRequest
	if !bind(c, &req) {
		return
	}

	h.sent(c, h.commands.SetMute(p.ID, *req.Mute))
}

func (h *handlers) playStation(c *gin.Context) {
	p, ok := h.player(c)
	if !ok {
		return
	}

	var req stationRequest
	if !bind(c, &req) {
		return
	}

	switch {
	case req.MID != "":
		if req.SID == "" {
			req.SID = protocol.SourceFavorites
		}

		h.sent(c, h.commands.PlayStation(p.ID, req.SID, req.CID, req.MID, req.Name))

	case req.CID != "":
		if req.SID == "" {
			req.SID = protocol.SourcePlaylists
		}

		h.sent(c, h.commands.AddContainerToQueue(p.ID, req.SID, req.CID))

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mid or cid is required"})
	}
}

func (h *handlers) listGroups(c *gin.Context) {
	groups := h.store.Groups()

	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, newGroupView(g))
	}

	c.JSON(http.StatusOK, views)
}

func (h *handlers) getGroup(c *gin.Context) {
	g, ok := h.group(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, newGroupView(g))
}

func (h *handlers) groupPlayers(c *gin.Context) {
	var req groupRequest
	if !bind(c, &req) {
		return
	}

	for _, pid := range req.PIDs {
		if _, ok := h.store.Player(pid); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown player " + pid})
			return
		}
	}

	h.sent(c, h.commands.GroupPlayers(req.PIDs...))
}

func (h *handlers) ungroup(c *gin.Context) {
	g, ok := h.group(c)
	if !ok {
		return
	}

	leader := g.Leader
	if leader == "" {
		leader = g.ID
	}

	h.sent(c, h.commands.Ungroup(leader))
}

func (h *handlers) listFavorites(c *gin.Context) {
	c.JSON(http.StatusOK, records(h.store.Favorites()))
}

func (h *handlers) listPlaylists(c *gin.Context) {
	c.JSON(http.StatusOK, records(h.store.Playlists()))
}

func (h *handlers) reboot(c *gin.Context) {
	h.sent(c, h.commands.Reboot())
}

func (h *handlers) player(c *gin.Context) (storage.Player, bool) {
	p, ok := h.store.Player(c.Param("pid"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown player"})
	}

	return p, ok
}

func (h *handlers) group(c *gin.Context) (storage.Group, bool) {
	g, ok := h.store.Group(c.Param("gid"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown group"})
	}

	return g, ok
}

// sent answers a command that was handed to the connection. The outcome
// arrives later as a store change or a fail notification.
func (h *handlers) sent(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})

	case errors.Is(err, client.ErrNotConnected), errors.Is(err, client.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		h.log.Warn("Failed to send command", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	return true
}

func records(r []map[string]string) []map[string]string {
	if r == nil {
		return []map[string]string{}
	}

	return r
}
