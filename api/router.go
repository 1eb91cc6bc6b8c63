package api

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luma/heosbridge/bridge"
	"github.com/luma/heosbridge/protocol"
	"github.com/luma/heosbridge/storage"
)

// Commander issues commands to the cluster. *client.Conn implements it.
type Commander interface {
	SetPlayState(pid string, state protocol.PlayState) error
	SetVolume(pid string, level int) error
	SetMute(pid string, mute bool) error
	PlayStation(pid, sid, cid, mid, name string) error
	AddContainerToQueue(pid, sid, cid string) error
	GroupPlayers(pids ...string) error
	Ungroup(leader string) error
	Reboot() error
}

// StatusFunc reports the bridge status, usually (*bridge.Bridge).Status.
type StatusFunc func() bridge.Status

type Options struct {
	Store    storage.Store
	Commands Commander
	Status   StatusFunc

	// DebugHTTP leaves gin in debug mode
	DebugHTTP bool

	Log *zap.Logger
}

type handlers struct {
	store    storage.Store
	commands Commander
	status   StatusFunc
	log      *zap.Logger
}

// NewRouter returns the HTTP control API.
func NewRouter(opts Options) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	h := &handlers{
		store:    opts.Store,
		commands: opts.Commands,
		status:   opts.Status,
		log:      log.Named("api"),
	}

	r := setupRouter(opts.DebugHTTP, log)

	// Ping test
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.GET("/status", h.getStatus)
	r.GET("/state", h.getState)
	r.GET("/events", h.streamEvents)

	r.GET("/players", h.listPlayers)
	r.GET("/players/:pid", h.getPlayer)
	r.POST("/players/:pid/state", h.setPlayState)
	r.POST("/players/:pid/volume", h.setVolume)
	r.POST("/players/:pid/mute", h.setMute)
	r.POST("/players/:pid/station", h.playStation)

	r.GET("/groups", h.listGroups)
	r.GET("/groups/:gid", h.getGroup)
	r.POST("/groups", h.groupPlayers)
	r.DELETE("/groups/:gid", h.ungroup)

	r.GET("/favorites", h.listFavorites)
	r.GET("/playlists", h.listPlaylists)

	r.POST("/reboot", h.reboot)

	return r
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Logs all requests, like a combined access and error log
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}
