package transport

import (
	"go.uber.org/zap"

	"github.com/luma/heosbridge/storage"
)

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on, 0 picks a free one
	Port int

	// Reuseport controls setting SO_REUSEPORT, which allows more than one
	// listener on the same port
	Reuseport bool

	// Trace will log every line read and written. This is only useful in
	// local debugging
	Trace bool

	NumListeners int

	// Store holds the simulated cluster
	Store storage.Store

	Log *zap.Logger
}
