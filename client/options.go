package client

import (
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPort              = 1255
	DefaultHeartbeatInterval = 80 * time.Second
	DefaultRetryInterval     = 5 * time.Second
	DefaultDialTimeout       = 5 * time.Second
)

type Options struct {
	// Host of the cluster member to connect to
	Host string

	// Port to connect to, DefaultPort when 0
	Port int

	// HeartbeatInterval is used by StartHeartbeat when it is given no interval
	HeartbeatInterval time.Duration

	// RetryInterval is the pause between two failed connection attempts
	RetryInterval time.Duration

	// InitialDelay is waited before the first attempt when Establish is asked to
	InitialDelay time.Duration

	DialTimeout time.Duration

	Log *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Port == 0 {
		o.Port = DefaultPort
	}

	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}

	if o.RetryInterval <= 0 {
		o.RetryInterval = DefaultRetryInterval
	}

	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	return o
}

func (o Options) addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}
