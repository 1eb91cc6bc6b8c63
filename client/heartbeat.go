package client

import (
	"time"

	"go.uber.org/zap"

	"github.com/luma/heosbridge/protocol"
)

// StartHeartbeat sends system/heart_beat every interval while connected
// (Options.HeartbeatInterval when interval is 0). When nothing was read for
// longer than twice the interval the connection is considered lost. A
// running heartbeat is replaced.
func (c *Conn) StartHeartbeat(interval time.Duration) {
	if interval <= 0 {
		interval = c.opts.HeartbeatInterval
	}

	c.heartbeatMu.Lock()
	defer c.heartbeatMu.Unlock()

	if c.isClosed() {
		return
	}

	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
	}

	stop := make(chan struct{})
	c.heartbeatStop = stop

	c.wg.Add(1)
	go c.heartbeat(interval, stop)
}

func (c *Conn) stopHeartbeat() {
	c.heartbeatMu.Lock()
	defer c.heartbeatMu.Unlock()

	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}

func (c *Conn) heartbeat(interval time.Duration, stop <-chan struct{}) {
	defer c.wg.Done()

	log := c.log.Named("heartbeat")
	log.Debug("Started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return

		case <-c.done:
			return

		case <-ticker.C:
			c.beat(log, interval)
		}
	}
}

func (c *Conn) beat(log *zap.Logger, interval time.Duration) {
	c.stateMu.Lock()
	conn, state := c.conn, c.state
	c.stateMu.Unlock()

	if state != Connected {
		return
	}

	if silence := c.sinceLastRead(); silence > 2*interval {
		log.Warn("Heartbeat grace window exceeded", zap.Duration("silence", silence))
		c.connectionLost(conn, ErrHeartbeatTimeout)
		return
	}

	if err := c.Send(protocol.HeartBeat()); err != nil {
		log.Warn("Failed to send heartbeat", zap.Error(err))
	}
}
