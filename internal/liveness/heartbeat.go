package liveness

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dev-razz/Typerra/internal/logging"
	"github.com/dev-razz/Typerra/internal/protocol"
)

// Pinger is the host's view of the engine process.
type Pinger interface {
	Running() bool
	Notify(method string, params any) error
}

// Heartbeat pings the engine on an interval, but only while it is already
// running. It never starts the engine.
type Heartbeat struct {
	pinger   Pinger
	interval time.Duration
	logger   *slog.Logger
	visible  atomic.Bool
}

func NewHeartbeat(pinger Pinger, interval time.Duration, logger *slog.Logger) *Heartbeat {
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}
	if logger == nil {
		logger = logging.Nop()
	}
	h := &Heartbeat{pinger: pinger, interval: interval, logger: logger}
	h.visible.Store(true)
	return h
}

func (h *Heartbeat) SetVisible(visible bool) {
	h.visible.Store(visible)
}

// Beat sends one ping and reports whether it was sent.
func (h *Heartbeat) Beat() bool {
	if !h.pinger.Running() {
		return false
	}
	if err := h.pinger.Notify(protocol.MethodPing, protocol.PingParams{Visible: h.visible.Load()}); err != nil {
		h.logger.Debug("liveness.ping_failed", "error", err.Error())
		return false
	}
	return true
}

func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Beat()
		}
	}
}
