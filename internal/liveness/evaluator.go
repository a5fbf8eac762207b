// Package liveness releases engines nobody is using. The Evaluator runs in
// the engine process; the Heartbeat runs in the host and keeps it informed.
package liveness

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dev-razz/Typerra/internal/logging"
)

type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

type Config struct {
	Interval        time.Duration
	ActivityVisible time.Duration
	ActivityHidden  time.Duration
	PingMiss        time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:        15 * time.Second,
		ActivityVisible: 10 * time.Minute,
		ActivityHidden:  3 * time.Minute,
		PingMiss:        60 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.ActivityVisible <= 0 {
		c.ActivityVisible = def.ActivityVisible
	}
	if c.ActivityHidden <= 0 {
		c.ActivityHidden = def.ActivityHidden
	}
	if c.PingMiss <= 0 {
		c.PingMiss = def.PingMiss
	}
	return c
}

type Disposer interface {
	DisposeAll()
}

type Snapshot struct {
	State          State
	LastActivityAt time.Time
	LastPingAt     time.Time
	Visible        bool
}

type Option func(*Evaluator)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// Evaluator disposes every engine once per idle episode: after the activity
// threshold or the ping-miss threshold is exceeded while active.
type Evaluator struct {
	cfg      Config
	disposer Disposer
	logger   *slog.Logger
	now      func() time.Time

	mu           sync.Mutex
	state        State
	lastActivity time.Time
	lastPing     time.Time
	visible      bool
}

func NewEvaluator(disposer Disposer, cfg Config, opts ...Option) *Evaluator {
	e := &Evaluator{
		cfg:      cfg.withDefaults(),
		disposer: disposer,
		logger:   logging.Nop(),
		now:      time.Now,
		state:    StateIdle,
		visible:  true,
	}
	for _, opt := range opts {
		opt(e)
	}
	now := e.now()
	e.lastActivity = now
	e.lastPing = now
	return e
}

// Touch records a model-invoking request. Leaving idle also refreshes the
// ping timestamp: the request itself proves the host is alive.
func (e *Evaluator) Touch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	if e.state == StateIdle {
		e.lastPing = now
		e.logger.Debug("liveness.active")
	}
	e.state = StateActive
	e.lastActivity = now
}

func (e *Evaluator) Ping(visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastPing = e.now()
	e.visible = visible
}

// Evaluate checks the thresholds once and reports whether it disposed.
func (e *Evaluator) Evaluate() bool {
	e.mu.Lock()
	if e.state != StateActive {
		e.mu.Unlock()
		return false
	}
	now := e.now()
	threshold := e.cfg.ActivityVisible
	if !e.visible {
		threshold = e.cfg.ActivityHidden
	}
	idleFor := now.Sub(e.lastActivity)
	silentFor := now.Sub(e.lastPing)
	if idleFor <= threshold && silentFor <= e.cfg.PingMiss {
		e.mu.Unlock()
		return false
	}
	e.state = StateIdle
	e.lastActivity = now
	e.lastPing = now
	visible := e.visible
	e.mu.Unlock()

	e.logger.Info("liveness.idle_dispose",
		"idle_for", idleFor.Round(time.Second).String(),
		"ping_silence", silentFor.Round(time.Second).String(),
		"visible", visible,
	)
	e.disposer.DisposeAll()
	return true
}

// Run evaluates every interval until ctx ends.
func (e *Evaluator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Evaluate()
		}
	}
}

func (e *Evaluator) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		State:          e.state,
		LastActivityAt: e.lastActivity,
		LastPingAt:     e.lastPing,
		Visible:        e.visible,
	}
}
