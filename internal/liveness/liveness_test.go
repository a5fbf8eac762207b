package liveness

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dev-razz/Typerra/internal/protocol"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingDisposer struct {
	count int
}

func (d *countingDisposer) DisposeAll() { d.count++ }

func newEvaluator(t *testing.T) (*Evaluator, *manualClock, *countingDisposer) {
	t.Helper()
	clock := &manualClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	disposer := &countingDisposer{}
	return NewEvaluator(disposer, DefaultConfig(), WithClock(clock.Now)), clock, disposer
}

func TestIdleDisposalHappensOncePerEpisode(t *testing.T) {
	e, clock, disposer := newEvaluator(t)
	e.Touch()

	for i := 0; i < 41; i++ {
		clock.Advance(15 * time.Second)
		e.Ping(true)
		e.Evaluate()
	}
	if disposer.count != 1 {
		t.Fatalf("expected exactly one disposal after 10 idle minutes, got %d", disposer.count)
	}
	if e.Snapshot().State != StateIdle {
		t.Fatalf("expected idle state")
	}

	for i := 0; i < 100; i++ {
		clock.Advance(15 * time.Second)
		e.Evaluate()
	}
	if disposer.count != 1 {
		t.Fatalf("idle evaluator must not dispose again, got %d", disposer.count)
	}

	e.Touch()
	clock.Advance(61 * time.Second)
	if !e.Evaluate() || disposer.count != 2 {
		t.Fatalf("new activity must re-arm disposal, got %d", disposer.count)
	}
}

func TestPingDoesNotCountAsActivity(t *testing.T) {
	e, clock, disposer := newEvaluator(t)
	e.Touch()
	before := e.Snapshot().LastActivityAt

	clock.Advance(9 * time.Minute)
	e.Ping(true)
	if e.Snapshot().LastActivityAt != before {
		t.Fatalf("ping must not touch activity")
	}
	if e.Evaluate() {
		t.Fatalf("no threshold exceeded yet")
	}
	clock.Advance(2 * time.Minute)
	e.Ping(true)
	if !e.Evaluate() || disposer.count != 1 {
		t.Fatalf("expected activity threshold to dispose")
	}
}

func TestHiddenThresholdIsShorter(t *testing.T) {
	e, clock, disposer := newEvaluator(t)
	e.Touch()
	e.Ping(false)

	clock.Advance(2 * time.Minute)
	e.Ping(false)
	if e.Evaluate() {
		t.Fatalf("hidden threshold not reached")
	}
	clock.Advance(90 * time.Second)
	e.Ping(false)
	if !e.Evaluate() || disposer.count != 1 {
		t.Fatalf("expected hidden threshold to dispose")
	}
	if e.Snapshot().Visible {
		t.Fatalf("expected visibility to be recorded")
	}
}

func TestMissedPingsDispose(t *testing.T) {
	e, clock, disposer := newEvaluator(t)
	e.Touch()
	clock.Advance(59 * time.Second)
	if e.Evaluate() {
		t.Fatalf("ping-miss threshold not reached")
	}
	clock.Advance(2 * time.Second)
	if !e.Evaluate() || disposer.count != 1 {
		t.Fatalf("expected ping-miss disposal")
	}
	snap := e.Snapshot()
	if !snap.LastActivityAt.Equal(clock.Now()) || !snap.LastPingAt.Equal(clock.Now()) {
		t.Fatalf("timestamps must reset on disposal")
	}
}

func TestStartsIdle(t *testing.T) {
	e, clock, disposer := newEvaluator(t)
	clock.Advance(time.Hour)
	if e.Evaluate() || disposer.count != 0 {
		t.Fatalf("nothing to dispose before any activity")
	}
}

type fakePinger struct {
	running bool
	err     error
	sent    []protocol.PingParams
}

func (p *fakePinger) Running() bool { return p.running }

func (p *fakePinger) Notify(method string, params any) error {
	if method != protocol.MethodPing {
		return errors.New("unexpected method " + method)
	}
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, params.(protocol.PingParams))
	return nil
}

func TestHeartbeatOnlyPingsRunningEngine(t *testing.T) {
	pinger := &fakePinger{}
	hb := NewHeartbeat(pinger, time.Second, nil)

	if hb.Beat() || len(pinger.sent) != 0 {
		t.Fatalf("heartbeat must not reach a stopped engine")
	}

	pinger.running = true
	hb.SetVisible(false)
	if !hb.Beat() {
		t.Fatalf("expected ping to be sent")
	}
	if len(pinger.sent) != 1 || pinger.sent[0].Visible {
		t.Fatalf("unexpected pings %+v", pinger.sent)
	}

	pinger.err = errors.New("bridge closed")
	if hb.Beat() {
		t.Fatalf("failed ping must report false")
	}
}
