package model

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrDestroyed is the cause attached to calls cut short by Destroy.
var ErrDestroyed = errors.New("engine destroyed: call cancelled")

// Handle carries the identity and lifetime shared by every engine
// implementation. Backends embed it.
type Handle struct {
	kind    Kind
	id      string
	life    context.Context
	cancel  context.CancelFunc
	once    sync.Once
	onClose func() error
}

func NewHandle(kind Kind, onClose func() error) *Handle {
	life, cancel := context.WithCancel(context.Background())
	return &Handle{
		kind:    kind,
		id:      uuid.NewString(),
		life:    life,
		cancel:  cancel,
		onClose: onClose,
	}
}

func (h *Handle) Kind() Kind { return h.kind }

func (h *Handle) ID() string { return h.id }

// Destroy cancels every call bound with Bind. Repeated calls are no-ops.
func (h *Handle) Destroy() error {
	var err error
	h.once.Do(func() {
		h.cancel()
		if h.onClose != nil {
			err = h.onClose()
		}
	})
	return err
}

func (h *Handle) Destroyed() bool {
	return h.life.Err() != nil
}

// Bind derives a call context that also ends when the engine is destroyed.
func (h *Handle) Bind(ctx context.Context) (context.Context, context.CancelFunc) {
	callCtx, cancel := context.WithCancelCause(ctx)
	if h.life.Err() != nil {
		cancel(ErrDestroyed)
		return callCtx, func() { cancel(nil) }
	}
	stop := context.AfterFunc(h.life, func() { cancel(ErrDestroyed) })
	return callCtx, func() {
		stop()
		cancel(nil)
	}
}

// AbortError reports a call stopped before it produced a result, either by
// its caller or by Destroy.
type AbortError struct {
	Cause error
}

func (e *AbortError) Error() string {
	if e == nil || e.Cause == nil {
		return "the operation was aborted"
	}
	return "the operation was aborted: " + e.Cause.Error()
}

func (e *AbortError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Aborted converts err into an AbortError when callCtx has already ended, so
// callers can tell a stopped call from a failed one.
func Aborted(callCtx context.Context, err error) error {
	if err == nil || callCtx.Err() == nil {
		return err
	}
	return &AbortError{Cause: context.Cause(callCtx)}
}
