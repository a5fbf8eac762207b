package worker

import "errors"

var (
	// ErrUnavailable means the engine process could not be started or was
	// disabled after repeated failures.
	ErrUnavailable = errors.New("engine process unavailable")
	// ErrNotRunning is returned by Notify, which never starts the engine.
	ErrNotRunning = errors.New("engine process not running")
)
