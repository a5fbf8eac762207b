package rpc

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrTimeout = errors.New("bridge request timed out")
	ErrClosed  = errors.New("bridge closed")
)

// cancellationMarkers are matched against lowercased remote error text.
var cancellationMarkers = []string{"cancel", "abort"}

// RemoteError is a failure reported by the other side of the bridge.
type RemoteError struct {
	Method  string
	Message string
	Data    json.RawMessage
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	if e.Method == "" {
		return e.Message
	}
	return e.Method + ": " + e.Message
}

// IsCancellation reports whether err is a benign cancellation: a remote
// error whose text carries a cancellation marker. Callers log these quietly.
func IsCancellation(err error) bool {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return false
	}
	msg := strings.ToLower(remote.Message)
	for _, marker := range cancellationMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
