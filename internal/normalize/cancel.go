package normalize

import (
	"context"
	"errors"
	"strings"

	"github.com/dev-razz/Typerra/internal/model"
	"github.com/dev-razz/Typerra/internal/registry"
)

// IsCancellation reports whether err means the call was superseded or
// aborted rather than failed.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, registry.ErrDisposed) || errors.Is(err, model.ErrDestroyed) {
		return true
	}
	var abort *model.AbortError
	if errors.As(err, &abort) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "cancel") || strings.Contains(msg, "abort")
}
