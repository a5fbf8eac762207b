package engine

import (
	"context"
	"errors"
	"net"

	"github.com/dev-razz/Typerra/internal/errinfo"
	"github.com/dev-razz/Typerra/internal/llm"
	"github.com/dev-razz/Typerra/internal/model"
	"github.com/dev-razz/Typerra/internal/normalize"
	"github.com/dev-razz/Typerra/internal/registry"
)

// acquireError maps a registry failure. Anything not recognised is a
// creation failure, which the caller may retry.
func acquireError(phase string, kind model.Kind, err error) *errinfo.ErrorInfo {
	var unavailable *registry.UnavailableError
	if errors.As(err, &unavailable) {
		return errinfo.EngineUnavailable(phase, string(kind), err.Error())
	}
	if info := mapLLMError(phase, kind, err); info != nil {
		return info
	}
	return errinfo.EngineCreateFailed(phase, string(kind), err.Error())
}

func callError(phase string, kind model.Kind, err error) *errinfo.ErrorInfo {
	if info := mapLLMError(phase, kind, err); info != nil {
		return info
	}
	info := errinfo.Internal(phase, err.Error())
	info.Model = string(kind)
	return info
}

func mapLLMError(phase string, kind model.Kind, err error) *errinfo.ErrorInfo {
	var info *errinfo.ErrorInfo
	var netErr net.Error
	switch {
	case normalize.IsCancellation(err):
		info = errinfo.UserCanceled(phase, "request cancelled: "+err.Error())
	case errors.Is(err, llm.ErrUnauthorized):
		info = errinfo.ProviderAuthFailed(phase, err.Error())
	case errors.Is(err, llm.ErrEgressBlocked):
		info = errinfo.EgressBlocked(phase, "backend endpoint not allowed")
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrRateLimited), errors.Is(err, llm.ErrEmptyResponse):
		info = errinfo.ProviderUnavailable(phase, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		info = errinfo.NetworkUnavailable(phase, err.Error())
	case errors.As(err, &netErr):
		info = errinfo.NetworkUnavailable(phase, err.Error())
	default:
		return nil
	}
	info.Model = string(kind)
	return info
}
