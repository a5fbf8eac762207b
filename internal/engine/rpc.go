package engine

import (
	"context"
	"encoding/json"

	"github.com/dev-razz/Typerra/internal/errinfo"
	"github.com/dev-razz/Typerra/internal/protocol"
	"github.com/dev-razz/Typerra/internal/rpc"
)

type handler func(context.Context, json.RawMessage) (any, *errinfo.ErrorInfo)

// Register exposes every method on server and routes model progress back
// through it.
func (e *Engine) Register(server *rpc.Server) {
	e.SetNotifier(server.Notify)
	register := func(method string, fn handler) {
		server.Register(method, func(ctx context.Context, params json.RawMessage) (any, *rpc.Error) {
			result, errInfo := fn(ctx, params)
			if errInfo != nil {
				msg := errInfo.ErrorCode
				if errInfo.Detail != "" {
					msg = errInfo.Detail
				}
				return nil, &rpc.Error{Message: msg, Data: errInfo}
			}
			return result, nil
		})
	}

	register(protocol.MethodPing, e.Ping)
	register(protocol.MethodStatus, e.Status)
	register(protocol.MethodWarmup, e.Warmup)
	register(protocol.MethodEnsure, e.Ensure)
	register(protocol.MethodDispose, e.Dispose)
	register(protocol.MethodDisposeNonCorrector, e.DisposeNonCorrector)
	register(protocol.MethodWrite, e.Write)
	register(protocol.MethodRewrite, e.Rewrite)
	register(protocol.MethodProofread, e.Proofread)
}
