package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dev-razz/Typerra/internal/logging"
)

const maxMessageSize = 10 * 1024 * 1024

// Handler serves one inbound request. The returned error, if any, becomes
// the response's error string and data.
type Handler func(ctx context.Context, params json.RawMessage) (any, *Error)

type Error struct {
	Message string
	Data    any
}

// Server is the engine side of the bridge: it reads requests addressed to the
// engine and answers each non-notification request exactly once.
type Server struct {
	reader   *bufio.Reader
	writer   *bufio.Writer
	mu       sync.Mutex
	handlers map[string]Handler
	logger   *slog.Logger
	inflight sync.WaitGroup
}

func NewServer(r io.Reader, w io.Writer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		reader:   bufio.NewReaderSize(r, 64*1024),
		writer:   bufio.NewWriter(w),
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register must be called before Serve.
func (s *Server) Register(method string, handler Handler) {
	s.handlers[method] = handler
}

// Serve blocks until the reader reaches EOF or fails. Handlers run
// concurrently with the read loop.
func (s *Server) Serve(ctx context.Context) error {
	for {
		line, err := s.reader.ReadBytes('\n')
		if len(line) > 0 {
			s.dispatch(ctx, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.logger.Error("rpc.read_failed", "error", err.Error())
			return err
		}
	}
}

// Wait blocks until every dispatched handler has returned.
func (s *Server) Wait() {
	s.inflight.Wait()
}

func (s *Server) dispatch(ctx context.Context, line []byte) {
	if len(line) > maxMessageSize {
		s.logger.Warn("rpc.message_too_large", "bytes", len(line))
		return
	}
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	req, err := Decode(line, DirectionToEngine)
	if err != nil {
		s.logger.Warn("rpc.invalid_envelope", "error", err.Error())
		return
	}
	if req.Kind != KindRequest {
		s.logger.Warn("rpc.unexpected_response", "id", req.ID)
		return
	}
	handler, ok := s.handlers[req.Method]
	if !ok {
		s.logger.Warn("rpc.method_not_found", "method", req.Method)
		if !req.IsNotification() {
			s.sendError(req.ID, fmt.Sprintf("method not found: %s", req.Method), nil)
		}
		return
	}
	s.logger.Debug("rpc.request", "method", req.Method, "id", req.ID, "params", logging.RedactJSON(req.Params))
	s.inflight.Add(1)
	go s.handleRequest(ctx, req, handler)
}

func (s *Server) handleRequest(ctx context.Context, req Envelope, handler Handler) {
	defer s.inflight.Done()
	result, rpcErr := s.invoke(ctx, req, handler)
	if req.IsNotification() {
		return
	}
	if rpcErr != nil {
		s.logger.Debug("rpc.response_error", "method", req.Method, "id", req.ID, "error", rpcErr.Message)
		s.sendError(req.ID, rpcErr.Message, rpcErr.Data)
		return
	}
	raw, err := marshalRaw(result)
	if err != nil {
		s.logger.Error("rpc.encode_failed", "method", req.Method, "id", req.ID, "error", err.Error())
		s.sendError(req.ID, "encode result: "+err.Error(), nil)
		return
	}
	s.logger.Debug("rpc.response", "method", req.Method, "id", req.ID, "result", logging.RedactJSON(raw))
	s.send(Envelope{Direction: DirectionToHost, Kind: KindResponse, ID: req.ID, Result: raw})
}

func (s *Server) invoke(ctx context.Context, req Envelope, handler Handler) (result any, rpcErr *Error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("rpc.handler_panic", "method", req.Method, "id", req.ID, "panic", fmt.Sprint(r))
			result, rpcErr = nil, &Error{Message: fmt.Sprintf("internal error in %s", req.Method)}
		}
	}()
	return handler(ctx, req.Params)
}

// Notify pushes a side-effect-only message toward the host.
func (s *Server) Notify(method string, params any) {
	raw, err := marshalRaw(params)
	if err != nil {
		s.logger.Warn("rpc.notify_encode_failed", "method", method, "error", err.Error())
		return
	}
	s.logger.Debug("rpc.notify", "method", method, "params", logging.RedactJSON(raw))
	s.send(Envelope{Direction: DirectionToHost, Kind: KindRequest, ID: NotifyID, Method: method, Params: raw})
}

func (s *Server) sendError(id int, message string, data any) {
	env := Envelope{Direction: DirectionToHost, Kind: KindResponse, ID: id, Error: message}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			env.Data = raw
		}
	}
	if env.Error == "" {
		env.Error = "unknown error"
	}
	s.send(env)
}

func (s *Server) send(env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	_, _ = s.writer.Write(append(data, '\n'))
	_ = s.writer.Flush()
}
