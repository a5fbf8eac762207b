package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dev-razz/Typerra/internal/logging"
)

const DefaultTimeout = 60 * time.Second

// NotifyFunc receives notifications pushed by the engine.
type NotifyFunc func(method string, params json.RawMessage)

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithNotifyHandler(fn NotifyFunc) ClientOption {
	return func(c *Client) {
		c.onNotify = fn
	}
}

type response struct {
	result json.RawMessage
	errMsg string
	data   json.RawMessage
	closed bool
}

// Client is the host side of one bridge connection. Each request gets a fresh
// id; responses are routed back by id and any response whose request already
// timed out is dropped.
type Client struct {
	mu       sync.Mutex
	wmu      sync.Mutex
	writer   io.Writer
	pending  map[int]chan response
	nextID   int
	closed   bool
	timeout  time.Duration
	logger   *slog.Logger
	onNotify NotifyFunc
}

func NewClient(w io.Writer, opts ...ClientOption) *Client {
	c := &Client{
		writer:  w,
		pending: make(map[int]chan response),
		nextID:  1,
		timeout: DefaultTimeout,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send issues method and waits for its response, ctx, or the bridge timeout.
// A nil result discards the response payload.
func (c *Client) Send(ctx context.Context, method string, params any, result any) error {
	raw, err := marshalRaw(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	id := c.nextID
	c.nextID++
	respCh := make(chan response, 1)
	c.pending[id] = respCh
	c.mu.Unlock()

	env := Envelope{Direction: DirectionToEngine, Kind: KindRequest, ID: id, Method: method, Params: raw}
	if err := c.write(env); err != nil {
		c.removePending(id)
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		if resp.closed {
			return ErrClosed
		}
		if resp.errMsg != "" {
			return &RemoteError{Method: method, Message: resp.errMsg, Data: resp.data}
		}
		if result != nil && len(resp.result) > 0 {
			if err := json.Unmarshal(resp.result, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	case <-timer.C:
		c.removePending(id)
		c.logger.Warn("rpc.timeout", "method", method, "id", id, "timeout", c.timeout.String())
		return fmt.Errorf("%s: %w", method, ErrTimeout)
	case <-ctx.Done():
		c.removePending(id)
		return ctx.Err()
	}
}

// Notify sends a request that expects no response.
func (c *Client) Notify(method string, params any) error {
	raw, err := marshalRaw(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return c.write(Envelope{Direction: DirectionToEngine, Kind: KindRequest, ID: NotifyID, Method: method, Params: raw})
}

// Run reads envelopes from r until it fails, then closes the client.
func (c *Client) Run(r io.Reader) error {
	defer c.Close()
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			c.dispatch(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (c *Client) dispatch(line []byte) {
	if len(line) > maxMessageSize {
		c.logger.Warn("rpc.message_too_large", "bytes", len(line))
		return
	}
	env, err := Decode(line, DirectionToHost)
	if err != nil {
		c.logger.Warn("rpc.invalid_envelope", "error", err.Error())
		return
	}
	if env.Kind == KindRequest {
		if !env.IsNotification() {
			c.logger.Warn("rpc.unexpected_request", "method", env.Method, "id", env.ID)
			return
		}
		if c.onNotify != nil {
			c.onNotify(env.Method, env.Params)
		}
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[env.ID]
	delete(c.pending, env.ID)
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("rpc.late_response", "id", env.ID)
		return
	}
	ch <- response{result: env.Result, errMsg: env.Error, data: env.Data}
}

// Close fails every pending request with ErrClosed. Later sends fail too.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[int]chan response)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- response{closed: true}
	}
}

func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Client) write(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err = c.writer.Write(append(data, '\n'))
	return err
}

func (c *Client) removePending(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
