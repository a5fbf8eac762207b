// Package worker owns the engine process on the host side: it starts it on
// demand, restarts it with backoff after a crash, and routes calls through a
// bridge client bound to the live process.
package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/dev-razz/Typerra/internal/logging"
	"github.com/dev-razz/Typerra/internal/rpc"
)

const (
	maxRestartAttempt = 3
	closeGracePeriod  = 2 * time.Second
)

// ServeFunc runs an engine over the given streams until r reaches EOF.
type ServeFunc func(ctx context.Context, r io.Reader, w io.Writer) error

type conn struct {
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
	wait   func() error
	kill   func()
	label  string
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

func WithNotifyHandler(fn rpc.NotifyFunc) Option {
	return func(m *Manager) {
		m.onNotify = fn
	}
}

// WithCommand pins the engine executable instead of resolving it.
func WithCommand(path string, args ...string) Option {
	return func(m *Manager) {
		m.command = strings.TrimSpace(path)
		m.args = args
	}
}

// WithInProcess runs the engine inside this process over pipes instead of
// spawning an executable.
func WithInProcess(serve ServeFunc) Option {
	return func(m *Manager) {
		m.serve = serve
	}
}

type Manager struct {
	mu       sync.Mutex
	cond     *sync.Cond
	conn     *conn
	client   *rpc.Client
	failures int
	disabled bool
	starting bool
	closed   bool

	logger   *slog.Logger
	timeout  time.Duration
	onNotify rpc.NotifyFunc
	command  string
	args     []string
	serve    ServeFunc
	sleep    func(time.Duration)
}

func New(opts ...Option) *Manager {
	m := &Manager{
		logger:  logging.Nop(),
		timeout: rpc.DefaultTimeout,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *Manager) Start() error {
	return m.ensureRunning()
}

// Running reports whether an engine process is currently up. It never starts one.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil && !m.closed
}

// Reset clears the disabled state and failure count, allowing the engine to be restarted.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabled = false
	m.failures = 0
	m.logger.Info("worker.reset")
}

func (m *Manager) Status() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := map[string]any{
		"running":  m.conn != nil,
		"disabled": m.disabled,
		"closed":   m.closed,
		"failures": m.failures,
	}
	if m.client != nil {
		status["pending"] = m.client.Pending()
	}
	return status
}

// Call starts the engine if needed and sends one request.
func (m *Manager) Call(ctx context.Context, method string, params any, result any) error {
	if err := m.ensureRunning(); err != nil {
		return err
	}
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil {
		return ErrUnavailable
	}
	return client.Send(ctx, method, params, result)
}

// Notify sends a notification to a running engine only.
func (m *Manager) Notify(method string, params any) error {
	m.mu.Lock()
	client := m.client
	closed := m.closed
	m.mu.Unlock()
	if client == nil || closed {
		return ErrNotRunning
	}
	return client.Notify(method, params)
}

// Close stops the engine: stdin is closed so it can dispose and exit, and
// the process is killed if it has not exited within the grace period.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	c := m.conn
	client := m.client
	m.mu.Unlock()

	if c == nil {
		return nil
	}
	_ = c.stdin.Close()
	exited := make(chan struct{})
	go func() {
		_ = c.wait()
		close(exited)
	}()
	select {
	case <-exited:
	case <-time.After(closeGracePeriod):
		m.logger.Warn("worker.kill_after_grace")
		c.kill()
		<-exited
	}
	if client != nil {
		client.Close()
	}
	return nil
}

func (m *Manager) ensureRunning() error {
	m.mu.Lock()
	for m.starting {
		m.cond.Wait()
	}
	if m.closed {
		m.mu.Unlock()
		return ErrUnavailable
	}
	if m.conn != nil {
		m.mu.Unlock()
		return nil
	}
	if m.disabled {
		m.mu.Unlock()
		return ErrUnavailable
	}
	m.starting = true
	failures := m.failures
	m.mu.Unlock()

	if failures > 0 {
		backoff := time.Duration(1<<uint(failures-1)) * time.Second
		m.sleep(backoff)
	}

	err := m.startProcess()

	m.mu.Lock()
	m.starting = false
	m.cond.Broadcast()
	if err != nil {
		m.failures++
		if m.failures >= maxRestartAttempt {
			m.disabled = true
		}
	} else {
		m.failures = 0
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("worker.start_failed", "error", err.Error())
		return ErrUnavailable
	}
	return nil
}

func (m *Manager) startProcess() error {
	var (
		c   *conn
		err error
	)
	if m.serve != nil {
		c = m.spawnInProcess()
	} else {
		c, err = m.spawnCommand()
		if err != nil {
			return err
		}
	}

	client := rpc.NewClient(c.stdin,
		rpc.WithTimeout(m.timeout),
		rpc.WithLogger(m.logger),
		rpc.WithNotifyHandler(m.onNotify),
	)

	m.mu.Lock()
	m.conn = c
	m.client = client
	m.mu.Unlock()

	m.logger.Debug("worker.started", "engine", c.label)

	go m.readLoop(c, client)
	if c.stderr != nil {
		go m.stderrLoop(c.stderr)
	}
	go m.waitLoop(c)
	return nil
}

func (m *Manager) spawnCommand() (*conn, error) {
	path, args := m.command, m.args
	if path == "" {
		resolved, err := resolveEngineCommand()
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	cmd := exec.Command(path, args...)
	cmd.Env = os.Environ()
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	var once sync.Once
	var waitErr error
	return &conn{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		wait: func() error {
			once.Do(func() { waitErr = cmd.Wait() })
			return waitErr
		},
		kill: func() {
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
		},
		label: path,
	}, nil
}

func (m *Manager) spawnInProcess() *conn {
	engineIn, hostOut := io.Pipe()
	hostIn, engineOut := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var serveErr error
	go func() {
		defer close(done)
		serveErr = m.serve(ctx, engineIn, engineOut)
		_ = engineOut.Close()
	}()
	return &conn{
		stdin:  hostOut,
		stdout: hostIn,
		wait: func() error {
			<-done
			return serveErr
		},
		kill: func() {
			cancel()
			_ = engineIn.Close()
		},
		label: "in-process",
	}
}

func (m *Manager) readLoop(c *conn, client *rpc.Client) {
	err := client.Run(c.stdout)
	m.handleProcessExit(c, err)
}

func (m *Manager) stderrLoop(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if m.logWorkerLine(line) {
			continue
		}
		m.logger.Warn("worker.stderr", "message", line)
	}
}

// logWorkerLine relays one JSON log record written by the engine's slog
// handler into the host logger.
func (m *Manager) logWorkerLine(line string) bool {
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		return false
	}
	levelRaw, _ := payload["level"].(string)
	message, _ := payload["msg"].(string)
	if levelRaw == "" || message == "" {
		return false
	}
	level := strings.ToLower(strings.TrimSpace(levelRaw))
	attrs := make([]any, 0, len(payload)*2)
	for key, value := range payload {
		if key == "level" || key == "msg" || key == "time" {
			continue
		}
		attrs = append(attrs, key, value)
	}
	switch level {
	case "debug":
		m.logger.Debug(message, attrs...)
	case "info":
		m.logger.Info(message, attrs...)
	case "error":
		m.logger.Error(message, attrs...)
	default:
		m.logger.Warn(message, attrs...)
	}
	return true
}

func (m *Manager) waitLoop(c *conn) {
	err := c.wait()
	if err == nil {
		err = errors.New("process exited")
	}
	m.handleProcessExit(c, err)
}

func (m *Manager) handleProcessExit(c *conn, err error) {
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return
	}
	client := m.client
	m.conn = nil
	m.client = nil
	if !m.closed {
		m.failures++
		if m.failures >= maxRestartAttempt {
			m.disabled = true
		}
	}
	m.mu.Unlock()

	c.kill()
	if client != nil {
		client.Close()
	}
	if err != nil && !errors.Is(err, io.EOF) {
		m.logger.Warn("worker.exited", "error", err.Error())
	}
}
