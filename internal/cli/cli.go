// Package cli implements the typerra command line: the editor plus one-shot
// proofread, rewrite and write commands, settings and key management.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dev-razz/Typerra/internal/appdirs"
	"github.com/dev-razz/Typerra/internal/config"
	"github.com/dev-razz/Typerra/internal/engine"
	"github.com/dev-razz/Typerra/internal/host"
	"github.com/dev-razz/Typerra/internal/logging"
	"github.com/dev-razz/Typerra/internal/realtime"
	"github.com/dev-razz/Typerra/internal/secrets"
	"github.com/dev-razz/Typerra/internal/settings"
	"github.com/dev-razz/Typerra/internal/tui"
	"github.com/dev-razz/Typerra/internal/worker"
)

const usageText = `Usage:
  typerra [global flags] <command> [args]

Commands:
  edit [file]                               open the editor (default)
  proofread [--json] <file|->               print corrected text and ranges
  rewrite [--tone t] [--diff] <file|->      rewrite text
  write [--tone t] [--length l] <prompt>    draft text from a prompt
  status                                    show engine state
  settings get
  settings set realtime on|off
  settings set tone formal|neutral|casual
  key set <key|->
  key clear

Global flags:
  --in-process      run the engine inside this process
  --engine <path>   engine executable
  --debug           verbose logging
`

type globals struct {
	cfg       config.Config
	inProcess bool
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	logger    *slog.Logger
}

func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("typerra", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inProcess := fs.Bool("in-process", false, "run the engine inside this process")
	enginePath := fs.String("engine", cfg.Engine.Path, "engine executable")
	debug := fs.Bool("debug", cfg.Debug, "verbose logging")
	fs.Usage = func() {
		_, _ = io.WriteString(stderr, usageText)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Engine.Path = strings.TrimSpace(*enginePath)
	cfg.Debug = *debug

	g := &globals{cfg: cfg, inProcess: *inProcess, stdin: stdin, stdout: stdout, stderr: stderr}

	remaining := fs.Args()
	command := "edit"
	if len(remaining) > 0 {
		command = remaining[0]
		remaining = remaining[1:]
	}

	if command != "edit" {
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		if cfg.Debug {
			level = slog.LevelDebug
		}
		g.logger = logging.NewStream(stderr, logging.FormatText, level)
	}

	switch command {
	case "edit":
		return runEdit(ctx, g, remaining)
	case "proofread":
		return runProofread(ctx, g, remaining)
	case "rewrite":
		return runRewrite(ctx, g, remaining)
	case "write":
		return runWrite(ctx, g, remaining)
	case "status":
		return runStatus(ctx, g, remaining)
	case "settings":
		return runSettings(ctx, g, remaining)
	case "key":
		return runKey(g, remaining)
	case "help", "-h", "--help":
		fs.Usage()
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (g *globals) settingsStore() *settings.Store {
	return settings.NewStore(appdirs.SettingsPath(g.cfg.DataDir))
}

func (g *globals) secretsStore() *secrets.Store {
	return secrets.NewStore(appdirs.SecretsPaths(g.cfg.DataDir))
}

// openSession starts a host session. The engine itself starts on the first
// call.
func (g *globals) openSession() (*host.Session, error) {
	workerOpts := []worker.Option{worker.WithTimeout(g.cfg.Bridge.Timeout)}
	if g.inProcess {
		apiKey := g.cfg.APIKey()
		if apiKey == "" {
			stored, err := g.secretsStore().APIKey()
			if err != nil {
				g.logger.Warn("cli.secrets_unreadable", "error", err.Error())
			}
			apiKey = stored
		}
		backend, err := engine.NewBackend(g.cfg, apiKey, g.logger)
		if err != nil {
			return nil, err
		}
		runtime := engine.NewRuntime(g.cfg, backend, g.logger.With("process", "engine"))
		workerOpts = append(workerOpts, worker.WithInProcess(runtime.Serve))
	} else {
		workerOpts = append(workerOpts, worker.WithCommand(g.cfg.Engine.Path, "-log-format", logging.FormatJSON))
	}
	return host.New(g.settingsStore(),
		host.WithLogger(g.logger),
		host.WithHeartbeatInterval(g.cfg.Liveness.Interval),
		host.WithWorkerOptions(workerOpts...),
	)
}

func (g *globals) realtimeConfig() realtime.Config {
	return realtime.Config{
		Debounce:    g.cfg.Realtime.Debounce,
		MinInterval: g.cfg.Realtime.MinInterval,
		MaxChars:    g.cfg.Realtime.MaxChars,
	}
}

func runEdit(ctx context.Context, g *globals, args []string) error {
	if len(args) > 1 {
		return errors.New("edit takes at most one file")
	}
	path := ""
	text := ""
	if len(args) == 1 {
		path = args[0]
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		text = string(data)
	}

	fileLog, logErr := logging.NewFileLogger(appdirs.LogsDir(g.cfg.DataDir), "typerra", g.cfg.Debug)
	g.logger = fileLog.Logger
	defer fileLog.Close()
	if logErr != nil {
		fmt.Fprintf(g.stderr, "log setup failed: %v\n", logErr)
	}

	session, err := g.openSession()
	if err != nil {
		return err
	}
	defer session.Close()
	go func() {
		if session.Realtime() {
			if err := session.Warmup(ctx); err != nil {
				g.logger.Debug("cli.warmup_failed", "error", err.Error())
			}
		}
	}()
	return tui.Run(session, tui.Options{
		Path:     path,
		Text:     text,
		Realtime: g.realtimeConfig(),
		Logger:   g.logger,
	})
}

// readInput reads a file argument, or stdin for "-".
func readInput(g *globals, args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("expected exactly one file argument (or - for stdin)")
	}
	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(g.stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}
