package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dev-razz/Typerra/internal/diff"
	"github.com/dev-razz/Typerra/internal/envutil"
	"github.com/dev-razz/Typerra/internal/host"
	"github.com/dev-razz/Typerra/internal/model"
	"github.com/dev-razz/Typerra/internal/normalize"
	"github.com/dev-razz/Typerra/internal/protocol"
	"github.com/dev-razz/Typerra/internal/settings"
)

func newFlagSet(g *globals, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(g.stderr)
	return fs
}

// withSession runs fn against a fresh session and always closes it.
func withSession(g *globals, fn func(*host.Session) error) error {
	session, err := g.openSession()
	if err != nil {
		return err
	}
	session.SetProgress(func(p protocol.ProgressParams) {
		if p.Total > 0 {
			fmt.Fprintf(g.stderr, "downloading %s model: %d%%\n", p.Model, p.Completed*100/p.Total)
		}
	})
	runErr := fn(session)
	if err := session.Close(); err != nil {
		g.logger.Debug("cli.close_failed", "error", err.Error())
	}
	return describe(runErr)
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	if info := host.ErrorInfo(err); info != nil {
		return fmt.Errorf("%s: %s", info.ErrorCode, info.Error())
	}
	return err
}

func runProofread(ctx context.Context, g *globals, args []string) error {
	fs := newFlagSet(g, "proofread")
	asJSON := fs.Bool("json", false, "print the raw payload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text, err := readInput(g, fs.Args())
	if err != nil {
		return err
	}
	return withSession(g, func(s *host.Session) error {
		payload, err := s.Proofread(ctx, text)
		if err != nil {
			return err
		}
		if *asJSON {
			enc := json.NewEncoder(g.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		}
		printPayload(g.stdout, text, payload)
		return nil
	})
}

func printPayload(w io.Writer, text string, payload normalize.Payload) {
	fmt.Fprintln(w, payload.Corrected)
	runes := []rune(text)
	for _, r := range payload.Ranges {
		original := ""
		if r.Start >= 0 && r.End <= len(runes) && r.Start <= r.End {
			original = string(runes[r.Start:r.End])
		}
		replacement := "(no suggestion)"
		if r.Replacement != nil {
			replacement = fmt.Sprintf("%q", *r.Replacement)
		}
		fmt.Fprintf(w, "  %d-%d %q -> %s\n", r.Start, r.End, original, replacement)
	}
}

func runRewrite(ctx context.Context, g *globals, args []string) error {
	fs := newFlagSet(g, "rewrite")
	tone := fs.String("tone", model.RewriteToneAsIs, "more-formal, as-is or more-casual")
	length := fs.String("length", model.RewriteLengthAsIs, "shorter, as-is or longer")
	shared := fs.String("context", "", "shared context for the rewrite")
	showDiff := fs.Bool("diff", false, "print a line diff against the input")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text, err := readInput(g, fs.Args())
	if err != nil {
		return err
	}
	return withSession(g, func(s *host.Session) error {
		out, err := s.Rewrite(ctx, text, *tone, *length, *shared)
		if err != nil {
			return err
		}
		if *showDiff {
			return printLineDiff(g.stdout, text, out)
		}
		fmt.Fprintln(g.stdout, out)
		return nil
	})
}

func printLineDiff(w io.Writer, before, after string) error {
	lines, ok := diff.Lines(before, after, 0)
	if !ok {
		fmt.Fprintln(w, after)
		return nil
	}
	if !diff.Changed(lines) {
		fmt.Fprintln(w, "no changes")
		return nil
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

func runWrite(ctx context.Context, g *globals, args []string) error {
	fs := newFlagSet(g, "write")
	tone := fs.String("tone", "", "formal, neutral or casual (default from settings)")
	length := fs.String("length", model.LengthMedium, "short, medium or long")
	if err := fs.Parse(args); err != nil {
		return err
	}
	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt == "" {
		return errors.New("write needs a prompt")
	}
	return withSession(g, func(s *host.Session) error {
		out, err := s.Write(ctx, prompt, *tone, *length)
		if err != nil {
			return err
		}
		fmt.Fprintln(g.stdout, out)
		return nil
	})
}

func runStatus(ctx context.Context, g *globals, args []string) error {
	if len(args) != 0 {
		return errors.New("status takes no arguments")
	}
	return withSession(g, func(s *host.Session) error {
		status, err := s.Status(ctx)
		if err != nil {
			return err
		}
		loaded := "none"
		if len(status.Loaded) > 0 {
			loaded = strings.Join(status.Loaded, ", ")
		}
		fmt.Fprintf(g.stdout, "state: %s\nloaded: %s\nvisible: %v\n", status.State, loaded, status.Visible)
		return nil
	})
}

func runSettings(ctx context.Context, g *globals, args []string) error {
	store := g.settingsStore()
	if len(args) == 0 || args[0] == "get" {
		current, err := store.Load()
		if err != nil {
			return err
		}
		fmt.Fprintf(g.stdout, "realtime: %s\ntone: %s\n", onOff(current.Realtime()), current.DefaultTone)
		return nil
	}
	if args[0] != "set" || len(args) != 3 {
		return errors.New("usage: settings set realtime on|off | settings set tone <tone>")
	}
	switch args[1] {
	case "realtime":
		enabled, ok := envutil.OnOff(args[2])
		if !ok {
			return fmt.Errorf("expected on or off, got %q", args[2])
		}
		return withSession(g, func(s *host.Session) error {
			return s.SetRealtime(ctx, enabled)
		})
	case "tone":
		tone := model.WriteTone(args[2])
		if tone == "" {
			return fmt.Errorf("%w %q: expected one of %s", host.ErrInvalidTone, args[2], strings.Join(model.WriteTones(), ", "))
		}
		_, err := store.Update(func(s *settings.Settings) { s.DefaultTone = tone })
		return err
	default:
		return fmt.Errorf("unknown setting %q", args[1])
	}
}

func runKey(g *globals, args []string) error {
	store := g.secretsStore()
	if len(args) == 0 {
		return errors.New("usage: key set <key|-> | key clear")
	}
	switch args[0] {
	case "set":
		if len(args) != 2 {
			return errors.New("usage: key set <key|->")
		}
		value := args[1]
		if value == "-" {
			line, err := bufio.NewReader(g.stdin).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			value = line
		}
		if strings.TrimSpace(value) == "" {
			return errors.New("key is empty")
		}
		if err := store.SetAPIKey(value); err != nil {
			return err
		}
		fmt.Fprintln(g.stdout, "key saved")
		return nil
	case "clear":
		if err := store.ClearAPIKey(); err != nil {
			return err
		}
		fmt.Fprintln(g.stdout, "key cleared")
		return nil
	default:
		return fmt.Errorf("unknown key command %q", args[0])
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
