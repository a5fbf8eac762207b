package tui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dev-razz/Typerra/internal/host"
	"github.com/dev-razz/Typerra/internal/protocol"
	"github.com/dev-razz/Typerra/internal/realtime"
)

type Options struct {
	Path     string
	Text     string
	Realtime realtime.Config
	Logger   *slog.Logger
}

// Run opens the editor on session and blocks until the user quits.
func Run(session *host.Session, opts Options) error {
	logger := opts.Logger
	b := &bridge{}
	pipeline := realtime.New(session, b, opts.Realtime,
		realtime.WithLogger(logger),
		realtime.WithHintSink(b),
	)
	session.SetPipeline(pipeline)

	buffer := realtime.NewBuffer(opts.Text)
	m := newEditor(session, pipeline, buffer, opts.Path, logger)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus())
	b.bind(program.Send)
	session.SetProgress(func(p protocol.ProgressParams) {
		go program.Send(progressMsg(p))
	})

	session.Attach(buffer)
	defer session.Detach()
	_, err := program.Run()
	return err
}
