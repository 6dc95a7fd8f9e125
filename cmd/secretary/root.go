package main

import (
	"context"
	"errors"
	"io"

	"github.com/fwojciec/secretary"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// annotationTUI marks commands that own the terminal. Without a log file
// their logs are discarded.
const annotationTUI = "tui"

// cli holds what every command shares: the configuration and the logger,
// resolved once before the command runs.
type cli struct {
	lookup   lookupFunc
	cfg      Config
	log      *logrus.Logger
	closeLog func() error
}

func newRootCmd(lookup lookupFunc) *cobra.Command {
	c := &cli{lookup: lookup}

	root := &cobra.Command{
		Use:   "secretary",
		Short: "Секретарь+: a personal assistant for scheduling, mail, tasks and contacts",
		Long: `Секретарь+ routes each message to a specialised handler (scheduling,
messaging, task planning, contact lookup, document analysis or general) and
keeps the conversation history on disk.

Without a command it starts the terminal chat.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Annotations:       map[string]string{annotationTUI: "true"},
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.closeLog != nil {
				return c.closeLog()
			}
			return nil
		},
		RunE: c.runChat,
	}

	pf := root.PersistentFlags()
	pf.String("backend", "", "Backend: gemini, anthropic, openai (auto-detected from API keys if omitted)")
	pf.String("model", "", "Model ID (default: backend default)")
	pf.String("data-dir", "", "Directory for history, tokens and the database")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-file", "", "Write logs to this file instead of stderr")

	root.AddCommand(
		c.chatCmd(),
		c.askCmd(),
		c.historyCmd(),
		c.searchCmd(),
		c.exportCmd(),
		c.importCmd(),
		c.statsCmd(),
		c.clearCmd(),
		c.contactsCmd(),
		c.eventsCmd(),
		c.serveCmd(),
		c.doctorCmd(),
		c.resetCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(c.lookup)
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	var fallback io.Writer = cmd.ErrOrStderr()
	if cmd.Annotations[annotationTUI] != "" {
		fallback = io.Discard
	}
	c.log, c.closeLog, err = newLogger(cfg, fallback)
	return err
}

// open wires the application for one command. Callers must Close it.
func (c *cli) open(ctx context.Context) (*app, error) {
	return newApp(ctx, c.cfg, c.log)
}

// persistWarning reports a non-fatal persistence failure and swallows it.
// Any other error is returned.
func (c *cli) persistWarning(cmd *cobra.Command, err error) error {
	var w *secretary.PersistenceWarning
	if errors.As(err, &w) {
		warnf(cmd.ErrOrStderr(), "История не сохранена: %v", w)
		return nil
	}
	return err
}
