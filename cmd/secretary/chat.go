package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fwojciec/secretary"
	bt "github.com/fwojciec/secretary/bubbletea"
	"github.com/fwojciec/secretary/lifecycle"
	"github.com/spf13/cobra"
)

const pingTimeout = 10 * time.Second

func (c *cli) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "chat",
		Short:       "Start the terminal chat (default)",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTUI: "true"},
		RunE:        c.runChat,
	}
}

func (c *cli) runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.signIn(ctx); err != nil {
		return err
	}
	go a.checkConnection(ctx)

	m := bt.New(a.chat, a.session, a.store,
		bt.WithTheme(secretary.DefaultTheme()),
		bt.WithReady(a.backend.Ready),
	)
	if err := bt.Run(ctx, m); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

// signIn extends a session restored from a persisted token, or signs the
// local identity in when there is none.
func (a *app) signIn(ctx context.Context) error {
	if a.session.State() == lifecycle.StateAuthenticated {
		if _, err := a.tokens.Refresh(); err != nil {
			a.log.WithError(err).Warn("token refresh failed")
		}
		return nil
	}
	_, err := a.session.SignIn(ctx)
	return err
}

// checkConnection pings a configured backend and logs the outcome.
func (a *app) checkConnection(ctx context.Context) {
	if !a.backend.Ready() {
		a.log.Warn("backend not configured: replies will explain how to set an API key")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := a.backend.Ping(ctx); err != nil {
		a.log.WithError(err).WithField("backend", a.backendN).Warn("backend connection check failed")
		return
	}
	a.log.WithField("backend", a.backendN).Info("backend connection ok")
}

func (c *cli) askCmd() *cobra.Command {
	var imagePath string
	cmd := &cobra.Command{
		Use:   "ask <text>",
		Short: "Send one message to the current conversation and print the reply",
		Example: `  secretary ask "Напиши письмо коллеге о переносе встречи"
  secretary ask --image scan.png "Что в этом документе?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var img *secretary.Image
			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				img = &secretary.Image{Data: data, MimeType: http.DetectContentType(data)}
			}

			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.signIn(ctx); err != nil {
				return err
			}

			reply, err := a.chat.SendWithAttachment(ctx, strings.Join(args, " "), img)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			accent.Fprintf(out, "[%s]\n", reply.Intent)
			fmt.Fprintln(out, reply.Assistant.Content)
			if reply.Warning != nil {
				warnf(cmd.ErrOrStderr(), "История не сохранена: %v", reply.Warning)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "Attach an image for document analysis")
	return cmd
}
