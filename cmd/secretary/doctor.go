package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/secretary"
	"github.com/spf13/cobra"
)

func (c *cli) doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration and the backend connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			accent.Fprintln(out, "Секретарь+")
			name := a.backendN
			if name == "" {
				name = "не выбран"
			}
			printField(out, "Backend", name)
			if c.cfg.Model != "" {
				printField(out, "Model", c.cfg.Model)
			}
			printField(out, "Data dir", c.cfg.DataDir)
			printField(out, "Profiles", c.cfg.ProfileStore)
			printField(out, "Mail", mark(a.mailer != nil))
			printField(out, "Configured", mark(a.backend.Ready()))

			if !a.backend.Ready() {
				warnf(out, "Задайте GEMINI_API_KEY, ANTHROPIC_API_KEY или OPENAI_API_KEY")
				return fmt.Errorf("backend: %w", secretary.ErrNotConfigured)
			}
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()
			err = a.backend.Ping(pingCtx)
			printField(out, "Connection", mark(err == nil))
			if err != nil {
				return fmt.Errorf("backend ping: %w", err)
			}
			return nil
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored key: history, current conversation, token and signing secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("reset deletes all stored data: pass --yes to confirm: %w", secretary.ErrValidation)
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.medium.DeleteMatching(secretary.KeyPrefix + "*")
			if err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "Удалено ключей: %d\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
