package main

import (
	"fmt"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/gomarkdown"
	secjson "github.com/fwojciec/secretary/json"
	"github.com/spf13/cobra"
)

func (c *cli) exportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a conversation to a file",
		Long: `Write a conversation to a file. The JSON form can be read back with
"secretary import"; the HTML form is for reading.

Use -o - to write to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "html" {
				return fmt.Errorf("unknown format %q: must be json or html: %w", format, secretary.ErrValidation)
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.restore(); err != nil {
				return err
			}

			id := args[0]
			if !a.store.Has(id) {
				return fmt.Errorf("conversation %q: %w", id, secretary.ErrNotFound)
			}
			e := a.store.Export(id)

			var data []byte
			path := output
			switch format {
			case "json":
				if data, err = secjson.MarshalExport(e); err != nil {
					return err
				}
				if path == "" {
					path = e.Filename()
				}
			case "html":
				data = gomarkdown.RenderHTML(e)
				if path == "" {
					path = gomarkdown.Filename(e)
				}
			}

			if path == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := secjson.WriteFile(path, data); err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "Сохранено %d сообщений в %s\n", e.MessageCount, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: conversation-<id>-<date>.<format>)")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add the messages of an exported conversation to the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := secjson.Load(args[0])
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.restore(); err != nil {
				return err
			}

			if err := c.persistWarning(cmd, a.store.Import(e)); err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "Импортировано %d сообщений в разговор %s\n", len(e.Messages), e.ConversationID)
			return nil
		},
	}
}
