package main

import (
	"fmt"

	"github.com/fwojciec/secretary"
	"github.com/spf13/cobra"
)

const (
	idWidth      = 12
	previewWidth = 48
	timeLayout   = "2006-01-02 15:04"
)

func (c *cli) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.restore(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			all := a.store.AllConversations()
			if len(all) == 0 {
				muted.Fprintln(out, "Нет сохранённых разговоров")
				return nil
			}
			for _, s := range all {
				fmt.Fprintf(out, "%s  %s  %4d  %s\n",
					accent.Sprint(cell(s.ID, idWidth)),
					muted.Sprint(s.LastMessageAt().Local().Format(timeLayout)),
					s.MessageCount,
					cell(s.LastMessage.Content, previewWidth),
				)
			}
			return nil
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	var conversation string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find messages containing query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.restore(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			results := a.store.Search(args[0], conversation)
			if len(results) == 0 {
				muted.Fprintln(out, "Ничего не найдено")
				return nil
			}
			for _, m := range results {
				fmt.Fprintf(out, "%s  %s  %s  %s\n",
					accent.Sprint(cell(m.ConversationID, idWidth)),
					muted.Sprint(m.CreatedAt.Local().Format(timeLayout)),
					cell(string(m.Role), len(secretary.RoleAssistant)),
					cell(m.Content, previewWidth),
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&conversation, "conversation", "", "Search only this conversation")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show message statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.restore(); err != nil {
				return err
			}

			st := a.store.Statistics()
			out := cmd.OutOrStdout()
			accent.Fprintln(out, "Статистика")
			printField(out, "Сообщений", st.TotalMessages)
			printField(out, "От вас", st.UserMessages)
			printField(out, "От ассистента", st.AssistantMessages)
			printField(out, "Разговоров", st.Conversations)
			printField(out, "В среднем", fmt.Sprintf("%.1f", st.AveragePerConversation))
			if !st.LastActivity.IsZero() {
				printField(out, "Активность", st.LastActivity.Local().Format(timeLayout))
			}
			return nil
		},
	}
}

func (c *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [id]",
		Short: "Delete one conversation, or every conversation without an id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.restore(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				if err := c.persistWarning(cmd, a.store.ClearAll()); err != nil {
					return err
				}
				success.Fprintln(out, "Вся история удалена")
				return nil
			}
			id := args[0]
			if !a.store.Has(id) {
				return fmt.Errorf("conversation %q: %w", id, secretary.ErrNotFound)
			}
			if err := c.persistWarning(cmd, a.store.Clear(id)); err != nil {
				return err
			}
			success.Fprintf(out, "Разговор %s удалён\n", id)
			return nil
		},
	}
}
