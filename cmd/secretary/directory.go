package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/secretary"
	"github.com/spf13/cobra"
)

func (c *cli) contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the address book used for contact lookups",
	}

	var contact secretary.Contact
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			contact.Name = args[0]
			saved, err := a.db.AddContact(cmd.Context(), contact)
			if err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "Контакт %s добавлен\n", saved.Name)
			return nil
		},
	}
	add.Flags().StringVar(&contact.Email, "email", "", "Email address")
	add.Flags().StringVar(&contact.Phone, "phone", "", "Phone number")
	add.Flags().StringVar(&contact.Company, "company", "", "Company")

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Find contacts by name, email or company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			found, err := a.db.SearchContacts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(found) == 0 {
				muted.Fprintln(out, "Контакты не найдены")
				return nil
			}
			for _, ct := range found {
				fmt.Fprintf(out, "%s  %s  %s  %s\n",
					accent.Sprint(cell(ct.Name, 24)), cell(ct.Email, 24), cell(ct.Phone, 16), muted.Sprint(ct.Company))
			}
			return nil
		},
	}

	cmd.AddCommand(add, search)
	return cmd
}

func (c *cli) eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Manage the calendar used for scheduling requests",
	}

	var (
		event    secretary.Event
		at       string
		duration time.Duration
	)
	add := &cobra.Command{
		Use:     "add <title>",
		Short:   "Add an event",
		Example: `  secretary events add "Планёрка" --at "2026-10-15 10:00" --duration 30m --location Офис`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.ParseInLocation(timeLayout, at, time.Local)
			if err != nil {
				return fmt.Errorf("--at must look like %q: %w", timeLayout, secretary.ErrValidation)
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			event.Title = args[0]
			event.Start = start
			if duration > 0 {
				event.End = start.Add(duration)
			}
			saved, err := a.db.CreateEvent(cmd.Context(), event)
			if err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "Событие %s добавлено на %s\n", saved.Title, saved.Start.Local().Format(timeLayout))
			return nil
		},
	}
	add.Flags().StringVar(&at, "at", "", "Start time, "+timeLayout)
	add.Flags().DurationVar(&duration, "duration", 0, "Length (default 1h)")
	add.Flags().StringVar(&event.Location, "location", "", "Location")
	add.Flags().StringVar(&event.Description, "description", "", "Description")

	var days int
	list := &cobra.Command{
		Use:   "list",
		Short: "List upcoming events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			now := time.Now()
			events, err := a.db.ListEvents(cmd.Context(), now, now.AddDate(0, 0, days))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				muted.Fprintln(out, "Событий нет")
				return nil
			}
			for _, e := range events {
				fmt.Fprintf(out, "%s–%s  %s  %s\n",
					accent.Sprint(e.Start.Local().Format(timeLayout)),
					accent.Sprint(e.End.Local().Format("15:04")),
					cell(e.Title, 32),
					muted.Sprint(e.Location))
			}
			return nil
		},
	}
	list.Flags().IntVar(&days, "days", 7, "How many days ahead to list")

	cmd.AddCommand(add, list)
	return cmd
}
