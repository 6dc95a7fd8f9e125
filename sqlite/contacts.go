package sqlite

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/fwojciec/secretary"
)

// minTermRunes is the shortest query word used for matching.
const minTermRunes = 3

// AddContact stores c and returns it with its assigned id.
func (d *DB) AddContact(ctx context.Context, c secretary.Contact) (secretary.Contact, error) {
	if strings.TrimSpace(c.Name) == "" {
		return secretary.Contact{}, fmt.Errorf("sqlite: contact name required: %w", secretary.ErrValidation)
	}
	if c.ID == "" {
		c.ID = d.newID()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO contacts (id, name, email, phone, company) VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Email, c.Phone, c.Company)
	if err != nil {
		return secretary.Contact{}, fmt.Errorf("sqlite: insert contact: %w", err)
	}
	return c, nil
}

// SearchContacts returns contacts matching any word of query, ordered by
// name. A word matches when a word of the contact's name, email or company
// starts with its stem, so inflected forms ("Петрова") find the base form
// ("Петров"). Matching runs in Go because SQLite's lower() only folds ASCII.
func (d *DB) SearchContacts(ctx context.Context, query string) ([]secretary.Contact, error) {
	stems := queryStems(query)
	if len(stems) == 0 {
		return nil, nil
	}
	rows, err := d.db.QueryContext(ctx, `SELECT id, name, email, phone, company FROM contacts ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search contacts: %w", err)
	}
	defer rows.Close()

	var out []secretary.Contact
	for rows.Next() {
		var c secretary.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company); err != nil {
			return nil, fmt.Errorf("sqlite: scan contact: %w", err)
		}
		if matches(c, stems) {
			out = append(out, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: search contacts: %w", err)
	}
	return out, nil
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// queryStems lower-cases the query words and trims up to two trailing runes
// from words longer than four runes.
func queryStems(query string) []string {
	var stems []string
	for _, w := range words(query) {
		r := []rune(w)
		if len(r) < minTermRunes {
			continue
		}
		if len(r) > 4 {
			cut := min(2, len(r)-4)
			r = r[:len(r)-cut]
		}
		stems = append(stems, string(r))
	}
	return stems
}

func matches(c secretary.Contact, stems []string) bool {
	fields := words(c.Name + " " + c.Email + " " + c.Company)
	for _, s := range stems {
		for _, f := range fields {
			if strings.HasPrefix(f, s) {
				return true
			}
		}
	}
	return false
}
