package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/verdantlabs/contentforge/internal/validate"
)

// InsertKBRecord adds a knowledge-base record. Kind must be plant, equipment,
// or technique (enforced by the schema).
func (db *DB) InsertKBRecord(name, kind string, aliases, facts, misconceptions []string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO kb_records (name, kind, aliases, facts, misconceptions)
		VALUES (?, ?, ?, ?, ?)`,
		name, kind, marshalList(aliases), marshalList(facts), marshalList(misconceptions))
	if err != nil {
		return 0, fmt.Errorf("inserting kb record: %w", err)
	}
	return res.LastInsertId()
}

// GetKBRecord returns one record by ID, or nil if it doesn't exist.
func (db *DB) GetKBRecord(id int64) (*KBRecord, error) {
	row := db.conn.QueryRow(`
		SELECT id, name, kind, aliases, facts, misconceptions, created_at
		FROM kb_records WHERE id = ?`, id)

	rec, err := scanKBRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting kb record: %w", err)
	}
	return rec, nil
}

// ListKBRecords returns all knowledge-base records ordered by name.
func (db *DB) ListKBRecords() ([]KBRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, kind, aliases, facts, misconceptions, created_at
		FROM kb_records ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing kb records: %w", err)
	}
	defer rows.Close()

	var records []KBRecord
	for rows.Next() {
		rec, err := scanKBRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning kb record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// DeleteKBRecord removes a record by ID.
func (db *DB) DeleteKBRecord(id int64) error {
	_, err := db.conn.Exec("DELETE FROM kb_records WHERE id = ?", id)
	return err
}

// Match returns every record whose name or alias appears in the text.
// It implements validate.KnowledgeBase for the domain-fact check.
func (db *DB) Match(ctx context.Context, text string) ([]validate.Record, error) {
	records, err := db.ListKBRecords()
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(text)
	var matched []validate.Record
	for _, rec := range records {
		if !mentions(lower, rec) {
			continue
		}
		matched = append(matched, validate.Record{
			Name:           rec.Name,
			Kind:           rec.Kind,
			Aliases:        rec.Aliases,
			Facts:          rec.Facts,
			Misconceptions: rec.Misconceptions,
		})
	}
	return matched, nil
}

func mentions(lowerText string, rec KBRecord) bool {
	if strings.Contains(lowerText, strings.ToLower(rec.Name)) {
		return true
	}
	for _, alias := range rec.Aliases {
		if alias != "" && strings.Contains(lowerText, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKBRecord(row rowScanner) (*KBRecord, error) {
	var rec KBRecord
	var aliases, facts, misconceptions *string
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Kind, &aliases, &facts, &misconceptions, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Aliases = unmarshalList(aliases)
	rec.Facts = unmarshalList(facts)
	rec.Misconceptions = unmarshalList(misconceptions)
	return &rec, nil
}

func marshalList(items []string) *string {
	if len(items) == 0 {
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func unmarshalList(s *string) []string {
	if s == nil || *s == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(*s), &items); err != nil {
		return nil
	}
	return items
}
