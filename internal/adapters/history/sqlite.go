package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KonoNeko/MeowBuling/internal/domain"
	"github.com/KonoNeko/MeowBuling/internal/ports"
)

// SQLiteStore keeps the journal in a SQLite table. Insertion order is the
// journal order, so timestamps may repeat without affecting it.
type SQLiteStore struct {
	db    *sql.DB
	limit int
}

func NewSQLiteStore(db *sql.DB, limit int) (*SQLiteStore, error) {
	if limit <= 0 {
		limit = ports.DefaultHistoryLimit
	}
	s := &SQLiteStore{db: db, limit: limit}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate readings table: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS readings (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		timestamp TEXT NOT NULL,
		topic_id TEXT,
		topic_label TEXT,
		question TEXT,
		spread_id TEXT,
		spread_name TEXT,
		cards JSON NOT NULL,
		interpretation JSON,
		reflection TEXT NOT NULL DEFAULT ''
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, r ports.ReadingRecord) error {
	cardsJSON, err := json.Marshal(r.Cards)
	if err != nil {
		return fmt.Errorf("encode cards: %w", err)
	}
	var interpretation sql.NullString
	if r.Interpretation != nil {
		b, err := json.Marshal(r.Interpretation)
		if err != nil {
			return fmt.Errorf("encode interpretation: %w", err)
		}
		interpretation = sql.NullString{String: string(b), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// REPLACE gives a re-saved reading a fresh seq, moving it to the front.
	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO readings (
		id, timestamp, topic_id, topic_label, question, spread_id, spread_name, cards, interpretation, reflection
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Timestamp.UTC().Format(time.RFC3339Nano), r.TopicID, r.TopicLabel, r.Question,
		r.SpreadID, r.SpreadName, string(cardsJSON), interpretation, r.Reflection,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM readings WHERE seq NOT IN (
		SELECT seq FROM readings ORDER BY seq DESC LIMIT ?
	)`, s.limit)
	if err != nil {
		return fmt.Errorf("trim readings: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]ports.ReadingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, topic_id, topic_label, question, spread_id, spread_name, cards, interpretation, reflection
		FROM readings
		ORDER BY seq DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ports.ReadingRecord
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) UpdateReflection(ctx context.Context, id, text string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE readings SET reflection = ? WHERE id = ?`, text, id)
	if err != nil {
		return fmt.Errorf("update reflection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrReadingNotFound, id)
	}
	return nil
}

func scanReading(rows *sql.Rows) (ports.ReadingRecord, error) {
	var (
		r              ports.ReadingRecord
		timestamp      string
		topicID        sql.NullString
		topicLabel     sql.NullString
		question       sql.NullString
		spreadID       sql.NullString
		spreadName     sql.NullString
		cardsJSON      string
		interpretation sql.NullString
	)
	if err := rows.Scan(&r.ID, &timestamp, &topicID, &topicLabel, &question, &spreadID, &spreadName, &cardsJSON, &interpretation, &r.Reflection); err != nil {
		return r, err
	}

	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return r, fmt.Errorf("reading %s: parse timestamp: %w", r.ID, err)
	}
	r.Timestamp = ts
	r.TopicID = topicID.String
	r.TopicLabel = topicLabel.String
	r.Question = question.String
	r.SpreadID = spreadID.String
	r.SpreadName = spreadName.String

	if err := json.Unmarshal([]byte(cardsJSON), &r.Cards); err != nil {
		return r, fmt.Errorf("reading %s: decode cards: %w", r.ID, err)
	}
	if interpretation.Valid {
		var in ports.Interpretation
		if err := json.Unmarshal([]byte(interpretation.String), &in); err != nil {
			return r, fmt.Errorf("reading %s: decode interpretation: %w", r.ID, err)
		}
		r.Interpretation = &in
	}
	return r, nil
}
