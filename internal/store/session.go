package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hazyhaar/panelread/dbopen"
)

// Session statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Session is one read of one panel.
type Session struct {
	ID          string   `json:"id"`
	Panel       string   `json:"panel"`
	Kind        string   `json:"kind"`
	PageURL     string   `json:"page_url,omitempty"`
	Status      string   `json:"status"`
	ErrorKind   string   `json:"error_kind,omitempty"`
	Error       string   `json:"error,omitempty"`
	Header      []string `json:"header"`
	RowCount    int      `json:"row_count"`
	Ragged      int      `json:"ragged"`
	ContentHash string   `json:"content_hash,omitempty"`
	StartedAt   int64    `json:"started_at"`
	DurationMS  int64    `json:"duration_ms"`
}

const sessionCols = `id, panel, kind, page_url, status, error_kind, error,
	header, row_count, ragged, content_hash, started_at, duration_ms`

// InsertSession stores a session and its records in one transaction.
// RowCount is set from records.
func (s *Store) InsertSession(ctx context.Context, sess *Session, records [][]string) error {
	if sess.Header == nil {
		sess.Header = []string{}
	}
	header, err := json.Marshal(sess.Header)
	if err != nil {
		return fmt.Errorf("store: marshal header: %w", err)
	}
	sess.RowCount = len(records)

	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO read_sessions (`+sessionCols+`)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			sess.ID, sess.Panel, sess.Kind, sess.PageURL, sess.Status, sess.ErrorKind, sess.Error,
			string(header), sess.RowCount, sess.Ragged, sess.ContentHash, sess.StartedAt, sess.DurationMS,
		)
		if err != nil {
			return fmt.Errorf("store: insert session %s: %w", sess.ID, err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO read_records (session_id, seq, fields) VALUES (?,?,?)`)
		if err != nil {
			return fmt.Errorf("store: prepare records: %w", err)
		}
		defer stmt.Close()

		for i, r := range records {
			fields, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("store: marshal record %d: %w", i, err)
			}
			if _, err := stmt.ExecContext(ctx, sess.ID, i, string(fields)); err != nil {
				return fmt.Errorf("store: insert record %d: %w", i, err)
			}
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*Session, error) {
	sess := &Session{}
	var header string
	if err := sc.Scan(
		&sess.ID, &sess.Panel, &sess.Kind, &sess.PageURL, &sess.Status, &sess.ErrorKind, &sess.Error,
		&header, &sess.RowCount, &sess.Ragged, &sess.ContentHash, &sess.StartedAt, &sess.DurationMS,
	); err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(header), &sess.Header)
	return sess, nil
}

// GetSession retrieves a session by ID. It returns nil, nil when absent.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM read_sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns the most recent sessions first, optionally for one
// panel. limit <= 0 means 50.
func (s *Store) ListSessions(ctx context.Context, panel string, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+sessionCols+` FROM read_sessions
		WHERE (? = '' OR panel = ?)
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, panel, panel, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Records returns the records of a session in read order.
func (s *Store) Records(ctx context.Context, sessionID string) ([][]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT fields FROM read_records WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: records of %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var fields []string
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("store: decode record: %w", err)
		}
		out = append(out, fields)
	}
	return out, rows.Err()
}

// LastHash returns the content hash of the panel's latest successful read,
// or "" when there is none.
func (s *Store) LastHash(ctx context.Context, panel string) (string, error) {
	var h string
	err := s.DB.QueryRowContext(ctx, `
		SELECT content_hash FROM read_sessions
		WHERE panel = ? AND status = 'ok'
		ORDER BY started_at DESC, id DESC LIMIT 1`, panel).Scan(&h)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: last hash of %s: %w", panel, err)
	}
	return h, nil
}

// DeleteBefore removes sessions started before ts (epoch ms) with their
// records and returns how many sessions were removed.
func (s *Store) DeleteBefore(ctx context.Context, ts int64) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM read_sessions WHERE started_at < ?`, ts)
	if err != nil {
		return 0, fmt.Errorf("store: prune: %w", err)
	}
	return res.RowsAffected()
}
