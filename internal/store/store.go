// Package store persists recording sessions in a local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Transcription status values for a session.
const (
	StatusNone      = ""
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Session is one recorded audio session.
type Session struct {
	ID               int64
	Title            string
	RecordedAt       time.Time
	DurationSec      int
	Path             string
	SampleRate       int
	Channels         int
	Notes            string
	TranscriptText   string
	TranscriptTokens int
	Status           string
	FileSize         int64
}

// Store provides CRUD access to the session database.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the database path under the user config directory.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "sessions.db"
	}
	return filepath.Join(dir, "audiosessions", "sessions.db")
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			duration_sec INTEGER DEFAULT 0,
			path TEXT NOT NULL,
			samplerate INTEGER DEFAULT 44100,
			channels INTEGER DEFAULT 1,
			notes TEXT DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	// Columns added after the initial schema. ALTER TABLE ADD COLUMN is
	// not idempotent in SQLite, so check the table info first.
	existing, err := s.columns("sessions")
	if err != nil {
		return err
	}
	for col, ddl := range map[string]string{
		"transcript_text":      "ALTER TABLE sessions ADD COLUMN transcript_text TEXT DEFAULT ''",
		"transcript_tokens":    "ALTER TABLE sessions ADD COLUMN transcript_tokens INTEGER DEFAULT 0",
		"transcription_status": "ALTER TABLE sessions ADD COLUMN transcription_status TEXT DEFAULT ''",
	} {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col, err)
		}
	}
	return nil
}

func (s *Store) columns(table string) (map[string]struct{}, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		cols[name] = struct{}{}
	}
	return cols, rows.Err()
}

// Create inserts a session and returns its ID.
func (s *Store) Create(sess *Session) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO sessions (title, recorded_at, duration_sec, path, samplerate, channels, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sess.Title, sess.RecordedAt.Format(time.RFC3339), sess.DurationSec,
		sess.Path, sess.SampleRate, sess.Channels, sess.Notes)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert id: %w", err)
	}
	sess.ID = id
	return id, nil
}

const sessionColumns = `id, title, recorded_at, duration_sec, path, samplerate, channels,
	notes, transcript_text, transcript_tokens, transcription_status`

// Get returns a session by ID, or nil when it does not exist.
func (s *Store) Get(id int64) (*Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	fillFileSize(sess)
	return sess, nil
}

// List returns all sessions, newest first. A non-empty search term
// filters on title, notes and transcript text.
func (s *Store) List(search string) ([]*Session, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if search != "" {
		like := "%" + search + "%"
		rows, err = s.db.Query(`
			SELECT `+sessionColumns+` FROM sessions
			WHERE title LIKE ? OR notes LIKE ? OR transcript_text LIKE ?
			ORDER BY recorded_at DESC
		`, like, like, like)
	} else {
		rows, err = s.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY recorded_at DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		fillFileSize(sess)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// UpdateTranscript stores the transcription result for a session.
func (s *Store) UpdateTranscript(id int64, text string, tokens int, status string) error {
	res, err := s.db.Exec(`
		UPDATE sessions
		SET transcript_text = ?, transcript_tokens = ?, transcription_status = ?
		WHERE id = ?
	`, text, tokens, status, id)
	if err != nil {
		return fmt.Errorf("failed to update transcript: %w", err)
	}
	return requireRow(res, id)
}

// UpdateStatus sets only the transcription status of a session.
func (s *Store) UpdateStatus(id int64, status string) error {
	res, err := s.db.Exec(`UPDATE sessions SET transcription_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireRow(res, id)
}

// UpdateNotes sets the notes of a session.
func (s *Store) UpdateNotes(id int64, notes string) error {
	res, err := s.db.Exec(`UPDATE sessions SET notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}
	return requireRow(res, id)
}

// Delete removes a session row. The audio file on disk is not touched.
func (s *Store) Delete(id int64) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %d not found", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		sess       Session
		recordedAt string
		text       sql.NullString
		tokens     sql.NullInt64
		status     sql.NullString
	)
	if err := row.Scan(&sess.ID, &sess.Title, &recordedAt, &sess.DurationSec,
		&sess.Path, &sess.SampleRate, &sess.Channels, &sess.Notes,
		&text, &tokens, &status); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, recordedAt); err == nil {
		sess.RecordedAt = t
	} else if t, err := time.Parse("2006-01-02 15:04:05", strings.TrimSpace(recordedAt)); err == nil {
		sess.RecordedAt = t
	}
	sess.TranscriptText = text.String
	sess.TranscriptTokens = int(tokens.Int64)
	sess.Status = status.String
	return &sess, nil
}

func fillFileSize(sess *Session) {
	if sess.Path == "" {
		return
	}
	if fi, err := os.Stat(sess.Path); err == nil {
		sess.FileSize = fi.Size()
	}
}
