package audit

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry kind constants
const (
	KindBoot          = "server.boot"
	KindAdminCommand  = "command.admin"
	KindSystemCommand = "command.system"
	KindServerClose   = "server.close"
)

// Entry is one recorded supervisor action
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Author    string    `json:"author,omitempty"`
	Detail    string    `json:"detail"`
}

// Trail is a sqlite-backed record of boots, commands and shutdowns. All
// record methods are fire-and-forget: failures are logged, never returned,
// so a broken audit database can not affect the supervisor.
type Trail struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	kind TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp);
`

// NewTrail opens (or creates) the audit database
func NewTrail(dbPath string) (*Trail, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	dsn, err := buildSQLiteDSN(dbPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}

	return &Trail{db: db}, nil
}

func buildSQLiteDSN(dbPath string) (string, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve audit database path: %w", err)
	}

	// Ensure forward slashes for SQLite file URI
	absPath = strings.ReplaceAll(absPath, "\\", "/")

	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", absPath), nil
}

// RecordBoot records a successful process spawn
func (t *Trail) RecordBoot(pid string) {
	t.record(KindBoot, "", fmt.Sprintf("server process started (pid %s)", pid))
}

// RecordAdminCommand records a command attributed to an admin
func (t *Trail) RecordAdminCommand(author, text string) {
	t.record(KindAdminCommand, author, text)
}

// RecordSystemCommand records a command issued by the supervisor itself
func (t *Trail) RecordSystemCommand(text string) {
	t.record(KindSystemCommand, "", text)
}

// RecordServerClose records an explicit server shutdown and its reason
func (t *Trail) RecordServerClose(reason string) {
	t.record(KindServerClose, "", reason)
}

func (t *Trail) record(kind, author, detail string) {
	if t == nil || t.db == nil {
		return
	}

	_, err := t.db.Exec(
		`INSERT INTO audit_entries (timestamp, kind, author, detail) VALUES (?, ?, ?, ?)`,
		time.Now(), kind, author, detail,
	)
	if err != nil {
		log.Printf("[Audit] Failed to record %s entry: %v", kind, err)
	}
}

// Recent returns the newest entries, newest first
func (t *Trail) Recent(limit int) ([]Entry, error) {
	if t == nil || t.db == nil {
		return nil, fmt.Errorf("audit trail not available")
	}

	rows, err := t.db.Query(`
		SELECT id, timestamp, kind, author, detail
		FROM audit_entries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Kind, &e.Author, &e.Detail); err != nil {
			log.Printf("[Audit] Error scanning row: %v", err)
			continue
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Close closes the database
func (t *Trail) Close() error {
	if t == nil || t.db == nil {
		return nil
	}
	return t.db.Close()
}
