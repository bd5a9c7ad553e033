package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"osintgraph/internal/domain"
	"osintgraph/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Archive using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Archive = (*Repository)(nil)

// New opens (and migrates) the archive at dbPath. ":memory:" opens a
// private in-memory database.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer; one connection also keeps an in-memory
	// database from being split across connections.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		label TEXT,
		node_count INTEGER NOT NULL DEFAULT 0,
		link_count INTEGER NOT NULL DEFAULT 0,
		document JSON NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Save stores doc under a new session id
func (r *Repository) Save(ctx context.Context, label string, doc *domain.Document) (*repository.SessionInfo, error) {
	if doc == nil {
		doc = domain.NewDocument()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	info := &repository.SessionInfo{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Label:     strings.TrimSpace(label),
		NodeCount: len(doc.Nodes),
		LinkCount: len(doc.Links),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, label, node_count, link_count, document)
		VALUES (?, ?, ?, ?, ?, ?)
	`, info.ID, info.CreatedAt, stringToNull(info.Label), info.NodeCount, info.LinkCount, string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	return info, nil
}

// Get loads one session with its document
func (r *Repository) Get(ctx context.Context, id string) (*repository.Session, error) {
	var (
		s     repository.Session
		label sql.NullString
		data  string
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, label, node_count, link_count, document
		FROM sessions WHERE id = ?
	`, id).Scan(&s.ID, &s.CreatedAt, &label, &s.NodeCount, &s.LinkCount, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", repository.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	s.Label = nullToString(label)

	var doc domain.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if doc.Nodes == nil {
		doc.Nodes = make([]domain.DocumentNode, 0)
	}
	if doc.Links == nil {
		doc.Links = make([]domain.DocumentLink, 0)
	}
	s.Document = &doc

	return &s, nil
}

// List returns every session, newest first
func (r *Repository) List(ctx context.Context) ([]repository.SessionInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at, label, node_count, link_count
		FROM sessions
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]repository.SessionInfo, 0)
	for rows.Next() {
		var (
			info  repository.SessionInfo
			label sql.NullString
		)
		if err := rows.Scan(&info.ID, &info.CreatedAt, &label, &info.NodeCount, &info.LinkCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		info.Label = nullToString(label)
		sessions = append(sessions, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// Delete removes one session
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", repository.ErrSessionNotFound, id)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
