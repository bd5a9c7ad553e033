package repository

import (
	"context"
	"errors"
	"time"

	"osintgraph/internal/domain"
)

// ErrSessionNotFound is returned when an archived session does not exist
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo describes one archived session without its document
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Label     string    `json:"label,omitempty"`
	NodeCount int       `json:"node_count"`
	LinkCount int       `json:"link_count"`
}

// Session is an archived export document
type Session struct {
	SessionInfo
	Document *domain.Document `json:"document"`
}

// Archive stores exported session documents. The export document stays
// the unit of durability; the archive only keeps copies of it.
type Archive interface {
	// Save stores doc under a new session id and returns it
	Save(ctx context.Context, label string, doc *domain.Document) (*SessionInfo, error)
	// Get loads one session with its document
	Get(ctx context.Context, id string) (*Session, error)
	// List returns every session, newest first
	List(ctx context.Context) ([]SessionInfo, error)
	// Delete removes one session
	Delete(ctx context.Context, id string) error

	// Close releases resources
	Close() error
}
