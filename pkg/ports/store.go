package ports

import (
	"context"

	"github.com/scormlab/sequencer/pkg/session"
)

// SessionStore is the persistence collaborator behind the live session
// cache. Implementations must return session.ErrNotFound for unknown ids.
//
// Stores only see the serializable part of a session; the activity tree is
// re-attached by the caller after Load.
type SessionStore interface {
	// Save persists the session, overwriting any previous copy.
	Save(ctx context.Context, sess *session.Session) error

	// Load retrieves a session by id.
	Load(ctx context.Context, sessionID string) (*session.Session, error)

	// Delete removes the session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the ids of every stored session.
	List(ctx context.Context) ([]string, error)
}
