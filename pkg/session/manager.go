package session

import (
	"context"
	"fmt"
	"sync"

	"log/slog"

	"github.com/scormlab/sequencer/internal/logging"
	"github.com/scormlab/sequencer/pkg/activity"
)

// Store is the persistence collaborator the manager writes through to. It
// matches ports.SessionStore; redeclared here to keep the import direction
// domain -> ports only.
type Store interface {
	Save(ctx context.Context, sess *Session) error
	Load(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

// TreeResolver re-attaches the immutable activity tree to sessions loaded
// from the store.
type TreeResolver func(courseID string) (*activity.Tree, bool)

// lockEntry holds the per-session mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the live sessions. The in-memory map is the authoritative
// copy; every mutation is written through to the store asynchronously, and
// a persist failure never delays or fails the navigation call that already
// committed in memory. Concurrent calls against the same session id are
// serialized through refcounted per-session locks; different sessions run
// in parallel.
type Manager struct {
	store   Store
	resolve TreeResolver
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*lockEntry
	live  map[string]*Session

	persistWG sync.WaitGroup
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for deferred persistence errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTreeResolver wires the course catalog lookup used after Load.
func WithTreeResolver(resolve TreeResolver) Option {
	return func(m *Manager) {
		m.resolve = resolve
	}
}

// NewManager creates a session manager over the given persistence store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: logging.NewNop(),
		locks:  make(map[string]*lockEntry),
		live:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must Lock entry.mu and call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and drops the entry at zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Put registers a newly created session as live and writes it through.
func (m *Manager) Put(ctx context.Context, sess *Session) {
	m.mu.Lock()
	m.live[sess.ID] = sess
	m.mu.Unlock()
	m.persistAsync(sess)
}

// WithSession runs fn while holding the session's lock. The session comes
// from the live map, falling back to the store (with the tree re-attached).
// After fn succeeds, a snapshot is written through asynchronously.
func (m *Manager) WithSession(ctx context.Context, sessionID string, fn func(*Session) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	sess, err := m.lookup(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(sess); err != nil {
		return err
	}
	m.persistAsync(sess)
	return nil
}

// Get returns the session read-only, without taking the write path.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()
	return m.lookup(ctx, sessionID)
}

// Evict drops the session from the live map after a final synchronous
// write-through. Used when a session terminates (exitAll, abandonAll).
func (m *Manager) Evict(ctx context.Context, sessionID string) {
	m.mu.Lock()
	sess, ok := m.live[sessionID]
	delete(m.live, sessionID)
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := m.store.Save(ctx, sess); err != nil {
		m.logger.Warn("final session write-through failed", "session_id", sessionID, "err", err)
	}
}

// Remove deletes the session everywhere.
func (m *Manager) Remove(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.live, sessionID)
	m.mu.Unlock()
	return m.store.Delete(ctx, sessionID)
}

// List returns the known session ids, live and stored.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	stored, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(stored))
	for _, id := range stored {
		seen[id] = true
	}
	m.mu.Lock()
	for id := range m.live {
		if !seen[id] {
			stored = append(stored, id)
		}
	}
	m.mu.Unlock()
	return stored, nil
}

// Flush synchronously persists every live session. Called on shutdown so
// in-flight asynchronous writes are not the only durable copy.
func (m *Manager) Flush(ctx context.Context) error {
	m.persistWG.Wait()

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.live))
	for _, sess := range m.live {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	var firstErr error
	for _, sess := range sessions {
		if err := m.store.Save(ctx, sess); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flush session %s: %w", sess.ID, err)
		}
	}
	return firstErr
}

func (m *Manager) lookup(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.live[sessionID]
	m.mu.Unlock()
	if ok {
		return sess, nil
	}

	sess, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if m.resolve != nil {
		if tree, ok := m.resolve(sess.CourseID); ok {
			sess.AttachTree(tree)
		}
	}
	m.mu.Lock()
	m.live[sessionID] = sess
	m.mu.Unlock()
	return sess, nil
}

// persistAsync writes a snapshot through to the store without blocking the
// caller. Failures are logged and retried only by the next write-through;
// the in-memory state is already correct.
func (m *Manager) persistAsync(sess *Session) {
	snapshot := sess.Clone()
	m.persistWG.Add(1)
	go func() {
		defer m.persistWG.Done()
		if err := m.store.Save(context.Background(), snapshot); err != nil {
			m.logger.Warn("session write-through failed",
				"session_id", snapshot.ID,
				"err", err,
			)
		}
	}()
}
