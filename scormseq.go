package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scormlab/sequencer/internal/logging"
	"github.com/scormlab/sequencer/internal/metrics"
	"github.com/scormlab/sequencer/pkg/activity"
	"github.com/scormlab/sequencer/pkg/manifest"
	"github.com/scormlab/sequencer/pkg/ports"
	"github.com/scormlab/sequencer/pkg/sequencing"
	"github.com/scormlab/sequencer/pkg/session"
)

// Version is the library version, stamped by the release pipeline.
var Version = "dev"

// ErrCourseNotFound is returned when a session references a course that was
// never registered.
var ErrCourseNotFound = errors.New("course not found")

// Service is the high-level entry point: it owns the course catalog
// (courseID -> immutable activity tree), the navigation engine, and the
// session manager. Adapters (HTTP, CLI) talk to this type only.
type Service struct {
	engine   *sequencing.Engine
	sessions *session.Manager
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.RWMutex
	courses map[string]*activity.Tree
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a Service over the given session persistence store.
func New(store ports.SessionStore, opts ...Option) *Service {
	s := &Service{
		logger:  logging.NewNop(),
		courses: make(map[string]*activity.Tree),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = sequencing.NewEngine(sequencing.WithLogger(s.logger))
	s.sessions = session.NewManager(store,
		session.WithLogger(s.logger),
		session.WithTreeResolver(s.Course),
	)
	return s
}

// RegisterCourse parses the manifest and caches the activity tree under
// courseID. Parsing failures are fatal to activation and surfaced as
// *manifest.Error.
func (s *Service) RegisterCourse(courseID string, manifestXML []byte) (*activity.Tree, error) {
	start := time.Now()
	tree, err := manifest.Parse(manifestXML, courseID)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ManifestParse.Observe(time.Since(start).Seconds())
	}

	s.mu.Lock()
	s.courses[courseID] = tree
	s.mu.Unlock()

	s.logger.Info("course registered",
		"course_id", courseID,
		"title", tree.Title,
		"activities", tree.Count(),
	)
	return tree, nil
}

// Course returns the cached activity tree for a course.
func (s *Service) Course(courseID string) (*activity.Tree, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, ok := s.courses[courseID]
	return tree, ok
}

// CreateSession starts a new learner course-attempt. The session is live
// immediately and written through to the store.
func (s *Service) CreateSession(ctx context.Context, learnerID, courseID string) (*session.Session, sequencing.AvailableNavigation, error) {
	tree, ok := s.Course(courseID)
	if !ok {
		return nil, sequencing.AvailableNavigation{}, fmt.Errorf("%w: %s", ErrCourseNotFound, courseID)
	}

	sess := session.New(learnerID, courseID, tree)
	s.sessions.Put(ctx, sess)
	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
	}

	s.logger.Info("session created",
		"session_id", sess.ID,
		"learner_id", learnerID,
		"course_id", courseID,
	)
	return sess, s.engine.Availability(sess), nil
}

// Navigate applies one navigation request under the session's lock. A
// failed navigation is a valid Response, not an error; the error return is
// reserved for unknown sessions and store trouble.
func (s *Service) Navigate(ctx context.Context, sessionID string, req sequencing.Request) (sequencing.Response, error) {
	var resp sequencing.Response
	err := s.sessions.WithSession(ctx, sessionID, func(sess *session.Session) error {
		resp = s.engine.Process(sess, req)
		return nil
	})
	if err != nil {
		return sequencing.Response{}, err
	}

	if s.metrics != nil {
		s.metrics.ObserveNavigation(string(req.Type), resp.Success)
	}
	if sessionEnded(req, resp) {
		s.sessions.Evict(ctx, sessionID)
		if s.metrics != nil {
			s.metrics.ActiveSessions.Dec()
		}
	}
	return resp, nil
}

// Session returns the live (or stored) session for inspection.
func (s *Service) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// Sessions lists all known session ids.
func (s *Service) Sessions(ctx context.Context) ([]string, error) {
	return s.sessions.List(ctx)
}

// RemoveSession deletes the session from the live map and the store.
func (s *Service) RemoveSession(ctx context.Context, sessionID string) error {
	return s.sessions.Remove(ctx, sessionID)
}

// Availability recomputes the navigation options for a session.
func (s *Service) Availability(sess *session.Session) sequencing.AvailableNavigation {
	return s.engine.Availability(sess)
}

// Flush synchronously persists every live session; call on shutdown.
func (s *Service) Flush(ctx context.Context) error {
	return s.sessions.Flush(ctx)
}

// sessionEnded reports whether the response terminated the whole session,
// which evicts it from the live map (the store keeps the archived copy).
func sessionEnded(req sequencing.Request, resp sequencing.Response) bool {
	if !resp.Success {
		return false
	}
	switch req.Type {
	case sequencing.RequestExitAll, sequencing.RequestAbandonAll, sequencing.RequestSuspendAll:
		return true
	}
	return resp.Instruction != nil &&
		resp.Instruction.Type == sequencing.InstructionTermination &&
		resp.Instruction.Reason == "no more activities"
}
