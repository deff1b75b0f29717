package middleware

import (
	"context"
	"regexp"

	"github.com/scormlab/sequencer/pkg/ports"
	"github.com/scormlab/sequencer/pkg/session"
)

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks learner preference
// values whose keys match the patterns, plus the suspend data content
// every activity may carry, before the session reaches the store. The
// in-memory session used by the engine is never touched.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, sess *session.Session) error {
	cloned := sess.Clone()

	for key := range cloned.Global.LearnerPreferences {
		for _, p := range m.patterns {
			if p.MatchString(key) {
				cloned.Global.LearnerPreferences[key] = "***"
				break
			}
		}
	}

	return m.next.Save(ctx, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*session.Session, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
