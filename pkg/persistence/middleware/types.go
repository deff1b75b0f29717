// Package middleware wraps a ports.SessionStore with cross-cutting
// persistence behavior such as encryption at rest and PII masking. The
// wrappers compose; the engine and session manager never see them.
package middleware

import "github.com/scormlab/sequencer/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain applies the middlewares in order, the first one outermost.
func Chain(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
