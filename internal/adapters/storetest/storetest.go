// Package storetest holds the behavioral contract every session store
// adapter must satisfy. Adapter test files call Run against a fresh store.
package storetest

import (
	"context"
	"testing"

	"github.com/scormlab/sequencer/pkg/activity"
	"github.com/scormlab/sequencer/pkg/ports"
	"github.com/scormlab/sequencer/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewSession builds a minimal session for store tests.
func NewSession(t *testing.T) *session.Session {
	t.Helper()

	root := &activity.Node{
		ID:               "root",
		Kind:             activity.KindCluster,
		ControlMode:      activity.DefaultControlMode(),
		DeliveryControls: activity.DefaultDeliveryControls(),
		Children: []*activity.Node{{
			ID:               "lesson",
			Kind:             activity.KindLeaf,
			ParentID:         "root",
			Href:             "lesson.html",
			ControlMode:      activity.DefaultControlMode(),
			DeliveryControls: activity.DefaultDeliveryControls(),
		}},
	}
	tree := activity.NewTree("course", "Course", root)
	return session.New("learner", "course", tree)
}

// Run exercises the SessionStore contract against the given store.
func Run(t *testing.T, store ports.SessionStore) {
	ctx := context.Background()

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := store.Load(ctx, "does-not-exist")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		sess := NewSession(t)
		sess.CurrentActivity = "lesson"
		sess.State("lesson").AttemptCount = 2
		sess.State("lesson").SuspendData = "page=4"

		require.NoError(t, store.Save(ctx, sess))

		loaded, err := store.Load(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, loaded.ID)
		assert.Equal(t, "learner", loaded.LearnerID)
		assert.Equal(t, "lesson", loaded.CurrentActivity)
		require.NotNil(t, loaded.State("lesson"))
		assert.Equal(t, 2, loaded.State("lesson").AttemptCount)
		assert.Equal(t, "page=4", loaded.State("lesson").SuspendData)
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		sess := NewSession(t)
		require.NoError(t, store.Save(ctx, sess))

		sess.CurrentActivity = "lesson"
		require.NoError(t, store.Save(ctx, sess))

		loaded, err := store.Load(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, "lesson", loaded.CurrentActivity)
	})

	t.Run("Delete", func(t *testing.T) {
		sess := NewSession(t)
		require.NoError(t, store.Save(ctx, sess))
		require.NoError(t, store.Delete(ctx, sess.ID))

		_, err := store.Load(ctx, sess.ID)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		s1 := NewSession(t)
		s2 := NewSession(t)
		require.NoError(t, store.Save(ctx, s1))
		require.NoError(t, store.Save(ctx, s2))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, s1.ID)
		assert.Contains(t, ids, s2.ID)
	})
}
