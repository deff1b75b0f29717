package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scormlab/sequencer/internal/adapters/memory"
	"github.com/scormlab/sequencer/internal/adapters/storetest"
	"github.com/scormlab/sequencer/pkg/persistence/middleware"
)

func TestPIIMiddleware_MasksMatchingPreferences(t *testing.T) {
	ctx := context.Background()
	underlying := memory.New()
	masked := middleware.NewPIIMiddleware([]string{"(?i)email", "phone"})(underlying)

	sess := storetest.NewSession(t)
	sess.Global.LearnerPreferences["learner_Email"] = "golfer@example.com"
	sess.Global.LearnerPreferences["phone_number"] = "555-0100"
	sess.Global.LearnerPreferences["audio_level"] = "0.8"

	require.NoError(t, masked.Save(ctx, sess))

	stored, err := underlying.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "***", stored.Global.LearnerPreferences["learner_Email"])
	assert.Equal(t, "***", stored.Global.LearnerPreferences["phone_number"])
	assert.Equal(t, "0.8", stored.Global.LearnerPreferences["audio_level"])

	// The session the engine holds is untouched.
	assert.Equal(t, "golfer@example.com", sess.Global.LearnerPreferences["learner_Email"])
}

func TestPIIMiddleware_PassesLoadThrough(t *testing.T) {
	ctx := context.Background()
	underlying := memory.New()
	masked := middleware.NewPIIMiddleware([]string{"email"})(underlying)

	sess := storetest.NewSession(t)
	require.NoError(t, masked.Save(ctx, sess))

	loaded, err := masked.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
}

func TestChain_OrdersOutermostFirst(t *testing.T) {
	ctx := context.Background()
	underlying := memory.New()

	// PII masking runs before encryption so no raw value survives a
	// decrypt of the stored blob.
	store := middleware.Chain(underlying,
		middleware.NewPIIMiddleware([]string{"email"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)

	sess := storetest.NewSession(t)
	sess.Global.LearnerPreferences["email"] = "golfer@example.com"
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "***", loaded.Global.LearnerPreferences["email"])

	stored, err := underlying.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "__encrypted__", stored.Root.ActivityID)
}
