package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scormlab/sequencer/internal/adapters/memory"
	"github.com/scormlab/sequencer/internal/adapters/storetest"
	"github.com/scormlab/sequencer/pkg/persistence/middleware"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.New()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secure := mw(underlying)

	sess := storetest.NewSession(t)
	sess.CurrentActivity = "lesson"
	sess.State("lesson").SuspendData = "page=7"

	require.NoError(t, secure.Save(ctx, sess))

	// The underlying store should only see the opaque envelope.
	stored, err := underlying.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, stored.ID)
	assert.Equal(t, "course", stored.CourseID)
	assert.Empty(t, stored.CurrentActivity)
	require.NotNil(t, stored.Root)
	assert.Equal(t, "__encrypted__", stored.Root.ActivityID)
	assert.NotContains(t, stored.Root.SuspendData, "page=7")

	// Loading through the middleware restores the full session.
	loaded, err := secure.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "lesson", loaded.CurrentActivity)
	require.NotNil(t, loaded.State("lesson"))
	assert.Equal(t, "page=7", loaded.State("lesson").SuspendData)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.New()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	sess := storetest.NewSession(t)
	sess.CurrentActivity = "lesson"

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, oldStore.Save(ctx, sess))

	// A store rotated to the new key still reads old ciphertext through
	// the fallback list.
	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	loaded, err := rotated.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "lesson", loaded.CurrentActivity)

	// Without the fallback the old ciphertext is unreadable.
	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})(underlying).Load(ctx, sess.ID)
	assert.ErrorContains(t, err, "decrypt")
}

func TestEncryptionMiddleware_FailsSecureOnPlainSession(t *testing.T) {
	ctx := context.Background()
	underlying := memory.New()

	// A plain session written behind the middleware's back must not be
	// served as if it were decrypted.
	sess := storetest.NewSession(t)
	require.NoError(t, underlying.Save(ctx, sess))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Load(ctx, sess.ID)
	assert.ErrorContains(t, err, "envelope")
}

func TestNewEncryptionMiddleware_RejectsShortKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("too-short")})
	})
}
