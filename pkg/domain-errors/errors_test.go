package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndCode(t *testing.T) {
	t.Run("wrap nil returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("outermost code wins", func(t *testing.T) {
		inner := New(CodeNotFound, "badge not found")
		outer := Wrap(inner, CodeCredentialNotFound, "credential not found")
		assert.True(t, HasCode(outer, CodeCredentialNotFound))
		assert.False(t, HasCode(outer, CodeNotFound))
		assert.Equal(t, CodeCredentialNotFound, CodeOf(outer))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("admission: %w", New(CodeEventEnded, "event ended"))
		assert.True(t, HasCode(err, CodeEventEnded))
		assert.Equal(t, "event ended", MessageOf(err))
	})

	t.Run("plain errors default to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(nil, CodeInternal))
	})

	t.Run("cause is reachable", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodeStorageUnavailable, "store unavailable")
		require.True(t, Is(err, cause))
		assert.Equal(t, "store unavailable: connection reset", err.Error())
	})
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(CodeDuplicateCheckin, "dup")))
	assert.True(t, Retryable(New(CodeStorageUnavailable, "down")))
	assert.True(t, Retryable(New(CodeCodeGenerationExhausted, "exhausted")))
	assert.False(t, Retryable(New(CodeCredentialExpired, "expired")))
	assert.False(t, Retryable(New(CodeMalformedCredential, "bad")))
	assert.False(t, Retryable(nil))
}

func TestStorage(t *testing.T) {
	assert.NoError(t, Storage(nil, "ignored"))

	err := Storage(errors.New("connection refused"), "failed to load badge")
	assert.Equal(t, CodeStorageUnavailable, CodeOf(err))
	assert.True(t, Retryable(err))

	timeout := New(CodeTimeout, "transaction aborted")
	assert.Equal(t, CodeTimeout, CodeOf(Storage(timeout, "failed to load badge")))
}
