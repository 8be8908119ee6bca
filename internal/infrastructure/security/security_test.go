package security

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.ErrorIs(t, h.Compare(hash, "battery staple"), ErrPasswordMismatch)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("0123456789abcdef0123456789abcdef", "lessons-hub", time.Hour)
	id := uuid.New()

	raw, err := m.Issue(id, "ivanov", "student")
	require.NoError(t, err)

	got, err := m.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("0123456789abcdef0123456789abcdef", "lessons-hub", time.Hour)
	id := uuid.New()

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("ffffffffffffffffffffffffffffffff", "lessons-hub", time.Hour)
		raw, err := other.Issue(id, "x", "student")
		require.NoError(t, err)
		_, err = m.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewTokenManager("0123456789abcdef0123456789abcdef", "lessons-hub", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		raw, err := old.Issue(id, "x", "student")
		require.NoError(t, err)
		_, err = m.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		other := NewTokenManager("0123456789abcdef0123456789abcdef", "someone-else", time.Hour)
		raw, err := other.Issue(id, "x", "student")
		require.NoError(t, err)
		_, err = m.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
