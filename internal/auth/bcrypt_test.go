package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *BcryptHasher {
	t.Helper()
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestNewBcryptHasher_CostRange(t *testing.T) {
	_, err := NewBcryptHasher(bcrypt.MinCost - 1)
	assert.Error(t, err)

	_, err = NewBcryptHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)

	h, err := NewBcryptHasher(DefaultCost)
	require.NoError(t, err)
	assert.Equal(t, 10, h.Cost())
}

func TestBcryptHasher_HashEmbedsCost(t *testing.T) {
	h, err := NewBcryptHasher(6)
	require.NoError(t, err)

	hash, err := h.Hash("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 6, cost)
}

func TestBcryptHasher_SaltsDiffer(t *testing.T) {
	h := newTestHasher(t)

	first, err := h.Hash("same-password")
	require.NoError(t, err)
	second, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	ok, err := h.Verify("same-password", first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("same-password", second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBcryptHasher_Verify(t *testing.T) {
	h := newTestHasher(t)
	hash, err := h.Hash("pw1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"correct", "pw1", true},
		{"wrong", "wrong", false},
		{"empty", "", false},
		{"prefix", "pw", false},
		{"case", "PW1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := h.Verify(tt.password, hash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestBcryptHasher_VerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t)

	ok, err := h.Verify("pw1", "not-a-bcrypt-hash")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestBcryptHasher_HashTooLong(t *testing.T) {
	h := newTestHasher(t)

	_, err := h.Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}
