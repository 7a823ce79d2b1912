package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	PasswordCost = bcrypt.MinCost
	t.Cleanup(func() { PasswordCost = bcrypt.DefaultCost })

	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	other, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "bcrypt использует случайную соль")

	assert.NoError(t, CheckPassword("password123", hash))
	assert.ErrorIs(t, CheckPassword("wrong", hash), ErrPasswordMismatch)

	_, err = HashPassword("")
	assert.Error(t, err)

	err = CheckPassword("password123", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)

	err = CheckPassword("password123", "not-a-bcrypt-hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}
