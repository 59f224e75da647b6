package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custody/pkg/domain-errors"
)

func TestGenerateHashVerify(t *testing.T) {
	secret, err := Generate()
	require.NoError(t, err)
	assert.Len(t, secret, 43)

	other, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)

	hash, err := Hash(secret)
	require.NoError(t, err)
	assert.True(t, IsHash(hash))
	assert.False(t, IsHash(secret))

	require.NoError(t, Verify(secret, hash))
	err = Verify(other, hash)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestHashRejectsEmpty(t *testing.T) {
	_, err := Hash("")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
