package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("pw123456")
	require.NoError(t, err)
	require.NotEqual(t, "pw123456", hash)

	assert.True(t, CheckPassword(hash, "pw123456"))
	assert.False(t, CheckPassword(hash, "pw1234567"))
	assert.False(t, CheckPassword("", "pw123456"))
}
