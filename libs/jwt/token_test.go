package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	token, err := Sign("s3cret", "artist", time.Minute)
	require.NoError(t, err)

	claims, err := Parse("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "artist", claims.Subject)
}

func TestParseRejects(t *testing.T) {
	token, err := Sign("s3cret", "artist", time.Minute)
	require.NoError(t, err)

	_, err = Parse("other", token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	expired, err := Sign("s3cret", "artist", -time.Minute)
	require.NoError(t, err)
	_, err = Parse("s3cret", expired)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = Parse("s3cret", "garbage")
	assert.Error(t, err)
}
