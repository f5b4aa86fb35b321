package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenErrorsRefineInvalidToken(t *testing.T) {
	assert.True(t, errors.Is(ErrTokenMalformed, ErrInvalidToken))
	assert.True(t, errors.Is(ErrInvalidSignature, ErrInvalidToken))
	assert.False(t, errors.Is(ErrTokenExpired, ErrInvalidToken))
	assert.False(t, errors.Is(ErrTokenMalformed, ErrInvalidSignature))
}
