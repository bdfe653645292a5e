package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(Network, "dial", nil))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(Provider, "create droplet", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause, err.Unwrap())
}

func TestErrorMessageIncludesKind(t *testing.T) {
	err := New(Config, "missing token")
	assert.Contains(t, err.Error(), "config")
	assert.Contains(t, err.Error(), "missing token")
}

func TestIs(t *testing.T) {
	err := New(Cancelled, "signal")
	assert.True(t, Is(err, Cancelled))
	assert.False(t, Is(err, Network))
	assert.False(t, Is(errors.New("plain"), Cancelled))
}
