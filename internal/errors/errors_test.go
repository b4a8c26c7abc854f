package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type customError struct {
	Msg string
}

func (e customError) Error() string { return e.Msg }

func TestWrap(t *testing.T) {
	t.Run("wraps non-nil error", func(t *testing.T) {
		wrapped := Wrap(ErrNotFound, "secret not found")
		assert.EqualError(t, wrapped, "secret not found: not found")
		assert.True(t, Is(wrapped, ErrNotFound))
	})

	t.Run("nil error stays nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "context"))
	})

	t.Run("double wrap keeps the chain", func(t *testing.T) {
		wrapped := Wrap(Wrap(ErrInvalidInput, "invalid max reads"), "create secret")
		assert.True(t, Is(wrapped, ErrInvalidInput))
		assert.False(t, Is(wrapped, ErrNotFound))
	})
}

func TestAs(t *testing.T) {
	err := Wrap(customError{Msg: "boom"}, "outer")

	var target customError
	assert.True(t, As(err, &target))
	assert.Equal(t, "boom", target.Msg)
}

func TestJoin(t *testing.T) {
	joined := Join(nil, ErrConflict, errors.New("other"))
	assert.True(t, Is(joined, ErrConflict))
	assert.Nil(t, Join(nil, nil))
}

func TestStandardErrors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNotFound, "not found"},
		{ErrConflict, "conflict"},
		{ErrInvalidInput, "invalid input"},
		{ErrTooManyRequests, "too many requests"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}
