package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := errors.New("boom")

	t.Run("direct code", func(t *testing.T) {
		err := New(CodeNotFound, "enrollee not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", Wrap(base, CodeTimeout, "tx timed out"))
		assert.True(t, HasCode(err, CodeTimeout))
		assert.ErrorIs(t, err, base)
	})

	t.Run("inner code is reachable through an outer domain error", func(t *testing.T) {
		err := Wrap(New(CodeGenerationConflict, "retries exhausted"), CodeInternal, "issue cin")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeGenerationConflict))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("foreign error", func(t *testing.T) {
		assert.False(t, HasCode(base, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(base))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestReasonOf(t *testing.T) {
	err := fmt.Errorf("payment: %w", Forbidden("not-owner", "enrollee belongs to another actor"))
	assert.Equal(t, "not-owner", ReasonOf(err))
	assert.True(t, Is(err, CodeForbidden))
	assert.Contains(t, err.Error(), "(not-owner)")

	assert.Empty(t, ReasonOf(New(CodeForbidden, "no reason")))
	assert.Empty(t, ReasonOf(errors.New("plain")))
}
