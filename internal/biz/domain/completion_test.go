package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksTruncated(t *testing.T) {
	long := strings.Repeat("a", 101)

	assert.True(t, LooksTruncated("and then..."))
	assert.True(t, LooksTruncated("and then…"))
	assert.True(t, LooksTruncated(long))
	assert.False(t, LooksTruncated(long+"."))
	assert.False(t, LooksTruncated(long+"?"))
	assert.False(t, LooksTruncated(long+":"))
	assert.False(t, LooksTruncated("short answer without period"))
	assert.False(t, LooksTruncated(strings.Repeat("a", 100)))
}

func TestCompletionError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := error(&CompletionError{Kind: CompletionProvider, Attempt: 1, Err: inner})

	var ce *CompletionError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, CompletionProvider, ce.Kind)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "provider")
}
