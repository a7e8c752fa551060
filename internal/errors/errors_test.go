package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesCategoryAndSeverity(t *testing.T) {
	we := New(ErrCodeFileTooLarge, "file exceeds size limit", nil)
	assert.Equal(t, CategorySkipped, we.Category)
	assert.Equal(t, SeverityInfo, we.Severity)
	assert.False(t, we.Retryable)

	we = New(ErrCodeNetworkTimeout, "embedding request timed out", nil)
	assert.Equal(t, CategoryNetwork, we.Category)
	assert.True(t, we.Retryable)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	we := Wrap(ErrCodeProcessingError, cause)
	require.NotNil(t, we)
	assert.Equal(t, cause, we.Cause)
	assert.ErrorIs(t, we, we)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWithDetailAndSuggestionChain(t *testing.T) {
	we := New(ErrCodeInvalidQuery, "query too long", nil).
		WithDetail("length", "5000").
		WithSuggestion("shorten the query")

	assert.Equal(t, "5000", we.Details["length"])
	assert.Equal(t, "shorten the query", we.Suggestion)
}

func TestIsRetryableAndIsFatal(t *testing.T) {
	assert.True(t, IsRetryable(NetworkError("timeout", nil)))
	assert.False(t, IsRetryable(ValidationError("bad input", nil)))

	assert.True(t, IsFatal(New(ErrCodeCorruptIndex, "index corrupt", nil)))
	assert.False(t, IsFatal(DomainError("unknown language")))

	assert.False(t, IsRetryable(nil))
	assert.False(t, IsFatal(nil))
}

func TestGetCodeAndCategory(t *testing.T) {
	we := LockError("lock held", nil)
	assert.Equal(t, ErrCodeLockContention, GetCode(we))
	assert.Equal(t, CategoryLock, GetCategory(we))

	plain := errors.New("not a weaver error")
	assert.Equal(t, "", GetCode(plain))
	assert.Equal(t, Category(""), GetCategory(plain))
}

func TestDomainDimensionResolverHelpersAreNonFatal(t *testing.T) {
	for _, we := range []*WeaverError{
		DomainError("utf-16 detection failed"),
		DimensionError("model dimensions changed from 768 to 1024"),
		ResolverError("could not resolve import", errors.New("enoent")),
	} {
		assert.NotEqual(t, SeverityFatal, we.Severity)
	}
}

func TestErrorStringIncludesCode(t *testing.T) {
	we := New(ErrCodeInternal, "unexpected state", nil)
	assert.Contains(t, we.Error(), ErrCodeInternal)
	assert.Contains(t, we.Error(), "unexpected state")
}
