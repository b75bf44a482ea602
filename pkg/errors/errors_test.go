package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetail_IndependentCopies(t *testing.T) {
	first := ErrValidation.WithDetail("authority_id", "A")
	second := ErrValidation.WithDetail("authority_id", "B")

	assert.Equal(t, "A", first.Details["authority_id"])
	assert.Equal(t, "B", second.Details["authority_id"])

	// The sentinel itself stays untouched.
	assert.Empty(t, ErrValidation.Details)
}

func TestWithDetail_ChainsWithoutAliasing(t *testing.T) {
	base := ErrInternal.WithDetail("tenant", "diku")
	derived := base.WithDetail("tenant", "consortium")

	assert.Equal(t, "diku", base.Details["tenant"])
	assert.Equal(t, "consortium", derived.Details["tenant"])
}

func TestError_MessageDetailOverridesMessage(t *testing.T) {
	err := ErrValidation.WithDetail("message", "natural id must not be blank")
	assert.Contains(t, err.Error(), "natural id must not be blank")
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, ErrValidation.IsRetryable())
	assert.False(t, ErrUnsupportedChange.IsRetryable())
	assert.True(t, ErrIntegration.IsRetryable())
	assert.True(t, ErrTimeout.IsRetryable())

	assert.False(t, ErrIntegration.AsFatal().IsRetryable())
	assert.True(t, ErrValidation.AsRetryable().IsRetryable())
}

func TestWrap(t *testing.T) {
	require.Nil(t, Wrap(nil, ErrInternal))

	cause := errors.New("connection refused")
	wrapped := Wrap(cause, ErrIntegration)
	require.NotNil(t, wrapped)
	assert.True(t, errors.Is(wrapped, cause))
	assert.True(t, IsIntegration(wrapped))
}
