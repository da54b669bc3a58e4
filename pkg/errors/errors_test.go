package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, "", Kind(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := Clone(ErrConflict, "registration already exists")
	wrapped := fmt.Errorf("create: %w", base)

	assert.Equal(t, ErrConflict.Code, Kind(wrapped))
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
}

func TestWithDetailsDoesNotMutateBase(t *testing.T) {
	detailed := WithDetails(ErrIneligible, "remain in semester", map[string]int{"failed": 3})
	assert.NotNil(t, detailed.Details)
	assert.Nil(t, ErrIneligible.Details)
	assert.Equal(t, "remain in semester", detailed.Message)
}
