package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistence_WrapsUnclassified(t *testing.T) {
	err := Persistence("insert reading", sql.ErrConnDone)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "insert reading")
}

func TestPersistence_KeepsClassified(t *testing.T) {
	ref := InvalidReference("sensor", 99)
	err := Persistence("lock sensor", fmt.Errorf("outer: %w", ref))
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.False(t, errors.Is(err, ErrPersistence))
	assert.Nil(t, Persistence("noop", nil))
}

func TestValidation(t *testing.T) {
	err := Validation("sensor_id", "is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation error: sensor_id is required", err.Error())
}
