package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestCloneKeepsCode(t *testing.T) {
	err := Clone(ErrSeatTaken, "seat 5 already taken")
	assert.Equal(t, "SEAT_TAKEN", err.Code)
	assert.Equal(t, "seat 5 already taken", err.Error())
	assert.Equal(t, "seat already taken", ErrSeatTaken.Message)
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("reserve: %w", Clone(ErrSeatTaken, "seat 3 already taken"))
	assert.True(t, Is(wrapped, ErrSeatTaken))
	assert.False(t, Is(wrapped, ErrConflict))
	assert.False(t, Is(sql.ErrNoRows, ErrNotFound))
}
