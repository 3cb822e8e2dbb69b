package redis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

func TestStoreErr_ClassifiesOutage(t *testing.T) {
	err := storeErr("Top", assert.AnError)

	// A failed Redis command must classify as a store outage so the
	// leaderboard query falls back to the relational source.
	assert.True(t, shared.IsStoreUnavailable(err))
	assert.True(t, errors.Is(err, assert.AnError))

	// Input faults stay out of the outage class.
	assert.False(t, shared.IsStoreUnavailable(ErrUserIDEmpty))
	assert.False(t, shared.IsStoreUnavailable(ErrInvalidRangeParams))
}
