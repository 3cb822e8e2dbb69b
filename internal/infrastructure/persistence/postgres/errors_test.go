package postgres

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

func TestStoreErr_ClassifiesOutage(t *testing.T) {
	err := storeErr("Get", assert.AnError)

	// Transport failures must surface as a store outage so the HTTP
	// layer answers 503 and retry policies treat them as transient.
	assert.True(t, shared.IsStoreUnavailable(err))
	assert.True(t, errors.Is(err, assert.AnError))

	// Domain outcomes keep their own kinds.
	assert.False(t, shared.IsStoreUnavailable(shared.ErrProgressionNotFound))
	assert.False(t, shared.IsStoreUnavailable(shared.ErrOptimisticLock))
}
