package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
	"github.com/reefacademy/progression-hub/internal/infrastructure/persistence/memory"
)

func TestAdjustPoints_DownwardKeepsLevel(t *testing.T) {
	repo, _, events := newTestStack(t)
	handler := NewAdjustPointsHandler(repo, nil, progression.DefaultCatalog(), nil)

	// Reach level 2 first.
	for i := 0; i < 2; i++ {
		_, err := events.Handle(context.Background(), RecordEventCommand{
			UserID: testUserID,
			Type:   "lesson_completed",
		})
		assert.NoError(t, err)
	}

	res, err := handler.Handle(context.Background(), AdjustPointsCommand{
		UserID:     testUserID,
		Delta:      -100,
		Reason:     "duplicate_import",
		AdjustedBy: "admin-42",
	})

	assert.NoError(t, err)
	assert.Less(t, res.TotalPoints, 100)
	// No automatic demotion on correction.
	assert.Equal(t, 2, res.Level)
	assert.False(t, res.LeveledUp)

	stored, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.NoError(t, err)
	last := stored.PointHistory[len(stored.PointHistory)-1]
	assert.True(t, last.IsCorrection())
	assert.Contains(t, last.Reason, "duplicate_import")
	assert.Contains(t, last.Reason, "admin-42")
}

func TestAdjustPoints_UpwardCanPromote(t *testing.T) {
	repo, _, _ := newTestStack(t)
	handler := NewAdjustPointsHandler(repo, nil, progression.DefaultCatalog(), nil)

	res, err := handler.Handle(context.Background(), AdjustPointsCommand{
		UserID: testUserID,
		Delta:  350,
		Reason: "migration_backfill",
	})

	assert.NoError(t, err)
	assert.Equal(t, 350, res.TotalPoints)
	assert.Equal(t, 3, res.Level)
	assert.True(t, res.LeveledUp)
}

func TestAdjustPoints_RejectsUnderflow(t *testing.T) {
	repo, _, _ := newTestStack(t)
	handler := NewAdjustPointsHandler(repo, nil, progression.DefaultCatalog(), nil)

	_, err := handler.Handle(context.Background(), AdjustPointsCommand{
		UserID: testUserID,
		Delta:  -1,
		Reason: "oops",
	})

	assert.ErrorIs(t, err, progression.ErrPointsUnderflow)

	stored, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.NoError(t, err)
	assert.Zero(t, stored.TotalPoints)
	assert.Empty(t, stored.PointHistory)
}

func TestAdjustPoints_ValidatesInput(t *testing.T) {
	handler := NewAdjustPointsHandler(memory.NewProgressionRepo(), nil, progression.DefaultCatalog(), nil)

	_, err := handler.Handle(context.Background(), AdjustPointsCommand{UserID: testUserID, Delta: 0, Reason: "x"})
	assert.Error(t, err)

	_, err = handler.Handle(context.Background(), AdjustPointsCommand{UserID: testUserID, Delta: 5})
	assert.Error(t, err)

	_, err = handler.Handle(context.Background(), AdjustPointsCommand{Delta: 5, Reason: "x"})
	assert.Error(t, err)
}
