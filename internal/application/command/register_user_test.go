package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reefacademy/progression-hub/internal/domain/shared"
	"github.com/reefacademy/progression-hub/internal/infrastructure/persistence/memory"
)

func TestRegisterUser_CreatesZeroRecord(t *testing.T) {
	repo := memory.NewProgressionRepo()
	handler := NewRegisterUserHandler(repo, nil)

	res, err := handler.Handle(context.Background(), RegisterUserCommand{
		UserID: testUserID,
		OrgID:  "reef-academy",
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Level)
	assert.False(t, res.AlreadyRegistered)

	stored, err := repo.Get(context.Background(), shared.UserID(testUserID))
	assert.NoError(t, err)
	assert.Equal(t, shared.OrgID("reef-academy"), stored.OrgID)
	assert.Zero(t, stored.TotalPoints)
}

func TestRegisterUser_ReplaySafe(t *testing.T) {
	repo := memory.NewProgressionRepo()
	handler := NewRegisterUserHandler(repo, nil)

	_, err := handler.Handle(context.Background(), RegisterUserCommand{UserID: testUserID})
	assert.NoError(t, err)

	res, err := handler.Handle(context.Background(), RegisterUserCommand{UserID: testUserID})

	assert.NoError(t, err)
	assert.True(t, res.AlreadyRegistered)

	count, err := repo.Count(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterUser_RejectsBadIDs(t *testing.T) {
	handler := NewRegisterUserHandler(memory.NewProgressionRepo(), nil)

	_, err := handler.Handle(context.Background(), RegisterUserCommand{UserID: "not-a-uuid"})
	assert.Error(t, err)

	_, err = handler.Handle(context.Background(), RegisterUserCommand{
		UserID: testUserID,
		OrgID:  "Bad Org!",
	})
	assert.Error(t, err)

	_, err = handler.Handle(context.Background(), RegisterUserCommand{})
	assert.Error(t, err)
}
