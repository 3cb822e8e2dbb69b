package command

import (
	"context"
	"fmt"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// Creates the zero-valued progression record. Registration is the only place
// a record is created: every later operation requires the record to exist.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand contains the data to register a user.
type RegisterUserCommand struct {
	// UserID is the internal ID of the user (a UUID issued by the platform).
	UserID string

	// OrgID is the organization scope (empty for global only).
	OrgID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("register_user: user_id is required: %w", shared.ErrValidation)
	}
	return nil
}

// RegisterUserResult contains the result of registration.
type RegisterUserResult struct {
	// UserID is the internal ID of the user.
	UserID string

	// Level is the starting level.
	Level int

	// AlreadyRegistered indicates the record existed before the call.
	AlreadyRegistered bool
}

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	repo      progression.Repository
	publisher shared.EventPublisher
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(repo progression.Repository, publisher shared.EventPublisher) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo, publisher: publisher}
}

// Handle executes the register user command. Re-registering an existing
// user is reported, not failed: the call is safe to replay.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_user: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}
	orgID, err := shared.NewOrgID(cmd.OrgID)
	if err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	p, err := progression.NewUserProgression(userID, orgID)
	if err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	if err := h.repo.Create(ctx, p); err != nil {
		if shared.IsAlreadyExists(err) {
			return &RegisterUserResult{
				UserID:            cmd.UserID,
				Level:             1,
				AlreadyRegistered: true,
			}, nil
		}
		return nil, fmt.Errorf("register_user: failed to create record: %w", err)
	}

	if h.publisher != nil {
		event := shared.NewUserRegisteredEvent(cmd.UserID, cmd.OrgID)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.publisher.Publish(event)
	}

	return &RegisterUserResult{
		UserID: cmd.UserID,
		Level:  p.CurrentLevel.Int(),
	}, nil
}
