package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/reefacademy/progression-hub/internal/application/command"
	"github.com/reefacademy/progression-hub/internal/application/query"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
	"github.com/reefacademy/progression-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "The requested resource was not found")
		return
	}

	info := map[string]interface{}{
		"name":        "Reef Progression Hub API",
		"version":     s.config.Version,
		"description": "REST API for the Reef Progression Hub - points, levels, streaks, badges and leaderboards",
		"endpoints": map[string]string{
			"health":      "/health",
			"events":      "/api/v1/events",
			"users":       "/api/v1/users",
			"progression": "/api/v1/users/{id}/progression",
			"history":     "/api/v1/users/{id}/history",
			"leaderboard": "/api/v1/leaderboard",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(ctx)
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": s.config.Version,
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Server is not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT INGESTION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type recordEventRequest struct {
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	QuizScore int       `json:"quiz_score"`
	IsPerfect bool      `json:"is_perfect"`
	Minutes   int       `json:"minutes"`
	Timestamp time.Time `json:"timestamp"`

	// EventID is the caller's delivery key. Resubmitting the same
	// event ID returns the current state without applying the event
	// a second time.
	EventID string `json:"event_id"`
}

type awardedBadgeResponse struct {
	BadgeID   string    `json:"badge_id"`
	Tier      string    `json:"tier"`
	AwardedAt time.Time `json:"awarded_at"`
}

type unlockedAchievementResponse struct {
	AchievementID string    `json:"achievement_id"`
	PointReward   int       `json:"point_reward"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

type recordEventResponse struct {
	UserID               string                        `json:"user_id"`
	PointsAwarded        int                           `json:"points_awarded"`
	TotalPoints          int                           `json:"total_points"`
	Level                int                           `json:"level"`
	LeveledUp            bool                          `json:"leveled_up"`
	PreviousLevel        int                           `json:"previous_level"`
	Streak               int                           `json:"streak"`
	StreakExtended       bool                          `json:"streak_extended"`
	StreakBroken         bool                          `json:"streak_broken"`
	BadgesAwarded        []awardedBadgeResponse        `json:"badges_awarded"`
	AchievementsUnlocked []unlockedAchievementResponse `json:"achievements_unlocked"`
	Replayed             bool                          `json:"replayed"`
	RecordedAt           time.Time                     `json:"recorded_at"`
}

// handleRecordEvent ingests a platform activity event and applies its
// progression effects (points, level, streak, badges, achievements).
func (s *Server) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	var req recordEventRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.RecordEventHandler.Handle(r.Context(), command.RecordEventCommand{
		UserID:        req.UserID,
		Type:          req.Type,
		QuizScore:     req.QuizScore,
		IsPerfect:     req.IsPerfect,
		Minutes:       req.Minutes,
		Timestamp:     req.Timestamp,
		EventID:       req.EventID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err, "record event")
		return
	}

	resp := recordEventResponse{
		UserID:               result.UserID,
		PointsAwarded:        result.PointsAwarded,
		TotalPoints:          result.TotalPoints,
		Level:                result.Level,
		LeveledUp:            result.LeveledUp,
		PreviousLevel:        result.PreviousLevel,
		Streak:               result.Streak,
		StreakExtended:       result.StreakExtended,
		StreakBroken:         result.StreakBroken,
		BadgesAwarded:        make([]awardedBadgeResponse, 0, len(result.BadgesAwarded)),
		AchievementsUnlocked: make([]unlockedAchievementResponse, 0, len(result.AchievementsUnlocked)),
		Replayed:             result.Replayed,
		RecordedAt:           result.RecordedAt,
	}
	for _, b := range result.BadgesAwarded {
		resp.BadgesAwarded = append(resp.BadgesAwarded, awardedBadgeResponse{
			BadgeID:   string(b.BadgeID),
			Tier:      string(b.Tier),
			AwardedAt: b.AwardedAt,
		})
	}
	for _, a := range result.AchievementsUnlocked {
		resp.AchievementsUnlocked = append(resp.AchievementsUnlocked, unlockedAchievementResponse{
			AchievementID: string(a.AchievementID),
			PointReward:   int(a.PointReward),
			UnlockedAt:    a.UnlockedAt,
		})
	}

	writeJSONWithMeta(w, r, http.StatusOK, resp, nil)
}

type registerUserRequest struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
}

// handleRegisterUser creates a progression record for a new user.
// Re-registering an existing user returns 200 instead of 201.
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.RegisterUserHandler.Handle(r.Context(), command.RegisterUserCommand{
		UserID:        req.UserID,
		OrgID:         req.OrgID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err, "register user")
		return
	}

	status := http.StatusCreated
	if result.AlreadyRegistered {
		status = http.StatusOK
	}

	writeJSONWithMeta(w, r, status, map[string]interface{}{
		"user_id":            result.UserID,
		"level":              result.Level,
		"already_registered": result.AlreadyRegistered,
	}, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION VIEW HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgression returns the full progression snapshot for a user.
func (s *Server) handleGetProgression(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetProgressionHandler.Handle(r.Context(), query.GetProgressionQuery{
		UserID:      r.PathValue("id"),
		IncludeRank: getQueryParamBool(r, "include_rank"),
	})
	if err != nil {
		s.writeDomainError(w, r, err, "get progression")
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, nil)
}

// handleGetHistory returns a page of the user's point ledger, newest first.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetPointHistoryHandler.Handle(r.Context(), query.GetPointHistoryQuery{
		UserID:          r.PathValue("id"),
		Limit:           getQueryParamInt(r, "limit", 0),
		Offset:          getQueryParamInt(r, "offset", 0),
		OnlyCorrections: getQueryParamBool(r, "only_corrections"),
	})
	if err != nil {
		s.writeDomainError(w, r, err, "get history")
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{
		TotalCount: result.TotalCount,
		HasMore:    result.HasMore,
	})
}

// handleGetLeaderboard returns a leaderboard page for the requested
// ranking key and organization scope. With around set, it returns
// a slice centred on that user instead of the top.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), query.GetLeaderboardQuery{
		Key:          getQueryParam(r, "key", ""),
		OrgID:        getQueryParam(r, "org", ""),
		Limit:        getQueryParamInt(r, "limit", 0),
		Offset:       getQueryParamInt(r, "offset", 0),
		AroundUserID: getQueryParam(r, "around", ""),
		Radius:       getQueryParamInt(r, "radius", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err, "get leaderboard")
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{
		TotalCount: result.TotalCount,
		HasMore:    result.HasMore,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type adjustPointsRequest struct {
	UserID     string `json:"user_id"`
	Delta      int    `json:"delta"`
	Reason     string `json:"reason"`
	AdjustedBy string `json:"adjusted_by"`
}

// handleAdjustPoints applies an administrative point correction.
// The route is wrapped in AdminTokenAuth.
func (s *Server) handleAdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req adjustPointsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.AdjustPointsHandler.Handle(r.Context(), command.AdjustPointsCommand{
		UserID:        req.UserID,
		Delta:         req.Delta,
		Reason:        req.Reason,
		AdjustedBy:    req.AdjustedBy,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err, "adjust points")
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, map[string]interface{}{
		"user_id":      result.UserID,
		"delta":        result.Delta,
		"total_points": result.TotalPoints,
		"level":        result.Level,
		"leveled_up":   result.LeveledUp,
		"adjusted_at":  result.AdjustedAt,
	}, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body. Returns false if an error
// response was already written.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body exceeds the allowed size")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON")
		return false
	}
	return true
}

// writeDomainError maps application errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())
	case shared.IsConflict(err):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	case shared.IsStoreUnavailable(err):
		writeJSONError(w, http.StatusServiceUnavailable, "store_unavailable", "A backing store is temporarily unavailable")
	default:
		s.logger.Error("request failed",
			logger.String("operation", op),
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}
