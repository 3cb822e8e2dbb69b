package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/reefacademy/progression-hub/internal/domain/progression"
	"github.com/reefacademy/progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION REPOSITORY
// Implements progression.Repository. Update runs the whole read-mutate-write
// cycle in one transaction with SELECT ... FOR UPDATE, so concurrent events
// for the same user serialize at the row lock. Badge and achievement grants
// are additionally guarded by their primary keys with ON CONFLICT DO NOTHING.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressionRepo is the PostgreSQL implementation of progression.Repository.
type ProgressionRepo struct {
	conn *Connection
}

// NewProgressionRepo creates a new ProgressionRepo.
func NewProgressionRepo(conn *Connection) *ProgressionRepo {
	return &ProgressionRepo{conn: conn}
}

// progressionRow mirrors the user_progressions table.
type progressionRow struct {
	UserID         string
	OrgID          string
	TotalPoints    int
	CurrentLevel   int
	Streak         int
	LastActiveDate *time.Time
	StatsJSON      []byte
	ProcessedJSON  []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int64
}

// storeErr classifies a transport failure as a store outage so callers can
// degrade (retry, 503) instead of reporting an internal error.
func storeErr(op string, err error) error {
	return shared.WrapError("progression", op, shared.ErrStoreUnavailable, "query failed", err)
}

// Create inserts a zero-valued progression record.
func (r *ProgressionRepo) Create(ctx context.Context, p *progression.UserProgression) error {
	statsJSON, err := json.Marshal(p.Stats)
	if err != nil {
		return fmt.Errorf("progression repo: marshal stats: %w", err)
	}

	processedJSON, err := json.Marshal(p.ProcessedEvents)
	if err != nil {
		return fmt.Errorf("progression repo: marshal processed events: %w", err)
	}

	query := `
		INSERT INTO user_progressions
			(user_id, org_id, total_points, current_level, streak,
			 last_active_date, stats, processed_events, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
	`

	_, err = r.conn.Exec(ctx, query,
		string(p.UserID),
		string(p.OrgID),
		p.TotalPoints.Int(),
		p.CurrentLevel.Int(),
		p.Streak,
		dayToSQL(p.LastActiveDate),
		statsJSON,
		processedJSON,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProgressionAlreadyExists
		}
		return storeErr("Create", err)
	}

	p.Version = 1
	return nil
}

// Get loads the full aggregate: the main row plus history, badges and
// achievements.
func (r *ProgressionRepo) Get(ctx context.Context, userID shared.UserID) (*progression.UserProgression, error) {
	var p *progression.UserProgression
	err := r.conn.WithTx(ctx, ReadOnlyTxOptions(), func(tx pgx.Tx) error {
		loaded, err := r.load(ctx, tx, userID, false)
		if err != nil {
			return err
		}
		p = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update applies the mutator inside one transaction. The row lock taken by
// SELECT ... FOR UPDATE serializes concurrent updates of the same user; the
// version check is a second line of defense and maps to ErrOptimisticLock.
func (r *ProgressionRepo) Update(ctx context.Context, userID shared.UserID, fn progression.Mutator) (*progression.UserProgression, error) {
	var result *progression.UserProgression

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		before, err := r.load(ctx, tx, userID, true)
		if err != nil {
			return err
		}

		work := before.Clone()
		if err := fn(work); err != nil {
			return err
		}

		if err := r.persistDiff(ctx, tx, before, work); err != nil {
			return err
		}

		work.Version = before.Version + 1
		result = work
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// load reads the aggregate; forUpdate locks the main row.
func (r *ProgressionRepo) load(ctx context.Context, tx pgx.Tx, userID shared.UserID, forUpdate bool) (*progression.UserProgression, error) {
	query := `
		SELECT user_id, org_id, total_points, current_level, streak,
		       last_active_date, stats, processed_events, created_at, updated_at, version
		FROM user_progressions
		WHERE user_id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var row progressionRow
	err := tx.QueryRow(ctx, query, string(userID)).Scan(
		&row.UserID, &row.OrgID, &row.TotalPoints, &row.CurrentLevel,
		&row.Streak, &row.LastActiveDate, &row.StatsJSON, &row.ProcessedJSON,
		&row.CreatedAt, &row.UpdatedAt, &row.Version,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressionNotFound
		}
		return nil, storeErr("Get", err)
	}

	p, err := rowToAggregate(row)
	if err != nil {
		return nil, err
	}

	if err := r.loadHistory(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := r.loadBadges(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := r.loadAchievements(ctx, tx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProgressionRepo) loadHistory(ctx context.Context, tx pgx.Tx, p *progression.UserProgression) error {
	rows, err := tx.Query(ctx, `
		SELECT id, amount, reason, created_at
		FROM point_history
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, string(p.UserID))
	if err != nil {
		return storeErr("Get", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e progression.PointEntry
		var amount int
		if err := rows.Scan(&e.ID, &amount, &e.Reason, &e.Timestamp); err != nil {
			return storeErr("Get", err)
		}
		e.Amount = progression.Points(amount)
		p.PointHistory = append(p.PointHistory, e)
	}
	return rows.Err()
}

func (r *ProgressionRepo) loadBadges(ctx context.Context, tx pgx.Tx, p *progression.UserProgression) error {
	rows, err := tx.Query(ctx, `
		SELECT badge_id, tier, point_reward, awarded_at
		FROM user_badges
		WHERE user_id = $1
	`, string(p.UserID))
	if err != nil {
		return storeErr("Get", err)
	}
	defer rows.Close()

	if p.Badges == nil {
		p.Badges = make(map[string]progression.AwardedBadge)
	}
	for rows.Next() {
		var b progression.AwardedBadge
		var badgeID, tier string
		var reward int
		if err := rows.Scan(&badgeID, &tier, &reward, &b.AwardedAt); err != nil {
			return storeErr("Get", err)
		}
		b.BadgeID = progression.BadgeID(badgeID)
		b.Tier = progression.Tier(tier)
		b.PointReward = progression.Points(reward)
		p.Badges[b.Key()] = b
	}
	return rows.Err()
}

func (r *ProgressionRepo) loadAchievements(ctx context.Context, tx pgx.Tx, p *progression.UserProgression) error {
	rows, err := tx.Query(ctx, `
		SELECT achievement_id, point_reward, unlocked_at
		FROM user_achievements
		WHERE user_id = $1
	`, string(p.UserID))
	if err != nil {
		return storeErr("Get", err)
	}
	defer rows.Close()

	if p.Achievements == nil {
		p.Achievements = make(map[progression.AchievementID]progression.UnlockedAchievement)
	}
	for rows.Next() {
		var a progression.UnlockedAchievement
		var id string
		var reward int
		if err := rows.Scan(&id, &reward, &a.UnlockedAt); err != nil {
			return storeErr("Get", err)
		}
		a.AchievementID = progression.AchievementID(id)
		a.PointReward = progression.Points(reward)
		p.Achievements[a.AchievementID] = a
	}
	return rows.Err()
}

// persistDiff writes the mutated aggregate back: updates the main row and
// inserts only the new history entries, badges and achievements.
func (r *ProgressionRepo) persistDiff(ctx context.Context, tx pgx.Tx, before, after *progression.UserProgression) error {
	statsJSON, err := json.Marshal(after.Stats)
	if err != nil {
		return fmt.Errorf("progression repo: marshal stats: %w", err)
	}

	processedJSON, err := json.Marshal(after.ProcessedEvents)
	if err != nil {
		return fmt.Errorf("progression repo: marshal processed events: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE user_progressions
		SET total_points = $2, current_level = $3, streak = $4,
		    last_active_date = $5, stats = $6, processed_events = $7,
		    updated_at = $8, version = version + 1
		WHERE user_id = $1 AND version = $9
	`,
		string(after.UserID),
		after.TotalPoints.Int(),
		after.CurrentLevel.Int(),
		after.Streak,
		dayToSQL(after.LastActiveDate),
		statsJSON,
		processedJSON,
		time.Now().UTC(),
		before.Version,
	)
	if err != nil {
		return storeErr("Update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrOptimisticLock
	}

	// New history entries sit strictly after the loaded prefix.
	for _, e := range after.PointHistory[len(before.PointHistory):] {
		if _, err := tx.Exec(ctx, `
			INSERT INTO point_history (id, user_id, amount, reason, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, e.ID, string(after.UserID), e.Amount.Int(), e.Reason, e.Timestamp); err != nil {
			return storeErr("Update", err)
		}
	}

	for key, b := range after.Badges {
		if _, existed := before.Badges[key]; existed {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_badges (user_id, badge_id, tier, point_reward, awarded_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, badge_id, tier) DO NOTHING
		`, string(after.UserID), b.BadgeID.String(), b.Tier.String(), b.PointReward.Int(), b.AwardedAt); err != nil {
			return storeErr("Update", err)
		}
	}

	for id, a := range after.Achievements {
		if _, existed := before.Achievements[id]; existed {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_achievements (user_id, achievement_id, point_reward, unlocked_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, achievement_id) DO NOTHING
		`, string(after.UserID), a.AchievementID.String(), a.PointReward.Int(), a.UnlockedAt); err != nil {
			return storeErr("Update", err)
		}
	}

	return nil
}

// Exists checks record existence.
func (r *ProgressionRepo) Exists(ctx context.Context, userID shared.UserID) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM user_progressions WHERE user_id = $1)",
		string(userID),
	).Scan(&exists)
	if err != nil {
		return false, storeErr("Exists", err)
	}
	return exists, nil
}

// List returns summary records with pagination. History, badges and
// achievements are not loaded; List feeds batch jobs that only need the
// main row.
func (r *ProgressionRepo) List(ctx context.Context, opts progression.ListOptions) ([]*progression.UserProgression, error) {
	query := `
		SELECT user_id, org_id, total_points, current_level, streak,
		       last_active_date, stats, processed_events, created_at, updated_at, version
		FROM user_progressions
	`
	args := []interface{}{}
	if !opts.OrgID.IsGlobal() {
		query += " WHERE org_id = $1"
		args = append(args, string(opts.OrgID))
	}
	query += fmt.Sprintf(" ORDER BY user_id LIMIT %d OFFSET %d", opts.Limit, opts.Offset)

	return r.queryRows(ctx, query, args...)
}

// Count returns the total number of records.
func (r *ProgressionRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM user_progressions").Scan(&count)
	if err != nil {
		return 0, storeErr("Count", err)
	}
	return count, nil
}

// TopByPoints returns summary records ordered by points descending.
func (r *ProgressionRepo) TopByPoints(ctx context.Context, orgID shared.OrgID, limit int) ([]*progression.UserProgression, error) {
	query := `
		SELECT user_id, org_id, total_points, current_level, streak,
		       last_active_date, stats, processed_events, created_at, updated_at, version
		FROM user_progressions
	`
	args := []interface{}{}
	if !orgID.IsGlobal() {
		query += " WHERE org_id = $1"
		args = append(args, string(orgID))
	}
	query += fmt.Sprintf(" ORDER BY total_points DESC, user_id ASC LIMIT %d", limit)

	return r.queryRows(ctx, query, args...)
}

// queryRows runs a main-row query and maps the results.
func (r *ProgressionRepo) queryRows(ctx context.Context, query string, args ...interface{}) ([]*progression.UserProgression, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("List", err)
	}
	defer rows.Close()

	var out []*progression.UserProgression
	for rows.Next() {
		var row progressionRow
		if err := rows.Scan(
			&row.UserID, &row.OrgID, &row.TotalPoints, &row.CurrentLevel,
			&row.Streak, &row.LastActiveDate, &row.StatsJSON, &row.ProcessedJSON,
			&row.CreatedAt, &row.UpdatedAt, &row.Version,
		); err != nil {
			return nil, storeErr("List", err)
		}
		p, err := rowToAggregate(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// rowToAggregate maps a main row to the domain aggregate.
func rowToAggregate(row progressionRow) (*progression.UserProgression, error) {
	stats := make(map[progression.StatName]int)
	if len(row.StatsJSON) > 0 {
		if err := json.Unmarshal(row.StatsJSON, &stats); err != nil {
			return nil, fmt.Errorf("progression repo: unmarshal stats: %w", err)
		}
	}

	processed := make(map[string]time.Time)
	if len(row.ProcessedJSON) > 0 {
		if err := json.Unmarshal(row.ProcessedJSON, &processed); err != nil {
			return nil, fmt.Errorf("progression repo: unmarshal processed events: %w", err)
		}
	}

	var lastActive shared.Day
	if row.LastActiveDate != nil {
		lastActive = shared.DayFromTime(*row.LastActiveDate)
	}

	return &progression.UserProgression{
		UserID:          shared.UserID(row.UserID),
		OrgID:           shared.OrgID(row.OrgID),
		TotalPoints:     progression.Points(row.TotalPoints),
		CurrentLevel:    progression.Level(row.CurrentLevel),
		Streak:          row.Streak,
		LastActiveDate:  lastActive,
		Stats:           stats,
		ProcessedEvents: processed,
		Badges:          make(map[string]progression.AwardedBadge),
		Achievements:    make(map[progression.AchievementID]progression.UnlockedAchievement),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		Version:         row.Version,
	}, nil
}

// dayToSQL converts a Day to a nullable SQL date.
func dayToSQL(d shared.Day) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time()
	return &t
}
