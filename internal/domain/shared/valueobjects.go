// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents the opaque identifier of a platform user.
// The engine never mints identities; it trusts the ID supplied by the caller.
type UserID string

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks that the UserID is a well-formed UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks whether the UserID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID validates and constructs a UserID from a raw string.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if !uid.IsValid() {
		return "", fmt.Errorf("%w: user id %q is not a UUID", ErrInvalidID, id)
	}
	return uid, nil
}

// OrgID represents an organization (school / club) scope for leaderboards.
// Empty OrgID means the global scope.
type OrgID string

// GlobalOrg is the empty scope covering all organizations.
const GlobalOrg OrgID = ""

var orgIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,49}$`)

// IsValid checks that the OrgID matches the allowed slug format.
func (o OrgID) IsValid() bool {
	return o == "" || orgIDRegex.MatchString(string(o))
}

// String returns the string representation.
func (o OrgID) String() string {
	return string(o)
}

// IsGlobal reports whether this scope covers all organizations.
func (o OrgID) IsGlobal() bool {
	return o == ""
}

// NewOrgID validates and constructs an OrgID from a raw string.
func NewOrgID(value string) (OrgID, error) {
	org := OrgID(strings.TrimSpace(strings.ToLower(value)))
	if !org.IsValid() {
		return "", fmt.Errorf("%w: org id %q", ErrInvalidID, value)
	}
	return org, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Rank Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Rank represents a 1-based position in a leaderboard.
type Rank int

const (
	// RankUnranked marks a user absent from the leaderboard.
	RankUnranked Rank = 0
)

// IsValid checks that the rank is non-negative.
func (r Rank) IsValid() bool {
	return r >= RankUnranked
}

// Int returns the rank as int.
func (r Rank) Int() int {
	return int(r)
}

// IsUnranked reports whether the user has no rank yet.
func (r Rank) IsUnranked() bool {
	return r == RankUnranked
}

// IsTop reports whether the rank is within the top N positions.
func (r Rank) IsTop(n int) bool {
	return r > 0 && int(r) <= n
}

// Compare returns -1, 0 or 1; lower rank numbers are better.
func (r Rank) Compare(other Rank) int {
	switch {
	case r < other:
		return -1
	case r > other:
		return 1
	default:
		return 0
	}
}

// NewRank validates and constructs a Rank.
func NewRank(position int) (Rank, error) {
	if position < 0 {
		return RankUnranked, fmt.Errorf("%w: rank %d", ErrValueOutOfRange, position)
	}
	return Rank(position), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Day Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Day represents a UTC calendar date with day granularity.
// The zero Day means "never" (e.g., no streak activity yet).
type Day struct {
	t time.Time
}

// DayOf truncates a timestamp to its UTC calendar date.
func DayOf(t time.Time) Day {
	u := t.UTC()
	return Day{t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// DayFromTime wraps a time that is already a UTC midnight.
// Any sub-day component is truncated.
func DayFromTime(t time.Time) Day {
	if t.IsZero() {
		return Day{}
	}
	return DayOf(t)
}

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool {
	return d.t.IsZero()
}

// Time returns the underlying UTC midnight timestamp.
func (d Day) Time() time.Time {
	return d.t
}

// DaysUntil returns the whole-day difference to another day.
// Positive when other is later than d.
func (d Day) DaysUntil(other Day) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

// Equal reports whether two days are the same calendar date.
func (d Day) Equal(other Day) bool {
	return d.t.Equal(other.t)
}

// String formats the day as YYYY-MM-DD, or "-" when unset.
func (d Day) String() string {
	if d.IsZero() {
		return "-"
	}
	return d.t.Format("2006-01-02")
}
