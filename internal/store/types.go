package store

import "time"

// User mirrors the users table (spec §3).
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	IsAdmin      bool
	Bio          *string
}

// Movement mirrors the movements table (spec §3).
type Movement struct {
	ID               int64
	Name             string
	Interval         string
	ShortDescription *string
	LongDescription  *string
}

// RelationKind discriminates the two MovementUserRelation variants
// (spec §9): a row is either a Subscription or a Creation.
type RelationKind string

const (
	RelationSubscription RelationKind = "subscription"
	RelationCreation     RelationKind = "creation"
)

// Relation mirrors one row of movement_user_relations: either an active
// or historical Subscription/Creation (spec §3, §9).
type Relation struct {
	ID          int64
	Kind        RelationKind
	UserID      int64
	MovementID  int64
	TimeAdded   time.Time
	TimeRemoved *time.Time
}

// Active reports whether the relation has not been ended.
func (r Relation) Active() bool { return r.TimeRemoved == nil }

// Link mirrors one row of user_to_user_links: a directed follower->leader
// edge within a movement (spec §3).
type Link struct {
	ID         int64
	FollowerID int64
	LeaderID   int64
	MovementID int64
	Created    time.Time
	Destroyed  *time.Time
}

// Active reports whether the link has not been destroyed.
func (l Link) Active() bool { return l.Destroyed == nil }

// Signal mirrors one row of signals (spec §3).
type Signal struct {
	ID         int64
	LeaderID   int64
	MovementID int64
	TimeStamp  time.Time
	Message    *string
}

// Announcement mirrors one row of announcements (spec §3).
type Announcement struct {
	ID          int64
	MovementID  int64
	PosterID    int64
	Message     string
	CreatedTime time.Time
	UpdatedTime *time.Time
	RemovedTime *time.Time
}

// Active reports whether the announcement has not been soft-deleted.
func (a Announcement) Active() bool { return a.RemovedTime == nil }

// timeLayout is the on-disk text format for timestamps: RFC3339Nano in
// UTC, which sorts lexicographically the same as chronologically and
// round-trips exactly through SQLite's TEXT affinity.
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullableTime(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
