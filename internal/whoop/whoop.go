package whoop

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Category identifies one of the record kinds tracked per fetch cycle.
type Category string

const (
	CategorySleep    Category = "sleep"
	CategoryRecovery Category = "recovery"
	CategoryWorkout  Category = "workout"
	CategoryCycle    Category = "cycle"
)

// Categories lists all record kinds in the order a fetch cycle visits them.
var Categories = []Category{CategorySleep, CategoryRecovery, CategoryWorkout, CategoryCycle}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySleep, CategoryRecovery, CategoryWorkout, CategoryCycle:
		return true
	}
	return false
}

// Record is one immutable stored snapshot: the raw collection payload returned
// by the vendor for a single fetch, plus the capture timestamp.
type Record struct {
	ID        int64           `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// Store is the contract the persistent record store must satisfy.
// Records are append-only; nothing in this package updates or deletes them.
type Store interface {
	Append(ctx context.Context, category Category, payload json.RawMessage, fetchedAt time.Time) error
	Latest(ctx context.Context, category Category, limit int) ([]Record, error)
}

// Session is one authenticated connection to the vendor API. Sessions are not
// safe for concurrent use; each fetch cycle opens its own and closes it.
type Session interface {
	GetCollection(ctx context.Context, category Category, start, end time.Time) (json.RawMessage, error)
	GetUserProfile(ctx context.Context) (json.RawMessage, error)
	Close()
}

// SessionFactory opens a new authenticated Session. An authentication failure
// surfaces here, before any collection can be fetched.
type SessionFactory func(ctx context.Context) (Session, error)

// AuthError is returned when the credential exchange is rejected.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("whoop: authentication failed with status %d: %s", e.Status, e.Body)
}

// RequestError is returned when an authenticated request fails with a
// non-2xx status after at most one re-authentication retry.
type RequestError struct {
	Status   int
	Endpoint string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("whoop: request to %s failed with status %d", e.Endpoint, e.Status)
}
