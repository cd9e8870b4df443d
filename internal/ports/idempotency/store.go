package idempotency

import (
	"context"
	"time"
)

// Record states. A reserved record marks an in-flight operation; a committed
// record holds the replayable response.
const (
	StateReserved  = "reserved"
	StateCommitted = "committed"
)

// TTLs for the two record states. A caller that crashes before committing
// leaves a reservation that expires on its own, so the key becomes
// retryable instead of permanently stuck. Committed responses replay for 24
// hours; after that the key is eligible for reuse with no replay guarantee.
const (
	ReservationTTL = 5 * time.Minute
	CommitTTL      = 24 * time.Hour
)

// Record is the stored value for a (key, scope) pair.
type Record struct {
	State       string    `json:"state"`
	RequestHash string    `json:"request_hash"`
	HTTPStatus  int       `json:"http_status,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Result is the outcome of a reservation attempt. Fresh means the caller
// owns the key and must Commit (or Release) exactly once; otherwise Record
// describes the prior request.
type Result struct {
	Fresh  bool
	Record *Record
}

// Store makes mutating operations safe to retry. Reserve must be atomic
// (check-and-set) so two concurrent identical requests cannot both execute
// the side effect.
type Store interface {
	Reserve(ctx context.Context, key, scope, requestHash string) (Result, error)
	Commit(ctx context.Context, key, scope, requestHash string, httpStatus int, body []byte) error
	Release(ctx context.Context, key, scope string) error
}
