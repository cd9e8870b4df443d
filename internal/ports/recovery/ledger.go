package recovery

import (
	"context"
	"time"
)

// Entry statuses. Submitted entries are the ones recovery tooling replays.
const (
	StatusSubmitted = "submitted"
	StatusRecovered = "recovered"
)

// Entry is an immutable record of an externally committed side effect
// (a paid video-generation job accepted by a provider) written before the
// corresponding post update is confirmed.
type Entry struct {
	Timestamp     time.Time `json:"timestamp"`
	PostID        string    `json:"post_id"`
	OperationID   string    `json:"operation_id"`
	Provider      string    `json:"provider"`
	CorrelationID string    `json:"correlation_id"`
	Status        string    `json:"status"`
	Message       string    `json:"message,omitempty"`
}

// Ledger is the append-only durable journal. Append is the only write;
// entries are never mutated. The live request path only appends; reading
// belongs to the separate recovery procedure.
type Ledger interface {
	Append(ctx context.Context, entry Entry) error
}

// Reader lists previously appended entries for the recovery procedure.
type Reader interface {
	Entries(ctx context.Context) ([]Entry, error)
}
