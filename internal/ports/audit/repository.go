package audit

import (
	"context"
	"time"

	"flowforge/internal/core/audit"
)

// Repository is the read port for the audit trail. Writes happen only
// inside the transition store's commit transaction, so there is no append
// surface here.
type Repository interface {
	FindByBatchID(ctx context.Context, batchID string) ([]*audit.Entry, error)
}

// DTO is the audit entry representation returned to inbound adapters.
type DTO struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batch_id"`
	Actor     string    `json:"actor"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FromEntity maps an audit entry onto its DTO.
func FromEntity(e *audit.Entry) *DTO {
	return &DTO{
		ID:        e.ID.String(),
		BatchID:   e.BatchID.String(),
		Actor:     e.Actor,
		FromState: e.FromState,
		ToState:   e.ToState,
		Allowed:   e.Allowed,
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt,
	}
}
