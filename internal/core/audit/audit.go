package audit

import (
	"time"

	"github.com/gofrs/uuid"
)

// ActorWorker is the actor recorded when the reconciliation worker
// originates a transition without a direct client request.
const ActorWorker = "worker"

// Entry records one transition attempt against a batch, successful or
// rejected. Entries are append-only and owned by the transition applier.
type Entry struct {
	ID          uuid.UUID `gorm:"primaryKey;type:char(36)"`
	BatchID     uuid.UUID `gorm:"type:char(36);not null;index"`
	Actor       string    `gorm:"type:varchar(100);not null"`
	FromState   string    `gorm:"type:varchar(20);not null"`
	ToState     string    `gorm:"type:varchar(20);not null"`
	Allowed     bool      `gorm:"not null"`
	Reason      string    `gorm:"type:text"`
	DetailsJSON string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}
