package batch

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

// State represents the lifecycle of a batch.
type State string

const (
	StateSetup        State = "SETUP"
	StateSeeded       State = "SEEDED"
	StateScripted     State = "SCRIPTED"
	StatePromptsBuilt State = "PROMPTS_BUILT"
	StateQA           State = "QA"
	StatePublishPlan  State = "PUBLISH_PLAN"
	StateComplete     State = "COMPLETE"
)

var allStates = []State{
	StateSetup,
	StateSeeded,
	StateScripted,
	StatePromptsBuilt,
	StateQA,
	StatePublishPlan,
	StateComplete,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, s := range allStates {
		set[s] = struct{}{}
	}
	return set
}()

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further transitions leave the state.
func (s State) IsTerminal() bool {
	return s == StateComplete
}

// Valid reports whether the state is a member of the declared enumeration.
func (s State) Valid() bool {
	_, ok := stateSet[s]
	return ok
}

// TypeCounts is the configured post distribution for a batch.
type TypeCounts struct {
	Value     int `json:"value"`
	Lifestyle int `json:"lifestyle"`
	Product   int `json:"product"`
}

// Total returns the total number of posts the batch is expected to own.
func (c TypeCounts) Total() int {
	return c.Value + c.Lifestyle + c.Product
}

// Batch is a unit of work owning an ordered set of posts.
// The state column carries a CHECK constraint so the database rejects
// out-of-enum values independently of application code.
type Batch struct {
	ID             uuid.UUID `gorm:"primaryKey;type:char(36)"`
	Brand          string    `gorm:"type:varchar(100);not null"`
	State          State     `gorm:"type:varchar(20);not null;default:'SETUP';check:chk_batches_state,state IN ('SETUP','SEEDED','SCRIPTED','PROMPTS_BUILT','QA','PUBLISH_PLAN','COMPLETE')"`
	ValueCount     int       `gorm:"not null;default:0"`
	LifestyleCount int       `gorm:"not null;default:0"`
	ProductCount   int       `gorm:"not null;default:0"`
	Archived       bool      `gorm:"not null;default:false;index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// Counts returns the configured per-type post counts.
func (b *Batch) Counts() TypeCounts {
	return TypeCounts{Value: b.ValueCount, Lifestyle: b.LifestyleCount, Product: b.ProductCount}
}
