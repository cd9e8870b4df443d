package videojob

import "context"

// Status is the provider-side job state as seen by a poll.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// SubmitOptions shape a generation request. Provider-specific payload
// shaping happens behind the port.
type SubmitOptions struct {
	Provider    string
	AspectRatio string
	Resolution  string
}

// Submission is the provider's acceptance of a generation job.
type Submission struct {
	OperationID string
	Provider    string
}

// PollResult is the observed state of a previously submitted job.
// AssetLocation is only set on completion; Reason only on failure.
type PollResult struct {
	Status        Status
	AssetLocation string
	Progress      int
	Reason        string
	MetaJSON      string
}

// Provider is the external job provider contract. Submit is a paid
// operation: callers must journal the returned operation reference before
// relying on local persistence.
type Provider interface {
	Submit(ctx context.Context, prompt string, opts SubmitOptions) (Submission, error)
	Poll(ctx context.Context, operationID string) (PollResult, error)
	Download(ctx context.Context, assetLocation string) ([]byte, error)
}
