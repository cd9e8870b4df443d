package workers

import (
	"context"
	"time"

	"flowforge/internal/core/apperrors"
	"flowforge/internal/core/audit"
	batchEntity "flowforge/internal/core/batch"
	postEntity "flowforge/internal/core/post"
	"flowforge/internal/core/transition"
	batchPort "flowforge/internal/ports/batch"
	postPort "flowforge/internal/ports/post"
	"flowforge/internal/ports/videojob"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultMaxRetries   = 3

	perPostTimeout = 30 * time.Second
	maxBackoff     = 5 * time.Minute
)

// Reconciler folds one operation's provider-side outcome into the post.
type Reconciler interface {
	ReconcileOperation(ctx context.Context, postID, operationID string) (videojob.Status, error)
}

// ReconcileWorker polls in-flight video jobs and settles their outcomes.
// Poll failures back off per post and never block the rest of the sweep;
// a post that keeps failing past MaxRetries is marked failed so the batch
// cannot hang forever on a dead operation.
type ReconcileWorker struct {
	Posts      postPort.Repository
	Batches    batchPort.Repository
	Videos     Reconciler
	Applier    *transition.Applier
	Interval   time.Duration
	MaxRetries int
	Logger     *zap.Logger

	failures    map[string]int
	nextAttempt map[string]time.Time
	now         func() time.Time
}

func NewReconcileWorker(
	posts postPort.Repository,
	batches batchPort.Repository,
	videos Reconciler,
	applier *transition.Applier,
	interval time.Duration,
	maxRetries int,
	logger *zap.Logger,
) *ReconcileWorker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &ReconcileWorker{
		Posts:       posts,
		Batches:     batches,
		Videos:      videos,
		Applier:     applier,
		Interval:    interval,
		MaxRetries:  maxRetries,
		Logger:      logger,
		failures:    map[string]int{},
		nextAttempt: map[string]time.Time{},
		now:         time.Now,
	}
}

// Run polls until the context is cancelled.
func (w *ReconcileWorker) Run(ctx context.Context) {
	w.Logger.Info("reconcile worker started", zap.Duration("interval", w.Interval))
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("reconcile worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep reconciles every in-flight post once. Exported so tests and the
// recovery tool can drive the worker without the timer loop.
func (w *ReconcileWorker) Sweep(ctx context.Context) {
	posts, err := w.Posts.FindByVideoStatus(ctx, []postEntity.VideoStatus{
		postEntity.VideoSubmitted,
		postEntity.VideoProcessing,
	})
	if err != nil {
		w.Logger.Error("reconcile sweep query failed", zap.Error(err))
		return
	}

	for _, p := range posts {
		if ctx.Err() != nil {
			return
		}
		w.reconcile(ctx, p)
	}

	// Every batch still gated on video completion is re-evaluated, not just
	// those touched this sweep. A transient advance failure after the last
	// completion would otherwise strand the batch with nothing left in
	// flight to trigger another attempt.
	batches, err := w.Batches.FindByState(ctx, batchEntity.StatePromptsBuilt)
	if err != nil {
		w.Logger.Error("reconcile batch query failed", zap.Error(err))
		return
	}
	for _, b := range batches {
		if ctx.Err() != nil {
			return
		}
		w.tryAdvanceToQA(ctx, b.ID.String())
	}
}

func (w *ReconcileWorker) reconcile(ctx context.Context, p *postEntity.Post) videojob.Status {
	postID := p.ID.String()
	if until, ok := w.nextAttempt[postID]; ok && w.now().Before(until) {
		return ""
	}
	if p.VideoOperationID == "" {
		w.Logger.Warn("in-flight post has no operation id", zap.String("post_id", postID))
		return ""
	}

	pollCtx, cancel := context.WithTimeout(ctx, perPostTimeout)
	status, err := w.Videos.ReconcileOperation(pollCtx, postID, p.VideoOperationID)
	cancel()

	if err != nil {
		w.recordFailure(ctx, p, err)
		return ""
	}

	delete(w.failures, postID)
	delete(w.nextAttempt, postID)
	return status
}

// recordFailure backs the post off exponentially. Failure counters are
// per post: one flaky operation never slows the others down.
func (w *ReconcileWorker) recordFailure(ctx context.Context, p *postEntity.Post, err error) {
	postID := p.ID.String()
	w.failures[postID]++
	count := w.failures[postID]

	if count > w.MaxRetries {
		w.Logger.Error("reconciliation retries exhausted",
			zap.String("post_id", postID),
			zap.String("operation_id", p.VideoOperationID),
			zap.Int("attempts", count),
			zap.Error(err))
		if markErr := w.Posts.MarkVideoFailed(ctx, postID, "reconciliation retries exhausted: "+err.Error()); markErr != nil {
			w.Logger.Error("could not mark post failed", zap.String("post_id", postID), zap.Error(markErr))
			return
		}
		delete(w.failures, postID)
		delete(w.nextAttempt, postID)
		return
	}

	backoff := w.Interval << uint(count)
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	w.nextAttempt[postID] = w.now().Add(backoff)
	w.Logger.Warn("reconciliation attempt failed",
		zap.String("post_id", postID),
		zap.Int("attempt", count),
		zap.Duration("backoff", backoff),
		zap.Error(err))
}

// tryAdvanceToQA requests PROMPTS_BUILT -> QA once every video in the
// batch has completed. A denial just means other posts are still pending
// or an operator moved the batch concurrently; both are benign here.
func (w *ReconcileWorker) tryAdvanceToQA(ctx context.Context, batchID string) {
	posts, err := w.Posts.FindByBatchID(ctx, batchID)
	if err != nil {
		w.Logger.Error("could not load batch posts", zap.String("batch_id", batchID), zap.Error(err))
		return
	}
	for _, p := range posts {
		if p.VideoStatus != postEntity.VideoCompleted {
			return
		}
	}

	_, err = w.Applier.Apply(ctx, transition.Request{
		BatchID: batchID,
		Target:  batchEntity.StateQA,
		Actor:   audit.ActorWorker,
	})
	switch {
	case err == nil:
		w.Logger.Info("batch advanced to qa", zap.String("batch_id", batchID))
	case apperrors.IsCode(err, apperrors.CodeStateTransition), apperrors.IsCode(err, apperrors.CodeConflict):
		w.Logger.Debug("qa advance not applicable", zap.String("batch_id", batchID), zap.Error(err))
	default:
		w.Logger.Error("qa advance failed", zap.String("batch_id", batchID), zap.Error(err))
	}
}
