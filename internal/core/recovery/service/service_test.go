package recoveryapp

import (
	"context"
	"testing"

	"flowforge/internal/core/apperrors"
	postEntity "flowforge/internal/core/post"
	videoapp "flowforge/internal/core/video/service"
	assetPort "flowforge/internal/ports/assetstore"
	postPort "flowforge/internal/ports/post"
	recoveryPort "flowforge/internal/ports/recovery"
	"flowforge/internal/ports/videojob"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

type fakeRepo struct {
	posts       map[string]*postEntity.Post
	submissions map[string]postPort.VideoSubmission
}

func newRepo(posts ...*postEntity.Post) *fakeRepo {
	r := &fakeRepo{
		posts:       map[string]*postEntity.Post{},
		submissions: map[string]postPort.VideoSubmission{},
	}
	for _, p := range posts {
		r.posts[p.ID.String()] = p
	}
	return r
}

func (r *fakeRepo) CreateMany(ctx context.Context, posts []*postEntity.Post) error { return nil }

func (r *fakeRepo) FindByID(ctx context.Context, id string) (*postEntity.Post, error) {
	p, ok := r.posts[id]
	if !ok {
		return nil, apperrors.NotFound("post not found", nil)
	}
	return p, nil
}

func (r *fakeRepo) FindByBatchID(ctx context.Context, batchID string) ([]*postEntity.Post, error) {
	return nil, nil
}

func (r *fakeRepo) FindByVideoStatus(ctx context.Context, statuses []postEntity.VideoStatus) ([]*postEntity.Post, error) {
	return nil, nil
}

func (r *fakeRepo) UpdateScript(ctx context.Context, id, scriptText string) error { return nil }
func (r *fakeRepo) SetScriptApproved(ctx context.Context, id string, approved bool) error {
	return nil
}
func (r *fakeRepo) SetPrompt(ctx context.Context, id, promptJSON string) error { return nil }

func (r *fakeRepo) SetVideoSubmission(ctx context.Context, id string, sub postPort.VideoSubmission) error {
	r.submissions[id] = sub
	p := r.posts[id]
	p.VideoProvider = sub.Provider
	p.VideoOperationID = sub.OperationID
	p.VideoStatus = postEntity.VideoSubmitted
	return nil
}

func (r *fakeRepo) SetVideoStatus(ctx context.Context, id string, status postEntity.VideoStatus, metaJSON string) error {
	r.posts[id].VideoStatus = status
	return nil
}

func (r *fakeRepo) MarkVideoCompleted(ctx context.Context, id, operationID, videoURL, metaJSON string) error {
	p := r.posts[id]
	p.VideoStatus = postEntity.VideoCompleted
	p.VideoURL = videoURL
	return nil
}

func (r *fakeRepo) MarkVideoFailed(ctx context.Context, id, reason string) error {
	p := r.posts[id]
	p.VideoStatus = postEntity.VideoFailed
	p.VideoError = reason
	return nil
}

func (r *fakeRepo) SetQADecision(ctx context.Context, id string, pass bool, notes string) error {
	return nil
}
func (r *fakeRepo) SetQAChecks(ctx context.Context, id, checksJSON string) error { return nil }
func (r *fakeRepo) SetSchedule(ctx context.Context, id string, schedule postPort.Schedule) error {
	return nil
}
func (r *fakeRepo) SetPublishResult(ctx context.Context, id, publishStatus, platformIDsJSON string) error {
	return nil
}

type fakeProvider struct {
	submits int
	polls   int
}

func (f *fakeProvider) Submit(ctx context.Context, prompt string, opts videojob.SubmitOptions) (videojob.Submission, error) {
	f.submits++
	return videojob.Submission{OperationID: "op-new", Provider: "veo"}, nil
}

func (f *fakeProvider) Poll(ctx context.Context, operationID string) (videojob.PollResult, error) {
	f.polls++
	return videojob.PollResult{
		Status:        videojob.StatusCompleted,
		AssetLocation: "assets/" + operationID,
	}, nil
}

func (f *fakeProvider) Download(ctx context.Context, assetLocation string) ([]byte, error) {
	return []byte("video"), nil
}

type fakeAssets struct{}

func (fakeAssets) Upload(ctx context.Context, fileName string, data []byte) (assetPort.Upload, error) {
	return assetPort.Upload{URL: "https://cdn/" + fileName, Size: int64(len(data))}, nil
}

type fakeLedger struct{ entries []recoveryPort.Entry }

func (f *fakeLedger) Append(ctx context.Context, entry recoveryPort.Entry) error { return nil }

func (f *fakeLedger) Entries(ctx context.Context) ([]recoveryPort.Entry, error) {
	return f.entries, nil
}

func newService(repo *fakeRepo, provider *fakeProvider, entries ...recoveryPort.Entry) *RecoveryService {
	ledger := &fakeLedger{entries: entries}
	videos := videoapp.NewVideoService(repo, provider, fakeAssets{}, ledger, videojob.SubmitOptions{}, zap.NewNop())
	return NewRecoveryService(repo, videos, ledger, zap.NewNop())
}

func submittedEntry(postID, opID string) recoveryPort.Entry {
	return recoveryPort.Entry{
		PostID:      postID,
		OperationID: opID,
		Provider:    "veo",
		Status:      recoveryPort.StatusSubmitted,
	}
}

func crashedPost() *postEntity.Post {
	return &postEntity.Post{
		ID:          uuid.Must(uuid.NewV4()),
		BatchID:     uuid.Must(uuid.NewV4()),
		Type:        postEntity.TypeValue,
		PromptJSON:  `{"scene":"kitchen"}`,
		PromptBuilt: true,
		VideoStatus: postEntity.VideoPending,
	}
}

func TestRunReattachesJournaledOperationWithoutResubmitting(t *testing.T) {
	// The crash window: the provider accepted op-1 and the ledger recorded
	// it, but the process died before the post row was updated.
	p := crashedPost()
	repo := newRepo(p)
	provider := &fakeProvider{}
	svc := newService(repo, provider, submittedEntry(p.ID.String(), "op-1"))

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	sub, ok := repo.submissions[p.ID.String()]
	if !ok || sub.OperationID != "op-1" || sub.Provider != "veo" {
		t.Fatalf("submission = %+v, want journaled op-1 reattached", sub)
	}
	if p.VideoStatus != postEntity.VideoCompleted || p.VideoURL == "" {
		t.Errorf("post = status %s url %q, want completed with a video url", p.VideoStatus, p.VideoURL)
	}
	if provider.submits != 0 {
		t.Errorf("provider submits = %d, replay must never resubmit", provider.submits)
	}
	if summary.Recovered != 1 || summary.Entries != 1 {
		t.Errorf("summary = %+v, want 1 entry recovered", summary)
	}
}

func TestRunSkipsTerminalAndSupersededPosts(t *testing.T) {
	done := crashedPost()
	done.VideoStatus = postEntity.VideoCompleted
	done.VideoOperationID = "op-1"

	superseded := crashedPost()
	superseded.VideoStatus = postEntity.VideoSubmitted
	superseded.VideoOperationID = "op-9"

	repo := newRepo(done, superseded)
	provider := &fakeProvider{}
	svc := newService(repo, provider,
		submittedEntry(done.ID.String(), "op-1"),
		submittedEntry(superseded.ID.String(), "op-2"))

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if provider.polls != 0 {
		t.Errorf("polls = %d, want none for skipped entries", provider.polls)
	}
	if superseded.VideoOperationID != "op-9" {
		t.Errorf("operation id = %q, superseding submission must survive replay", superseded.VideoOperationID)
	}
	if summary.Skipped != 2 || summary.Recovered != 0 {
		t.Errorf("summary = %+v, want both entries skipped", summary)
	}
}

func TestRunSkipsEntriesForDeletedPosts(t *testing.T) {
	repo := newRepo()
	provider := &fakeProvider{}
	svc := newService(repo, provider, submittedEntry(uuid.Must(uuid.NewV4()).String(), "op-1"))

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want the orphaned entry skipped", summary)
	}
}

func TestRunIgnoresAlreadyRecoveredEntries(t *testing.T) {
	p := crashedPost()
	repo := newRepo(p)
	provider := &fakeProvider{}
	entry := submittedEntry(p.ID.String(), "op-1")
	entry.Status = recoveryPort.StatusRecovered
	svc := newService(repo, provider, entry)

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Recovered != 0 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want nothing replayed", summary)
	}
	if provider.polls != 0 {
		t.Errorf("polls = %d, want 0", provider.polls)
	}
}
