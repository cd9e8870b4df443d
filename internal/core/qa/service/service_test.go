package qaapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"flowforge/internal/core/apperrors"
	postEntity "flowforge/internal/core/post"
	postPort "flowforge/internal/ports/post"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

type fakeRepo struct {
	posts     map[string]*postEntity.Post
	checks    map[string]string
	decisions map[string]bool
}

func newRepo(posts ...*postEntity.Post) *fakeRepo {
	r := &fakeRepo{
		posts:     map[string]*postEntity.Post{},
		checks:    map[string]string{},
		decisions: map[string]bool{},
	}
	for _, p := range posts {
		r.posts[p.ID.String()] = p
	}
	return r
}

func (r *fakeRepo) CreateMany(ctx context.Context, posts []*postEntity.Post) error { return nil }

func (r *fakeRepo) FindByID(ctx context.Context, id string) (*postEntity.Post, error) {
	return r.posts[id], nil
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
	return nil
}
func (r *fakeRepo) SetVideoStatus(ctx context.Context, id string, status postEntity.VideoStatus, metaJSON string) error {
	return nil
}
func (r *fakeRepo) MarkVideoCompleted(ctx context.Context, id, operationID, videoURL, metaJSON string) error {
	return nil
}
func (r *fakeRepo) MarkVideoFailed(ctx context.Context, id, reason string) error { return nil }

func (r *fakeRepo) SetQADecision(ctx context.Context, id string, pass bool, notes string) error {
	r.decisions[id] = pass
	p := r.posts[id]
	p.QAPass = &pass
	p.QANotes = notes
	return nil
}

func (r *fakeRepo) SetQAChecks(ctx context.Context, id, checksJSON string) error {
	r.checks[id] = checksJSON
	return nil
}

func (r *fakeRepo) SetSchedule(ctx context.Context, id string, schedule postPort.Schedule) error {
	return nil
}
func (r *fakeRepo) SetPublishResult(ctx context.Context, id, publishStatus, platformIDsJSON string) error {
	return nil
}

func completedPost(url, metaJSON string) *postEntity.Post {
	return &postEntity.Post{
		ID:            uuid.Must(uuid.NewV4()),
		BatchID:       uuid.Must(uuid.NewV4()),
		Type:          postEntity.TypeValue,
		VideoStatus:   postEntity.VideoCompleted,
		VideoURL:      url,
		VideoMetaJSON: metaJSON,
	}
}

func assetServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("accessibility probe used %s, want HEAD", r.Method)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAutoCheckPassesConformingVideo(t *testing.T) {
	srv := assetServer(t, http.StatusOK)
	p := completedPost(srv.URL+"/p.mp4", `{"duration_seconds":8.2,"width":720,"height":1280}`)
	repo := newRepo(p)
	svc := NewQAService(repo, srv.Client(), zap.NewNop())

	checks, err := svc.AutoCheck(context.Background(), p.ID.String())
	if err != nil {
		t.Fatalf("AutoCheck: %v", err)
	}
	if !checks.DurationOK || !checks.ResolutionOK || !checks.FileAccessible || !checks.Pass {
		t.Errorf("checks = %+v, want all passing", checks)
	}

	stored, ok := repo.checks[p.ID.String()]
	if !ok {
		t.Fatal("checks must be persisted")
	}
	var persisted Checks
	if err := json.Unmarshal([]byte(stored), &persisted); err != nil {
		t.Fatalf("persisted checks unreadable: %v", err)
	}
	if !persisted.Pass {
		t.Errorf("persisted = %+v", persisted)
	}
}

func TestAutoCheckFailsOutOfSpecVideo(t *testing.T) {
	cases := []struct {
		name string
		meta string
		want func(Checks) bool
	}{
		{"duration too short", `{"duration_seconds":7.0,"width":720,"height":1280}`,
			func(c Checks) bool { return !c.DurationOK && c.ResolutionOK }},
		{"duration too long", `{"duration_seconds":8.6,"width":720,"height":1280}`,
			func(c Checks) bool { return !c.DurationOK }},
		{"resolution too low", `{"duration_seconds":8.0,"width":480,"height":854}`,
			func(c Checks) bool { return c.DurationOK && !c.ResolutionOK }},
		{"missing metadata", `{}`,
			func(c Checks) bool { return !c.DurationOK && !c.ResolutionOK }},
	}

	srv := assetServer(t, http.StatusOK)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := completedPost(srv.URL+"/p.mp4", tc.meta)
			repo := newRepo(p)
			svc := NewQAService(repo, srv.Client(), zap.NewNop())

			checks, err := svc.AutoCheck(context.Background(), p.ID.String())
			if err != nil {
				t.Fatalf("AutoCheck: %v", err)
			}
			if checks.Pass {
				t.Error("nonconforming video must not pass")
			}
			if !tc.want(*checks) {
				t.Errorf("checks = %+v", checks)
			}
		})
	}
}

func TestAutoCheckDetectsInaccessibleFile(t *testing.T) {
	srv := assetServer(t, http.StatusNotFound)
	p := completedPost(srv.URL+"/gone.mp4", `{"duration_seconds":8.0,"width":720,"height":1280}`)
	repo := newRepo(p)
	svc := NewQAService(repo, srv.Client(), zap.NewNop())

	checks, err := svc.AutoCheck(context.Background(), p.ID.String())
	if err != nil {
		t.Fatalf("AutoCheck: %v", err)
	}
	if checks.FileAccessible || checks.Pass {
		t.Errorf("checks = %+v, want inaccessible failure", checks)
	}
}

func TestAutoCheckRequiresCompletedVideo(t *testing.T) {
	p := completedPost("https://cdn/p.mp4", "{}")
	p.VideoStatus = postEntity.VideoProcessing
	repo := newRepo(p)
	svc := NewQAService(repo, http.DefaultClient, zap.NewNop())

	_, err := svc.AutoCheck(context.Background(), p.ID.String())
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("err = %v, want validation_error", err)
	}
}

func TestDecideRecordsDecision(t *testing.T) {
	p := completedPost("https://cdn/p.mp4", "{}")
	repo := newRepo(p)
	svc := NewQAService(repo, http.DefaultClient, zap.NewNop())

	dto, err := svc.Decide(context.Background(), p.ID.String(), false, "flickering at 3s")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dto.QAPass == nil || *dto.QAPass {
		t.Errorf("dto.QAPass = %v, want false", dto.QAPass)
	}
	if p.QANotes != "flickering at 3s" {
		t.Errorf("notes = %q", p.QANotes)
	}
}

func TestDecideRequiresCompletedVideo(t *testing.T) {
	p := completedPost("https://cdn/p.mp4", "{}")
	p.VideoStatus = postEntity.VideoPending
	repo := newRepo(p)
	svc := NewQAService(repo, http.DefaultClient, zap.NewNop())

	_, err := svc.Decide(context.Background(), p.ID.String(), true, "")
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("err = %v, want validation_error", err)
	}
}
