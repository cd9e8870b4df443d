package httpapi

import (
	"context"

	"flowforge/internal/adapters/httpapi/middleware"
	authapp "flowforge/internal/core/auth/service"
	batchEntity "flowforge/internal/core/batch"
	batchapp "flowforge/internal/core/batch/service"
	publishapp "flowforge/internal/core/publish/service"
	qaapp "flowforge/internal/core/qa/service"
	videoapp "flowforge/internal/core/video/service"
	auditPort "flowforge/internal/ports/audit"
	batchPort "flowforge/internal/ports/batch"
	idempotencyPort "flowforge/internal/ports/idempotency"
	postPort "flowforge/internal/ports/post"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Inbound ports consumed by the controllers. The concrete services in
// internal/core satisfy them; tests substitute fakes.

type AuthUseCase interface {
	Login(ctx context.Context, username, password string) (*authapp.TokenDTO, error)
}

type BatchUseCase interface {
	Create(ctx context.Context, brand string, counts batchEntity.TypeCounts) (*batchPort.DTO, error)
	SeedPosts(ctx context.Context, batchID string, seeds []batchapp.SeedInput, actor string) (*batchPort.DTO, error)
	Get(ctx context.Context, batchID string) (*batchPort.DetailDTO, error)
	List(ctx context.Context, archived *bool, limit, offset int) (*batchPort.ListDTO, error)
	Status(ctx context.Context, batchID string) (*batchPort.StatusDTO, error)
	Advance(ctx context.Context, batchID, targetState, actor string, postIDs []string) (*batchPort.DTO, error)
	Duplicate(ctx context.Context, batchID, newBrand string) (*batchPort.DTO, error)
	Archive(ctx context.Context, batchID string, archived bool) (*batchPort.DTO, error)
	QAStatus(ctx context.Context, batchID string) (*batchPort.QAStatusDTO, error)
	AuditTrail(ctx context.Context, batchID string) ([]*auditPort.DTO, error)
}

type PostUseCase interface {
	Get(ctx context.Context, postID string) (*postPort.DTO, error)
	UpdateScript(ctx context.Context, postID, scriptText string) (*postPort.DTO, error)
	ApproveScript(ctx context.Context, postID string) (*postPort.DTO, error)
	UnapproveScript(ctx context.Context, postID string) (*postPort.DTO, error)
	SetPrompt(ctx context.Context, postID, promptJSON string) (*postPort.DTO, error)
}

type VideoUseCase interface {
	Generate(ctx context.Context, postID string, opts videoapp.GenerateOptions) (*postPort.VideoStatusDTO, error)
	GenerateAll(ctx context.Context, batchID string, opts videoapp.GenerateOptions) (*videoapp.BatchResult, error)
	Status(ctx context.Context, postID string) (*postPort.VideoStatusDTO, error)
}

type QAUseCase interface {
	AutoCheck(ctx context.Context, postID string) (*qaapp.Checks, error)
	Decide(ctx context.Context, postID string, pass bool, notes string) (*postPort.DTO, error)
}

type PublishUseCase interface {
	SetPlan(ctx context.Context, batchID string, items []publishapp.PlanItem) (*publishapp.PlanDTO, error)
	GetPlan(ctx context.Context, batchID string) (*publishapp.PlanDTO, error)
	Confirm(ctx context.Context, batchID, actor string) (*publishapp.PlanDTO, error)
}

// SetupRoutes wires the controllers onto a gin engine. Everything except
// login sits behind JWT auth; mutating routes additionally honor the
// Idempotency-Key header.
func SetupRoutes(
	authUC AuthUseCase,
	batchUC BatchUseCase,
	postUC PostUseCase,
	videoUC VideoUseCase,
	qaUC QAUseCase,
	publishUC PublishUseCase,
	jwtKey []byte,
	idemStore idempotencyPort.Store,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	ac := NewAuthController(authUC)
	bc := NewBatchController(batchUC)
	pc := NewPostController(postUC)
	vc := NewVideoController(videoUC)
	qc := NewQAController(qaUC)
	pubc := NewPublishController(publishUC)

	r.POST("/auth/login", ac.Login)

	authed := r.Group("/", middleware.JWTAuth(jwtKey))
	idem := middleware.Idempotency(idemStore, logger)

	authed.POST("/batches", idem, bc.Create)
	authed.GET("/batches", bc.List)
	authed.GET("/batches/:id", bc.Get)
	authed.GET("/batches/:id/status", bc.Status)
	authed.POST("/batches/:id/posts", idem, bc.SeedPosts)
	authed.POST("/batches/:id/advance", idem, bc.Advance)
	authed.POST("/batches/:id/duplicate", idem, bc.Duplicate)
	authed.POST("/batches/:id/archive", idem, bc.Archive)
	authed.GET("/batches/:id/qa", bc.QAStatus)
	authed.GET("/batches/:id/audit", bc.AuditTrail)
	authed.POST("/batches/:id/generate-videos", idem, vc.GenerateAll)
	authed.GET("/batches/:id/publish-plan", pubc.GetPlan)
	authed.PUT("/batches/:id/publish-plan", idem, pubc.SetPlan)
	authed.POST("/batches/:id/publish-plan/confirm", idem, pubc.Confirm)

	authed.GET("/posts/:id", pc.Get)
	authed.PUT("/posts/:id/script", idem, pc.UpdateScript)
	authed.POST("/posts/:id/script/approve", idem, pc.ApproveScript)
	authed.DELETE("/posts/:id/script/approve", idem, pc.UnapproveScript)
	authed.PUT("/posts/:id/prompt", idem, pc.SetPrompt)
	authed.POST("/posts/:id/generate-video", idem, vc.Generate)
	authed.GET("/posts/:id/video", vc.Status)
	authed.POST("/posts/:id/qa/check", idem, qc.AutoCheck)
	authed.POST("/posts/:id/qa/decision", idem, qc.Decide)

	return r
}
