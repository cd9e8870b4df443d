package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	assetadapter "flowforge/internal/adapters/assetstore"
	dbadapter "flowforge/internal/adapters/database"
	"flowforge/internal/adapters/httpapi"
	"flowforge/internal/adapters/recoverylog"
	redisadapter "flowforge/internal/adapters/redis"
	videoadapter "flowforge/internal/adapters/videoprovider"
	"flowforge/internal/config"
	"flowforge/internal/core/audit"
	authapp "flowforge/internal/core/auth/service"
	"flowforge/internal/core/batch"
	batchapp "flowforge/internal/core/batch/service"
	"flowforge/internal/core/post"
	postapp "flowforge/internal/core/post/service"
	publishapp "flowforge/internal/core/publish/service"
	qaapp "flowforge/internal/core/qa/service"
	"flowforge/internal/core/transition"
	videoapp "flowforge/internal/core/video/service"
	"flowforge/internal/ports/videojob"
	"flowforge/internal/workers"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}
	logger, err := config.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.OpenDB(cfg.DBDSN)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := db.AutoMigrate(&batch.Batch{}, &post.Post{}, &audit.Entry{}); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	redisClient, err := config.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()

	// Outbound adapters.
	batchRepo := dbadapter.NewBatchRepositoryDatabase(db)
	postRepo := dbadapter.NewPostRepositoryDatabase(db)
	auditRepo := dbadapter.NewAuditRepositoryDatabase(db)
	transitionStore := dbadapter.NewTransitionStoreDatabase(db)
	idemStore := redisadapter.NewIdempotencyRepositoryRedis(redisClient)
	ledger := recoverylog.NewFileLedger(cfg.RecoveryLedgerDir)
	provider := videoadapter.NewClientHTTP(cfg.VideoAPIBaseURL, cfg.VideoAPIKey, logger)
	assets := assetadapter.NewClientHTTP(cfg.AssetStoreBaseURL, cfg.AssetStoreKey, logger)

	// Use cases.
	applier := transition.NewApplier(transitionStore, logger)
	authSvc := authapp.NewAuthService(cfg.OperatorUsername, cfg.OperatorPasswordHash, []byte(cfg.JWTSecret), logger)
	batchSvc := batchapp.NewBatchService(batchRepo, postRepo, auditRepo, applier, logger)
	postSvc := postapp.NewPostService(postRepo, logger)
	videoSvc := videoapp.NewVideoService(postRepo, provider, assets, ledger, videojob.SubmitOptions{
		Provider:    cfg.VideoProvider,
		AspectRatio: cfg.AspectRatio,
		Resolution:  cfg.Resolution,
	}, logger)
	qaSvc := qaapp.NewQAService(postRepo, &http.Client{Timeout: 15 * time.Second}, logger)
	publishSvc := publishapp.NewPublishService(batchRepo, postRepo, applier, logger)

	worker := workers.NewReconcileWorker(postRepo, batchRepo, videoSvc, applier,
		cfg.WorkerPollInterval, cfg.WorkerMaxRetries, logger)
	go worker.Run(ctx)

	r := httpapi.SetupRoutes(authSvc, batchSvc, postSvc, videoSvc, qaSvc, publishSvc,
		[]byte(cfg.JWTSecret), idemStore, logger)

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("server starting", zap.String("addr", cfg.HTTPAddr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
