package main

import (
	"context"
	"log"

	assetadapter "flowforge/internal/adapters/assetstore"
	dbadapter "flowforge/internal/adapters/database"
	"flowforge/internal/adapters/recoverylog"
	videoadapter "flowforge/internal/adapters/videoprovider"
	"flowforge/internal/config"
	recoveryapp "flowforge/internal/core/recovery/service"
	videoapp "flowforge/internal/core/video/service"
	"flowforge/internal/ports/videojob"

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

	db, err := config.OpenDB(cfg.DBDSN)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	postRepo := dbadapter.NewPostRepositoryDatabase(db)
	ledger := recoverylog.NewFileLedger(cfg.RecoveryLedgerDir)
	provider := videoadapter.NewClientHTTP(cfg.VideoAPIBaseURL, cfg.VideoAPIKey, logger)
	assets := assetadapter.NewClientHTTP(cfg.AssetStoreBaseURL, cfg.AssetStoreKey, logger)
	videoSvc := videoapp.NewVideoService(postRepo, provider, assets, ledger, videojob.SubmitOptions{}, logger)

	recoverySvc := recoveryapp.NewRecoveryService(postRepo, videoSvc, ledger, logger)
	summary, err := recoverySvc.Run(context.Background())
	if err != nil {
		logger.Fatal("could not read recovery ledger", zap.Error(err))
	}

	logger.Info("recovery finished",
		zap.Int("entries", summary.Entries),
		zap.Int("recovered", summary.Recovered),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
}
