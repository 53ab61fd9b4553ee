package app

import (
	"log"

	"postuploadCPT/internal/config"
	"postuploadCPT/internal/coordinator"
	"postuploadCPT/internal/database"
	"postuploadCPT/internal/media"
	"postuploadCPT/internal/notify"
	"postuploadCPT/internal/remote"
	"postuploadCPT/internal/repository"
	"postuploadCPT/internal/retry"
	"postuploadCPT/internal/search"
	"postuploadCPT/internal/storage"
)

func App(cfg *config.Config) (*database.DB, *repository.Repository, *coordinator.Coordinator, *retry.Scanner) {
	// connection DB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Не удалось подключиться к БД: %v", err)
	}

	// connection MinIO
	minioClient, err := storage.NewMinIOClient(cfg)
	if err != nil {
		log.Fatalf("Не удалось инициализировать MinIO: %v", err)
	}

	// enabling dependencies
	repo := repository.NewRepository(db.DB)

	remoteClient := remote.NewClient(cfg)
	mediaService := media.NewUploadService(repo.Media, minioClient, remoteClient)
	searchIndex := search.NewPostgresIndex(db.DB)
	notices := notify.NewLogSink()

	coord := coordinator.NewCoordinator(
		repo.Post,
		repo.Blog,
		mediaService,
		remoteClient,
		searchIndex,
		notices,
		nil,
	)

	scanner := retry.NewScanner(repo.Post, coord, cfg.MaxAutoUploadAttempts)

	return db, repo, coord, scanner
}
