package service

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shelfwatch/shelfwatch/internal/config"
	"github.com/shelfwatch/shelfwatch/internal/extract"
	"github.com/shelfwatch/shelfwatch/internal/fetch"
	"github.com/shelfwatch/shelfwatch/internal/repository"
)

// Services holds all service instances.
type Services struct {
	Ingestion *IngestionService
	Check     *CheckService
	Product   *ProductService
	Snapshot  *SnapshotService
	Cleanup   *CleanupService
}

// NewServices creates all service instances, including the fetcher and
// extractor the check coordinator drives.
func NewServices(cfg *config.Config, db *sql.DB, repos *repository.Repositories, logger *slog.Logger) (*Services, error) {
	snapshotSvc, err := NewSnapshotService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot service: %w", err)
	}

	renderer := fetch.NewRodRenderer(cfg, logger)
	fetcher := fetch.NewFetcher(cfg, renderer, logger)
	extractor := extract.NewExtractor(logger)

	ingestionSvc := NewIngestionService(db, repos, logger)
	checkSvc := NewCheckService(repos.CheckRun, fetcher, extractor, ingestionSvc, snapshotSvc, logger)
	productSvc := NewProductService(repos, logger)
	cleanupSvc := NewCleanupService(repos.CheckRun, snapshotSvc, logger)

	return &Services{
		Ingestion: ingestionSvc,
		Check:     checkSvc,
		Product:   productSvc,
		Snapshot:  snapshotSvc,
		Cleanup:   cleanupSvc,
	}, nil
}
