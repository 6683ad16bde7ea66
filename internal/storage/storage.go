// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rovshanmuradov/pubprinter/internal/storage/models"
)

var ErrNotFound = errors.New("record not found")

// Storage persists snapshot history and alerts.
type Storage interface {
	SaveSnapshot(ctx context.Context, s *models.Snapshot) error
	LatestSnapshot(ctx context.Context, symbol string) (*models.Snapshot, error)
	ListSnapshots(ctx context.Context, filter models.SnapshotFilter) ([]models.Snapshot, error)

	SaveAlert(ctx context.Context, a *models.Alert) error
	ListAlerts(ctx context.Context, symbol string, limit int) ([]models.Alert, error)

	// Prune deletes snapshots older than before and returns how many went.
	Prune(ctx context.Context, before time.Time) (int64, error)

	RunMigrations() error
	Close() error
}
