package web

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"medquery/database"

	"go.uber.org/zap"
)

// CleanupService removes uploaded files that no document row references
// anymore, for example after a failed insert or a deleted document.
type CleanupService struct {
	store     *database.PostgresStore
	uploadDir string
	logger    *zap.Logger
}

// NewCleanupService creates a new cleanup service instance
func NewCleanupService(store *database.PostgresStore, uploadDir string, logger *zap.Logger) *CleanupService {
	return &CleanupService{
		store:     store,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// CleanupOrphanedUploads deletes files in the upload directory older than
// maxAge that no document row points at. Returns the number of files removed.
func (cs *CleanupService) CleanupOrphanedUploads(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoffTime := time.Now().Add(-maxAge)

	cs.logger.Info("Starting orphaned upload cleanup",
		zap.Time("cutoff_time", cutoffTime),
		zap.Duration("max_age", maxAge))

	referenced, err := cs.store.ReferencedUploads(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get referenced uploads: %w", err)
	}

	entries, err := os.ReadDir(cs.uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read upload directory: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoffTime) {
			continue
		}

		if _, live := referenced["/uploads/"+entry.Name()]; live {
			continue
		}

		path := filepath.Join(cs.uploadDir, entry.Name())
		if err := os.Remove(path); err != nil {
			cs.logger.Warn("Failed to delete orphaned upload",
				zap.Error(err),
				zap.String("path", path))
			continue
		}
		deleted++
		cs.logger.Debug("Orphaned upload deleted", zap.String("path", path))
	}

	if deleted > 0 {
		cs.logger.Info("Orphaned upload cleanup completed", zap.Int("files_deleted", deleted))
	}
	return deleted, nil
}

// Run performs cleanup on the given interval until the context is cancelled.
func (cs *CleanupService) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := cs.CleanupOrphanedUploads(ctx, maxAge); err != nil {
				cs.logger.Error("Upload cleanup failed", zap.Error(err))
			}
		}
	}
}
