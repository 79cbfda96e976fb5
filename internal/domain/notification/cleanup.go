package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CleanupJob handles notification retention cleanup
type CleanupJob struct {
	repo          Repository
	retentionDays int
}

// NewCleanupJob creates a cleanup job
func NewCleanupJob(repo Repository, retentionDays int) *CleanupJob {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &CleanupJob{
		repo:          repo,
		retentionDays: retentionDays,
	}
}

// Start starts the cleanup job with the given interval
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	j.run(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Notification cleanup job stopped")
			return
		case <-ticker.C:
			j.run(ctx)
		}
	}
}

func (j *CleanupJob) run(ctx context.Context) {
	age := time.Duration(j.retentionDays) * 24 * time.Hour

	deleted, err := j.repo.DeleteOlderThan(ctx, age)
	if err != nil {
		log.Error().Err(err).Msg("Failed to cleanup old notifications")
		return
	}

	if deleted > 0 {
		log.Info().
			Int64("deleted", deleted).
			Int("retention_days", j.retentionDays).
			Msg("Cleaned up old notifications")
	}
}
