package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/taskforge/backend/internal/models"
	"github.com/taskforge/backend/pkg/logger"
	"gorm.io/gorm"
)

// CleanupService periodically clears refresh slots whose expiry has passed.
// An expired slot is already unusable; purging it just keeps stale
// credentials out of the database.
type CleanupService struct {
	db            *gorm.DB
	cronScheduler *cron.Cron
	now           func() time.Time
}

func NewCleanupService(db *gorm.DB) *CleanupService {
	return &CleanupService{
		db:  db,
		now: time.Now,
	}
}

// StartScheduler runs the purge hourly.
func (s *CleanupService) StartScheduler() {
	s.cronScheduler = cron.New()

	if _, err := s.cronScheduler.AddFunc("0 * * * *", func() {
		s.PurgeExpiredRefreshTokens()
	}); err != nil {
		logger.Error().Err(err).Msg("failed to schedule refresh token cleanup")
		return
	}

	s.cronScheduler.Start()
	logger.Info().Msg("refresh token cleanup scheduler started")
}

func (s *CleanupService) StopScheduler() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

// PurgeExpiredRefreshTokens nulls out every refresh slot whose expiry is in
// the past.
func (s *CleanupService) PurgeExpiredRefreshTokens() {
	res := s.db.Model(&models.User{}).
		Where("refresh_token IS NOT NULL AND refresh_token_expires_at < ?", s.now().UTC()).
		Updates(map[string]interface{}{
			"refresh_token":            nil,
			"refresh_token_expires_at": nil,
		})
	if res.Error != nil {
		logger.Error().Err(res.Error).Msg("refresh token cleanup failed")
		return
	}
	if res.RowsAffected > 0 {
		logger.Info().Int64("purged", res.RowsAffected).Msg("expired refresh tokens purged")
	}
}
