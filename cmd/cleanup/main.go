package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/rosec/backend/internal/config"
	"github.com/rosec/backend/internal/database"
	"github.com/rosec/backend/internal/lib/slogcustom"
	"github.com/rosec/backend/internal/models"
	"gorm.io/gorm"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report what would be removed without changing anything")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slogcustom.NewLogger(os.Stdout, slogcustom.ParseLevel(cfg.Server.LogLevel), cfg.IsDevelopment()))

	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	tokens, err := purgeRefreshTokens(db, time.Now(), *dryRun)
	if err != nil {
		slog.Error("failed to purge refresh tokens", "error", err)
		os.Exit(1)
	}

	keys, err := clearOrphanedAnswerKeys(db, *dryRun)
	if err != nil {
		slog.Error("failed to clear answer keys", "error", err)
		os.Exit(1)
	}

	slog.Info("database cleanup completed", "refresh_tokens", tokens, "answer_keys", keys, "dry_run", *dryRun)
}

// purgeRefreshTokens removes tokens that can no longer be exchanged.
func purgeRefreshTokens(db *gorm.DB, now time.Time, dryRun bool) (int64, error) {
	q := db.Where("revoked = ? OR expires_at < ?", true, now)
	if dryRun {
		var n int64
		err := q.Model(&models.RefreshToken{}).Count(&n).Error
		return n, err
	}
	res := q.Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

// clearOrphanedAnswerKeys empties the answer key of soft-deleted exams.
func clearOrphanedAnswerKeys(db *gorm.DB, dryRun bool) (int64, error) {
	q := db.Unscoped().Model(&models.ExamTemplate{}).
		Where("deleted_at IS NOT NULL").
		Where("answer_key IS NOT NULL AND answer_key <> ?", "[]")
	if dryRun {
		var n int64
		err := q.Count(&n).Error
		return n, err
	}
	res := q.Update("answer_key", models.AnswerKey{})
	return res.RowsAffected, res.Error
}
