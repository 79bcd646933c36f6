package database

import (
	"fmt"
	"log/slog"

	"github.com/rosec/backend/internal/config"
	"github.com/rosec/backend/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	} else {
		logLevel = logger.Silent
	}

	slog.Info("connecting to database", "driver", cfg.Database.Driver, "dsn", maskPassword(cfg.Database.DSN))

	db, err := gorm.Open(dialector(cfg.Database), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection successful")
	return db, nil
}

func dialector(cfg config.DatabaseConfig) gorm.Dialector {
	if cfg.Driver == "mysql" {
		return mysql.Open(cfg.DSN)
	}
	return postgres.Open(cfg.DSN)
}

func maskPassword(dsn string) string {
	if len(dsn) > 20 {
		return dsn[:20] + "...***..."
	}
	return "***"
}

func Migrate(db *gorm.DB) error {
	slog.Info("running migrations")

	err := db.AutoMigrate(
		&models.User{},
		&models.Class{},
		&models.Subject{},
		&models.Student{},
		&models.ExamTemplate{},
		&models.AuditLog{},
		&models.RefreshToken{},
	)
	if err != nil {
		return err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_exam_templates_class_subject ON exam_templates(class_id, subject_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expiry ON refresh_tokens(expires_at, revoked)")

	return nil
}
