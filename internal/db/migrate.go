package db

import (
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Store{},
		&model.Account{},
		&model.Profile{},
		&model.MenuCategory{},
		&model.Menu{},
		&model.BottleKeep{},
		&model.BottleKeepHolder{},
		&model.ShiftRequest{},
		&model.ShiftRequestDate{},
		&model.ShiftSubmission{},
		&model.Attendance{},
		&model.Comment{},
		&model.SNSAccount{},
		&model.SNSScheduledPost{},
		&model.SNSRecurringSchedule{},
	}
}

// Migrate runs AutoMigrate against the global connection.
func Migrate() error {
	return MigrateDB(DB)
}

func MigrateDB(conn *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
