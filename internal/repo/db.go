package repo

import (
	"fmt"

	"ignite-service/internal/config"
	"ignite-service/internal/model"
	"ignite-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	db, err := OpenDB(config.GlobalConfig.Database)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database",
			zap.String("driver", config.GlobalConfig.Database.Driver),
			zap.Error(err),
		)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}
	DB = db
}

// OpenDB opens a gorm handle for the configured driver.
func OpenDB(conf config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch conf.Driver {
	case "", "postgres":
		dialector = postgres.Open(conf.DSN)
	case "mysql":
		dialector = mysql.Open(conf.DSN)
	case "sqlite":
		dialector = sqlite.Open(conf.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}
	return gorm.Open(dialector, &gorm.Config{})
}
