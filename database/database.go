package database

import (
	"fmt"
	"strings"

	"github.com/Cherishclears/library-backend/config"
	"github.com/Cherishclears/library-backend/logging"
	"github.com/Cherishclears/library-backend/models"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the process-wide connection, set by Connect
var DB *gorm.DB

// DefaultSQLitePath is used when DB_DRIVER=sqlite and DATABASE_URL is empty
const DefaultSQLitePath = "library.db"

// Connect initializes the database connection and migrates the schema
func Connect(cfg config.Config) error {
	db, err := Open(cfg.DBDriver, cfg.DatabaseURL, logging.GormLevel(cfg.Env))
	if err != nil {
		return err
	}
	DB = db

	log.Info().Str("driver", cfg.DBDriver).Msg("✅ Database connected successfully")

	if err := AutoMigrate(DB); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	return nil
}

// Open opens a gorm connection for the given driver without touching DB
func Open(driver, dsn string, level logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
		dialector = postgres.Open(dsn)
	case "sqlite":
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		dialector = sqlite.Open(withSQLiteForeignKeys(dsn))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// AutoMigrate runs database migrations
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Book{},
		&models.Borrow{},
	)
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// withSQLiteForeignKeys turns on FK enforcement so borrow rows cascade with their book/user
func withSQLiteForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1"
}
