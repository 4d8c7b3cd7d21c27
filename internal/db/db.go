package db

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/justaplayground/devnet/internal/config"
	"github.com/justaplayground/devnet/internal/models"
)

type Database struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

func Connect(cfg *config.Config) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL")
	default:
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode, cfg.DBTimezone)
		dialector = postgres.Open(dsn)
	}

	database, err := open(dialector, logLevel(cfg.DBLogLevel))
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == config.DriverSQLite {
		// SQLite allows one writer; a single connection serializes units of work.
		database.SQL.SetMaxOpenConns(1)
	} else {
		database.SQL.SetMaxOpenConns(20)
		database.SQL.SetMaxIdleConns(5)
	}
	return database, nil
}

// OpenSQLite opens a migrated SQLite database at path with a single
// connection. Used by the embedded deployment and by package tests.
func OpenSQLite(path string) (*Database, error) {
	database, err := open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), logger.Silent)
	if err != nil {
		return nil, err
	}
	database.SQL.SetMaxOpenConns(1)
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func open(dialector gorm.Dialector, level logger.LogLevel) (*Database, error) {
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	return &Database{Gorm: gormDB, SQL: sqlDB}, nil
}

func logLevel(name string) logger.LogLevel {
	switch name {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Migrate creates or updates the schema for every model.
func (d *Database) Migrate() error {
	if err := d.Gorm.SetupJoinTable(&models.Post{}, "Tags", &models.PostTag{}); err != nil {
		return fmt.Errorf("setup post_tags join table: %w", err)
	}
	return d.Gorm.AutoMigrate(models.All()...)
}

func (d *Database) Close() error {
	if d.SQL != nil {
		return d.SQL.Close()
	}
	return nil
}

// Transaction runs fc as one unit of work bound to ctx. fc must use the tx
// handle it receives for every statement.
func (d *Database) Transaction(ctx context.Context, fc func(tx *gorm.DB) error) error {
	return d.Gorm.WithContext(ctx).Transaction(fc)
}
