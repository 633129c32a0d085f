package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/maudia1/site/config"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqliteDSN enables foreign keys so slot references are nulled by the database as well
func sqliteDSN(path string) string {
	return path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
}

func getDatabase(cfg *config.AppConfig) (*gorm.DB, error) {
	dbcfg := cfg.Database
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if dbcfg.Debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(dbcfg.Type)) {
	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=%s",
			dbcfg.Host, dbcfg.Port, dbcfg.User, dbcfg.Passwd, dbcfg.Name, cfg.System.Location)
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3", "":
		dialector = sqlite.Open(sqliteDSN(cfg.GetSqlitePath()))
	default:
		return nil, errors.Errorf("unsupported database type %q", dbcfg.Type)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database handle")
	}
	if dbcfg.MaxConn > 0 {
		sqlDB.SetMaxOpenConns(dbcfg.MaxConn)
	}
	if dbcfg.IdleConn > 0 {
		sqlDB.SetMaxIdleConns(dbcfg.IdleConn)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}
