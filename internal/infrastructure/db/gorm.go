package db

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Options struct {
	LogLevel logger.LogLevel
	// MaxOpenConns 0 keeps the pool default of 30.
	MaxOpenConns int
}

// OpenGorm picks the dialector by driver name. SQLite runs on a single
// connection so that in-memory databases are shared and writers serialize.
func OpenGorm(driver, dsn string, opts Options) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch driver {
	case DriverSQLite:
		dial = sqlite.Open(dsn)
		opts.MaxOpenConns = 1
	default:
		dial = mysql.Open(dsn)
	}
	return OpenGormWithDialector(dial, opts)
}

func OpenGormWithDialector(dial gorm.Dialector, opts ...Options) (*gorm.DB, error) {
	o := Options{LogLevel: logger.Warn}
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 30
	}

	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(o.LogLevel),
		TranslateError: true,
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	sqlDB.SetMaxIdleConns(min(10, o.MaxOpenConns))
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	log.Info().Str("dialector", dial.Name()).Msg("gorm: connected")
	return db, nil
}

// ParseLogLevel maps silent|error|warn|info onto gorm levels; unknown values mean warn.
func ParseLogLevel(s string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
