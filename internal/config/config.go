package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppPort string

	DBDriver   string // mysql | sqlite
	SQLitePath string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisEnabled bool
	RedisAddr    string
	RedisDB      int

	IdempTTLSecs int

	JWTSecret string

	LogLevel     string
	LogFormat    string // json | console
	GormLogLevel string

	DefaultRequiredApprovals int
	// ApprovalMaxAge 0 disables the expiry sweep.
	ApprovalMaxAge         time.Duration
	ApprovalExpirySchedule string
	FinalizationChannel    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("SQLITE_PATH", "chama.db")
	v.SetDefault("MYSQL_HOST", "mysql")
	v.SetDefault("MYSQL_PORT", "3306")
	v.SetDefault("MYSQL_DB", "chama")
	v.SetDefault("MYSQL_USER", "chama")
	v.SetDefault("MYSQL_PASS", "chama")
	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_ADDR", "redis:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("IDEMPOTENCY_TTL_SECONDS", 300)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("GORM_LOG_LEVEL", "warn")
	v.SetDefault("DEFAULT_REQUIRED_APPROVALS", 2)
	v.SetDefault("APPROVAL_MAX_AGE", "0s")
	v.SetDefault("APPROVAL_EXPIRY_SCHEDULE", "@every 1h")
	v.SetDefault("FINALIZATION_CHANNEL", "chama:approvals:finalized")
}

// Load reads .env (if present) and then the process environment; env wins.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	maxAge, err := time.ParseDuration(v.GetString("APPROVAL_MAX_AGE"))
	if err != nil {
		return nil, fmt.Errorf("invalid APPROVAL_MAX_AGE %q: %w", v.GetString("APPROVAL_MAX_AGE"), err)
	}

	c := &Config{
		AppPort:    v.GetString("APP_PORT"),
		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		SQLitePath: v.GetString("SQLITE_PATH"),
		MySQLHost:  v.GetString("MYSQL_HOST"),
		MySQLPort:  v.GetString("MYSQL_PORT"),
		MySQLDB:    v.GetString("MYSQL_DB"),
		MySQLUser:  v.GetString("MYSQL_USER"),
		MySQLPass:  v.GetString("MYSQL_PASS"),

		RedisEnabled: v.GetBool("REDIS_ENABLED"),
		RedisAddr:    v.GetString("REDIS_ADDR"),
		RedisDB:      v.GetInt("REDIS_DB"),
		IdempTTLSecs: v.GetInt("IDEMPOTENCY_TTL_SECONDS"),

		JWTSecret: v.GetString("JWT_SECRET"),

		LogLevel:     v.GetString("LOG_LEVEL"),
		LogFormat:    v.GetString("LOG_FORMAT"),
		GormLogLevel: v.GetString("GORM_LOG_LEVEL"),

		DefaultRequiredApprovals: v.GetInt("DEFAULT_REQUIRED_APPROVALS"),
		ApprovalMaxAge:           maxAge,
		ApprovalExpirySchedule:   v.GetString("APPROVAL_EXPIRY_SCHEDULE"),
		FinalizationChannel:      v.GetString("FINALIZATION_CHANNEL"),
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (mysql|sqlite)", c.DBDriver)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.JWTSecret == "" {
		return errors.New("missing JWT_SECRET")
	}
	if c.DefaultRequiredApprovals < 1 {
		return errors.New("DEFAULT_REQUIRED_APPROVALS must be at least 1")
	}
	if c.ApprovalMaxAge < 0 {
		return errors.New("APPROVAL_MAX_AGE must not be negative")
	}
	return nil
}

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.MySQLDSN()
}
