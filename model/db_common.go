package model

import (
	"fmt"
	"path/filepath"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config is read from config.toml; secrets may be overridden from the environment.
type Config struct {
	// Basedir is the root for the relative paths below and for the SQLite
	// db/ directory. Empty means the working directory.
	Basedir             string
	CookieSecret        string
	MailAPIKey          string
	MailSecret          string
	MailFrom            string
	Mode                string
	Port                int
	RegistrationAllowed bool
	// PublicLists names the resources whose list page can be browsed without
	// logging in (e.g. "events"). The users list is never public.
	PublicLists []string
	ViewsDir    string
	Servers     map[string]Server
}

// Server holds the connection data for one mode (development, production, ...).
type Server struct {
	Database   string
	DBName     string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     int
	DBSSLMode  string
	DBLogger   string
}

// DSN returns the PostgreSQL connection string.
func (svr Server) DSN() string {
	port := svr.DBPort
	if port == 0 {
		port = 5432
	}
	sslmode := svr.DBSSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		svr.DBHost, svr.DBUser, svr.DBPassword, svr.DBName, port, sslmode)
}

// Path resolves p against Basedir. Absolute paths are returned unchanged.
func (cfg *Config) Path(p ...string) string {
	joined := filepath.Join(p...)
	if filepath.IsAbs(joined) || cfg.Basedir == "" {
		return joined
	}
	return filepath.Join(cfg.Basedir, joined)
}

// IsPublicList reports whether the list page of resource is browsable anonymously.
func (cfg *Config) IsPublicList(resource string) bool {
	if resource == "users" {
		return false
	}
	for _, r := range cfg.PublicLists {
		if r == resource {
			return true
		}
	}
	return false
}

// shared helper for GORM logger
func gormLoggerFor(cfg *Config, svr Server) *gorm.Config {
	gormConfig := &gorm.Config{}
	switch svr.DBLogger {
	case "info":
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	case "silent":
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	default:
		if cfg.Mode == "development" {
			gormConfig.Logger = logger.Default.LogMode(logger.Info)
		} else {
			gormConfig.Logger = logger.Default.LogMode(logger.Silent)
		}
	}
	return gormConfig
}
