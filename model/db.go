package model

import (
	"fmt"
	"log/slog"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store wraps the database handle and the application configuration.
type Store struct {
	db     *gorm.DB
	Config *Config
}

// NewStore wraps an already opened gorm handle and migrates the schema.
func NewStore(db *gorm.DB, cfg *Config) (*Store, error) {
	s := &Store{db: db, Config: cfg}
	if err := s.autoMigrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) autoMigrate() error {
	if err := s.db.AutoMigrate(
		&User{},
		&Participant{},
		&EventTemplate{},
		&Event{},
		&Registration{},
		&Survey{},
		&Milestone{},
		&Donation{},
		&UserDonor{},
	); err != nil {
		return err
	}
	// one registration per participant and event occurrence
	return s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_registration_participant_event
         ON registrations(participant_id, event_id)`).Error
}

// InitDatabase opens the database configured for the current mode.
func InitDatabase(cfg *Config) (*Store, error) {
	svr, ok := cfg.Servers[cfg.Mode]
	if !ok {
		return nil, fmt.Errorf("no server configured for mode %q", cfg.Mode)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch svr.Database {
	case "sqlite3":
		filename := cfg.Path("db", svr.DBName)
		slog.Info("open database", "driver", "sqlite3", "file", filename)
		db, err = gorm.Open(sqlite.Open(filename+"?_pragma=foreign_keys(1)"), gormLoggerFor(cfg, svr))
	case "postgresql":
		slog.Info("open database", "driver", "postgresql", "name", svr.DBName, "host", svr.DBHost)
		db, err = gorm.Open(postgres.Open(svr.DSN()), gormLoggerFor(cfg, svr))
	default:
		return nil, fmt.Errorf("database %q not implemented", svr.Database)
	}
	if err != nil {
		return nil, err
	}
	return NewStore(db, cfg)
}

// isPostgres reports whether ILIKE is available.
func (s *Store) isPostgres() bool {
	return s.db.Dialector.Name() == "postgres"
}
