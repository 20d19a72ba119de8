//go:build sqlite

package main

import (
	"fmt"
	"path/filepath"

	"github.com/ellarises/portal/model"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3" // CGO!
)

func migrationsDir() string { return "migrations/sqlite3" }

func migrateDSN(cfg *model.Config) string {
	svr := cfg.Servers[cfg.Mode]
	// same location model.InitDatabase opens
	dbPath := cfg.Path("db", svr.DBName)
	if !filepath.IsAbs(dbPath) {
		dbPath = "./" + dbPath
	}
	return fmt.Sprintf("sqlite3://%s?_foreign_keys=on&_journal_mode=WAL",
		filepath.ToSlash(dbPath))
}
