package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ellarises/portal/controller"
	"github.com/ellarises/portal/model"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// loadConfig reads config.toml and lets the environment (and .env) override
// the secrets and the port.
func loadConfig(filename string) (*model.Config, error) {
	_ = godotenv.Load() // .env is optional

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg := &model.Config{Mode: "development", Port: 3000}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", filename, err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.CookieSecret == "" {
		return nil, errors.New("no cookie secret configured (set CookieSecret or SESSION_SECRET)")
	}
	return cfg, nil
}

func applyEnv(cfg *model.Config) error {
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.CookieSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		if svr, ok := cfg.Servers[cfg.Mode]; ok {
			svr.DBPassword = v
			cfg.Servers[cfg.Mode] = svr
		}
	}
	return nil
}

// runMigrations applies (or with "down" reverts) the SQL migrations of the
// configured database.
func runMigrations(cfg *model.Config, direction string) error {
	m, err := migrate.New("file://"+filepath.ToSlash(cfg.Path(migrationsDir())), migrateDSN(cfg))
	if err != nil {
		return err
	}
	defer m.Close()
	switch direction {
	case "", "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	default:
		return fmt.Errorf("unknown migrate direction %q", direction)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func dothings() error {
	cfg, err := loadConfig("config.toml")
	if err != nil {
		return err
	}
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		direction := ""
		if len(os.Args) > 2 {
			direction = os.Args[2]
		}
		return runMigrations(cfg, direction)
	}
	store, err := model.InitDatabase(cfg)
	if err != nil {
		return err
	}
	if len(os.Args) > 1 && os.Args[1] == "maintenance" {
		return model.RunMaintenance(context.Background(), store)
	}
	return controller.NewController(store)
}

func main() {
	if err := dothings(); err != nil {
		log.Fatal(err)
	}
}
