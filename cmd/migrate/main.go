package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/aulaviva/invites/internal/config"
	"github.com/aulaviva/invites/internal/store"
	migrations "github.com/aulaviva/invites/migrations/postgres"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "configs/config.yaml", "Path to YAML config")
		dsn        = flag.String("dsn", "", "Postgres DSN (overrides storage.dsn)")
		list       = flag.Bool("list", false, "Only list embedded migrations")
	)
	flag.Parse()

	m := store.NewMigrator(migrations.FS, migrations.Dir)
	if *list {
		all, err := m.ParseMigrations()
		if err != nil {
			log.Fatalf("parse migrations: %v", err)
		}
		for _, mig := range all {
			log.Printf("%04d %s", mig.Version, mig.Name)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	target := cfg.Storage.DSN
	if *dsn != "" {
		target = *dsn
	}
	if target == "" {
		log.Fatal("no DSN: set storage.dsn, STORAGE_DSN or -dsn")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	pool, err := pgxpool.New(ctx, target)
	if err != nil {
		log.Fatalf("pgxpool: %v", err)
	}
	defer pool.Close()

	res, err := m.Run(ctx, pool)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Printf("applied=%v skipped=%v (%s)", res.Applied, res.Skipped, res.Duration.Truncate(time.Millisecond))
}
