package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ntholi/registry-web-sub009/pkg/config"
	"github.com/ntholi/registry-web-sub009/pkg/database"
	"github.com/ntholi/registry-web-sub009/pkg/logger"
)

const trackingTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func main() {
	var (
		dir     string
		dryRun  bool
		timeout time.Duration
	)
	flag.StringVar(&dir, "dir", filepath.Join("db", "migrations"), "Directory holding *.sql migrations")
	flag.BoolVar(&dryRun, "dry-run", false, "List pending migrations without applying them")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg, "registry-migrate")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	applied, err := migrate(ctx, db, dir, dryRun, logr)
	if err != nil {
		logr.Fatal("migration failed", zap.Error(err))
	}
	logr.Info("migrations complete", zap.Int("applied", applied), zap.Bool("dry_run", dryRun))
}

func migrate(ctx context.Context, db *sqlx.DB, dir string, dryRun bool, logr *zap.Logger) (int, error) {
	if _, err := db.ExecContext(ctx, trackingTable); err != nil {
		return 0, fmt.Errorf("create tracking table: %w", err)
	}
	files, err := pending(ctx, db, dir)
	if err != nil {
		return 0, err
	}

	for i, file := range files {
		version := filepath.Base(file)
		if dryRun {
			logr.Info("pending migration", zap.String("version", version))
			continue
		}
		body, err := os.ReadFile(file)
		if err != nil {
			return i, fmt.Errorf("read %s: %w", version, err)
		}
		err = database.RunInTx(ctx, db, func(ctx context.Context) error {
			tx, _ := database.TxFrom(ctx)
			if _, err := tx.ExecContext(ctx, string(body)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
			return err
		})
		if err != nil {
			return i, fmt.Errorf("apply %s: %w", version, err)
		}
		logr.Info("migration applied", zap.String("version", version))
	}
	if dryRun {
		return 0, nil
	}
	return len(files), nil
}

func pending(ctx context.Context, db *sqlx.DB, dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	var versions []string
	if err := db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}
	done := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		done[strings.TrimSpace(v)] = struct{}{}
	}

	out := files[:0]
	for _, file := range files {
		if _, ok := done[filepath.Base(file)]; !ok {
			out = append(out, file)
		}
	}
	return out, nil
}
