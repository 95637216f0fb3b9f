package main

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ogurasousui/codex-grpc-payroll/internal/platform/config"
	"github.com/ogurasousui/codex-grpc-payroll/internal/platform/logging"
)

// seedsTable は社員シードの適用履歴を schema_migrations とは別に記録するテーブルです。
const seedsTable = "schema_seeds"

// migrationSet は 1 つの migrate ソースと履歴テーブルの組です。
type migrationSet struct {
	name  string
	dir   string
	table string
}

type job struct {
	set    migrationSet
	action string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	var (
		configPath    = fs.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		migrationsDir = fs.String("dir", "assets/migrations", "directory containing schema migrations")
		seedsDir      = fs.String("seeds", "assets/seeds", "directory containing employee seed migrations")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	_ = godotenv.Load()

	action := "up"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	jobs, err := plan(action,
		migrationSet{name: "schema", dir: *migrationsDir},
		migrationSet{name: "seeds", dir: *seedsDir, table: seedsTable},
	)
	if err != nil {
		return err
	}

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	dsn := cfg.Database.DSN()
	for _, j := range jobs {
		if err := execute(j, dsn, logger); err != nil {
			return fmt.Errorf("%s %s: %w", j.set.name, j.action, err)
		}
	}

	logger.Info("migration completed", zap.String("action", action))
	return nil
}

// plan は CLI の操作を実行順のジョブ列に展開します。
// シードは employees を前提とするため、適用はスキーマの後、取り消しはスキーマの前に行います。
func plan(action string, schema, seeds migrationSet) ([]job, error) {
	switch action {
	case "up":
		return []job{{schema, "up"}}, nil
	case "seed":
		return []job{{schema, "up"}, {seeds, "up"}}, nil
	case "unseed":
		return []job{{seeds, "down"}}, nil
	case "down":
		return []job{{seeds, "down"}, {schema, "down"}}, nil
	case "drop":
		// drop は履歴テーブルを含む全テーブルを削除します。
		return []job{{schema, "drop"}}, nil
	case "version":
		return []job{{schema, "version"}, {seeds, "version"}}, nil
	default:
		return nil, fmt.Errorf("unsupported action %q (want up, seed, unseed, down, drop or version)", action)
	}
}

func execute(j job, dsn string, logger *zap.Logger) error {
	sourceURL, err := fileSourceURL(j.set.dir)
	if err != nil {
		return err
	}
	databaseURL, err := withMigrationsTable(dsn, j.set.table)
	if err != nil {
		return err
	}

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch j.action {
	case "up":
		return ignoreNoChange(m.Up())
	case "down":
		return ignoreNoChange(m.Down())
	case "drop":
		return m.Drop()
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migration applied", zap.String("set", j.set.name))
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("migration version",
			zap.String("set", j.set.name),
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
		return nil
	default:
		return fmt.Errorf("unsupported step %q", j.action)
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func fileSourceURL(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve path for %s: %w", dir, err)
	}
	return "file://" + filepath.ToSlash(absDir), nil
}

// withMigrationsTable は golang-migrate の postgres ドライバが読む x-migrations-table を DSN に付与します。
func withMigrationsTable(dsn, table string) (string, error) {
	if table == "" {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	q := u.Query()
	q.Set("x-migrations-table", table)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}
