package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/erp/ordersync/internal/infrastructure/config"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Path to migrations directory (default: ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	path, err := migration.ResolvePath(migrationsPath)
	if err != nil {
		log.Fatal("Failed to resolve migrations path", zap.Error(err))
	}
	log.Debug("Migration CLI started", zap.String("command", command), zap.String("migrations_path", path))

	// file-only commands
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		f, err := migration.Create(path, args[1], description, time.Now())
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("version", f.Version),
			zap.String("up_file", f.UpPath),
			zap.String("down_file", f.DownPath),
		)
		return
	case "list":
		names, err := migration.List(path)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		log.Info("Available migrations", zap.Int("count", len(names)))
		for _, name := range names {
			fmt.Println("  -", name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatal("Versioned migrations target postgres; sqlite databases are migrated on server start",
			zap.String("driver", cfg.Database.Driver))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, path, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	if err := run(m, command, args[1:]); err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func run(m *migration.Migrator, command string, args []string) error {
	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps", "step":
		n, err := intArg(args, "steps")
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "force":
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		return m.Force(v)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func intArg(args []string, name string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s argument required", name)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, args[0], err)
	}
	return n, nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: migrate [flags] <command> [args]

Commands:
  up                     Apply all pending migrations
  down                   Roll back all migrations
  steps <n>              Apply n migrations (negative rolls back)
  version                Print the applied version
  force <version>        Set the version without running migrations
  create <name> [desc]   Create an empty up/down pair
  list                   List migration files

Flags:
  -path string       Path to migrations directory (default: ./migrations)
  -log-level string  Log level (default: info)
`)
}
