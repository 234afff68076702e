// diaflow - prompt to validated Mermaid diagram service.
// Entry point: version/help flags plus the serve and migrate commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/diaflow/diaflow/internal/infra/config"
	"github.com/diaflow/diaflow/internal/infra/sqlite"
	"github.com/diaflow/diaflow/internal/server"
	"github.com/diaflow/diaflow/internal/version"
)

const shutdownGrace = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("diaflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}
	if *showHelp {
		printHelp(out)
		return 0
	}

	switch fs.Arg(0) {
	case "serve":
		return serve(out)
	case "migrate":
		return migrate(out)
	case "":
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	default:
		fmt.Fprintf(out, "unknown command %q\n\n", fs.Arg(0)) //nolint:errcheck
		printHelp(out)
		return 2
	}
}

func serve(out io.Writer) int {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(out, "logger init failed: %v\n", err) //nolint:errcheck
		return 1
	}
	defer log.Sync() //nolint:errcheck

	cfg := config.Load()
	db, err := sqlite.NewDB(cfg.SQLitePath)
	if err != nil {
		log.Error("database open failed", zap.Error(err))
		return 1
	}
	if err := sqlite.MigrateUp(db); err != nil {
		log.Error("migrations failed", zap.Error(err))
		return 1
	}

	srv := server.NewServer(db, server.DefaultConfig(), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", zap.Error(err))
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", zap.Error(err))
			return 1
		}
	}
	return 0
}

func migrate(out io.Writer) int {
	cfg := config.Load()
	db, err := sqlite.NewDB(cfg.SQLitePath)
	if err != nil {
		fmt.Fprintf(out, "database open failed: %v\n", err) //nolint:errcheck
		return 1
	}
	defer db.Close() //nolint:errcheck

	if err := sqlite.MigrateUp(db); err != nil {
		fmt.Fprintf(out, "migrations failed: %v\n", err) //nolint:errcheck
		return 1
	}
	v, err := sqlite.MigrationVersion(db)
	if err != nil {
		fmt.Fprintf(out, "migration version unknown: %v\n", err) //nolint:errcheck
		return 1
	}
	fmt.Fprintf(out, "database at migration version %d\n", v) //nolint:errcheck
	return 0
}

func printHelp(out io.Writer) {
	helpText := `diaflow - prompt to validated Mermaid diagram service

Usage:
  diaflow [options] [command]

Options:
  --version    Show version information
  --help       Show this help message

Commands:
  serve        Start the HTTP server
  migrate      Run database migrations

Examples:
  diaflow --version
  diaflow serve
  diaflow migrate`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
