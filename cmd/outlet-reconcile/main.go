package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"posimport/internal/config"
	"posimport/internal/logging"
	"posimport/internal/reference"
	"posimport/internal/storage"
)

// outlet-reconcile [mapping.xlsx] refreshes outlet store numbers from the
// mapping workbook at MAPPING_URL, or from a local copy when a path is given.
func main() {
	cfg, err := config.Load()
	must(err)

	logger, closer, err := logging.New(cfg.LogLevel, cfg.LogFile)
	must(err)
	defer closer.Close()

	db, err := storage.Open(cfg.DBDriver, cfg.DSN())
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	localPath := ""
	if len(os.Args) > 1 {
		localPath = os.Args[1]
	}

	svc := reference.NewService(db, cfg, logger, os.Stdout)
	res, err := svc.ReconcileOutlets(ctx, localPath)
	must(err)
	reference.PrintReconcile(os.Stdout, res)
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
