package main

import (
	"context"
	"log"
	"net/http"

	"kbadmin/internal/logging"
	"kbadmin/internal/store"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.SetGlobalLogger(logger)

	ctx := context.Background()

	db, flavor, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal(err, "open database")
	}
	defer db.Close()

	localStore := store.New(db, flavor)
	if err := localStore.Migrate(ctx); err != nil {
		logger.Fatal(err, "migrate database")
	}

	if err := ensureFallbackAccount(ctx, cfg, localStore, logger); err != nil {
		logger.Fatal(err, "bootstrap fallback account")
	}

	handler, watcher := newHTTPHandler(cfg, localStore, logger)
	watcher.Start(ctx)
	defer watcher.Stop()

	logger.Info("dashboard API listening on " + cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal(err, "server error")
	}
}
