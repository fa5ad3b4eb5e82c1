// Package main is the entry point for the feed watcher, a monitor-only
// process that logs every published snapshot
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/baely/bezos/internal/common/errors"
	"github.com/baely/bezos/internal/common/logger"
	"github.com/baely/bezos/internal/config"
	"github.com/baely/bezos/internal/transaction"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	errors.Must(err)

	level, err := logger.ParseLevel(cfg.Log.Level)
	errors.Must(err)

	// Initialize logger
	log := logger.New(
		logger.WithLevel(level),
		logger.WithFormat(cfg.Log.Format),
	)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor := transaction.NewMonitorFromConfig(cfg.Feed, log)

	sub := monitor.Subscribe()
	defer sub.Close()

	go monitor.Start(ctx)

	log.Info("Watching transaction feed", "url", cfg.Feed.URL, "interval", cfg.Feed.PollInterval)
	for {
		update, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Feed watcher stopped")
				return
			}
			log.Error("Subscription failed", "error", err)
			os.Exit(1)
		}

		log.Info("Transactions updated",
			"count", len(update.TransactionsUpdated),
			"ids", ids(update.TransactionsUpdated),
		)
	}
}

func ids(records transaction.Records) []int {
	out := make([]int, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}
