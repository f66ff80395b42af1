// cmd/journal/main.go tails the relay's command journal from Redis, prints one
// JSON line per accepted command and, when a database is configured, archives
// the entries to Postgres in batches.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/tactics-relay/internal/config"
	"github.com/jason-s-yu/tactics-relay/internal/journal"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

const retryDelay = time.Second

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	cfg, err := config.Load(logger, "relay")
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if err := cfg.Log.Apply(logger); err != nil {
		logger.Fatalf("config: %v", err)
	}
	if cfg.Redis.Addr == "" {
		logger.Fatal("redis.addr is not set, nothing to tail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := journal.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("journal: %v", err)
	}
	defer rdb.Close()

	var archive *journal.Archive
	if cfg.Archive.DatabaseURL != "" {
		pool, err := journal.OpenArchive(ctx, cfg.Archive.DatabaseURL)
		if err != nil {
			logger.Fatalf("archive: %v", err)
		}
		defer pool.Close()

		archive = journal.NewArchive(pool, cfg.Archive.BatchSize, logger)
		if err := archive.EnsureSchema(ctx); err != nil {
			logger.Fatalf("archive: %v", err)
		}
		logger.Info("archiving journal entries to Postgres")
	}

	// the pop timeout doubles as the archive flush interval
	reader := journal.NewReader(rdb, cfg.Redis.Queue, cfg.Archive.FlushInterval)
	out := json.NewEncoder(os.Stdout)
	perRoom := make(map[string]int)

	logger.WithField("queue", cfg.Redis.Queue).Info("tailing command journal")
	for ctx.Err() == nil {
		e, err := reader.Next(ctx)
		switch {
		case errors.Is(err, journal.ErrEmpty):
			flush(ctx, archive, logger)
			continue
		case errors.Is(err, journal.ErrMalformed):
			logger.WithError(err).Warn("skipping journal entry")
			continue
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			logger.WithError(err).Warn("read journal")
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}

		perRoom[e.RoomID]++
		if err := out.Encode(e); err != nil {
			logger.WithError(err).Error("write entry")
			return
		}
		if archive != nil {
			if err := archive.Add(ctx, e); err != nil {
				logger.WithError(err).Warn("archive batch")
			}
		}
	}

	// the signal context is done, give the last batch its own deadline
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	flush(flushCtx, archive, logger)
	cancel()

	for room, n := range perRoom {
		logger.WithFields(logrus.Fields{"room": room, "commands": n}).Info("journal summary")
	}
}

func flush(ctx context.Context, archive *journal.Archive, logger *logrus.Logger) {
	if archive == nil || archive.Pending() == 0 {
		return
	}
	if _, err := archive.Flush(ctx); err != nil {
		logger.WithError(err).Warn("archive flush")
	}
}
