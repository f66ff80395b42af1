// internal/journal/archive.go
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// ArchiveTable receives archived journal entries.
const ArchiveTable = "relay_commands"

var archiveColumns = []string{"room_id", "action", "player_id", "turn_before", "turn_after", "payload", "server_time"}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS relay_commands (
	id          BIGSERIAL PRIMARY KEY,
	room_id     TEXT        NOT NULL,
	action      TEXT        NOT NULL,
	player_id   TEXT        NOT NULL,
	turn_before TEXT        NOT NULL,
	turn_after  TEXT        NOT NULL,
	payload     JSONB,
	server_time TIMESTAMPTZ NOT NULL
)`

// ArchiveDB is the subset of pgxpool.Pool the archive uses.
type ArchiveDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// OpenArchive connects a pool to databaseURL and verifies it.
func OpenArchive(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach archive database: %w", err)
	}
	return pool, nil
}

// maxPendingBatches bounds how many unflushed batches Add keeps while the
// database is unreachable.
const maxPendingBatches = 10

// Archive batches entries and copies them into Postgres.
type Archive struct {
	db        ArchiveDB
	batchSize int
	pending   []Entry
	logger    *logrus.Logger
}

// NewArchive copies entries into db in batches of batchSize, defaulting to 20.
func NewArchive(db ArchiveDB, batchSize int, logger *logrus.Logger) *Archive {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Archive{
		db:        db,
		batchSize: batchSize,
		pending:   make([]Entry, 0, batchSize),
		logger:    logger,
	}
}

// EnsureSchema creates the archive table when missing.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, archiveSchema); err != nil {
		return fmt.Errorf("create %s: %w", ArchiveTable, err)
	}
	return nil
}

// Add queues e and flushes once the batch is full. When failed flushes have
// left maxPendingBatches batches queued, the oldest entries are dropped.
func (a *Archive) Add(ctx context.Context, e Entry) error {
	if limit := a.batchSize * maxPendingBatches; len(a.pending) >= limit {
		drop := len(a.pending) - limit + 1
		a.logger.WithField("dropped", drop).Warn("archive backlog full, dropping oldest entries")
		a.pending = append(a.pending[:0], a.pending[drop:]...)
	}
	a.pending = append(a.pending, e)
	if len(a.pending) < a.batchSize {
		return nil
	}
	_, err := a.Flush(ctx)
	return err
}

// Pending is the number of entries not yet copied.
func (a *Archive) Pending() int { return len(a.pending) }

// Flush copies every pending entry in one COPY. On failure the batch is kept
// for the next attempt.
func (a *Archive) Flush(ctx context.Context) (int64, error) {
	if len(a.pending) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(a.pending))
	for _, e := range a.pending {
		var payload any
		if len(e.Payload) > 0 {
			payload = []byte(e.Payload)
		}
		rows = append(rows, []any{
			e.RoomID,
			e.Action,
			string(e.PlayerID),
			string(e.TurnBefore),
			string(e.TurnAfter),
			payload,
			time.UnixMilli(e.Timestamp).UTC(),
		})
	}

	n, err := a.db.CopyFrom(ctx, pgx.Identifier{ArchiveTable}, archiveColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy %d entries to %s: %w", len(rows), ArchiveTable, err)
	}
	a.pending = a.pending[:0]
	a.logger.WithField("rows", n).Debug("flushed journal entries to archive")
	return n, nil
}
