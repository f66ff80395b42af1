// internal/journal/redis.go
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/tactics-relay/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list accepted commands are appended to.
const DefaultQueueName = "relay_commands"

const (
	bufferSize  = 256
	pushTimeout = 2 * time.Second
	pingTimeout = 5 * time.Second
)

// Entry is one accepted authoritative command as seen by the relay.
type Entry struct {
	RoomID     string          `json:"room_id"`
	Action     string          `json:"action"`
	PlayerID   models.Role     `json:"player_id"`
	TurnBefore models.Role     `json:"turn_before"`
	TurnAfter  models.Role     `json:"turn_after"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  int64           `json:"timestamp"`
}

// FromCommand builds an entry from a relayed command.
func FromCommand(roomID string, cmd models.AuthoritativeCommand) Entry {
	return Entry{
		RoomID:     roomID,
		Action:     cmd.Action,
		PlayerID:   cmd.Meta.PlayerID,
		TurnBefore: cmd.Meta.TurnBefore,
		TurnAfter:  cmd.Meta.TurnAfter,
		Payload:    cmd.Data,
		Timestamp:  cmd.Meta.ServerTime,
	}
}

// Journal receives accepted commands. Record must not block the caller.
type Journal interface {
	Record(e Entry)
	Close() error
}

// Noop discards every entry. It is used when no Redis address is configured.
type Noop struct{}

// Record drops e.
func (Noop) Record(Entry) {}

// Close always succeeds.
func (Noop) Close() error { return nil }

// Pusher is the subset of the go-redis client the journal needs.
type Pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Redis appends entries to a list from a background goroutine so the relay
// loop never waits on the network. Entries are dropped when the buffer is full.
type Redis struct {
	client Pusher
	queue  string
	logger *logrus.Logger

	entries chan Entry
	done    chan struct{}
	once    sync.Once
}

// Connect dials Redis and verifies the connection with a PING.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedis starts the push worker. Close stops it after flushing buffered entries.
func NewRedis(client Pusher, queue string, logger *logrus.Logger) *Redis {
	if queue == "" {
		queue = DefaultQueueName
	}
	j := &Redis{
		client:  client,
		queue:   queue,
		logger:  logger,
		entries: make(chan Entry, bufferSize),
		done:    make(chan struct{}),
	}
	go j.run()
	return j
}

// Record queues e for the push worker, dropping it when the buffer is full.
func (j *Redis) Record(e Entry) {
	select {
	case j.entries <- e:
	default:
		j.logger.WithFields(logrus.Fields{"room": e.RoomID, "action": e.Action}).Warn("journal buffer full, dropping entry")
	}
}

// Close drains pending entries and waits for the worker to exit. Record must
// not be called after Close.
func (j *Redis) Close() error {
	j.once.Do(func() { close(j.entries) })
	<-j.done
	return nil
}

func (j *Redis) run() {
	defer close(j.done)
	for e := range j.entries {
		if err := j.push(e); err != nil {
			j.logger.WithError(err).WithField("room", e.RoomID).Warn("journal push failed")
		}
	}
}

func (j *Redis) push(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := j.client.RPush(ctx, j.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", j.queue, err)
	}
	return nil
}
