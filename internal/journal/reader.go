// internal/journal/reader.go
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Next when the wait elapsed without an entry.
var ErrEmpty = errors.New("journal queue empty")

// ErrMalformed is returned by Next when a popped payload does not decode. The
// payload is already consumed.
var ErrMalformed = errors.New("malformed journal entry")

// Popper is the subset of the go-redis client the reader needs.
type Popper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Reader consumes entries in the order the relay appended them.
type Reader struct {
	client Popper
	queue  string
	wait   time.Duration
}

// NewReader pops from queue, blocking up to wait per call.
func NewReader(client Popper, queue string, wait time.Duration) *Reader {
	if queue == "" {
		queue = DefaultQueueName
	}
	if wait <= 0 {
		wait = 3 * time.Second
	}
	return &Reader{client: client, queue: queue, wait: wait}
}

// Next blocks for the next entry. A malformed payload is reported as
// ErrMalformed and consumed, so the caller can keep reading.
func (r *Reader) Next(ctx context.Context) (Entry, error) {
	res, err := r.client.BLPop(ctx, r.wait, r.queue).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrEmpty
	}
	if err != nil {
		return Entry{}, fmt.Errorf("BLPop %s: %w", r.queue, err)
	}
	// res[0] is the queue name and res[1] the payload
	if len(res) < 2 {
		return Entry{}, ErrEmpty
	}

	var e Entry
	if err := json.Unmarshal([]byte(res[1]), &e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return e, nil
}
