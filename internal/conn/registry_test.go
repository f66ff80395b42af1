package conn

import (
	"io"
	"testing"
	"time"

	"github.com/jason-s-yu/tactics-relay/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(quietLogger())
	c := NewConnection("127.0.0.1:1", 4, nil)

	require.NoError(t, r.Register(c))
	assert.ErrorIs(t, r.Register(c), ErrDuplicateConnection)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get(c.ID)
	require.True(t, ok)
	assert.Same(t, c, got)

	removed, ok := r.Deregister(c.ID)
	require.True(t, ok)
	assert.Same(t, c, removed)
	assert.Equal(t, 0, r.Len())

	_, ok = r.Deregister(c.ID)
	assert.False(t, ok)
}

func TestRegistrySend(t *testing.T) {
	r := NewRegistry(quietLogger())
	c := NewConnection("", 1, nil)
	require.NoError(t, r.Register(c))

	require.NoError(t, r.Send(c.ID, models.Message{Type: models.EventPong}))
	msg := <-c.OutChan
	assert.Equal(t, models.EventPong, msg.Type)

	assert.ErrorIs(t, r.Send("missing", models.Message{Type: models.EventPong}), ErrUnknownConnection)

	require.NoError(t, r.Send(c.ID, models.Message{Type: models.EventPong}))
	assert.ErrorIs(t, r.Send(c.ID, models.Message{Type: models.EventPong}), ErrOutboxFull)
}

func TestConnectionWriteDropsWhenFull(t *testing.T) {
	c := NewConnection("", 1, nil)
	assert.True(t, c.Write(models.Message{Type: models.EventPong}))
	assert.False(t, c.Write(models.Message{Type: models.EventPong}), "second write should be dropped on a full outbox")
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	cancelled := 0
	c := NewConnection("", 2, func() { cancelled++ })

	c.Close()
	c.Close()

	assert.True(t, c.Closed())
	assert.Equal(t, 1, cancelled)
	assert.False(t, c.Write(models.Message{Type: models.EventPong}))

	_, open := <-c.OutChan
	assert.False(t, open)
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry(quietLogger())
	a := NewConnection("", 1, nil)
	b := NewConnection("", 1, nil)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	r.CloseAll()

	assert.Equal(t, 0, r.Len())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}

func TestConnectionLifetime(t *testing.T) {
	c := NewConnection("", 1, nil)
	c.ConnectedAt = time.Now().Add(-time.Minute)
	assert.GreaterOrEqual(t, c.Lifetime(), time.Minute)
}
