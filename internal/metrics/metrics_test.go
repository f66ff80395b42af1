package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndExposition(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CommandsAccepted.WithLabelValues("move").Inc()
	m.CommandsAccepted.WithLabelValues("move").Inc()
	m.CommandsRejected.WithLabelValues("NOT_YOUR_TURN").Inc()
	m.LobbiesLive.Set(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `tactics_relay_commands_rejected_total{reason="NOT_YOUR_TURN"} 1`)
	assert.Contains(t, string(body), `tactics_relay_commands_accepted_total{action="move"} 2`)
	assert.Contains(t, string(body), "tactics_relay_lobbies_live 3")
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
