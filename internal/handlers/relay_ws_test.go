// internal/handlers/relay_ws_test.go
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jason-s-yu/tactics-relay/internal/conn"
	"github.com/jason-s-yu/tactics-relay/internal/gate"
	"github.com/jason-s-yu/tactics-relay/internal/journal"
	"github.com/jason-s-yu/tactics-relay/internal/lobby"
	"github.com/jason-s-yu/tactics-relay/internal/metrics"
	"github.com/jason-s-yu/tactics-relay/internal/models"
	"github.com/jason-s-yu/tactics-relay/internal/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type models.EventType `json:"type"`
	Data json.RawMessage  `json:"data"`
}

// startServer runs a dispatcher and the full route table behind httptest.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	return startServerWith(t, RouterConfig{StaticDir: t.TempDir()})
}

func startServerWith(t *testing.T, cfg RouterConfig) *httptest.Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	m := metrics.New(prometheus.NewRegistry())
	store := lobby.NewStore(logger, lobby.WithCodeGenerator(func() (string, error) { return "AB12", nil }))
	d := relay.New(logger, conn.NewRegistry(logger), store, gate.New(), journal.Noop{}, m, relay.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = d.Run(ctx) }()

	srv := httptest.NewServer(SetupRoutes(logger, d, m, cfg))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, subprotocols ...string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: subprotocols})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "test done") })
	return c
}

func readFrame(t *testing.T, c *websocket.Conn) frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	typ, data, err := c.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)

	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func writeFrame(t *testing.T, c *websocket.Conn, typ models.EventType, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	msg, err := json.Marshal(models.Envelope{Type: typ, Data: raw})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, msg))
}

func greeting(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	f := readFrame(t, c)
	require.Equal(t, models.EventConnected, f.Type)
	var hello models.Connected
	require.NoError(t, json.Unmarshal(f.Data, &hello))
	require.NotEmpty(t, hello.ConnectionID)
	return hello.ConnectionID
}

func TestRelayRoundTrip(t *testing.T) {
	srv := startServer(t)

	a := dial(t, srv, Subprotocol)
	assert.Equal(t, Subprotocol, a.Subprotocol())
	aID := greeting(t, a)

	// no subprotocol is still accepted
	b := dial(t, srv)
	bID := greeting(t, b)

	writeFrame(t, a, models.EventCreateLobby, map[string]any{})
	created := readFrame(t, a)
	require.Equal(t, models.EventLobbyCreated, created.Type)
	var lc models.LobbyCreated
	require.NoError(t, json.Unmarshal(created.Data, &lc))
	assert.Equal(t, "AB12", lc.RoomID)
	assert.Equal(t, aID, lc.AuthorityConnectionID)

	writeFrame(t, b, models.EventJoinLobby, models.RoomRequest{RoomID: "AB12"})
	for _, c := range []*websocket.Conn{a, b} {
		start := readFrame(t, c)
		require.Equal(t, models.EventGameStart, start.Type)
		var gs models.GameStart
		require.NoError(t, json.Unmarshal(start.Data, &gs))
		assert.Equal(t, []string{aID, bID}, gs.Players)
	}

	writeFrame(t, b, models.EventCommandRequest, map[string]any{"roomId": "AB12", "action": "move"})
	rejected := readFrame(t, b)
	require.Equal(t, models.EventCommandRejected, rejected.Type)
	assert.JSONEq(t, `{"action":"move","reason":"NOT_YOUR_TURN"}`, string(rejected.Data))

	writeFrame(t, a, models.EventCommandRequest, map[string]any{"roomId": "AB12", "action": "end_turn"})
	fwd := readFrame(t, a)
	require.Equal(t, models.EventAuthoritative, fwd.Type)
	var cmd models.AuthoritativeCommand
	require.NoError(t, json.Unmarshal(fwd.Data, &cmd))
	assert.Equal(t, models.PlayerTwo, cmd.Meta.TurnAfter)
	assert.JSONEq(t, `{"playerId":"P1"}`, string(cmd.Data))

	// b closing leaves a alone in the lobby
	b.Close(websocket.StatusNormalClosure, "bye")
	notice := readFrame(t, a)
	require.Equal(t, models.EventErrorMessage, notice.Type)
	assert.JSONEq(t, `{"message":"Opponent disconnected"}`, string(notice.Data))
}

func TestPingPong(t *testing.T) {
	srv := startServer(t)
	c := dial(t, srv, Subprotocol)
	greeting(t, c)

	writeFrame(t, c, models.EventPing, nil)
	assert.Equal(t, models.EventPong, readFrame(t, c).Type)
}

func TestForeignSubprotocolIsClosed(t *testing.T) {
	srv := startServer(t)
	c := dial(t, srv, "lobby")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(BadSubprotocolError), websocket.CloseStatus(err))
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := startServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "tactics_relay_connections_open")
}

func TestUpgradeRequiresTokenWhenConfigured(t *testing.T) {
	srv := startServerWith(t, RouterConfig{JWTSecret: "s3cret"})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "player-1"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	c, _, err := websocket.Dial(ctx, url+"?token="+token, nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "test done")
	greeting(t, c)
}

func TestStaticAssetsServedFromRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o600))
	srv := startServerWith(t, RouterConfig{StaticDir: dir})

	resp, err := http.Get(srv.URL + "/app.js")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "console.log(1)", string(body))
}
