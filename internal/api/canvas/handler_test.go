package canvas

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fauxi/consensus-backend/internal/logging"
	"github.com/fauxi/consensus-backend/internal/models"
	"github.com/fauxi/consensus-backend/internal/session"
	"github.com/fauxi/consensus-backend/internal/ws"
)

func newTestServer(t *testing.T) (*httptest.Server, *session.Registry) {
	t.Helper()
	registry := session.NewRegistry()
	hub := ws.NewHub(registry, nil, logging.Discard())
	go hub.Run()

	router := mux.NewRouter()
	RegisterRoutes(router, &Handler{Hub: hub, Registry: registry, Log: logging.Discard()})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, registry
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) models.Envelope {
	t.Helper()
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env models.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestConnectAnnouncesAndDeliversSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	env := readEnvelope(t, conn)
	assert.Equal(t, models.EventUserConnected, env.Event)
	var uc models.UserConnected
	require.NoError(t, json.Unmarshal(env.Data, &uc))
	assert.NotEmpty(t, uc.UserID)
	assert.Equal(t, 1, uc.TotalUsers)

	env = readEnvelope(t, conn)
	assert.Equal(t, models.EventUsersList, env.Event)
	var snap models.PresenceSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 1, snap.TotalUsers)
}

func TestStrokeFansOutToOtherConnection(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv)
	readEnvelope(t, a) // user_connected
	readEnvelope(t, a) // users_list
	b := dial(t, srv)
	readEnvelope(t, a) // b's user_connected
	readEnvelope(t, b)
	readEnvelope(t, b)

	env, err := models.NewEnvelope(models.EventBrushStroke, models.BrushStroke{X: 5, Y: 6})
	require.NoError(t, err)
	require.NoError(t, a.WriteJSON(env))

	got := readEnvelope(t, b)
	assert.Equal(t, models.EventBrushStroke, got.Event)
	var stroke models.BrushStroke
	require.NoError(t, json.Unmarshal(got.Data, &stroke))
	assert.Equal(t, 5.0, stroke.X)
	assert.NotEmpty(t, stroke.UserID)
	assert.NotEmpty(t, stroke.Color)
}

func TestConnectedUsersEndpoint(t *testing.T) {
	srv, registry := newTestServer(t)
	conn := dial(t, srv)
	readEnvelope(t, conn)
	readEnvelope(t, conn)

	resp, err := http.Get(srv.URL + "/api/connected-users")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap models.PresenceSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, 1, snap.TotalUsers)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, registry.Count(), snap.TotalUsers)
}

func TestDisconnectPrunsDownCount(t *testing.T) {
	srv, registry := newTestServer(t)
	a := dial(t, srv)
	readEnvelope(t, a)
	readEnvelope(t, a)
	b := dial(t, srv)
	readEnvelope(t, b)
	readEnvelope(t, b)

	require.NoError(t, b.Close())

	// a hears the updated list once the hub processes the departure.
	readEnvelope(t, a) // b's user_connected
	env := readEnvelope(t, a)
	assert.Equal(t, models.EventUsersList, env.Event)
	var snap models.PresenceSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 1, snap.TotalUsers)
	assert.Equal(t, 1, registry.Count())
}
