package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intodakt/computer-networks-project/domain"
	"github.com/intodakt/computer-networks-project/hub"
	"github.com/intodakt/computer-networks-project/session"
)

func newTestServer() (*hub.Hub, *Server) {
	relay := hub.New(nil)
	return relay, New(relay, session.NewHandler(relay, nil, nil, 0), 0, nil)
}

func TestHealth(t *testing.T) {
	_, s := newTestServer()
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type nopConn struct{ id string }

func (c nopConn) ID() string          { return c.id }
func (c nopConn) Send(_ []byte) error { return nil }
func (c nopConn) Close() error        { return nil }

func TestStatsAndRooms(t *testing.T) {
	relay, s := newTestServer()
	relay.Join(nopConn{"a"}, "alice", "4821")
	relay.Join(nopConn{"b"}, "bob", "4821")
	relay.Join(nopConn{"c"}, "carol", "9999")
	relay.Append("4821", []byte("DRAW,1,1,2,2,red,1\n"), "a")
	router := s.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rooms":2,"clients":3}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var rooms []domain.RoomInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	assert.Equal(t, []domain.RoomInfo{
		{Code: "4821", Members: 2, History: 1},
		{Code: "9999", Members: 1, History: 0},
	}, rooms)
}

func readUntil(t *testing.T, c *websocket.Conn, prefix string) string {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := c.ReadMessage()
		require.NoError(t, err)
		for _, line := range strings.SplitAfter(string(data), "\n") {
			if strings.HasPrefix(line, prefix) {
				return line
			}
		}
	}
}

func TestWebSocketBridge(t *testing.T) {
	relay, s := newTestServer()
	srv := httptest.NewServer(s.Router())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	alice, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer alice.Close()
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("JOIN,alice,1000\n")))
	assert.Equal(t, "USER_LIST,alice\n", readUntil(t, alice, "USER_LIST"))

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("DRAW,10,10,20,20,black,2\n")))
	require.Eventually(t, func() bool { return len(relay.History("1000")) == 1 }, 2*time.Second, time.Millisecond)

	bob, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer bob.Close()
	require.NoError(t, bob.WriteMessage(websocket.TextMessage, []byte("JOIN,bob,1000\n")))

	assert.Equal(t, "DRAW,10,10,20,20,black,2\n", readUntil(t, bob, "DRAW"))
	assert.Equal(t, "USER_LIST,alice,bob\n", readUntil(t, alice, "USER_LIST"))

	require.NoError(t, bob.WriteMessage(websocket.TextMessage, []byte("CHAT,hey, alice\n")))
	assert.Equal(t, "CHAT,bob,hey, alice\n", readUntil(t, alice, "CHAT"))
}
