package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/smart-extractor/backend/internal/extract"
	"github.com/smart-extractor/backend/internal/models"
	"github.com/smart-extractor/backend/internal/panel"
	"github.com/smart-extractor/backend/internal/session"
	"github.com/smart-extractor/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeView(t *testing.T, msg WSMessage) models.View {
	t.Helper()
	var v models.View
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}

func dialStream(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/panels/" + id + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil skips frames until one satisfies match.
func readUntil(t *testing.T, conn *websocket.Conn, match func(WSMessage) bool) WSMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readMessage(t, conn)
		if match(msg) {
			return msg
		}
	}
	t.Fatal("expected frame never arrived")
	return WSMessage{}
}

func TestViewStream_PushesViews(t *testing.T) {
	svc := testutil.NewFakeExtractionService(t, http.StatusOK, `{"total":12.5}`)
	e, _ := newTestEcho(t, svc)
	srv := httptest.NewServer(e)
	defer srv.Close()

	id := createPanel(t, e)
	conn := dialStream(t, srv, id)

	connected := readMessage(t, conn)
	assert.Equal(t, MsgTypeConnected, connected.Type)
	assert.Equal(t, id, connected.ID)

	initial := readMessage(t, conn)
	require.Equal(t, MsgTypeView, initial.Type)
	assert.Equal(t, models.PhaseIdle, decodeView(t, initial).Phase)

	dropFiles(t, e, id, testFile{"receipt.png", "png"})
	selected := readUntil(t, conn, func(m WSMessage) bool {
		return m.Type == MsgTypeView && decodeView(t, m).FileName == "receipt.png"
	})
	assert.Equal(t, models.PhaseFileSelected, decodeView(t, selected).Phase)

	rec := serve(e, http.MethodPost, "/api/panels/"+id+"/upload", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	resolved := readUntil(t, conn, func(m WSMessage) bool {
		return m.Type == MsgTypeView && decodeView(t, m).Phase == models.PhaseResolved
	})
	v := decodeView(t, resolved)
	assert.Equal(t, "{\n  \"total\": 12.5\n}", v.Output)
	assert.Equal(t, models.OutcomeSuccess, v.Outcome)
	assert.False(t, v.Loading)
}

func TestViewStream_PingPong(t *testing.T) {
	svc := testutil.NewFakeExtractionService(t, http.StatusOK, `{}`)
	e, _ := newTestEcho(t, svc)
	srv := httptest.NewServer(e)
	defer srv.Close()

	id := createPanel(t, e)
	conn := dialStream(t, srv, id)
	readMessage(t, conn)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypePing}))
	pong := readUntil(t, conn, func(m WSMessage) bool { return m.Type == MsgTypePong })
	assert.Equal(t, id, pong.ID)
	assert.NotZero(t, pong.Timestamp)
}

func TestViewStream_UnknownPanel(t *testing.T) {
	svc := testutil.NewFakeExtractionService(t, http.StatusOK, `{}`)
	e, _ := newTestEcho(t, svc)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/panels/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestViewStream_KeepsPanelAlive(t *testing.T) {
	svc := testutil.NewFakeExtractionService(t, http.StatusOK, `{"a":1}`)
	e, mgr := newTestEcho(t, svc)
	srv := httptest.NewServer(e)
	defer srv.Close()

	id := createPanel(t, e)
	dropFiles(t, e, id, testFile{"doc.pdf", "%PDF-1.4"})
	rec := serve(e, http.MethodPost, "/api/panels/"+id+"/upload?wait=true", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	conn := dialStream(t, srv, id)
	readMessage(t, conn)
	readMessage(t, conn)

	state, ok := mgr.Get(id)
	require.True(t, ok)
	state.LastAccessed = time.Now().Add(-31 * time.Minute)

	assert.Equal(t, 0, mgr.CleanupOldSessions(30*time.Minute))

	rec = serve(e, http.MethodGet, "/api/panels/"+id+"/download", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{\n  \"a\": 1\n}", rec.Body.String())
}

type countingSessions struct {
	*session.Manager
	touches atomic.Int32
}

func (c *countingSessions) Touch(id string) bool {
	c.touches.Add(1)
	return c.Manager.Touch(id)
}

func TestViewStream_InboundFramesTouchSession(t *testing.T) {
	svc := testutil.NewFakeExtractionService(t, http.StatusOK, `{}`)
	client := extract.NewClient(svc.Endpoint())
	sessions := &countingSessions{
		Manager: session.NewManager(func() *panel.Panel { return panel.New(client, nil) }, nil),
	}

	e := echo.New()
	RegisterRoutes(e, NewHandlers(&Dependencies{Sessions: sessions}))
	srv := httptest.NewServer(e)
	defer srv.Close()

	id := createPanel(t, e)
	conn := dialStream(t, srv, id)
	readMessage(t, conn)
	readMessage(t, conn)
	require.Equal(t, int32(0), sessions.touches.Load())

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypePing}))
	readUntil(t, conn, func(m WSMessage) bool { return m.Type == MsgTypePong })
	assert.Equal(t, int32(1), sessions.touches.Load())
}
