package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket message types for the view stream
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeView      = "view"
	MsgTypePong      = "pong"
)

// streamTouchInterval keeps a panel alive while its stream is open.
const streamTouchInterval = time.Minute

// WSMessage is the envelope of every frame on the view stream
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ViewStreamHandlerImpl streams panel views to the page
type ViewStreamHandlerImpl struct {
	sessions SessionManager
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewViewStreamHandler creates a new WebSocket view stream handler
func NewViewStreamHandler(sessions SessionManager, logger *slog.Logger) ViewStreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewStreamHandlerImpl{
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Origins are enforced by the CORS middleware
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
	}
}

// HandleViewStream upgrades the connection and pushes a view after every
// panel state change until the client goes away
func (h *ViewStreamHandlerImpl) HandleViewStream(c echo.Context) error {
	id := c.Param("id")
	state, ok := h.sessions.Get(id)
	if !ok {
		return NewNotFoundError("panel", id)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	h.logger.Debug("ws.connected", "session_id", id)

	views, unsubscribe := state.Panel.Subscribe()
	defer unsubscribe()

	// Reader: only pings are expected; any read error ends the stream.
	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Warn("ws.read_error", "session_id", id, "error", err)
				}
				return
			}
			h.sessions.Touch(id)
			if msg.Type == MsgTypePing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	w := &wsWriter{ws: ws, id: id}
	if err := w.send(MsgTypeConnected, nil); err != nil {
		return nil
	}
	if err := w.send(MsgTypeView, state.Panel.View()); err != nil {
		return nil
	}

	keepAlive := time.NewTicker(streamTouchInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-keepAlive.C:
			h.sessions.Touch(id)
		case <-closed:
			h.logger.Debug("ws.disconnected", "session_id", id)
			return nil
		case <-pings:
			if err := w.send(MsgTypePong, nil); err != nil {
				return nil
			}
		case v, ok := <-views:
			if !ok {
				return nil
			}
			if err := w.send(MsgTypeView, v); err != nil {
				return nil
			}
		}
	}
}

// wsWriter serializes frames onto one connection
type wsWriter struct {
	mu sync.Mutex
	ws *websocket.Conn
	id string
}

func (w *wsWriter) send(msgType string, payload interface{}) error {
	msg := WSMessage{
		Type:      msgType,
		ID:        w.id,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Payload = data
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.ws.WriteJSON(msg)
}
