package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/browserpike/backend/internal/domain/browse"
	"github.com/browserpike/backend/internal/shared/faults"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 4096
)

// Origins are enforced by the CORS middleware in front of the router
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is what the page may send on the stream
type Message struct {
	Type string `json:"type"`
}

// Handler upgrades visitors to the event stream of their session
type Handler struct {
	hub      *Hub
	sessions *browse.Manager
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, sessions *browse.Manager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{hub: hub, sessions: sessions, logger: logger}
}

// HandleConnection handles WebSocket upgrade and messages. Only visitors
// with a live session cookie are accepted.
func (h *Handler) HandleConnection(c *gin.Context) {
	token, _ := c.Cookie(browse.CookieName)
	bc, ok := h.sessions.Get(token)
	if !ok {
		kind := faults.KindNotFound
		c.AbortWithStatusJSON(kind.Status(), gin.H{"error": "no browse session", "kind": kind.String()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(bc.ID)
	defer sub.Close()

	logger := h.logger.With(zap.String("session", bc.ID))
	logger.Debug("event stream opened")

	replies := make(chan Event, 4)
	done := make(chan struct{})
	go h.read(conn, replies, done, logger)

	welcome := newEvent(EventSystem)
	welcome.Message = "connected"
	if err := h.send(conn, welcome); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := h.send(conn, ev); err != nil {
				logger.Debug("event stream write failed", zap.Error(err))
				return
			}
		case ev := <-replies:
			if err := h.send(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			logger.Debug("event stream closed")
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// read answers pings and stops on the first read error. Writes stay on the
// connection goroutine.
func (h *Handler) read(conn *websocket.Conn, replies chan<- Event, done chan<- struct{}, logger *zap.Logger) {
	defer close(done)

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		reply := newEvent(EventPong)
		if msg.Type != "ping" {
			reply = newEvent(EventError)
			reply.Message = "unknown message type"
		}
		select {
		case replies <- reply:
		default:
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, ev Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
