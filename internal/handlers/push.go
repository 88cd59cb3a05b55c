package handlers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/auth"
	"github.com/localnerve/gestionale/internal/middleware"
	"github.com/localnerve/gestionale/internal/push"
	"gorm.io/gorm"
)

var pongFrame = []byte(`{"type":"pong"}`)

// PushHandler serves the websocket push channel
type PushHandler struct {
	DB           *gorm.DB
	JWT          *auth.JWTManager
	Registry     *push.Registry
	WriteTimeout time.Duration
}

// wsConn is the part of a websocket connection a socket writes through
type wsConn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// socket adapts a websocket connection to push.Conn. Writes are serialized and
// bounded by the write timeout, so a stalled client fails instead of blocking.
// A failed write also closes the connection, ending its read loop.
type socket struct {
	mu      sync.Mutex
	conn    wsConn
	timeout time.Duration
}

func (s *socket) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.write(msg)
	if err != nil {
		_ = s.conn.Close()
	}
	return err
}

func (s *socket) write(msg []byte) error {
	if s.timeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

// Upgrade rejects plain HTTP requests on the push route
func (h *PushHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the websocket endpoint for GET /api/notifications/ws?token=<jwt>
// @Summary Real-time notification channel
// @Description Websocket. Closes with 1008 when the token is missing or invalid; replies {"type":"pong"} to every text frame.
// @Tags Notifications
// @Param token query string true "Access token"
// @Success 101
// @Failure 426 {object} utils.ErrorResponseStruct
// @Router /notifications/ws [get]
func (h *PushHandler) Handler() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *PushHandler) serve(conn *websocket.Conn) {
	defer conn.Close()

	user, err := middleware.Authenticate(h.JWT, h.DB, conn.Query("token"))
	if err != nil {
		slog.Debug("push channel rejected", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"),
			time.Now().Add(time.Second))
		return
	}

	s := &socket{conn: conn, timeout: h.WriteTimeout}
	h.Registry.Register(s, user.ID)
	defer h.Registry.Unregister(s, user.ID)
	slog.Info("push channel opened", "user_id", user.ID)

	for {
		mt, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("push channel read failed", "user_id", user.ID, "error", err)
			}
			break
		}
		if mt != websocket.TextMessage {
			continue
		}
		if err := s.Send(pongFrame); err != nil {
			slog.Warn("push channel write failed", "user_id", user.ID, "error", err)
			break
		}
	}

	slog.Info("push channel closed", "user_id", user.ID)
}
