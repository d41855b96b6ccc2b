package websocket

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pinlens/backend/internal/auth"
	"github.com/pinlens/backend/internal/metrics"
)

// Handler upgrades HTTP requests to engagement WebSocket connections.
type Handler struct {
	hub     *Hub
	auth    *auth.Middleware
	session SessionConfig
	log     *zap.Logger
}

// NewHandler creates the WebSocket upgrade handler.
func NewHandler(hub *Hub, authMW *auth.Middleware, session SessionConfig, log *zap.Logger) *Handler {
	return &Handler{
		hub:     hub,
		auth:    authMW,
		session: session,
		log:     log,
	}
}

// Serve handles GET /api/ws. Anonymous connections are allowed; they get
// engagement updates without own-reaction state and cannot react.
func (h *Handler) Serve(c *gin.Context) {
	userID := c.GetString(auth.ContextUserIDKey)

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		// Browser origins are enforced by the CORS layer in front of us.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn("WebSocket upgrade failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	client := NewClient(h.hub, conn, userID, h.log)
	client.session = NewSession(client, h.session)

	h.hub.Register(client)
	m := metrics.Get()
	m.WSActiveConnections.Inc()

	go client.WritePump()
	go func() {
		defer m.WSActiveConnections.Dec()
		client.ReadPump()
	}()
}
