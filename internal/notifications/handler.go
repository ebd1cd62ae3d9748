package notifications

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/auth"
	"github.com/jennajle/jlsa-fall-journal/internal/notifications/websocket"
)

type Handler struct {
	manager *websocket.Manager
	logger  *zap.Logger
}

func NewHandler(manager *websocket.Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws", h.Connect)
	rg.GET("/ws/connections", h.Connections)
}

// Connect upgrades to the realtime feed. Anonymous callers may listen.
func (h *Handler) Connect(c *gin.Context) {
	conn, err := h.manager.HandleConnection(c.Writer, c.Request, auth.CallerEmail(c))
	if err != nil {
		// the upgrader has already written the response
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	h.logger.Debug("WebSocket connected", zap.String("connection_id", conn.ID))
}

func (h *Handler) Connections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"count":       h.manager.GetConnectionCount(),
		"connections": h.manager.GetConnectionInfo(),
	})
}
