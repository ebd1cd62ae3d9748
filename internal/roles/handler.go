package roles

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	r := rg.Group("/roles")
	{
		r.GET("", h.List)
		r.GET("/masthead", h.Masthead)
		r.GET("/:code", h.Get)
	}
}

func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": Roles()})
}

func (h *Handler) Masthead(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": MastheadRoles()})
}

func (h *Handler) Get(c *gin.Context) {
	role, ok := Get(Code(c.Param("code")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "role not found"})
		return
	}
	c.JSON(http.StatusOK, role)
}
