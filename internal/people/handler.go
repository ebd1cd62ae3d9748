package people

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/roles"
)

const Feature = "people"

var ErrNotPermitted = errors.New("operation requires a masthead role")

// Guard wraps routes with feature protections
type Guard interface {
	Require(feature, operation string) gin.HandlerFunc
}

// CallerFunc returns the authenticated email of a request, "" when anonymous
type CallerFunc func(c *gin.Context) string

type Handler struct {
	service      *Service
	guard        Guard
	callerEmail  CallerFunc
	journalTitle string
	logger       *zap.Logger
}

func NewHandler(service *Service, guard Guard, callerEmail CallerFunc, journalTitle string, logger *zap.Logger) *Handler {
	return &Handler{
		service:      service,
		guard:        guard,
		callerEmail:  callerEmail,
		journalTitle: journalTitle,
		logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	p := rg.Group("/people")
	{
		p.GET("", h.guard.Require(Feature, "read"), h.List)
		p.POST("", h.guard.Require(Feature, "create"), h.Create)
		p.PUT("", h.guard.Require(Feature, "update"), h.Update)
		p.GET("/masthead", h.Masthead)
		p.GET("/masthead.pdf", h.MastheadPDF)
		p.GET("/:email", h.guard.Require(Feature, "read"), h.Get)
		p.DELETE("/:email", h.guard.Require(Feature, "delete"), h.Delete)
		p.POST("/:email/roles/:role", h.guard.Require(Feature, "update"), h.AddRole)
		p.DELETE("/:email/roles/:role", h.guard.Require(Feature, "update"), h.RemoveRole)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidRole):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("People request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// requireMasthead fails unless the caller holds a masthead role. Role
// grants and edits of other people's profiles go through it.
func (h *Handler) requireMasthead(c *gin.Context) error {
	codes, err := h.service.RolesOf(c.Request.Context(), h.callerEmail(c))
	if err != nil {
		return err
	}
	if !roles.AnyMasthead(codes) {
		return ErrNotPermitted
	}
	return nil
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Roles != nil || req.Email != h.callerEmail(c) {
		if err := h.requireMasthead(c); err != nil {
			h.fail(c, err)
			return
		}
	}

	p, err := h.service.Update(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c *gin.Context) {
	email := c.Param("email")
	if err := h.service.Delete(c.Request.Context(), email); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": email})
}

func (h *Handler) AddRole(c *gin.Context) {
	if err := h.requireMasthead(c); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.service.AddRole(c.Request.Context(), c.Param("email"), roles.Code(c.Param("role"))); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RemoveRole(c *gin.Context) {
	if err := h.requireMasthead(c); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.service.RemoveRole(c.Request.Context(), c.Param("email"), roles.Code(c.Param("role"))); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Masthead(c *gin.Context) {
	sections, err := h.service.Masthead(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"masthead": sections})
}

func (h *Handler) MastheadPDF(c *gin.Context) {
	sections, err := h.service.Masthead(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := WriteMastheadPDF(&buf, sections, DefaultMastheadPDFOptions(h.journalTitle)); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="masthead.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
