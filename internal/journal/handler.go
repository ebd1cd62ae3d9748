package journal

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/people"
)

// MastheadSource lists the journal's editors by role
type MastheadSource interface {
	Masthead(ctx context.Context) ([]people.MastheadSection, error)
}

// RouteLister reports the server's registered routes
type RouteLister func() gin.RoutesInfo

// Endpoint is one registered route
type Endpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// Info is the journal title page
type Info struct {
	Title   string   `json:"title"`
	Editors []string `json:"editors"`
	Date    string   `json:"date"`
}

type Handler struct {
	title    string
	masthead MastheadSource
	routes   RouteLister
	now      func() time.Time
	logger   *zap.Logger
}

func NewHandler(title string, masthead MastheadSource, routes RouteLister, logger *zap.Logger) *Handler {
	return &Handler{
		title:    title,
		masthead: masthead,
		routes:   routes,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/hello", h.Hello)
	rg.GET("/endpoints", h.Endpoints)
	rg.GET("/title", h.Title)
}

func (h *Handler) Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"hello": "world"})
}

func (h *Handler) Endpoints(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"endpoints": Endpoints(h.routes())})
}

// Endpoints sorts routes by path, then method
func Endpoints(routes gin.RoutesInfo) []Endpoint {
	out := make([]Endpoint, 0, len(routes))
	for _, r := range routes {
		out = append(out, Endpoint{Method: r.Method, Path: r.Path})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Title falls back to an empty editor list when the masthead is unavailable
func (h *Handler) Title(c *gin.Context) {
	info := Info{
		Title:   h.title,
		Editors: []string{},
		Date:    h.now().Format("January 2, 2006"),
	}

	sections, err := h.masthead.Masthead(c.Request.Context())
	if err != nil {
		h.logger.Warn("Masthead unavailable for title page", zap.Error(err))
	} else {
		info.Editors = editorNames(sections)
	}
	c.JSON(http.StatusOK, info)
}

func editorNames(sections []people.MastheadSection) []string {
	seen := make(map[string]bool)
	names := []string{}
	for _, s := range sections {
		for _, p := range s.People {
			if seen[p.Email] {
				continue
			}
			seen[p.Email] = true
			names = append(names, p.Name)
		}
	}
	return names
}
