package manuscripts

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/auth"
	"github.com/jennajle/jlsa-fall-journal/internal/people"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Directory resolves an authenticated email to the person on record
type Directory interface {
	Get(ctx context.Context, email string) (*people.Person, error)
}

// fields only masthead editors may change
var mastheadFields = map[string]bool{
	FieldAuthorEmail: true,
	FieldEditor:      true,
}

type Handler struct {
	service     *Service
	people      Directory
	requireAuth gin.HandlerFunc
	logger      *zap.Logger
	fileURLTTL  time.Duration
}

func NewHandler(service *Service, directory Directory, requireAuth gin.HandlerFunc, logger *zap.Logger) *Handler {
	return &Handler{
		service:     service,
		people:      directory,
		requireAuth: requireAuth,
		logger:      logger,
		fileURLTTL:  15 * time.Minute,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	m := rg.Group("/manuscripts")
	{
		m.GET("", h.List)
		m.GET("/states", h.States)
		m.GET("/actions", h.Actions)
		m.GET("/fields", h.Fields)
		m.GET("/:id", h.Get)
		m.GET("/:id/history", h.History)
	}

	protected := rg.Group("/manuscripts", h.requireAuth)
	{
		protected.POST("", h.Create)
		protected.GET("/export", h.Export)
		protected.PATCH("/:id", h.Update)
		protected.DELETE("/:id", h.Delete)
		protected.GET("/:id/actions", h.AvailableActions)
		protected.POST("/:id/transitions", h.Transition)
		protected.DELETE("/:id/history", h.ResetHistory)
		protected.PUT("/:id/file", h.UploadFile)
		protected.GET("/:id/file", h.FileURL)
	}
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoFile):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidAction),
		errors.Is(err, ErrRefereeRequired),
		errors.Is(err, ErrUnknownField),
		errors.Is(err, ErrUnknownFormat),
		errors.Is(err, ErrFieldNotEditable),
		errors.Is(err, ErrInvalidFieldType),
		errors.Is(err, people.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, ErrActionNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, ErrStateMismatch),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrRefereeNotFound):
		return http.StatusConflict
	case errors.Is(err, ErrStorageDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Manuscript request failed",
			zap.String("op", op),
			zap.String("manuscript_id", c.Param("id")),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// caller resolves the request's identity. Anonymous callers and emails
// unknown to the directory hold no roles.
func (h *Handler) caller(c *gin.Context) (Caller, error) {
	email := auth.CallerEmail(c)
	if email == "" {
		return Caller{}, nil
	}
	p, err := h.people.Get(c.Request.Context(), email)
	if errors.Is(err, people.ErrNotFound) {
		return Caller{Email: email}, nil
	}
	if err != nil {
		return Caller{}, err
	}
	return Caller{Email: email, Name: p.Name, Roles: p.Roles}, nil
}

func (h *Handler) forbid(c *gin.Context, op string, caller Caller) {
	h.logger.Warn("Manuscript request forbidden",
		zap.String("op", op),
		zap.String("manuscript_id", c.Param("id")),
		zap.String("by", caller.Email))
	c.JSON(http.StatusForbidden, gin.H{"error": ErrActionNotPermitted.Error()})
}

// mastheadOnly resolves the caller and rejects anyone without a masthead role
func (h *Handler) mastheadOnly(c *gin.Context, op string) (Caller, bool) {
	caller, err := h.caller(c)
	if err != nil {
		h.fail(c, op, err)
		return Caller{}, false
	}
	if !caller.IsMasthead() {
		h.forbid(c, op, caller)
		return caller, false
	}
	return caller, true
}

// loadFor resolves the caller and loads the manuscript in the path. Masthead
// editors are always admitted, anyone else only when allow says so.
func (h *Handler) loadFor(c *gin.Context, op string, allow func(Caller, *Manuscript) bool) (Caller, *Manuscript, bool) {
	caller, err := h.caller(c)
	if err != nil {
		h.fail(c, op, err)
		return Caller{}, nil, false
	}
	m, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, op, err)
		return caller, nil, false
	}
	if !caller.IsMasthead() && !allow(caller, m) {
		h.forbid(c, op, caller)
		return caller, nil, false
	}
	return caller, m, true
}

func canReadFile(caller Caller, m *Manuscript) bool {
	return caller.Owns(m) || caller.IsRefereeOf(m)
}

// view returns what caller may see of m. Authors keep their own contact
// data but not the review details.
func view(caller Caller, m *Manuscript) *Manuscript {
	if caller.IsMasthead() {
		return m
	}
	out := m.Redacted()
	if caller.Owns(m) {
		out.AuthorEmail = m.AuthorEmail
		out.FileKey = m.FileKey
	}
	return out
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateManuscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller, err := h.caller(c)
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	// authors submit under their own email
	if !caller.IsMasthead() && !strings.EqualFold(req.AuthorEmail, caller.Email) {
		h.forbid(c, "create", caller)
		return
	}

	m, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) List(c *gin.Context) {
	caller, err := h.caller(c)
	if err != nil {
		h.fail(c, "list", err)
		return
	}

	filter := &ListFilter{}
	if s := c.Query("state"); s != "" {
		state := State(s)
		filter.State = &state
	}
	if email := c.Query("author_email"); email != "" {
		if !caller.IsMasthead() && !strings.EqualFold(email, caller.Email) {
			h.forbid(c, "list", caller)
			return
		}
		filter.AuthorEmail = &email
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	resp, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	for i, m := range resp.Manuscripts {
		resp.Manuscripts[i] = view(caller, m)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Get(c *gin.Context) {
	caller, err := h.caller(c)
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	m, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, view(caller, m))
}

// Update is open to masthead editors and the manuscript's author
func (h *Handler) Update(c *gin.Context) {
	var data map[string]any
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller, _, ok := h.loadFor(c, "update", Caller.Owns)
	if !ok {
		return
	}
	if !caller.IsMasthead() {
		for name := range data {
			if mastheadFields[name] {
				h.forbid(c, "update", caller)
				return
			}
		}
	}

	m, err := h.service.Update(c.Request.Context(), c.Param("id"), data)
	if err != nil {
		h.fail(c, "update", err)
		return
	}
	c.JSON(http.StatusOK, view(caller, m))
}

func (h *Handler) Delete(c *gin.Context) {
	if _, ok := h.mastheadOnly(c, "delete"); !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// States lists every state with the actions available in it
func (h *Handler) States(c *gin.Context) {
	out := make([]StateInfo, 0, len(validStates))
	for _, s := range States() {
		out = append(out, StateInfo{
			Code:     s,
			Name:     s.DisplayName(),
			Terminal: s.IsTerminal(),
			Actions:  ValidActions(s),
		})
	}
	c.JSON(http.StatusOK, out)
}

// Actions lists every action with the roles allowed to invoke it
func (h *Handler) Actions(c *gin.Context) {
	out := make([]ActionInfo, 0, len(validActions))
	for _, a := range Actions() {
		info := ActionInfo{Code: a, Name: a.DisplayName()}
		for _, r := range AllowedRoles(a) {
			info.Roles = append(info.Roles, string(r))
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Fields(c *gin.Context) {
	c.JSON(http.StatusOK, Fields())
}

func (h *Handler) Export(c *gin.Context) {
	if _, ok := h.mastheadOnly(c, "export"); !ok {
		return
	}
	format := ExportFormat(c.DefaultQuery("format", string(FormatXLSX)))

	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), &buf, format); err != nil {
		h.fail(c, "export", err)
		return
	}

	contentType := xlsxContentType
	if format == FormatCSV {
		contentType = "text/csv; charset=utf-8"
	}
	c.Header("Content-Disposition", `attachment; filename="manuscripts.`+string(format)+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *Handler) AvailableActions(c *gin.Context) {
	caller, err := h.caller(c)
	if err != nil {
		h.fail(c, "actions", err)
		return
	}

	actions, err := h.service.AvailableActions(c.Request.Context(), c.Param("id"), caller.Roles)
	if err != nil {
		h.fail(c, "actions", err)
		return
	}
	c.JSON(http.StatusOK, actions)
}

func (h *Handler) Transition(c *gin.Context) {
	var in TransitionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller, err := h.caller(c)
	if err != nil {
		h.fail(c, "transition", err)
		return
	}

	result, err := h.service.Transition(c.Request.Context(), c.Param("id"), caller, &in)
	if err != nil {
		h.fail(c, "transition", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "history", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ResetHistory is administrative and limited to masthead editors
func (h *Handler) ResetHistory(c *gin.Context) {
	if _, ok := h.mastheadOnly(c, "reset_history"); !ok {
		return
	}

	if err := h.service.ResetHistory(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "reset_history", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UploadFile(c *gin.Context) {
	caller, _, ok := h.loadFor(c, "upload_file", Caller.Owns)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	m, err := h.service.UploadFile(c.Request.Context(), c.Param("id"), file.Filename, f)
	if err != nil {
		h.fail(c, "upload_file", err)
		return
	}
	c.JSON(http.StatusOK, view(caller, m))
}

// FileURL hands out a presigned URL for the manuscript's file, or streams
// the file itself when download=true. Assigned referees may read it too.
func (h *Handler) FileURL(c *gin.Context) {
	_, m, ok := h.loadFor(c, "file", canReadFile)
	if !ok {
		return
	}

	if download, _ := strconv.ParseBool(c.Query("download")); download {
		body, err := h.service.OpenFile(c.Request.Context(), m.ID)
		if err != nil {
			h.fail(c, "file_download", err)
			return
		}
		defer body.Close()
		c.DataFromReader(http.StatusOK, -1, "application/octet-stream", body, map[string]string{
			"Content-Disposition": `attachment; filename="` + path.Base(m.FileKey) + `"`,
		})
		return
	}

	url, err := h.service.FileURL(c.Request.Context(), c.Param("id"), h.fileURLTTL)
	if err != nil {
		h.fail(c, "file_url", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_in": int(h.fileURLTTL.Seconds())})
}
