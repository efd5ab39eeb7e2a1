package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"timesheet/internal/attendance"
	"timesheet/internal/auth"
	"timesheet/internal/controller"
	"timesheet/internal/model"
)

// Journal lists recorded check-in attempts.
type Journal interface {
	ListEntries(ctx context.Context, employeeID, limit, offset int) ([]attendance.Entry, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

type Handler struct {
	ctrl    *controller.Controller
	issuer  *auth.Issuer
	journal Journal // nil when the journal database is unavailable
	checks  map[string]HealthCheck
	log     logrus.FieldLogger
}

func New(ctrl *controller.Controller, issuer *auth.Issuer, journal Journal, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		ctrl:    ctrl,
		issuer:  issuer,
		journal: journal,
		checks:  make(map[string]HealthCheck),
		log:     log,
	}
}

// AddHealthCheck registers a dependency reported by /healthz.
func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// Register mounts every route on r. Routes under /v1 other than device
// registration require a device access token.
func (h *Handler) Register(r gin.IRouter, protect ...gin.HandlerFunc) {
	r.GET("/healthz", h.Healthz)
	r.POST("/v1/devices/register", h.RegisterDevice)
	r.POST("/v1/devices/refresh", h.RefreshDevice)

	v1 := r.Group("/v1", append([]gin.HandlerFunc{auth.DeviceAuth(h.issuer)}, protect...)...)
	{
		v1.GET("/employees", h.Listing)
		v1.POST("/employees/more", h.LoadMore)
		v1.POST("/employees/previous", h.LoadPrevious)
		v1.POST("/employees/refresh", h.Refresh)
		v1.POST("/employees/retry", h.Retry)
		v1.POST("/employees/visible", h.Visible)

		v1.GET("/search", h.Search)
		v1.PUT("/search", h.SetSearch)

		v1.GET("/selection", h.Selection)
		v1.PUT("/selection", h.Select)
		v1.DELETE("/selection", h.ClearSelection)

		v1.POST("/checkins", h.CheckIn)
		v1.GET("/checkins", h.ListCheckIns)
		v1.GET("/checkins/last", h.LastCheckIn)
		v1.DELETE("/checkins/result", h.ClearResult)

		v1.GET("/stream", h.Stream)
	}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// ---------- Devices ----------

func (h *Handler) RegisterDevice(c *gin.Context) {
	var req struct {
		DeviceID string `json:"device_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tokens, err := h.issuer.Issue(req.DeviceID)
	if err != nil {
		h.log.WithError(err).Error("token issue failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, tokens)
}

func (h *Handler) RefreshDevice(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tokens, err := h.issuer.Refresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// ---------- Listing ----------

// listingView is the listing as the kiosk renders it: loaded pages are
// flattened into one item list.
type listingView struct {
	Mode        controller.Mode  `json:"mode"`
	Items       []model.Employee `json:"items"`
	Loading     bool             `json:"loading"`
	Exhausted   bool             `json:"exhausted"`
	HasPrevious bool             `json:"has_previous"`
	Error       string           `json:"error,omitempty"`
	FailedKey   int              `json:"failed_key,omitempty"`
}

func viewOf(mode controller.Mode, l controller.Listing) listingView {
	return listingView{
		Mode:        mode,
		Items:       l.Items(),
		Loading:     l.Loading,
		Exhausted:   l.Exhausted,
		HasPrevious: len(l.Pages) > 0 && l.Pages[0].PrevKey != 0,
		Error:       l.Error,
		FailedKey:   l.FailedKey,
	}
}

func (h *Handler) currentListing() listingView {
	return viewOf(h.ctrl.Mode(), h.ctrl.Listing())
}

func (h *Handler) Listing(c *gin.Context) {
	c.JSON(http.StatusOK, h.currentListing())
}

func (h *Handler) LoadMore(c *gin.Context) {
	h.respondLoad(c, h.ctrl.LoadMore(c.Request.Context()))
}

func (h *Handler) LoadPrevious(c *gin.Context) {
	h.respondLoad(c, h.ctrl.LoadPrevious(c.Request.Context()))
}

func (h *Handler) Refresh(c *gin.Context) {
	h.respondLoad(c, h.ctrl.Refresh(c.Request.Context()))
}

func (h *Handler) Retry(c *gin.Context) {
	err := h.ctrl.RetryCurrentLoad(c.Request.Context())
	if h.ctrl.Mode() == controller.ModeSearching {
		status := http.StatusOK
		if err != nil {
			status = http.StatusBadGateway
		}
		c.JSON(status, h.ctrl.Search())
		return
	}
	h.respondLoad(c, err)
}

func (h *Handler) Visible(c *gin.Context) {
	var req struct {
		Index *int `json:"index" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respondLoad(c, h.ctrl.NotifyVisible(c.Request.Context(), *req.Index))
}

// respondLoad maps a listing command result. Page load failures still
// return the listing so the kiosk can show what is loaded with a retry.
func (h *Handler) respondLoad(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, h.currentListing())
	case errors.Is(err, controller.ErrSearchActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, h.currentListing())
	}
}

// ---------- Search ----------

func (h *Handler) Search(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Search())
}

func (h *Handler) SetSearch(c *gin.Context) {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.ctrl.SetSearchQuery(req.Query)
	c.JSON(http.StatusAccepted, h.ctrl.Search())
}

// ---------- Selection ----------

func (h *Handler) Selection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"employee": h.ctrl.Selected()})
}

func (h *Handler) Select(c *gin.Context) {
	var req struct {
		Employee *model.Employee `json:"employee" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Employee.ID <= 0 || req.Employee.FullName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "employee id and name are required"})
		return
	}
	h.ctrl.SelectEmployee(req.Employee)
	c.JSON(http.StatusOK, gin.H{"employee": h.ctrl.Selected()})
}

func (h *Handler) ClearSelection(c *gin.Context) {
	h.ctrl.SelectEmployee(nil)
	c.Status(http.StatusNoContent)
}

// ---------- Check-ins ----------

func (h *Handler) CheckIn(c *gin.Context) {
	var req struct {
		EmployeeID int `json:"employee_id" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outcome := h.ctrl.CheckIn(c.Request.Context(), req.EmployeeID)
	c.JSON(http.StatusOK, gin.H{
		"outcome":       outcome,
		"last_check_in": h.ctrl.LastCheckIn(),
	})
}

func (h *Handler) LastCheckIn(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"last_check_in": h.ctrl.LastCheckIn(),
		"result":        h.ctrl.AttendanceResult(),
	})
}

func (h *Handler) ClearResult(c *gin.Context) {
	h.ctrl.ClearAttendanceResult()
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListCheckIns(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal not configured"})
		return
	}
	employeeID, _ := strconv.Atoi(c.Query("employee_id"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	entries, err := h.journal.ListEntries(c.Request.Context(), employeeID, limit, offset)
	if err != nil {
		h.log.WithError(err).Error("listing journal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []attendance.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ---------- Stream ----------

// Stream pushes every state change as a server-sent event until the client
// goes away. Each stream starts with the current value of every stream.
func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	listing := h.ctrl.WatchListing(ctx)
	search := h.ctrl.WatchSearch(ctx)
	selected := h.ctrl.WatchSelected(ctx)
	last := h.ctrl.WatchLastCheckIn(ctx)
	result := h.ctrl.WatchAttendanceResult(ctx)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(io.Writer) bool {
		select {
		case l, ok := <-listing:
			if !ok {
				return false
			}
			c.SSEvent("listing", viewOf(h.ctrl.Mode(), l))
		case s, ok := <-search:
			if !ok {
				return false
			}
			c.SSEvent("search", s)
		case e, ok := <-selected:
			if !ok {
				return false
			}
			c.SSEvent("selection", gin.H{"employee": e})
		case r, ok := <-last:
			if !ok {
				return false
			}
			c.SSEvent("last_check_in", gin.H{"last_check_in": r})
		case o, ok := <-result:
			if !ok {
				return false
			}
			c.SSEvent("result", gin.H{"result": o})
		case <-ctx.Done():
			return false
		}
		return true
	})
}
