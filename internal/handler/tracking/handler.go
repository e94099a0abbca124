package tracking

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/farewatch-api/internal/service/tracking"
	"github.com/jwalitptl/farewatch-api/pkg/logger"
)

// A 1x1 transparent GIF, returned for every open-tracking request so a
// broken pixel never shows up in the email body.
var trackingPixel, _ = base64.StdEncoding.DecodeString(
	"R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")

type Handler struct {
	svc    *tracking.Service
	logger *logger.Logger
}

func NewHandler(svc *tracking.Service, logger *logger.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/track/open", h.Open)
	r.GET("/track/click", h.Click)
}

// Open marks the message opened. The pixel is served even when tracking
// fails; rendering must never depend on the store.
func (h *Handler) Open(c *gin.Context) {
	queueID, err := uuid.Parse(c.Query("queue_id"))
	if err != nil {
		h.servePixel(c)
		return
	}

	if err := h.svc.MarkOpened(c.Request.Context(), queueID); err != nil {
		h.logger.Error(err, "failed to track email open", "queue_id", queueID.String())
	}

	h.servePixel(c)
}

// Click marks the message clicked and redirects to the target URL. The
// redirect happens even when tracking fails.
func (h *Handler) Click(c *gin.Context) {
	redirectURL := c.Query("url")
	if redirectURL == "" {
		c.String(http.StatusBadRequest, "Missing parameters")
		return
	}

	if queueID, err := uuid.Parse(c.Query("queue_id")); err == nil {
		if err := h.svc.MarkClicked(c.Request.Context(), queueID); err != nil {
			h.logger.Error(err, "failed to track email click", "queue_id", queueID.String())
		}
	}

	c.Redirect(http.StatusFound, redirectURL)
}

func (h *Handler) servePixel(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "image/gif", trackingPixel)
}
