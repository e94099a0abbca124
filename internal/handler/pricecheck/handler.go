package pricecheck

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/farewatch-api/internal/handler"
	"github.com/jwalitptl/farewatch-api/internal/service/pipeline"
)

type Handler struct {
	svc *pipeline.Service
}

func NewHandler(svc *pipeline.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/pricecheck/run", h.Run)
}

// Run executes one full pipeline pass and returns the run result as-is:
// {success, destinationsChecked, alertsTriggered, results}. A result with
// success false means callers must assume zero alerts were evaluated.
func (h *Handler) Run(c *gin.Context) {
	result, err := h.svc.Run(c.Request.Context())
	if errors.Is(err, pipeline.ErrRunInProgress) {
		c.JSON(http.StatusConflict, handler.NewErrorResponse("a price check run is already in progress"))
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
