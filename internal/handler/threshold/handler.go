package threshold

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/farewatch-api/internal/handler"
	"github.com/jwalitptl/farewatch-api/internal/service/threshold"
)

type Handler struct {
	svc *threshold.Service
}

func NewHandler(svc *threshold.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/thresholds/suggest", h.Suggest)
}

type suggestRequest struct {
	City        string `json:"city" binding:"required"`
	Country     string `json:"country" binding:"required"`
	AirportCode string `json:"airport_code"`
}

func (h *Handler) Suggest(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("city and country are required"))
		return
	}

	suggestion := h.svc.Suggest(c.Request.Context(), req.City, req.Country, req.AirportCode)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(suggestion))
}
