package handler

import (
	"net/http"

	"pix_checkout/internal/domain/analytics/service"
	"pix_checkout/pkg/response"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	service service.AnalyticsService
}

func NewAnalyticsHandler(s service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: s}
}

type TrackEventInput struct {
	EventType string `json:"event_type" binding:"required"`
}

// TrackEvent 记录埋点事件（fire-and-forget，入队即回）
// @Summary 记录埋点事件
// @Tags Analytics
// @Accept json
// @Produce json
// @Router /analytics/events [post]
func (h *AnalyticsHandler) TrackEvent(c *gin.Context) {
	var input TrackEventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	h.service.Track(input.EventType)

	response.Success(c, gin.H{"received": true})
}
