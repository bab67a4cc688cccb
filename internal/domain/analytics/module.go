package analytics

import (
	"pix_checkout/internal/domain/analytics/handler"
	"pix_checkout/internal/domain/analytics/repository"
	"pix_checkout/internal/domain/analytics/service"
	"pix_checkout/internal/pkg/config"
	"pix_checkout/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// AnalyticsModule 埋点模块
type AnalyticsModule struct{}

func init() {
	registry.Register(&AnalyticsModule{})
}

func (m *AnalyticsModule) Name() string {
	return "analytics"
}

func (m *AnalyticsModule) Priority() int {
	return 20
}

func (m *AnalyticsModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewEventRepository(ctx.DB)
	cfg := config.GlobalConfig.Analytics
	svc := service.NewAnalyticsService(repo, cfg.Workers, cfg.BufferSize)
	h := handler.NewAnalyticsHandler(svc)

	setupRoutes(ctx.Router, h)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.AnalyticsHandler) {
	r.POST("/analytics/events", h.TrackEvent)
}
