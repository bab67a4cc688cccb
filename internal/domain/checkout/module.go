package checkout

import (
	"pix_checkout/internal/domain/checkout/handler"
	"pix_checkout/internal/domain/checkout/notify"
	"pix_checkout/internal/domain/checkout/provider"
	"pix_checkout/internal/domain/checkout/repository"
	"pix_checkout/internal/domain/checkout/service"
	"pix_checkout/internal/pkg/config"
	"pix_checkout/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// CheckoutModule 结账模块：PIX 网关 + 回调接收 + 订单事件流
type CheckoutModule struct{}

func init() {
	registry.Register(&CheckoutModule{})
}

func (m *CheckoutModule) Name() string {
	return "checkout"
}

func (m *CheckoutModule) Priority() int {
	return 10
}

func (m *CheckoutModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewOrderRepository(ctx.DB)
	prov := provider.NewInvictusPay(config.GlobalConfig.Provider)
	notifier := notify.NewRedisNotifier(ctx.Redis)

	svc := service.NewCheckoutService(repo, prov, notifier, config.GlobalConfig.Provider)
	h := handler.NewCheckoutHandler(svc, config.GlobalConfig.Webhook.Secret)

	setupRoutes(ctx.Router, h)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CheckoutHandler) {
	r.POST("/checkout/pix", h.CreatePix)

	// 回调无鉴权，配置了 webhook.secret 时启用 HMAC 验签
	r.POST("/webhooks/pix", h.Webhook)

	r.GET("/orders/:id/events", h.StreamOrderEvents)

	r.GET("/checkout/config", h.GetSiteConfig)
}
