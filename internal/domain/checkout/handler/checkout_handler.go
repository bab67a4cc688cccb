package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pix_checkout/internal/domain/checkout/provider"
	"pix_checkout/internal/domain/checkout/service"
	"pix_checkout/internal/pkg/config"
	"pix_checkout/pkg/logger"
	"pix_checkout/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 用户可见的错误文案，与落地页展示一致
const (
	msgProviderDown     = "Não foi possível gerar o pagamento PIX. Tente novamente em alguns minutos."
	msgConfigMissing    = "Configuração de pagamento indisponível"
	msgUnexpected       = "Erro inesperado ao criar PIX."
	msgWebhookFailed    = "Erro ao processar webhook"
	msgBadSignature     = "Assinatura inválida"
	msgMethodNotAllowed = "Método não permitido"
)

type CheckoutHandler struct {
	service       service.CheckoutService
	webhookSecret string
}

func NewCheckoutHandler(s service.CheckoutService, webhookSecret string) *CheckoutHandler {
	return &CheckoutHandler{service: s, webhookSecret: webhookSecret}
}

type CreatePixRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document"`
	Amount   int    `json:"amount"`
	Type     string `json:"type"`
}

// CreatePixResponse 响应形状由前端契约固定，不走统一 envelope
type CreatePixResponse struct {
	TransactionHash  string          `json:"transaction_hash"`
	QRCode           string          `json:"qr_code"`
	PixCode          string          `json:"pix_code"`
	Status           string          `json:"status"`
	OrderID          string          `json:"orderId"`
	ProviderResponse json.RawMessage `json:"provider_response"`
}

// CreatePix 创建 PIX 扣款
// @Summary 创建 PIX 扣款
// @Tags Checkout
// @Accept json
// @Produce json
// @Router /checkout/pix [post]
func (h *CheckoutHandler) CreatePix(c *gin.Context) {
	var req CreatePixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 原始请求体不可解析，按意外错误处理
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgUnexpected})
		return
	}

	result, err := h.service.CreatePix(c.Request.Context(), service.CreatePixInput{
		Name:     req.Name,
		Email:    req.Email,
		Document: req.Document,
		Amount:   req.Amount,
		Type:     req.Type,
	})
	if err != nil {
		h.writeCreatePixError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreatePixResponse{
		TransactionHash:  result.TransactionHash,
		QRCode:           result.QRCode,
		PixCode:          result.PixCode,
		Status:           result.Status,
		OrderID:          result.OrderID,
		ProviderResponse: result.ProviderResponse,
	})
}

func (h *CheckoutHandler) writeCreatePixError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Msg})
		return
	}

	var provErr *provider.Error
	if errors.As(err, &provErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             msgProviderDown,
			"provider_status":   provErr.StatusCode,
			"provider_response": provErr.Body,
		})
		return
	}

	switch err {
	case service.ErrNotConfigured:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgConfigMissing})
	case service.ErrNoPixData:
		c.JSON(http.StatusBadRequest, gin.H{"error": msgProviderDown})
	default:
		logger.Log.Error("Unexpected error creating PIX charge", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgUnexpected})
	}
}

// Webhook 提供商异步回调
// 除请求体不可解析 (500) 和验签失败 (401) 外，任何路径都回 200 {received:true}，
// 避免提供商无意义的重试
// @Summary 提供商回调
// @Tags Checkout
// @Router /webhooks/pix [post]
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgWebhookFailed})
		return
	}

	if h.webhookSecret != "" && !h.verifySignature(raw, c.GetHeader("X-Signature")) {
		logger.Log.Warn("Webhook signature mismatch", zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgBadSignature})
		return
	}

	var payload provider.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.Log.Error("Malformed webhook body", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgWebhookFailed})
		return
	}

	logger.Log.Info("Provider webhook received", zap.ByteString("payload", raw))

	if err := h.service.HandleWebhook(c.Request.Context(), payload, raw); err != nil {
		// 存储失败也确认收货：载荷已落日志，提供商重试无济于事
		logger.Log.Error("Webhook processing failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// verifySignature HMAC-SHA256 (hex) 验签
func (h *CheckoutHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// StreamOrderEvents SSE 推送单个订单的变更行
// 连接随客户端断开或订单流结束而关闭，服务端不强制超时
// @Summary 订阅订单变更
// @Tags Checkout
// @Router /orders/{id}/events [get]
func (h *CheckoutHandler) StreamOrderEvents(c *gin.Context) {
	orderID := c.Param("id")

	events, err := h.service.WatchOrder(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "failed to subscribe to order events")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent("update", ev)
		return true
	})
}

// GetSiteConfig 落地页启动配置：解锁链接按结账类型区分、默认金额。
// 原页面把这些打包在前端 bundle 里，这里改为服务端下发
// @Summary 落地页配置
// @Tags Checkout
// @Router /checkout/config [get]
func (h *CheckoutHandler) GetSiteConfig(c *gin.Context) {
	cfg := config.GlobalConfig
	response.Success(c, gin.H{
		"default_amount_cents": cfg.Provider.DefaultAmountCents,
		"links": gin.H{
			"subscription": cfg.Links.Subscription,
			"whatsapp":     cfg.Links.Whatsapp,
		},
	})
}

// MethodNotAllowed 405 处理器，挂在 engine 的 NoMethod 上
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": msgMethodNotAllowed})
}
