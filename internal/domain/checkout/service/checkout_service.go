package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"

	"pix_checkout/internal/domain/checkout/model"
	"pix_checkout/internal/domain/checkout/notify"
	"pix_checkout/internal/domain/checkout/provider"
	"pix_checkout/internal/domain/checkout/repository"
	"pix_checkout/internal/pkg/config"
	"pix_checkout/pkg/logger"
	"pix_checkout/pkg/metrics"

	"go.uber.org/zap"
)

// ValidationError 客户端可修正的校验错误，Msg 直接展示给用户
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

var (
	ErrMissingFields   = &ValidationError{Msg: "Nome, e-mail e CPF são obrigatórios."}
	ErrInvalidDocument = &ValidationError{Msg: "CPF deve conter 11 números."}

	// ErrNotConfigured 提供商凭据缺失，网关 fail closed
	ErrNotConfigured = errors.New("payment provider not configured")

	// ErrNoPixData 提供商响应既无二维码也无复制粘贴码
	ErrNoPixData = errors.New("provider response contains no pix data")
)

var nonDigits = regexp.MustCompile(`\D`)

// CreatePixInput 结账请求
type CreatePixInput struct {
	Name     string
	Email    string
	Document string
	Amount   int
	Type     string
}

// CreatePixResult 网关响应，orderId 为空表示订单落库失败（降级，不影响支付）
type CreatePixResult struct {
	TransactionHash  string
	QRCode           string
	PixCode          string
	Status           string
	OrderID          string
	ProviderResponse json.RawMessage
}

type CheckoutService interface {
	CreatePix(ctx context.Context, input CreatePixInput) (*CreatePixResult, error)

	// HandleWebhook 幂等处理提供商回调；任何可达路径都不向调用方传播错误
	// 之外的失败（缺 hash、0 行更新都是正常 no-op）
	HandleWebhook(ctx context.Context, payload provider.WebhookPayload, raw json.RawMessage) error

	// WatchOrder 订阅单个订单的变更。订单已处于终态时立即补发当前行，
	// 避免回调先于订阅到达导致 paid 信号丢失。
	WatchOrder(ctx context.Context, orderID string) (<-chan notify.OrderEvent, error)
}

type checkoutService struct {
	repo        repository.OrderRepository
	provider    provider.Provider
	notifier    notify.Notifier
	providerCfg config.ProviderConfig
	collector   *metrics.Collector
}

func NewCheckoutService(repo repository.OrderRepository, prov provider.Provider, notifier notify.Notifier, providerCfg config.ProviderConfig) CheckoutService {
	return &checkoutService{
		repo:        repo,
		provider:    prov,
		notifier:    notifier,
		providerCfg: providerCfg,
		collector:   metrics.GetGlobalCollector(),
	}
}

func (s *checkoutService) CreatePix(ctx context.Context, input CreatePixInput) (*CreatePixResult, error) {
	if !s.providerCfg.Configured() {
		logger.Log.Error("PIX checkout attempted without provider credentials")
		return nil, ErrNotConfigured
	}

	if input.Name == "" || input.Email == "" || input.Document == "" {
		s.collector.RecordPixCharge("validation")
		return nil, ErrMissingFields
	}

	cleanCPF := nonDigits.ReplaceAllString(input.Document, "")
	if len(cleanCPF) != 11 {
		s.collector.RecordPixCharge("validation")
		return nil, ErrInvalidDocument
	}

	amountCents := input.Amount
	if amountCents <= 0 {
		amountCents = s.providerCfg.DefaultAmountCents
	}

	orderType := input.Type
	if orderType == "" {
		orderType = model.TypeSubscription
	}

	charge, err := s.provider.CreateCharge(ctx, provider.ChargeRequest{
		AmountCents: amountCents,
		Name:        input.Name,
		Email:       input.Email,
		Document:    cleanCPF,
		Type:        orderType,
	})
	if err != nil {
		var provErr *provider.Error
		if errors.As(err, &provErr) {
			s.collector.RecordPixCharge("provider_error")
		} else {
			s.collector.RecordPixCharge("error")
		}
		return nil, err
	}

	if !charge.HasPixData() {
		logger.Log.Error("Provider response without pix data",
			zap.String("transaction_hash", charge.TransactionHash),
		)
		s.collector.RecordPixCharge("error")
		return nil, ErrNoPixData
	}

	result := &CreatePixResult{
		TransactionHash:  charge.TransactionHash,
		QRCode:           charge.QRCode,
		PixCode:          charge.PixCode,
		Status:           charge.Status,
		ProviderResponse: charge.Raw,
	}

	// 订单落库是尽力而为：失败只记日志，支付数据照常返回给用户。
	// 代价是该笔交易之后的回调无处可对账。
	if charge.TransactionHash != "" {
		order := &model.Order{
			ExternalID:  charge.TransactionHash,
			Type:        orderType,
			AmountCents: amountCents,
			Status:      charge.Status,
		}
		if err := s.repo.Create(order); err != nil {
			logger.Log.Error("Failed to persist order",
				zap.String("external_id", charge.TransactionHash),
				zap.Error(err),
			)
		} else {
			result.OrderID = order.ID
		}
	}

	s.collector.RecordPixCharge("success")
	return result, nil
}

func (s *checkoutService) HandleWebhook(ctx context.Context, payload provider.WebhookPayload, raw json.RawMessage) error {
	ev := payload.Normalize()

	if ev.TransactionHash == "" {
		// 没有可用的关联键，重试也无法应用，直接确认收货
		logger.Log.Warn("Webhook without transaction hash, ignoring")
		return nil
	}

	newStatus := provider.MapStatus(ev.ProviderStatus)
	s.collector.RecordWebhookEvent(newStatus)

	rows, err := s.repo.UpdateStatusByExternalID(ev.TransactionHash, newStatus, ev.AmountCents, raw)
	if err != nil {
		return err
	}

	if rows == 0 {
		// 订单不存在（回调先于落库的竞态）或终态不接受回退，都按 no-op 处理
		logger.Log.Warn("Webhook matched no updatable order",
			zap.String("external_id", ev.TransactionHash),
			zap.String("status", newStatus),
		)
		return nil
	}

	if newStatus != model.OrderStatusPaid {
		return nil
	}

	s.collector.RecordOrderPaid()
	logger.Log.Info("PIX payment confirmed",
		zap.String("external_id", ev.TransactionHash),
	)

	order, err := s.repo.GetByExternalID(ev.TransactionHash)
	if err != nil {
		// 状态已更新但读不回订单，订阅方只能靠 WatchOrder 的终态补发兜底
		logger.Log.Error("Failed to load order after paid update",
			zap.String("external_id", ev.TransactionHash),
			zap.Error(err),
		)
		return nil
	}

	if err := s.notifier.PublishUpdate(ctx, orderEvent(order)); err != nil {
		logger.Log.Error("Failed to publish order update",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	return nil
}

func (s *checkoutService) WatchOrder(ctx context.Context, orderID string) (<-chan notify.OrderEvent, error) {
	live, err := s.notifier.SubscribeOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	out := make(chan notify.OrderEvent, 8)
	s.collector.WatcherStarted()

	go func() {
		defer close(out)
		defer s.collector.WatcherStopped()

		// 先订阅再快照：订单已终态时补发当前行，关闭 "回调先于订阅" 的窗口。
		// 补发和实时事件可能重复，订阅方按状态幂等处理。
		if order, err := s.repo.GetByID(orderID); err == nil && model.IsTerminal(order.Status) {
			select {
			case out <- orderEvent(order):
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-live:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func orderEvent(order *model.Order) notify.OrderEvent {
	return notify.OrderEvent{
		ID:          order.ID,
		ExternalID:  order.ExternalID,
		Type:        order.Type,
		Status:      order.Status,
		AmountCents: order.AmountCents,
		PaidAt:      order.PaidAt,
	}
}
