package provider

import (
	"pix_checkout/internal/domain/checkout/model"
)

// WebhookPayload 提供商回调原始载荷，同义字段成对出现
type WebhookPayload struct {
	TransactionHash   string `json:"transaction_hash"`
	Hash              string `json:"hash"`
	Status            string `json:"status"`
	TransactionStatus string `json:"transaction_status"`
	Amount            *int   `json:"amount"`
	AmountCents       *int   `json:"amount_cents"`
}

// WebhookEvent 规范化后的回调事件
type WebhookEvent struct {
	TransactionHash string
	ProviderStatus  string
	AmountCents     *int // nil 表示回调未携带金额
}

// Normalize 翻译命名变体
func (p *WebhookPayload) Normalize() WebhookEvent {
	ev := WebhookEvent{
		TransactionHash: firstNonEmpty(p.TransactionHash, p.Hash),
		ProviderStatus:  firstNonEmpty(p.Status, p.TransactionStatus),
	}
	if p.Amount != nil {
		ev.AmountCents = p.Amount
	} else if p.AmountCents != nil {
		ev.AmountCents = p.AmountCents
	}
	return ev
}

// MapStatus 提供商状态 → 内部状态: paid→paid, failed→failed, 其余→pending
func MapStatus(providerStatus string) string {
	switch providerStatus {
	case "paid":
		return model.OrderStatusPaid
	case "failed":
		return model.OrderStatusFailed
	default:
		return model.OrderStatusPending
	}
}
