package model

import (
	"encoding/json"
	"time"

	baseModel "pix_checkout/pkg/model"
)

// Order 订单模型：一次结账尝试的完整生命周期记录
// ExternalID 是提供商的 transaction_hash，网关创建扣款和回调更新用它关联
type Order struct {
	baseModel.BaseModel
	ExternalID      string          `gorm:"unique;not null" json:"external_id"`
	Type            string          `gorm:"default:'subscription'" json:"type"` // subscription, whatsapp
	AmountCents     int             `gorm:"not null" json:"amount_cents"`
	Status          string          `gorm:"default:'pending'" json:"status"` // pending, paid, failed
	ProviderPayload json.RawMessage `gorm:"type:jsonb" json:"providerPayload,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
}

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"

	TypeSubscription = "subscription"
	TypeWhatsapp     = "whatsapp"
)

// IsTerminal 判断状态是否为终态（终态不会回退到 pending）
func IsTerminal(status string) bool {
	return status == OrderStatusPaid || status == OrderStatusFailed
}
