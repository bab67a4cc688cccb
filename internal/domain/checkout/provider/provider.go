package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

// ChargeRequest 创建 PIX 扣款的内部规范化请求
type ChargeRequest struct {
	AmountCents int
	Name        string
	Email       string
	Document    string // 已清洗的 11 位 CPF
	Type        string // 结账类型，决定购物车条目标题
}

// Charge 提供商返回的扣款，字段已规范化（提供商响应存在命名变体，
// 由 adapter 统一翻译，上层不感知命名漂移）
type Charge struct {
	TransactionHash string
	QRCode          string
	PixCode         string
	Status          string
	Raw             json.RawMessage // 提供商原始响应，透传给前端
}

// HasPixData 判断是否至少带回了二维码或复制粘贴码之一
func (c *Charge) HasPixData() bool {
	return c.QRCode != "" || c.PixCode != ""
}

// Provider PIX 支付提供商
type Provider interface {
	// CreateCharge 创建扣款。提供商返回非 2xx 时返回 *Error
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// Error 提供商拒绝（非 2xx 响应），携带原始状态码和响应体用于诊断
type Error struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}
