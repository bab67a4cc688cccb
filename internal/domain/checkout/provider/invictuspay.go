package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"pix_checkout/internal/domain/checkout/model"
	"pix_checkout/internal/pkg/config"
	"pix_checkout/pkg/logger"

	"go.uber.org/zap"
)

// InvictusPay PIX 提供商客户端
// 没有官方 Go SDK，直接对接其公开 JSON API
type InvictusPay struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewInvictusPay(cfg config.ProviderConfig) *InvictusPay {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &InvictusPay{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type chargeCustomer struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Document    string `json:"document"`
}

type chargeCartItem struct {
	ProductHash   string `json:"product_hash"`
	Title         string `json:"title"`
	Price         int    `json:"price"`
	Quantity      int    `json:"quantity"`
	OperationType int    `json:"operation_type"`
	Tangible      bool   `json:"tangible"`
}

type chargePayload struct {
	Amount        int              `json:"amount"`
	OfferHash     string           `json:"offer_hash"`
	PaymentMethod string           `json:"payment_method"`
	Customer      chargeCustomer   `json:"customer"`
	Cart          []chargeCartItem `json:"cart"`
}

// chargeResponse 提供商响应，同义字段成对出现（上游命名漂移）
type chargeResponse struct {
	TransactionHash string `json:"transaction_hash"`
	Hash            string `json:"hash"`
	QRCode          string `json:"qr_code"`
	PixQRCode       string `json:"pix_qr_code"`
	PixCode         string `json:"pix_code"`
	CopyPaste       string `json:"copy_paste"`
	Status          string `json:"status"`
}

func cartTitle(typ string) string {
	if typ == model.TypeWhatsapp {
		return "Grupo VIP"
	}
	return "Assinatura"
}

// CreateCharge 创建 PIX 扣款
func (p *InvictusPay) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	payload := chargePayload{
		Amount:        req.AmountCents,
		OfferHash:     p.cfg.OfferHash,
		PaymentMethod: "pix",
		Customer: chargeCustomer{
			Name:        req.Name,
			Email:       req.Email,
			PhoneNumber: p.cfg.CustomerPhone,
			Document:    req.Document,
		},
		Cart: []chargeCartItem{
			{
				ProductHash:   p.cfg.ProductHash,
				Title:         cartTitle(req.Type),
				Price:         req.AmountCents,
				Quantity:      1,
				OperationType: 1,
				Tangible:      false,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := p.cfg.BaseURL + "/transactions?api_token=" + url.QueryEscape(p.cfg.APIToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Log.Error("InvictusPay rejected charge",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return nil, &Error{StatusCode: resp.StatusCode, Body: json.RawMessage(respBody)}
	}

	var data chargeResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, err
	}

	return data.normalize(respBody), nil
}

// normalize 翻译命名变体，缺省状态为 pending
func (r *chargeResponse) normalize(raw []byte) *Charge {
	charge := &Charge{
		TransactionHash: firstNonEmpty(r.TransactionHash, r.Hash),
		QRCode:          firstNonEmpty(r.QRCode, r.PixQRCode),
		PixCode:         firstNonEmpty(r.PixCode, r.CopyPaste),
		Status:          firstNonEmpty(r.Status, model.OrderStatusPending),
		Raw:             json.RawMessage(raw),
	}
	return charge
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
