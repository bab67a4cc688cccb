// Package client 是结账服务的 Go 客户端：创建 PIX 扣款、按订单订阅
// 状态变更 (SSE)，以及驱动前端结账流程的 Flow 状态机。
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config 客户端配置
type Config struct {
	BaseURL    string
	HTTPClient *http.Client

	// 支付确认后的解锁目标，按结账类型区分
	SubscriptionInviteURL string
	WhatsappInviteURL     string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// SSE 连接要挂很久，不能设全局超时，靠 ctx 控制生命周期
		httpClient = &http.Client{}
	}
	return &Client{
		cfg:  cfg,
		http: httpClient,
	}
}

// CheckoutRequest 结账请求
type CheckoutRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document"`
	Amount   int    `json:"amount"`
	Type     string `json:"type"`
}

// PixPayment 网关返回的支付数据
type PixPayment struct {
	TransactionHash string `json:"transaction_hash"`
	QRCode          string `json:"qr_code"`
	PixCode         string `json:"pix_code"`
	Status          string `json:"status"`
	OrderID         string `json:"orderId"`
}

// HasPixData 判断是否至少带回了二维码或复制粘贴码之一
func (p *PixPayment) HasPixData() bool {
	return p != nil && (p.QRCode != "" || p.PixCode != "")
}

// OrderEvent 订单变更事件（服务端整行投递）
type OrderEvent struct {
	ID          string `json:"id"`
	ExternalID  string `json:"external_id"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	AmountCents int    `json:"amount_cents"`
}

// APIError 网关返回的结构化错误
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("checkout API error (%d): %s", e.StatusCode, e.Message)
}

// CreatePix 调用支付创建网关
func (c *Client) CreatePix(ctx context.Context, req CheckoutRequest) (*PixPayment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/checkout/pix", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = "unexpected response from checkout API"
		}
		return nil, apiErr
	}

	var payment PixPayment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// WatchOrder 订阅订单变更事件流。返回的 channel 在 ctx 取消或服务端
// 关闭连接后关闭。
func (c *Client) WatchOrder(ctx context.Context, orderID string) (<-chan OrderEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/orders/"+orderID+"/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "failed to subscribe to order events"}
	}

	out := make(chan OrderEvent, 8)

	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		// QR code base64 可能很长，放宽单行上限
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}

			var ev OrderEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				continue
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// TrackEvent 埋点上报，fire-and-forget：错误只返回给调用方做可选记录，
// 绝不应让页面流程失败
func (c *Client) TrackEvent(ctx context.Context, eventType string) error {
	body, err := json.Marshal(map[string]string{"event_type": eventType})
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.BaseURL+"/analytics/events", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
