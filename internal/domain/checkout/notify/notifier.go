package notify

import (
	"context"
	"encoding/json"
	"time"

	"pix_checkout/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OrderEvent 订单行变更事件，整行投递给订阅方
type OrderEvent struct {
	ID          string     `json:"id"`
	ExternalID  string     `json:"external_id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	AmountCents int        `json:"amount_cents"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// Notifier 订单变更通知：回调侧发布，SSE 侧按订单 id 订阅
type Notifier interface {
	PublishUpdate(ctx context.Context, ev OrderEvent) error

	// SubscribeOrder 订阅单个订单的变更事件。返回的 channel 在 ctx 取消后关闭；
	// 每个订阅是独立的 redis PubSub 连接，互不影响。
	SubscribeOrder(ctx context.Context, orderID string) (<-chan OrderEvent, error)
}

type redisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) Notifier {
	return &redisNotifier{rdb: rdb}
}

func orderChannel(orderID string) string {
	return "orders:" + orderID
}

func (n *redisNotifier) PublishUpdate(ctx context.Context, ev OrderEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, orderChannel(ev.ID), payload).Err()
}

func (n *redisNotifier) SubscribeOrder(ctx context.Context, orderID string) (<-chan OrderEvent, error) {
	sub := n.rdb.Subscribe(ctx, orderChannel(orderID))

	// 确认订阅建立，避免发布先于订阅生效
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan OrderEvent, 8)
	msgs := sub.Channel()

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev OrderEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Log.Warn("Dropping malformed order event",
						zap.String("order_id", orderID),
						zap.Error(err),
					)
					continue
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
