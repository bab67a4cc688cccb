package client

import (
	"context"
	"sync"
)

// State 一次结账尝试的状态机
type State string

const (
	StateIdle            State = "idle"
	StateCreating        State = "creating"
	StateAwaitingPayment State = "awaiting_payment"
	StatePaid            State = "paid"
	StateError           State = "error"
)

// 结账类型，与服务端 order.type 一致
const (
	TypeSubscription = "subscription"
	TypeWhatsapp     = "whatsapp"
)

const retryableMessage = "Não foi possível gerar o pagamento PIX. Tente novamente em alguns minutos."

// watchHandle 单个订单的订阅句柄。同一时刻 Flow 至多持有一个活跃句柄：
// 切换订单或关闭流程时先停掉旧句柄再建新的。
type watchHandle struct {
	orderID string
	cancel  context.CancelFunc
	done    chan struct{}
}

func (h *watchHandle) stop() {
	h.cancel()
	<-h.done
}

// Flow 结账状态机: idle → creating → awaiting_payment → {paid, error}。
// 点击购买即乐观进入 creating（弹窗立刻打开），拿到二维码/复制粘贴码后
// 进入 awaiting_payment 并订阅订单，收到 paid 事件后进入 paid 并给出
// 解锁链接。失败停在 error，由用户手动重试。
type Flow struct {
	client *Client

	mu        sync.Mutex
	state     State
	payment   *PixPayment
	orderType string
	errMsg    string
	unlockURL string
	watch     *watchHandle

	// OnTransition 可选回调，在每次状态迁移后调用（持锁外）
	OnTransition func(State)
}

func NewFlow(c *Client) *Flow {
	return &Flow{
		client: c,
		state:  StateIdle,
	}
}

// Checkout 发起一次结账尝试。阻塞到网关返回为止；支付确认是异步的，
// 通过状态/回调观察。
func (f *Flow) Checkout(ctx context.Context, amountCents int, orderType string) error {
	f.setState(StateCreating, "")

	payment, err := f.client.CreatePix(ctx, CheckoutRequest{
		Name:     "Cliente",
		Email:    "cliente@example.com",
		Document: "12345678909",
		Amount:   amountCents,
		Type:     orderType,
	})
	if err != nil {
		msg := retryableMessage
		if apiErr, ok := err.(*APIError); ok && apiErr.Message != "" {
			msg = apiErr.Message
		}
		f.setState(StateError, msg)
		return err
	}

	if !payment.HasPixData() {
		f.setState(StateError, retryableMessage)
		return &APIError{StatusCode: 200, Message: retryableMessage}
	}

	f.mu.Lock()
	f.payment = payment
	f.orderType = orderType
	f.mu.Unlock()
	f.setState(StateAwaitingPayment, "")

	// 订单没落库 (orderId 为空) 时无从订阅，停在 awaiting_payment
	if payment.OrderID != "" {
		if err := f.startWatch(ctx, payment.OrderID); err != nil {
			return err
		}
	}

	return nil
}

// startWatch 建立订单订阅，先拆掉已有句柄（至多一个活跃订阅）
func (f *Flow) startWatch(ctx context.Context, orderID string) error {
	f.mu.Lock()
	old := f.watch
	f.watch = nil
	f.mu.Unlock()

	if old != nil {
		old.stop()
	}

	wctx, cancel := context.WithCancel(ctx)
	events, err := f.client.WatchOrder(wctx, orderID)
	if err != nil {
		cancel()
		return err
	}

	handle := &watchHandle{
		orderID: orderID,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	f.mu.Lock()
	f.watch = handle
	f.mu.Unlock()

	go func() {
		defer close(handle.done)
		for ev := range events {
			if ev.Status == "paid" {
				f.markPaid()
				return
			}
		}
	}()

	return nil
}

// markPaid paid 事件到达：关闭支付弹窗、按类型选择解锁目标并安排订阅拆除
func (f *Flow) markPaid() {
	f.mu.Lock()
	switch f.orderType {
	case TypeWhatsapp:
		f.unlockURL = f.client.cfg.WhatsappInviteURL
	default:
		f.unlockURL = f.client.cfg.SubscriptionInviteURL
	}
	watch := f.watch
	f.watch = nil
	f.mu.Unlock()

	f.setState(StatePaid, "")

	if watch != nil {
		// 事件回调还在就地运行，异步取消避免自我等待
		go watch.cancel()
	}
}

// Stop 拆除活跃订阅（视图卸载时调用）
func (f *Flow) Stop() {
	f.mu.Lock()
	watch := f.watch
	f.watch = nil
	f.mu.Unlock()

	if watch != nil {
		watch.stop()
	}
}

func (f *Flow) setState(s State, errMsg string) {
	f.mu.Lock()
	f.state = s
	f.errMsg = errMsg
	cb := f.OnTransition
	f.mu.Unlock()

	if cb != nil {
		cb(s)
	}
}

// State 当前状态
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Payment 网关返回的支付数据（awaiting_payment 之后非 nil）
func (f *Flow) Payment() *PixPayment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payment
}

// ErrMessage 用户可见的错误文案（state == error 时）
func (f *Flow) ErrMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

// UnlockURL 支付确认后的解锁链接（state == paid 时）
func (f *Flow) UnlockURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unlockURL
}
