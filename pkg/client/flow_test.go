package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	createStatus int
	createBody   string
	orderEvents  []OrderEvent
	watchCount   atomic.Int32
}

func (b *fakeBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/checkout/pix", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if b.createStatus != 0 {
			w.WriteHeader(b.createStatus)
		}
		_, _ = w.Write([]byte(b.createBody))
	})

	mux.HandleFunc("/orders/", func(w http.ResponseWriter, r *http.Request) {
		b.watchCount.Add(1)
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for _, ev := range b.orderEvents {
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "event: update\ndata: %s\n\n", data)
			flusher.Flush()
		}

		// 没有服务端超时：连接保持到客户端断开
		<-r.Context().Done()
	})

	mux.HandleFunc("/analytics/events", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"message":"success","data":{"received":true}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFlow(t *testing.T, backend *fakeBackend) (*Flow, chan State) {
	t.Helper()
	srv := backend.server(t)

	c := New(Config{
		BaseURL:               srv.URL,
		SubscriptionInviteURL: "https://chat.whatsapp.com/sub-invite",
		WhatsappInviteURL:     "https://chat.whatsapp.com/vip-invite",
	})

	states := make(chan State, 16)
	flow := NewFlow(c)
	flow.OnTransition = func(s State) { states <- s }
	return flow, states
}

func waitForState(t *testing.T, states chan State, want State) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s := <-states:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %q", want)
		}
	}
}

func TestFlowPaidSubscription(t *testing.T) {
	backend := &fakeBackend{
		createBody: `{"transaction_hash":"abc123","pix_code":"000201pix","status":"pending","orderId":"ord-1"}`,
		orderEvents: []OrderEvent{
			{ID: "ord-1", ExternalID: "abc123", Type: "subscription", Status: "pending", AmountCents: 2990},
			{ID: "ord-1", ExternalID: "abc123", Type: "subscription", Status: "paid", AmountCents: 2990},
		},
	}
	flow, states := newTestFlow(t, backend)
	defer flow.Stop()

	err := flow.Checkout(context.Background(), 2990, TypeSubscription)
	require.NoError(t, err)

	waitForState(t, states, StateCreating)
	waitForState(t, states, StateAwaitingPayment)
	waitForState(t, states, StatePaid)

	assert.Equal(t, StatePaid, flow.State())
	assert.Equal(t, "https://chat.whatsapp.com/sub-invite", flow.UnlockURL())
	assert.Equal(t, "000201pix", flow.Payment().PixCode)
}

func TestFlowPaidWhatsapp(t *testing.T) {
	backend := &fakeBackend{
		createBody: `{"transaction_hash":"def456","qr_code":"data:image/png;base64,xyz","status":"pending","orderId":"ord-2"}`,
		orderEvents: []OrderEvent{
			{ID: "ord-2", ExternalID: "def456", Type: "whatsapp", Status: "paid", AmountCents: 15000},
		},
	}
	flow, states := newTestFlow(t, backend)
	defer flow.Stop()

	err := flow.Checkout(context.Background(), 15000, TypeWhatsapp)
	require.NoError(t, err)

	waitForState(t, states, StatePaid)
	assert.Equal(t, "https://chat.whatsapp.com/vip-invite", flow.UnlockURL(),
		"whatsapp checkout must unlock a destination distinct from subscription")
}

func TestFlowGatewayError(t *testing.T) {
	backend := &fakeBackend{
		createStatus: http.StatusBadRequest,
		createBody:   `{"error":"CPF deve conter 11 números."}`,
	}
	flow, states := newTestFlow(t, backend)

	err := flow.Checkout(context.Background(), 2990, TypeSubscription)

	assert.Error(t, err)
	waitForState(t, states, StateError)
	assert.Equal(t, "CPF deve conter 11 números.", flow.ErrMessage())
	assert.Empty(t, flow.UnlockURL())
	assert.Equal(t, int32(0), backend.watchCount.Load(), "no subscription on gateway failure")
}

func TestFlowNoPixData(t *testing.T) {
	backend := &fakeBackend{
		createBody: `{"transaction_hash":"abc123","status":"pending","orderId":"ord-1"}`,
	}
	flow, states := newTestFlow(t, backend)

	err := flow.Checkout(context.Background(), 2990, TypeSubscription)

	assert.Error(t, err)
	waitForState(t, states, StateError)
	assert.NotEmpty(t, flow.ErrMessage())
	assert.Equal(t, int32(0), backend.watchCount.Load())
}

func TestFlowStaysPendingWithoutPaidEvent(t *testing.T) {
	backend := &fakeBackend{
		createBody: `{"transaction_hash":"abc123","pix_code":"000201pix","status":"pending","orderId":"ord-1"}`,
		orderEvents: []OrderEvent{
			{ID: "ord-1", ExternalID: "abc123", Type: "subscription", Status: "pending", AmountCents: 2990},
		},
	}
	flow, states := newTestFlow(t, backend)
	defer flow.Stop()

	require.NoError(t, flow.Checkout(context.Background(), 2990, TypeSubscription))
	waitForState(t, states, StateAwaitingPayment)

	// pending 事件不触发解锁，状态保持 awaiting_payment
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, StateAwaitingPayment, flow.State())
	assert.Empty(t, flow.UnlockURL())
}

func TestFlowSingleActiveWatch(t *testing.T) {
	backend := &fakeBackend{
		createBody: `{"transaction_hash":"abc123","pix_code":"000201pix","status":"pending","orderId":"ord-1"}`,
	}
	flow, states := newTestFlow(t, backend)

	require.NoError(t, flow.Checkout(context.Background(), 2990, TypeSubscription))
	waitForState(t, states, StateAwaitingPayment)

	// 重新结账会先拆掉旧订阅再建新订阅
	require.NoError(t, flow.Checkout(context.Background(), 2990, TypeSubscription))

	flow.Stop()
	assert.Equal(t, int32(2), backend.watchCount.Load())

	flow.Stop() // Stop 幂等
}
