package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePixDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Nome, e-mail e CPF são obrigatórios."}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.CreatePix(context.Background(), CheckoutRequest{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Nome, e-mail e CPF são obrigatórios.", apiErr.Message)
}

func TestWatchOrderParsesEventStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/ord-1/events", r.URL.Path)
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		// 注释行和空行要被忽略
		_, _ = w.Write([]byte(": keepalive\n\n"))
		_, _ = w.Write([]byte("event: update\ndata: {\"id\":\"ord-1\",\"status\":\"paid\",\"amount_cents\":2990}\n\n"))
		flusher.Flush()
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := c.WatchOrder(ctx, "ord-1")
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, "ord-1", ev.ID)
		assert.Equal(t, "paid", ev.Status)
		assert.Equal(t, 2990, ev.AmountCents)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a parsed order event")
	}
}

func TestWatchOrderNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.WatchOrder(context.Background(), "ord-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestTrackEventFireAndForget(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.URL.Path
		_, _ = w.Write([]byte(`{"code":0,"message":"success","data":{"received":true}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	err := c.TrackEvent(context.Background(), "visit")

	assert.NoError(t, err)
	assert.Equal(t, "/analytics/events", <-got)
}
