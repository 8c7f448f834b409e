package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kite-futures-bot/internal/engine"
	"kite-futures-bot/internal/types"
)

type fakeEntry struct {
	err       error
	orderID   string
	calls     int
	direction types.Side
	price     float64
}

func (f *fakeEntry) TryEnter(ctx context.Context, direction types.Side, refPrice float64) (string, error) {
	f.calls++
	f.direction = direction
	f.price = refPrice
	return f.orderID, f.err
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestWebhookAuth(t *testing.T) {
	entry := &fakeEntry{}
	srv := New(entry, "s3cret")

	w := post(t, srv.Handler(), `{"secret":"wrong","direction":"LONG","price":100}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, entry.calls, "unauthorized requests must not reach the engine")
}

func TestWebhookMalformedPayload(t *testing.T) {
	entry := &fakeEntry{}
	srv := New(entry, "s3cret")

	w := post(t, srv.Handler(), `{"secret":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, entry.calls)
}

func TestWebhookTestProbe(t *testing.T) {
	entry := &fakeEntry{}
	srv := New(entry, "s3cret")

	w := post(t, srv.Handler(), `{"secret":"s3cret","direction":"test"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test successful")
	assert.Zero(t, entry.calls, "the probe must have no side effects")
}

func TestWebhookEntry(t *testing.T) {
	t.Run("accepted signal", func(t *testing.T) {
		entry := &fakeEntry{orderID: "OID-77"}
		srv := New(entry, "s3cret")

		w := post(t, srv.Handler(), `{"secret":"s3cret","direction":"long","price":812.4}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "OID-77")
		assert.Equal(t, types.SideLong, entry.direction, "direction is case-insensitive")
		assert.InDelta(t, 812.4, entry.price, 1e-9)
	})

	t.Run("invalid direction", func(t *testing.T) {
		entry := &fakeEntry{err: engine.ErrInvalidSignal}
		srv := New(entry, "s3cret")

		w := post(t, srv.Handler(), `{"secret":"s3cret","direction":"SIDEWAYS","price":100}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("already active is not an error", func(t *testing.T) {
		entry := &fakeEntry{err: engine.ErrAlreadyActive}
		srv := New(entry, "s3cret")

		w := post(t, srv.Handler(), `{"secret":"s3cret","direction":"SHORT","price":100}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "already in a trade")
	})

	t.Run("no confirmation is not an error", func(t *testing.T) {
		entry := &fakeEntry{err: engine.ErrNoConfirmation}
		srv := New(entry, "s3cret")

		w := post(t, srv.Handler(), `{"secret":"s3cret","direction":"LONG","price":100}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "no confirmation")
	})

	t.Run("data unavailable maps to bad gateway", func(t *testing.T) {
		entry := &fakeEntry{err: engine.ErrDataUnavailable}
		srv := New(entry, "s3cret")

		w := post(t, srv.Handler(), `{"secret":"s3cret","direction":"LONG","price":100}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("unexpected failure maps to internal error", func(t *testing.T) {
		entry := &fakeEntry{err: errors.New("order rejected")}
		srv := New(entry, "s3cret")

		w := post(t, srv.Handler(), `{"secret":"s3cret","direction":"LONG","price":100}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHealthz(t *testing.T) {
	srv := New(&fakeEntry{}, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
