package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/obelisco/pkg/cart"
	"github.com/example/obelisco/pkg/checkout"
	"github.com/example/obelisco/pkg/config"
	"github.com/example/obelisco/pkg/models"
	"github.com/example/obelisco/pkg/order"
	"github.com/example/obelisco/pkg/repository"
	"github.com/example/obelisco/pkg/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T) (*Gateway, *cart.Store) {
	t.Helper()
	return newTestGatewayWith(t, nil, nil)
}

func newTestGatewayWith(t *testing.T, audit AuditReader, archive ArchiveReader) (*Gateway, *cart.Store) {
	t.Helper()

	cfg := &config.Config{
		Storage: config.StorageConfig{
			CartKey:      "obelisco_cart_v1",
			HistoryKey:   "obelisco_orders_v1",
			LastOrderKey: "obelisco_last_order_v1",
		},
		Checkout: config.CheckoutConfig{
			ShippingCharge: 15.0,
			TaxRate:        0.08,
		},
	}

	logger := zap.NewNop()
	kv := repository.NewMemoryStore()
	store := cart.NewStore(kv, cfg.Storage.CartKey, logger)

	gw := NewGateway(cfg, logger, Deps{
		Store:     store,
		Renderer:  cart.NewRenderer(store),
		Machine:   checkout.NewMachine(),
		Finalizer: order.NewFinalizer(store, kv, order.InstantProcessor{}, cfg, logger),
		Dialog:    ui.NewConfirmDialog(),
		Notifier:  ui.NewNotifier(),
		Audit:     audit,
		Archive:   archive,
	})
	gw.SetupRoutes()
	return gw, store
}

func doJSON(t *testing.T, gw *Gateway, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	gw.Router().ServeHTTP(w, req)
	return w
}

func TestAddItemRequiresExplicitTrigger(t *testing.T) {
	t.Parallel()

	gw, store := newTestGateway(t)

	// Unmarked payloads never mutate the cart.
	w := doJSON(t, gw, http.MethodPost, "/api/v1/cart/items", `{"title":"Mug","price":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.Load(context.Background()))

	// A marked trigger without a title is still ambiguous.
	w = doJSON(t, gw, http.MethodPost, "/api/v1/cart/items", `{"add":true,"price":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.Load(context.Background()))

	// Explicit trigger with product data mutates.
	w = doJSON(t, gw, http.MethodPost, "/api/v1/cart/items", `{"add":true,"title":"Mug","price":10,"quantity":2}`)
	require.Equal(t, http.StatusCreated, w.Code)

	items := store.Load(context.Background())
	require.Len(t, items, 1)
	assert.Equal(t, "Mug", items[0].Title)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestRemoveGoesThroughConfirmation(t *testing.T) {
	t.Parallel()

	gw, store := newTestGateway(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "Mug", 10, 1))

	// Opening the dialog does not remove yet.
	w := doJSON(t, gw, http.MethodDelete, "/api/v1/cart/items/Mug", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, store.Load(ctx), 1)

	// Canceling keeps the item; the callback is dropped.
	w = doJSON(t, gw, http.MethodPost, "/api/v1/cart/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, store.Load(ctx), 1)

	w = doJSON(t, gw, http.MethodPost, "/api/v1/cart/confirm", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, store.Load(ctx), 1)

	// Open again and confirm; now it is removed.
	doJSON(t, gw, http.MethodDelete, "/api/v1/cart/items/Mug", "")
	w = doJSON(t, gw, http.MethodPost, "/api/v1/cart/confirm", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.Load(ctx))
}

func TestReorderEmitsNotification(t *testing.T) {
	t.Parallel()

	gw, store := newTestGateway(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "A", 1, 1))
	require.NoError(t, store.Add(ctx, "B", 2, 1))

	w := doJSON(t, gw, http.MethodPost, "/api/v1/cart/reorder", `{"from":0,"to":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "B", store.Load(ctx)[0].Title)

	w = doJSON(t, gw, http.MethodGet, "/api/v1/notifications", "")
	var resp struct {
		Notifications []ui.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Notifications, 1)

	// Dropping a row onto itself is silent.
	doJSON(t, gw, http.MethodPost, "/api/v1/cart/reorder", `{"from":0,"to":0}`)
	w = doJSON(t, gw, http.MethodGet, "/api/v1/notifications", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Notifications)
}

func TestCheckoutFlow(t *testing.T) {
	t.Parallel()

	gw, store := newTestGateway(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "Mug", 25, 4))

	// Review and submit are unreachable before the earlier steps validate.
	w := doJSON(t, gw, http.MethodGet, "/api/v1/checkout/review", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doJSON(t, gw, http.MethodPost, "/api/v1/checkout/submit", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	// Invalid shipping data keeps checkout on step 1.
	w = doJSON(t, gw, http.MethodPost, "/api/v1/checkout/advance",
		`{"step":2,"fields":{"fullName":"Ada"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	shipping := `{"step":2,"fields":{"fullName":"Ada Lovelace","email":"ada@example.com","phone":"555-0100","address":"Av. 9 de Julio 1000","city":"Buenos Aires","state":"CABA","zipCode":"C1043"}}`
	w = doJSON(t, gw, http.MethodPost, "/api/v1/checkout/advance", shipping)
	require.Equal(t, http.StatusOK, w.Code)

	payment := `{"step":3,"fields":{"cardNumber":"4111 1111 1111 1111","cardName":"Ada Lovelace","expiryDate":"09/29","cvv":"123"}}`
	w = doJSON(t, gw, http.MethodPost, "/api/v1/checkout/advance", payment)
	require.Equal(t, http.StatusOK, w.Code)

	// The review step aggregates fields, items, and totals.
	w = doJSON(t, gw, http.MethodGet, "/api/v1/checkout/review", "")
	require.Equal(t, http.StatusOK, w.Code)
	var review struct {
		Summary checkout.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &review))
	assert.InDelta(t, 123.0, review.Summary.Quote.Total, 0.001)
	require.Len(t, review.Summary.Items, 1)

	w = doJSON(t, gw, http.MethodPost, "/api/v1/checkout/submit", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, store.Load(ctx))

	var submitted struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	assert.Equal(t, 0, submitted.Count)

	// Order is queryable afterwards; checkout reset to step 1.
	w = doJSON(t, gw, http.MethodGet, "/api/v1/orders/last", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, gw, http.MethodGet, "/api/v1/checkout", "")
	var state struct {
		Current int `json:"current"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, checkout.StepShipping, state.Current)
}

type fakeAuditReader struct {
	entries []*repository.AuditEntry
	err     error
}

func (f *fakeAuditReader) Recent(context.Context, string, int64) ([]*repository.AuditEntry, error) {
	return f.entries, f.err
}

type fakeArchiveReader struct {
	orders []models.ArchivedOrder
	err    error
}

func (f *fakeArchiveReader) Recent(context.Context, int) ([]models.ArchivedOrder, error) {
	return f.orders, f.err
}

func TestAuditEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		gw, _ := newTestGateway(t)
		w := doJSON(t, gw, http.MethodGet, "/api/v1/audit", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("lists recent entries", func(t *testing.T) {
		t.Parallel()

		audit := &fakeAuditReader{entries: []*repository.AuditEntry{
			{Action: "add", Entity: "cart"},
			{Action: "remove", Entity: "cart"},
		}}
		gw, _ := newTestGatewayWith(t, audit, nil)

		w := doJSON(t, gw, http.MethodGet, "/api/v1/audit?entity=cart&limit=10", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Entries []repository.AuditEntry `json:"entries"`
			Total   int                     `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Total)
		require.Len(t, resp.Entries, 2)
		assert.Equal(t, "add", resp.Entries[0].Action)
	})
}

func TestOrderArchiveEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		gw, _ := newTestGateway(t)
		w := doJSON(t, gw, http.MethodGet, "/api/v1/orders/archive", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("lists archived orders", func(t *testing.T) {
		t.Parallel()

		archive := &fakeArchiveReader{orders: []models.ArchivedOrder{
			{ID: "ORD-1", Total: 123.0, Status: "confirmed"},
		}}
		gw, _ := newTestGatewayWith(t, nil, archive)

		w := doJSON(t, gw, http.MethodGet, "/api/v1/orders/archive", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Orders []models.ArchivedOrder `json:"orders"`
			Total  int                    `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Total)
		require.Len(t, resp.Orders, 1)
		assert.Equal(t, "ORD-1", resp.Orders[0].ID)
	})
}
