package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/example/obelisco/pkg/cart"
	"github.com/example/obelisco/pkg/config"
	"github.com/example/obelisco/pkg/models"
	"github.com/example/obelisco/pkg/repository"
	"go.uber.org/zap"
)

var (
	// ErrSubmissionInFlight guards against double submission: while one
	// submission is being processed, further attempts are rejected.
	ErrSubmissionInFlight = errors.New("an order submission is already in flight")
	ErrEmptyCart          = errors.New("cannot place an order with an empty cart")
)

// Quote holds the derived totals for a cart.
type Quote struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Processor runs the simulated order processing before confirmation.
type Processor interface {
	Process(ctx context.Context, rec *models.OrderRecord) error
}

// Archiver mirrors a finalized order into durable storage.
type Archiver interface {
	Archive(ctx context.Context, rec *models.OrderRecord) error
}

// Finalizer is the terminal consumer of the cart: it computes totals, builds
// the order record, persists it, and clears the cart. There is no undo.
type Finalizer struct {
	store   *cart.Store
	kv      repository.KeyValue
	proc    Processor
	archive Archiver
	audit   cart.Auditor
	cfg     *config.Config
	logger  *zap.Logger

	mu         sync.Mutex
	submitting bool
}

func NewFinalizer(store *cart.Store, kv repository.KeyValue, proc Processor, cfg *config.Config, logger *zap.Logger) *Finalizer {
	return &Finalizer{
		store:  store,
		kv:     kv,
		proc:   proc,
		cfg:    cfg,
		logger: logger,
	}
}

// WithArchive attaches a durable order archive.
func (f *Finalizer) WithArchive(a Archiver) *Finalizer {
	f.archive = a
	return f
}

// WithAudit attaches an event auditor.
func (f *Finalizer) WithAudit(a cart.Auditor) *Finalizer {
	f.audit = a
	return f
}

// Quote computes subtotal, the configured shipping charge, tax on the
// subtotal, and their sum. Amounts are rounded to cents.
func (f *Finalizer) Quote(c models.Cart) Quote {
	subtotal := round2(c.Subtotal())
	shipping := f.cfg.Checkout.ShippingCharge
	tax := round2(subtotal * f.cfg.Checkout.TaxRate)
	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    round2(subtotal + shipping + tax),
	}
}

// Submit finalizes the current cart: snapshot, totals, a unique order id,
// simulated processing, persistence, then cart clear. Only one submission
// may be in flight at a time; concurrent attempts get
// ErrSubmissionInFlight and exactly one order record is produced.
func (f *Finalizer) Submit(ctx context.Context, fields models.FieldSet) (*models.OrderRecord, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	f.submitting = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	items := f.store.Load(ctx)
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	quote := f.Quote(items)
	snapshot := models.FieldSet{}
	snapshot.Merge(fields)

	rec := &models.OrderRecord{
		ID:       newOrderID(),
		Items:    append([]models.LineItem(nil), items...),
		Subtotal: quote.Subtotal,
		Shipping: quote.Shipping,
		Tax:      quote.Tax,
		Total:    quote.Total,
		Fields:   snapshot,
		PlacedAt: time.Now(),
	}

	// Once processing is accepted it runs to completion; there is no
	// cancellation of the simulated delay.
	if err := f.proc.Process(ctx, rec); err != nil {
		return nil, fmt.Errorf("order processing failed: %w", err)
	}

	if err := f.appendHistory(ctx, rec); err != nil {
		return nil, err
	}
	if err := f.saveLastOrder(ctx, rec); err != nil {
		return nil, err
	}

	if f.archive != nil {
		if err := f.archive.Archive(ctx, rec); err != nil {
			f.logger.Warn("Failed to archive order", zap.String("order_id", rec.ID), zap.Error(err))
		}
	}
	if f.audit != nil {
		data := map[string]interface{}{"order_id": rec.ID, "total": rec.Total}
		if err := f.audit.Record(ctx, "order.placed", "order", data); err != nil {
			f.logger.Warn("Failed to record order audit entry", zap.Error(err))
		}
	}

	if err := f.store.Clear(ctx); err != nil {
		return nil, err
	}

	f.logger.Info("Order placed",
		zap.String("order_id", rec.ID),
		zap.Int("item_count", len(rec.Items)),
		zap.Float64("total", rec.Total))

	return rec, nil
}

// History returns all recorded orders, oldest first. A missing or corrupt
// payload reads as empty.
func (f *Finalizer) History(ctx context.Context) []models.OrderRecord {
	payload, err := f.kv.Get(ctx, f.cfg.Storage.HistoryKey)
	if err != nil {
		if !errors.Is(err, repository.ErrKeyNotFound) {
			f.logger.Warn("Failed to read order history", zap.Error(err))
		}
		return nil
	}

	var history []models.OrderRecord
	if err := json.Unmarshal([]byte(payload), &history); err != nil {
		f.logger.Warn("Corrupt order history payload, treating as empty", zap.Error(err))
		return nil
	}
	return history
}

// LastOrder returns the most recent order record, if one exists.
func (f *Finalizer) LastOrder(ctx context.Context) (*models.OrderRecord, bool) {
	payload, err := f.kv.Get(ctx, f.cfg.Storage.LastOrderKey)
	if err != nil {
		return nil, false
	}

	var rec models.OrderRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		f.logger.Warn("Corrupt last-order payload", zap.Error(err))
		return nil, false
	}
	return &rec, true
}

// appendHistory is a read-modify-write of the shared history key. Last
// writer wins across processes; there is no locking.
func (f *Finalizer) appendHistory(ctx context.Context, rec *models.OrderRecord) error {
	history := f.History(ctx)
	history = append(history, *rec)

	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to serialize order history: %w", err)
	}
	return f.kv.Set(ctx, f.cfg.Storage.HistoryKey, string(payload))
}

func (f *Finalizer) saveLastOrder(ctx context.Context, rec *models.OrderRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize order: %w", err)
	}
	return f.kv.Set(ctx, f.cfg.Storage.LastOrderKey, string(payload))
}

func newOrderID() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixNano())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
