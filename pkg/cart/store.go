package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/example/obelisco/pkg/models"
	"github.com/example/obelisco/pkg/repository"
	"go.uber.org/zap"
)

var (
	ErrEmptyTitle      = errors.New("line item title must not be empty")
	ErrIndexOutOfRange = errors.New("reorder index out of range")
)

// Auditor receives a record of each cart mutation. A nil auditor disables
// auditing.
type Auditor interface {
	Record(ctx context.Context, action, entity string, data map[string]interface{}) error
}

// Store owns the canonical cart. Every mutation loads the persisted payload,
// applies the change, and writes the full payload back before returning, so
// the in-memory view and the persisted view never diverge.
type Store struct {
	kv     repository.KeyValue
	key    string
	audit  Auditor
	logger *zap.Logger
}

func NewStore(kv repository.KeyValue, key string, logger *zap.Logger) *Store {
	return &Store{
		kv:     kv,
		key:    key,
		logger: logger,
	}
}

// WithAudit attaches a mutation auditor.
func (s *Store) WithAudit(a Auditor) *Store {
	s.audit = a
	return s
}

// Load deserializes the persisted cart. A missing or malformed payload
// yields an empty cart; load never fails.
func (s *Store) Load(ctx context.Context) models.Cart {
	payload, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, repository.ErrKeyNotFound) {
			s.logger.Warn("Failed to read cart payload, treating as empty", zap.Error(err))
		}
		return models.Cart{}
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(payload), &cart); err != nil {
		s.logger.Warn("Corrupt cart payload, treating as empty", zap.Error(err))
		return models.Cart{}
	}
	return cart
}

// Save serializes and persists the full cart, overwriting any prior value.
func (s *Store) Save(ctx context.Context, cart models.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to serialize cart: %w", err)
	}
	return s.kv.Set(ctx, s.key, string(payload))
}

// Add merges into an existing item with the same title, incrementing its
// quantity, or appends a new one. An invalid price is coerced to 0 and a
// non-positive quantity to 1.
func (s *Store) Add(ctx context.Context, title string, price float64, quantity int) error {
	if title == "" {
		return ErrEmptyTitle
	}
	if price < 0 || math.IsNaN(price) {
		price = 0
	}
	if quantity < 1 {
		quantity = 1
	}

	cart := s.Load(ctx)
	if i := cart.IndexOf(title); i >= 0 {
		cart[i].Quantity += quantity
	} else {
		cart = append(cart, models.LineItem{Title: title, UnitPrice: price, Quantity: quantity})
	}

	if err := s.Save(ctx, cart); err != nil {
		return err
	}
	s.recordAudit(ctx, "cart.add", map[string]interface{}{"title": title, "quantity": quantity})
	return nil
}

// Remove deletes the item matching title. Absent titles are a no-op.
func (s *Store) Remove(ctx context.Context, title string) error {
	cart := s.Load(ctx)
	i := cart.IndexOf(title)
	if i < 0 {
		return nil
	}
	cart = append(cart[:i], cart[i+1:]...)

	if err := s.Save(ctx, cart); err != nil {
		return err
	}
	s.recordAudit(ctx, "cart.remove", map[string]interface{}{"title": title})
	return nil
}

// SetQuantity sets the quantity for title, clamped to a minimum of 1.
// Absent titles are a no-op.
func (s *Store) SetQuantity(ctx context.Context, title string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	cart := s.Load(ctx)
	i := cart.IndexOf(title)
	if i < 0 {
		return nil
	}
	cart[i].Quantity = quantity

	if err := s.Save(ctx, cart); err != nil {
		return err
	}
	s.recordAudit(ctx, "cart.set_quantity", map[string]interface{}{"title": title, "quantity": quantity})
	return nil
}

// Reorder removes the item at from and reinserts it at to. Indices originate
// from a render pass; out-of-range values are a contract violation.
func (s *Store) Reorder(ctx context.Context, from, to int) error {
	cart := s.Load(ctx)
	if from < 0 || from >= len(cart) || to < 0 || to >= len(cart) {
		return fmt.Errorf("%w: from=%d to=%d len=%d", ErrIndexOutOfRange, from, to, len(cart))
	}
	if from == to {
		return nil
	}

	item := cart[from]
	cart = append(cart[:from], cart[from+1:]...)
	cart = append(cart[:to], append(models.Cart{item}, cart[to:]...)...)

	if err := s.Save(ctx, cart); err != nil {
		return err
	}
	s.recordAudit(ctx, "cart.reorder", map[string]interface{}{"from": from, "to": to})
	return nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.Save(ctx, models.Cart{}); err != nil {
		return err
	}
	s.recordAudit(ctx, "cart.clear", nil)
	return nil
}

// TotalItemCount is the sum of quantities across all items, used for the
// badge display.
func (s *Store) TotalItemCount(ctx context.Context) int {
	return s.Load(ctx).ItemCount()
}

func (s *Store) recordAudit(ctx context.Context, action string, data map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, action, "cart", data); err != nil {
		s.logger.Warn("Failed to record audit entry", zap.String("action", action), zap.Error(err))
	}
}
