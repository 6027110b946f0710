package cart

import (
	"context"
	"fmt"
	"sync"
)

// Row is one display row of the cart view.
type Row struct {
	Index     int     `json:"index"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

// View is the full projection of the cart for display. Empty carts render
// an explicit empty-state message and a zero grand total.
type View struct {
	Rows         []Row   `json:"rows"`
	GrandTotal   float64 `json:"grand_total"`
	Empty        bool    `json:"empty"`
	EmptyMessage string  `json:"empty_message,omitempty"`
	ItemCount    int     `json:"item_count"`
}

const emptyCartMessage = "Tu carrito está vacío."

// FormatMoney renders an amount the way the cart page displays it.
func FormatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// DragSession tracks one in-flight drag gesture: the source row and the row
// currently hovered as a drop target.
type DragSession struct {
	SourceIndex int
	OverIndex   int
}

// Renderer projects store state into a View and owns the drag-reorder
// session. Each Render call fully recomputes the row set; there is no
// incremental diffing.
type Renderer struct {
	store *Store

	mu   sync.Mutex
	drag *DragSession
}

func NewRenderer(store *Store) *Renderer {
	return &Renderer{store: store}
}

// Render reads the current cart and computes one row per item plus the
// grand total.
func (r *Renderer) Render(ctx context.Context) View {
	cart := r.store.Load(ctx)
	if len(cart) == 0 {
		return View{
			Rows:         []Row{},
			Empty:        true,
			EmptyMessage: emptyCartMessage,
		}
	}

	view := View{Rows: make([]Row, 0, len(cart))}
	for i, item := range cart {
		lineTotal := item.UnitPrice * float64(item.Quantity)
		view.GrandTotal += lineTotal
		view.ItemCount += item.Quantity
		view.Rows = append(view.Rows, Row{
			Index:     i,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		})
	}
	return view
}

// BeginDrag marks the row at index as the drag source, replacing any
// previous session.
func (r *Renderer) BeginDrag(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drag = &DragSession{SourceIndex: index, OverIndex: -1}
}

// DragOver marks the row currently hovered as a drop target.
func (r *Renderer) DragOver(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drag != nil {
		r.drag.OverIndex = index
	}
}

// Drop completes the gesture onto the row at target. Dropping without a
// session or onto the source row is a no-op. Returns whether the cart was
// reordered.
func (r *Renderer) Drop(ctx context.Context, target int) (bool, error) {
	r.mu.Lock()
	session := r.drag
	r.mu.Unlock()

	if session == nil || session.SourceIndex == target {
		return false, nil
	}
	if err := r.store.Reorder(ctx, session.SourceIndex, target); err != nil {
		return false, err
	}
	return true, nil
}

// EndDrag clears the session. It must run at the end of every gesture,
// whatever the outcome, so no drag-over state lingers.
func (r *Renderer) EndDrag() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drag = nil
}

// Dragging reports the active session, if any.
func (r *Renderer) Dragging() *DragSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drag == nil {
		return nil
	}
	copied := *r.drag
	return &copied
}
