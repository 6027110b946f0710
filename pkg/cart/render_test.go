package cart

import (
	"context"
	"testing"

	"github.com/example/obelisco/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderComputesTotals(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, models.Cart{
		{Title: "X", UnitPrice: 10, Quantity: 2},
		{Title: "Y", UnitPrice: 5, Quantity: 1},
	}))

	view := NewRenderer(store).Render(ctx)

	require.Len(t, view.Rows, 2)
	assert.False(t, view.Empty)
	assert.Equal(t, 20.0, view.Rows[0].LineTotal)
	assert.Equal(t, 5.0, view.Rows[1].LineTotal)
	assert.InDelta(t, 25.0, view.GrandTotal, 0.001)
	assert.Equal(t, "$25.00", FormatMoney(view.GrandTotal))
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, 0, view.Rows[0].Index)
	assert.Equal(t, 1, view.Rows[1].Index)
}

func TestRenderEmptyCart(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	view := NewRenderer(store).Render(context.Background())

	assert.True(t, view.Empty)
	assert.NotEmpty(t, view.EmptyMessage)
	assert.Empty(t, view.Rows)
	assert.Equal(t, 0.0, view.GrandTotal)
	assert.Equal(t, "$0.00", FormatMoney(view.GrandTotal))
}

func TestRenderIsTotal(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	renderer := NewRenderer(store)

	require.NoError(t, store.Add(ctx, "A", 1, 1))
	first := renderer.Render(ctx)
	require.Len(t, first.Rows, 1)

	// Every render fully replaces the row set from current store state.
	require.NoError(t, store.Add(ctx, "B", 2, 1))
	require.NoError(t, store.Remove(ctx, "A"))
	second := renderer.Render(ctx)
	require.Len(t, second.Rows, 1)
	assert.Equal(t, "B", second.Rows[0].Title)
}

func TestDragReorder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	seed := models.Cart{
		{Title: "A", UnitPrice: 1, Quantity: 1},
		{Title: "B", UnitPrice: 2, Quantity: 1},
		{Title: "C", UnitPrice: 3, Quantity: 1},
	}

	t.Run("drop_on_other_row_reorders", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Save(ctx, seed))
		r := NewRenderer(store)

		r.BeginDrag(0)
		r.DragOver(2)
		moved, err := r.Drop(ctx, 2)
		r.EndDrag()

		require.NoError(t, err)
		assert.True(t, moved)
		assert.Equal(t, "B", store.Load(ctx)[0].Title)
		assert.Nil(t, r.Dragging())
	})

	t.Run("drop_on_self_is_noop", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Save(ctx, seed))
		r := NewRenderer(store)

		r.BeginDrag(1)
		moved, err := r.Drop(ctx, 1)
		r.EndDrag()

		require.NoError(t, err)
		assert.False(t, moved)
		assert.Equal(t, "A", store.Load(ctx)[0].Title)
	})

	t.Run("drop_without_session_is_noop", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Save(ctx, seed))
		r := NewRenderer(store)

		moved, err := r.Drop(ctx, 2)
		require.NoError(t, err)
		assert.False(t, moved)
	})

	t.Run("end_drag_always_clears_session", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Save(ctx, seed))
		r := NewRenderer(store)

		// Gesture canceled without a drop still clears.
		r.BeginDrag(0)
		r.DragOver(1)
		require.NotNil(t, r.Dragging())
		r.EndDrag()
		assert.Nil(t, r.Dragging())

		// A failed drop clears too.
		r.BeginDrag(0)
		_, err := r.Drop(ctx, 99)
		assert.Error(t, err)
		r.EndDrag()
		assert.Nil(t, r.Dragging())
	})

	t.Run("begin_replaces_previous_session", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Save(ctx, seed))
		r := NewRenderer(store)

		r.BeginDrag(0)
		r.BeginDrag(2)
		session := r.Dragging()
		require.NotNil(t, session)
		assert.Equal(t, 2, session.SourceIndex)
		r.EndDrag()
	})
}
