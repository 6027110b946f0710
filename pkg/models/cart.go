package models

// LineItem is one product entry in the cart. Title is the unique key within
// a cart; quantity never drops below 1.
type LineItem struct {
	Title     string  `json:"title"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"qty"`
}

// Cart is the ordered sequence of line items for the current session. Order
// carries no meaning beyond display order, but it is persisted.
type Cart []LineItem

// IndexOf returns the position of the item with the given title, or -1.
func (c Cart) IndexOf(title string) int {
	for i, it := range c {
		if it.Title == title {
			return i
		}
	}
	return -1
}

// ItemCount is the sum of quantities across all items.
func (c Cart) ItemCount() int {
	count := 0
	for _, it := range c {
		count += it.Quantity
	}
	return count
}

// Subtotal is the sum of line totals across all items.
func (c Cart) Subtotal() float64 {
	total := 0.0
	for _, it := range c {
		total += it.UnitPrice * float64(it.Quantity)
	}
	return total
}
