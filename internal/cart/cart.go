package cart

import (
	"slices"

	"stallpos/terminal/internal/domain"
	"stallpos/terminal/internal/store"
)

// Cart is the mutable order being composed at one terminal. It is not
// safe for concurrent use; callers serialize access per terminal.
type Cart struct {
	lines []domain.CartLine
}

func New() *Cart {
	return &Cart{}
}

// Add puts one unit of item in the cart, or bumps the quantity when a
// line for it already exists. Unavailable items are rejected.
func (c *Cart) Add(item domain.MenuItem) error {
	if !item.Available {
		return store.ErrItemUnavailable
	}
	for i := range c.lines {
		if c.lines[i].Item.ID == item.ID {
			c.lines[i].Qty++
			return nil
		}
	}
	c.lines = append(c.lines, domain.CartLine{Item: item, Qty: 1})
	return nil
}

// UpdateQty adjusts a line's quantity by delta, clamping at 1. A nil
// instructions pointer leaves the note untouched; a non-nil pointer
// replaces it, empty string included.
func (c *Cart) UpdateQty(itemID string, delta int, instructions *string) error {
	for i := range c.lines {
		if c.lines[i].Item.ID != itemID {
			continue
		}
		qty := c.lines[i].Qty + delta
		if qty < 1 {
			qty = 1
		}
		c.lines[i].Qty = qty
		if instructions != nil {
			c.lines[i].Instructions = *instructions
		}
		return nil
	}
	return store.ErrNotFound
}

func (c *Cart) Remove(itemID string) error {
	for i := range c.lines {
		if c.lines[i].Item.ID == itemID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Lines returns a copy; callers may hold it across a Clear.
func (c *Cart) Lines() []domain.CartLine {
	return slices.Clone(c.lines)
}
