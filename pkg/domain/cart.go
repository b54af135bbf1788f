package domain

import "github.com/shopspring/decimal"

// CartLine is one product entry in a cart. UnitPrice is snapshotted at add
// time so in-cart totals are stable while the cart is edited.
type CartLine struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Qty       int
}

// Subtotal is price times quantity for this line.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Cart is the ephemeral working state of one user's shopping session. It is
// owned exclusively by that user and never persisted; stock is authoritative
// only at checkout.
type Cart struct {
	UserID int64
	Lines  []CartLine
}

// Total derives the cart sum from its lines.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// Quantity returns the number of units of a product already in the cart.
func (c *Cart) Quantity(productID string) int {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l.Qty
		}
	}
	return 0
}

// Add merges qty units of a product into the cart.
func (c *Cart) Add(p *Product, qty int) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == p.ID {
			c.Lines[i].Qty += qty
			return
		}
	}
	c.Lines = append(c.Lines, CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Qty:       qty,
	})
}

// Remove drops a product line entirely. It reports whether the line existed.
func (c *Cart) Remove(productID string) bool {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.Lines) == 0 }
