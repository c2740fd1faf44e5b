package domain

import (
	"errors"
	"fmt"
)

// Cart limits. They keep every quantity and total well inside int64.
const (
	MaxLineQuantity       = 999
	MaxUnitPrice    Money = 100_000_000
	MaxCartLines          = 100
)

var (
	ErrQuantityLimit = errors.New("line quantity exceeds the limit")
	ErrCartFull      = errors.New("cart has too many lines")
)

// Money is an amount in minor currency units (kuruş, cents).
type Money int64

func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}

// CartLine is one product in a visitor's cart. LineTotal is derived from
// UnitPrice and Quantity and is recomputed on every mutation.
type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice Money `json:"unit_price"`
	LineTotal Money `json:"line_total"`
}

func (l *CartLine) recompute() {
	l.LineTotal = l.UnitPrice * Money(l.Quantity)
}

// Cart is the ordered line list stored as one blob per visitor.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

func (c *Cart) find(productID int64) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add increases the quantity of an existing line or appends a new one. An
// existing line keeps the unit price it was first added with. The cart is left
// untouched when the merged quantity would pass MaxLineQuantity or a new line
// would pass MaxCartLines.
func (c *Cart) Add(productID int64, quantity int, unitPrice Money) error {
	if i := c.find(productID); i >= 0 {
		if quantity > MaxLineQuantity-c.Lines[i].Quantity {
			return ErrQuantityLimit
		}
		c.Lines[i].Quantity += quantity
		c.Lines[i].recompute()
		return nil
	}
	if quantity > MaxLineQuantity {
		return ErrQuantityLimit
	}
	if len(c.Lines) >= MaxCartLines {
		return ErrCartFull
	}
	line := CartLine{ProductID: productID, Quantity: quantity, UnitPrice: unitPrice}
	line.recompute()
	c.Lines = append(c.Lines, line)
	return nil
}

// SetQuantity updates a line, removing it when quantity <= 0. It reports
// false when quantity > 0 and the product is not in the cart.
func (c *Cart) SetQuantity(productID int64, quantity int) bool {
	i := c.find(productID)
	if quantity <= 0 {
		if i >= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		}
		return true
	}
	if i < 0 {
		return false
	}
	c.Lines[i].Quantity = quantity
	c.Lines[i].recompute()
	return true
}

// Remove drops the line for productID if present.
func (c *Cart) Remove(productID int64) {
	if i := c.find(productID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

// Count is the sum of quantities.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Total is the sum of line totals.
func (c *Cart) Total() Money {
	var t Money
	for _, l := range c.Lines {
		t += l.LineTotal
	}
	return t
}
