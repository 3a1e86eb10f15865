package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PatientRef — необязательные данные пациента.
type PatientRef struct {
	Name          string
	ContactNumber string
}

// CartLine — строка корзины. Цена и потолок остатка фиксируются в момент добавления.
type CartLine struct {
	ProductID    int64
	ProductName  string
	SKU          string
	Quantity     int
	UnitPrice    decimal.Decimal
	StockCeiling int
	BatchNumber  string
	ExpiryDate   *time.Time
}

// NewCartLine снимает цену, остаток, серию и срок годности с товара.
func NewCartLine(p Product, quantity int) CartLine {
	var expiry *time.Time
	if p.ExpiryDate != nil {
		t := *p.ExpiryDate
		expiry = &t
	}

	return CartLine{
		ProductID:    p.ID,
		ProductName:  p.Name,
		SKU:          p.SKU,
		Quantity:     quantity,
		UnitPrice:    p.UnitPrice,
		StockCeiling: p.AvailableQuantity,
		BatchNumber:  p.BatchNumber,
		ExpiryDate:   expiry,
	}
}

// LineTotal всегда пересчитывается как quantity × unitPrice.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart — изменяемая корзина одной сессии. Порядок строк — порядок отображения.
type Cart struct {
	Lines   []CartLine
	Patient *PatientRef
	Notes   string
}

// Subtotal — сумма строк.
func (c *Cart) Subtotal() decimal.Decimal {
	return SumLines(c.Lines)
}

// IsEmpty сообщает, что в корзине нет строк.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Clone возвращает глубокую копию корзины.
func (c *Cart) Clone() Cart {
	out := Cart{
		Lines: CloneLines(c.Lines),
		Notes: c.Notes,
	}
	if c.Patient != nil {
		p := *c.Patient
		out.Patient = &p
	}

	return out
}

// SumLines складывает LineTotal по всем строкам.
func SumLines(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}

	return total
}

func CloneLines(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	for i, l := range lines {
		out[i] = l
		if l.ExpiryDate != nil {
			t := *l.ExpiryDate
			out[i].ExpiryDate = &t
		}
	}

	return out
}
