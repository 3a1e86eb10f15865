package usecase

import (
	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxPolicy — точка расширения для налоговой ставки.
type TaxPolicy interface {
	Tax(subtotal decimal.Decimal) decimal.Decimal
}

// ZeroTax — политика по умолчанию: налог всегда ноль.
type ZeroTax struct{}

func (ZeroTax) Tax(decimal.Decimal) decimal.Decimal { return decimal.Zero }

// CartEngine владеет корзиной одной сессии.
// Не потокобезопасен: сериализацию обеспечивает IssueFinalizer.
type CartEngine struct {
	cart     domain.Cart
	tax      TaxPolicy
	revision string
}

func NewCartEngine(tax TaxPolicy) *CartEngine {
	if tax == nil {
		tax = ZeroTax{}
	}

	return &CartEngine{
		tax:      tax,
		revision: uuid.NewString(),
	}
}

// AddLine добавляет товар. Для существующей строки эквивалентен UpdateQuantity(existing + quantity).
// При ошибке корзина не меняется.
func (c *CartEngine) AddLine(p domain.Product, quantity int) error {
	const op = "CartEngine.AddLine"

	if quantity < 1 {
		return e.Wrap(op, e.ErrInvalidQuantity)
	}

	if i := c.indexOf(p.ID); i >= 0 {
		line := c.cart.Lines[i]
		// сравнение без сложения: existing + quantity может переполнить int
		if quantity > line.StockCeiling-line.Quantity {
			return e.Wrap(op, &domain.StockError{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Requested:   quantity,
				Available:   line.StockCeiling - line.Quantity,
			})
		}

		if err := c.UpdateQuantity(p.ID, line.Quantity+quantity); err != nil {
			return e.Wrap(op, err)
		}
		return nil
	}

	if quantity > p.AvailableQuantity {
		return e.Wrap(op, &domain.StockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   quantity,
			Available:   p.AvailableQuantity,
		})
	}

	c.cart.Lines = append(c.cart.Lines, domain.NewCartLine(p, quantity))
	c.touch()

	return nil
}

// UpdateQuantity задаёт количество строки. quantity < 1 удаляет строку.
func (c *CartEngine) UpdateQuantity(productID int64, quantity int) error {
	const op = "CartEngine.UpdateQuantity"

	i := c.indexOf(productID)
	if i < 0 {
		if quantity < 1 {
			return nil
		}
		return e.Wrap(op, e.ErrLineNotFound)
	}

	if quantity < 1 {
		c.RemoveLine(productID)
		return nil
	}

	line := c.cart.Lines[i]
	if quantity > line.StockCeiling {
		return e.Wrap(op, &domain.StockError{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Requested:   quantity,
			Available:   line.StockCeiling,
		})
	}

	if line.Quantity != quantity {
		c.cart.Lines[i].Quantity = quantity
		c.touch()
	}

	return nil
}

// RemoveLine идемпотентен: отсутствующий товар — не ошибка.
func (c *CartEngine) RemoveLine(productID int64) {
	i := c.indexOf(productID)
	if i < 0 {
		return
	}

	c.cart.Lines = append(c.cart.Lines[:i:i], c.cart.Lines[i+1:]...)
	if len(c.cart.Lines) == 0 {
		c.cart.Lines = nil
	}
	c.touch()
}

// Clear сбрасывает строки, пациента и примечание.
func (c *CartEngine) Clear() {
	if c.cart.IsEmpty() && c.cart.Patient == nil && c.cart.Notes == "" {
		return
	}

	c.cart = domain.Cart{}
	c.touch()
}

func (c *CartEngine) SetPatient(p *domain.PatientRef) {
	if p == nil {
		c.cart.Patient = nil
	} else {
		cp := *p
		c.cart.Patient = &cp
	}
	c.touch()
}

func (c *CartEngine) SetNotes(notes string) {
	c.cart.Notes = notes
	c.touch()
}

// Line возвращает строку по товару.
func (c *CartEngine) Line(productID int64) (domain.CartLine, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.cart.Lines[i], true
	}

	return domain.CartLine{}, false
}

// Lines возвращает копию строк в порядке отображения.
func (c *CartEngine) Lines() []domain.CartLine {
	return domain.CloneLines(c.cart.Lines)
}

func (c *CartEngine) Subtotal() decimal.Decimal {
	return c.cart.Subtotal()
}

func (c *CartEngine) Tax() decimal.Decimal {
	return c.tax.Tax(c.Subtotal())
}

// Total = Subtotal + Tax, всегда пересчитывается из строк.
func (c *CartEngine) Total() decimal.Decimal {
	subtotal := c.Subtotal()
	return subtotal.Add(c.tax.Tax(subtotal))
}

func (c *CartEngine) IsEmpty() bool {
	return c.cart.IsEmpty()
}

// Snapshot — глубокая копия корзины, замороженная для оформления.
func (c *CartEngine) Snapshot() domain.Cart {
	return c.cart.Clone()
}

// Revision меняется при каждом успешном изменении корзины.
func (c *CartEngine) Revision() string {
	return c.revision
}

func (c *CartEngine) indexOf(productID int64) int {
	for i, l := range c.cart.Lines {
		if l.ProductID == productID {
			return i
		}
	}

	return -1
}

func (c *CartEngine) touch() {
	c.revision = uuid.NewString()
}
