package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает позицию каталога в том виде, в каком её отдаёт склад.
// AvailableQuantity — снимок остатка на момент загрузки, ядро его не изменяет.
type Product struct {
	ID                int64
	Name              string
	SKU               string
	Category          string
	UnitPrice         decimal.Decimal
	AvailableQuantity int
	BatchNumber       string     // пустая строка — серия не указана
	ExpiryDate        *time.Time // nil — срок годности не указан
}

// InStock сообщает, есть ли товар в наличии.
func (p Product) InStock() bool {
	return p.AvailableQuantity > 0
}

// Matches — регистронезависимый поиск подстроки по названию, SKU и категории.
// Пустой запрос совпадает с любым товаром.
func (p Product) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}

	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.SKU), q) ||
		strings.Contains(strings.ToLower(p.Category), q)
}
