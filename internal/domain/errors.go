package domain

import (
	"fmt"
	"strings"

	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
)

// StockError — запрошено больше, чем позволяет потолок остатка строки.
type StockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (s *StockError) Error() string {
	return fmt.Sprintf("%s: %q requested %d, available %d", e.ErrInsufficientStock, s.ProductName, s.Requested, s.Available)
}

func (s *StockError) Unwrap() error {
	return e.ErrInsufficientStock
}

// RejectionError — склад отклонил оформление целиком; Lines называет виновные строки.
type RejectionError struct {
	Lines []RejectedLine
}

func (r *RejectionError) Error() string {
	parts := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		parts = append(parts, fmt.Sprintf("%s (%s)", l.SKU, l.Reason))
	}

	return fmt.Sprintf("%s: %s", e.ErrFulfillmentRejected, strings.Join(parts, ", "))
}

func (r *RejectionError) Unwrap() error {
	return e.ErrFulfillmentRejected
}
