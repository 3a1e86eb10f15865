package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Issue — неизменяемая завершённая выдача. Создаётся только при успешном оформлении.
type Issue struct {
	IssueNumber string
	Lines       []CartLine
	Patient     *PatientRef
	Notes       string
	CreatedAt   time.Time
	IssuedBy    string
}

// Clone — глубокая копия выдачи.
func (i *Issue) Clone() *Issue {
	if i == nil {
		return nil
	}

	cp := *i
	cp.Lines = CloneLines(i.Lines)
	if i.Patient != nil {
		p := *i.Patient
		cp.Patient = &p
	}

	return &cp
}

// Subtotal пересчитывается из строк, сохранённой суммы у выдачи нет.
func (i *Issue) Subtotal() decimal.Decimal {
	return SumLines(i.Lines)
}

// RejectReason — причина отказа склада по строке.
type RejectReason string

const (
	RejectInsufficientStock RejectReason = "insufficient_stock"
	RejectUnknownProduct    RejectReason = "unknown_product"
)

// RejectedLine — строка, которую склад отказался списать.
type RejectedLine struct {
	ProductID int64
	SKU       string
	Requested int
	Available int
	Reason    RejectReason
}
