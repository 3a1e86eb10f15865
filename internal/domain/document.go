package domain

import (
	"fmt"

	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/shopspring/decimal"
)

// Format — вид печатного документа.
type Format string

const (
	FormatFullPage Format = "full-page"
	FormatThermal  Format = "thermal"
)

// ParseFormat проверяет, что формат входит в закрытый набор.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatFullPage, FormatThermal:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%w: %q", e.ErrUnknownFormat, s)
	}
}

// SectionKind — тип раздела документа.
type SectionKind string

const (
	SectionHeader    SectionKind = "header"
	SectionBillTo    SectionKind = "bill_to"
	SectionItems     SectionKind = "items"
	SectionTotals    SectionKind = "totals"
	SectionFooter    SectionKind = "footer"
	SectionSignature SectionKind = "signature"
)

// Align — подсказка выравнивания для печатного коллаборатора.
type Align string

const (
	AlignLeft  Align = "left"
	AlignRight Align = "right"
)

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

type Section struct {
	Kind   SectionKind `json:"kind"`
	Title  string      `json:"title,omitempty"`
	Fields []Field     `json:"fields,omitempty"`
	Table  *Table      `json:"table,omitempty"`
	Align  Align       `json:"align"`
}

// Document — дерево разделов без привязки к разметке. Производная от Issue, не кэшируется.
type Document struct {
	Format      Format          `json:"format"`
	IssueNumber string          `json:"issue_number"`
	Sections    []Section       `json:"sections"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
}

// Section возвращает первый раздел указанного типа.
func (d *Document) Section(kind SectionKind) (Section, bool) {
	for _, s := range d.Sections {
		if s.Kind == kind {
			return s, true
		}
	}

	return Section{}, false
}
