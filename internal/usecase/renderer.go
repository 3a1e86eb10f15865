package usecase

import (
	"strconv"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/shopspring/decimal"
)

const (
	thermalNameWidth = 24
	dateLayout       = "2006-01-02"
	dateTimeLayout   = "2006-01-02 15:04"
	walkIn           = "Walk-in"
	emptyCell        = "-"
)

// DocumentRenderer строит документы из неизменяемой выдачи.
// Оба формата — чистые проекции одной Issue и отличаются только набором разделов.
type DocumentRenderer struct {
	pharmacy PharmacyIdentity
	tax      TaxPolicy
}

func NewDocumentRenderer(pharmacy PharmacyIdentity, tax TaxPolicy) *DocumentRenderer {
	if tax == nil {
		tax = ZeroTax{}
	}

	return &DocumentRenderer{
		pharmacy: pharmacy,
		tax:      tax,
	}
}

// CalculateTotal пересчитывает сумму строк, сохранённым итогам не доверяет.
func (r *DocumentRenderer) CalculateTotal(issue *domain.Issue) decimal.Decimal {
	total := decimal.Zero
	for _, l := range issue.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	return total
}

// Render строит документ нужного формата.
func (r *DocumentRenderer) Render(issue *domain.Issue, format domain.Format) (*domain.Document, error) {
	const op = "DocumentRenderer.Render"

	if issue == nil {
		return nil, e.Wrap(op, e.ErrNoIssue)
	}

	subtotal := r.CalculateTotal(issue)
	tax := r.tax.Tax(subtotal)
	grand := subtotal.Add(tax)

	doc := &domain.Document{
		Format:      format,
		IssueNumber: issue.IssueNumber,
		GrandTotal:  grand,
	}

	switch format {
	case domain.FormatFullPage:
		doc.Sections = []domain.Section{
			r.fullHeader(issue),
			fullBillTo(issue),
			fullItems(issue),
			{
				Kind:  domain.SectionTotals,
				Title: "Totals",
				Fields: []domain.Field{
					{Label: "Subtotal", Value: money(subtotal)},
					{Label: "Tax", Value: money(tax)},
					{Label: "Grand Total", Value: money(grand)},
				},
				Align: domain.AlignRight,
			},
			{
				Kind: domain.SectionFooter,
				Fields: []domain.Field{
					{Label: "Issued By", Value: issue.IssuedBy},
					{Label: "Date", Value: issue.CreatedAt.Format(dateTimeLayout)},
				},
				Align: domain.AlignLeft,
			},
			{
				Kind: domain.SectionSignature,
				Fields: []domain.Field{
					{Label: "Pharmacist Signature"},
					{Label: "Received By"},
				},
				Align: domain.AlignLeft,
			},
		}
	case domain.FormatThermal:
		doc.Sections = append(doc.Sections, r.thermalHeader(issue))
		if issue.Patient != nil {
			doc.Sections = append(doc.Sections, domain.Section{
				Kind:   domain.SectionBillTo,
				Fields: []domain.Field{{Label: "Patient", Value: issue.Patient.Name}},
				Align:  domain.AlignLeft,
			})
		}
		doc.Sections = append(doc.Sections,
			thermalItems(issue),
			domain.Section{
				Kind:   domain.SectionTotals,
				Fields: []domain.Field{{Label: "TOTAL", Value: money(grand)}},
				Align:  domain.AlignRight,
			},
			domain.Section{
				Kind: domain.SectionFooter,
				Fields: []domain.Field{
					{Label: "Date", Value: issue.CreatedAt.Format(dateTimeLayout)},
					{Label: "Served By", Value: issue.IssuedBy},
				},
				Align: domain.AlignLeft,
			},
		)
	default:
		return nil, e.Wrap(op, e.ErrUnknownFormat)
	}

	return doc, nil
}

func (r *DocumentRenderer) fullHeader(issue *domain.Issue) domain.Section {
	fields := make([]domain.Field, 0, 4)
	fields = appendNonEmpty(fields, "Address", r.pharmacy.Address)
	fields = appendNonEmpty(fields, "Phone", r.pharmacy.Phone)
	fields = appendNonEmpty(fields, "License", r.pharmacy.License)
	fields = append(fields, domain.Field{Label: "Issue No.", Value: issue.IssueNumber})

	return domain.Section{
		Kind:   domain.SectionHeader,
		Title:  r.pharmacy.Name,
		Fields: fields,
		Align:  domain.AlignLeft,
	}
}

func (r *DocumentRenderer) thermalHeader(issue *domain.Issue) domain.Section {
	fields := make([]domain.Field, 0, 2)
	fields = appendNonEmpty(fields, "Tel", r.pharmacy.Phone)
	fields = append(fields, domain.Field{Label: "No.", Value: issue.IssueNumber})

	return domain.Section{
		Kind:   domain.SectionHeader,
		Title:  r.pharmacy.Name,
		Fields: fields,
		Align:  domain.AlignLeft,
	}
}

func fullBillTo(issue *domain.Issue) domain.Section {
	fields := make([]domain.Field, 0, 3)
	if issue.Patient != nil {
		fields = append(fields, domain.Field{Label: "Patient", Value: issue.Patient.Name})
		fields = appendNonEmpty(fields, "Contact", issue.Patient.ContactNumber)
	} else {
		fields = append(fields, domain.Field{Label: "Patient", Value: walkIn})
	}
	fields = appendNonEmpty(fields, "Notes", issue.Notes)

	return domain.Section{
		Kind:   domain.SectionBillTo,
		Title:  "Bill To",
		Fields: fields,
		Align:  domain.AlignLeft,
	}
}

func fullItems(issue *domain.Issue) domain.Section {
	rows := make([][]string, 0, len(issue.Lines))
	for i, l := range issue.Lines {
		expiry := emptyCell
		if l.ExpiryDate != nil {
			expiry = l.ExpiryDate.Format(dateLayout)
		}

		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			l.ProductName,
			l.SKU,
			orEmptyCell(l.BatchNumber),
			expiry,
			strconv.Itoa(l.Quantity),
			money(l.UnitPrice),
			money(l.LineTotal()),
		})
	}

	return domain.Section{
		Kind:  domain.SectionItems,
		Title: "Items",
		Table: &domain.Table{
			Columns: []string{"#", "Item", "SKU", "Batch", "Expiry", "Qty", "Unit Price", "Amount"},
			Rows:    rows,
		},
		Align: domain.AlignLeft,
	}
}

func thermalItems(issue *domain.Issue) domain.Section {
	rows := make([][]string, 0, len(issue.Lines))
	for _, l := range issue.Lines {
		rows = append(rows, []string{
			truncate(l.ProductName, thermalNameWidth),
			strconv.Itoa(l.Quantity),
			money(l.LineTotal()),
		})
	}

	return domain.Section{
		Kind: domain.SectionItems,
		Table: &domain.Table{
			Columns: []string{"Item", "Qty", "Amt"},
			Rows:    rows,
		},
		Align: domain.AlignLeft,
	}
}

func appendNonEmpty(fields []domain.Field, label, value string) []domain.Field {
	if value == "" {
		return fields
	}

	return append(fields, domain.Field{Label: label, Value: value})
}

func orEmptyCell(s string) string {
	if s == "" {
		return emptyCell
	}

	return s
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// truncate обрезает строку по рунам.
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}

	return string(r[:width])
}
