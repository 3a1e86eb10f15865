package http

import (
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/internal/usecase"
	"github.com/shopspring/decimal"
)

// Денежные суммы отдаются строкой с двумя знаками после запятой.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func dateOnly(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

// REQUESTS

type PatientDTO struct {
	Name          string `json:"name"`
	ContactNumber string `json:"contactNumber,omitempty"`
}

func (p *PatientDTO) toDomain() *domain.PatientRef {
	if p == nil {
		return nil
	}
	return &domain.PatientRef{Name: p.Name, ContactNumber: p.ContactNumber}
}

type AddLineRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type SetPatientRequest struct {
	Patient *PatientDTO `json:"patient"`
	Notes   string      `json:"notes"`
}

type MedicationDTO struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type PrescriptionRequest struct {
	PrescriptionID string          `json:"prescriptionId"`
	Patient        *PatientDTO     `json:"patient"`
	Medications    []MedicationDTO `json:"medications"`
}

func (p *PrescriptionRequest) toDomain() domain.Prescription {
	meds := make([]domain.MedicationRequest, 0, len(p.Medications))
	for _, m := range p.Medications {
		meds = append(meds, domain.MedicationRequest{Name: m.Name, Quantity: m.Quantity})
	}

	return domain.Prescription{
		ID:          p.PrescriptionID,
		Patient:     p.Patient.toDomain(),
		Medications: meds,
	}
}

// RESPONSES

type CartLineResponse struct {
	ProductID    int64  `json:"productId"`
	ProductName  string `json:"productName"`
	SKU          string `json:"sku"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unitPrice"`
	LineTotal    string `json:"lineTotal"`
	StockCeiling int    `json:"stockCeiling"`
	BatchNumber  string `json:"batchNumber,omitempty"`
	ExpiryDate   string `json:"expiryDate,omitempty"`
}

type IssueResponse struct {
	IssueNumber string             `json:"issueNumber"`
	CreatedAt   time.Time          `json:"createdAt"`
	IssuedBy    string             `json:"issuedBy"`
	Patient     *PatientDTO        `json:"patient,omitempty"`
	Notes       string             `json:"notes,omitempty"`
	Lines       []CartLineResponse `json:"lines"`
	Subtotal    string             `json:"subtotal"`
}

type SessionResponse struct {
	ID         string             `json:"id"`
	State      string             `json:"state"`
	OperatorID string             `json:"operatorId"`
	Role       string             `json:"role"`
	Dashboard  string             `json:"dashboard"`
	Lines      []CartLineResponse `json:"lines"`
	Patient    *PatientDTO        `json:"patient,omitempty"`
	Notes      string             `json:"notes,omitempty"`
	Subtotal   string             `json:"subtotal"`
	Tax        string             `json:"tax"`
	Total      string             `json:"total"`
	Issue      *IssueResponse     `json:"issue,omitempty"`
	OpenedAt   time.Time          `json:"openedAt"`
}

type ProductResponse struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	SKU               string `json:"sku"`
	Category          string `json:"category,omitempty"`
	UnitPrice         string `json:"unitPrice"`
	AvailableQuantity int    `json:"availableQuantity"`
	BatchNumber       string `json:"batchNumber,omitempty"`
	ExpiryDate        string `json:"expiryDate,omitempty"`
}

type WarningResponse struct {
	Name      string `json:"name"`
	ProductID int64  `json:"productId,omitempty"`
	Requested int    `json:"requested"`
	Loaded    int    `json:"loaded"`
	Available int    `json:"available"`
	Reason    string `json:"reason"`
}

type PrescriptionResponse struct {
	Token     string             `json:"token"`
	Added     []CartLineResponse `json:"added"`
	Unmatched []string           `json:"unmatched"`
	Warnings  []WarningResponse  `json:"warnings"`
	Session   *SessionResponse   `json:"session,omitempty"`
}

type DocumentResponse struct {
	Format      string           `json:"format"`
	IssueNumber string           `json:"issueNumber"`
	Sections    []domain.Section `json:"sections"`
	GrandTotal  string           `json:"grandTotal"`
}

type DispatchResponse struct {
	Location string `json:"location"`
	Format   string `json:"format"`
}

// MAPPERS

func patientDTO(p *domain.PatientRef) *PatientDTO {
	if p == nil {
		return nil
	}
	return &PatientDTO{Name: p.Name, ContactNumber: p.ContactNumber}
}

func toCartLineResponses(lines []domain.CartLine) []CartLineResponse {
	res := make([]CartLineResponse, 0, len(lines))
	for _, l := range lines {
		res = append(res, CartLineResponse{
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			SKU:          l.SKU,
			Quantity:     l.Quantity,
			UnitPrice:    money(l.UnitPrice),
			LineTotal:    money(l.LineTotal()),
			StockCeiling: l.StockCeiling,
			BatchNumber:  l.BatchNumber,
			ExpiryDate:   dateOnly(l.ExpiryDate),
		})
	}
	return res
}

func toIssueResponse(issue *domain.Issue) *IssueResponse {
	if issue == nil {
		return nil
	}

	return &IssueResponse{
		IssueNumber: issue.IssueNumber,
		CreatedAt:   issue.CreatedAt,
		IssuedBy:    issue.IssuedBy,
		Patient:     patientDTO(issue.Patient),
		Notes:       issue.Notes,
		Lines:       toCartLineResponses(issue.Lines),
		Subtotal:    money(issue.Subtotal()),
	}
}

func toSessionResponse(v *usecase.SessionView) *SessionResponse {
	return &SessionResponse{
		ID:         v.ID,
		State:      string(v.State),
		OperatorID: v.OperatorID,
		Role:       v.Role,
		Dashboard:  v.Dashboard,
		Lines:      toCartLineResponses(v.Cart.Lines),
		Patient:    patientDTO(v.Cart.Patient),
		Notes:      v.Cart.Notes,
		Subtotal:   money(v.Subtotal),
		Tax:        money(v.Tax),
		Total:      money(v.Total),
		Issue:      toIssueResponse(v.Issue),
		OpenedAt:   v.OpenedAt,
	}
}

func toProductResponses(products []domain.Product) []ProductResponse {
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, ProductResponse{
			ID:                p.ID,
			Name:              p.Name,
			SKU:               p.SKU,
			Category:          p.Category,
			UnitPrice:         money(p.UnitPrice),
			AvailableQuantity: p.AvailableQuantity,
			BatchNumber:       p.BatchNumber,
			ExpiryDate:        dateOnly(p.ExpiryDate),
		})
	}
	return res
}

func toPrescriptionResponse(res *usecase.ApplyPrescriptionRes, session *usecase.SessionView) *PrescriptionResponse {
	warnings := make([]WarningResponse, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		warnings = append(warnings, WarningResponse{
			Name:      w.Name,
			ProductID: w.ProductID,
			Requested: w.Requested,
			Loaded:    w.Loaded,
			Available: w.Available,
			Reason:    string(w.Reason),
		})
	}

	unmatched := res.Unmatched
	if unmatched == nil {
		unmatched = []string{}
	}

	out := &PrescriptionResponse{
		Token:     res.Token,
		Added:     toCartLineResponses(res.Added),
		Unmatched: unmatched,
		Warnings:  warnings,
	}
	if session != nil {
		out.Session = toSessionResponse(session)
	}

	return out
}

func toDocumentResponse(doc *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		Format:      string(doc.Format),
		IssueNumber: doc.IssueNumber,
		Sections:    doc.Sections,
		GrandTotal:  money(doc.GrandTotal),
	}
}
