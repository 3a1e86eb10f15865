package converter

import (
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/internal/usecase"
	"github.com/shopspring/decimal"
)

// ProductConverter преобразует Product между domain и моделью PostgreSQL.
type ProductConverter interface {
	ToEntity(model *ProductModel) (*domain.Product, error)
	ToArrEntity(models []*ProductModel) ([]domain.Product, error)
}

// IssueConverter преобразует Issue между domain и моделями PostgreSQL.
type IssueConverter interface {
	ToModel(entity *domain.Issue, submissionKey string) *IssueModel
	ToLineModels(lines []domain.CartLine) []*IssueLineModel
	ToEntity(model *IssueModel, lines []*IssueLineModel) (*domain.Issue, error)
}

// OutboxEventConverter преобразует OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) *OutboxEventModel
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent
}

type ProductConverterImpl struct{}

func NewProductConverter() *ProductConverterImpl {
	return &ProductConverterImpl{}
}

func (ProductConverterImpl) ToEntity(model *ProductModel) (*domain.Product, error) {
	price, err := decimal.NewFromString(model.UnitPrice)
	if err != nil {
		return nil, err
	}

	return &domain.Product{
		ID:                model.ID,
		Name:              model.Name,
		SKU:               model.SKU,
		Category:          model.Category,
		UnitPrice:         price,
		AvailableQuantity: model.Quantity,
		BatchNumber:       model.BatchNumber,
		ExpiryDate:        ConvertPointerTime(model.ExpiryDate),
	}, nil
}

func (c ProductConverterImpl) ToArrEntity(models []*ProductModel) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(models))
	for _, m := range models {
		p, err := c.ToEntity(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}

	return out, nil
}

type IssueConverterImpl struct{}

func NewIssueConverter() *IssueConverterImpl {
	return &IssueConverterImpl{}
}

func (IssueConverterImpl) ToModel(entity *domain.Issue, submissionKey string) *IssueModel {
	model := &IssueModel{
		IssueNumber:   entity.IssueNumber,
		SubmissionKey: submissionKey,
		Notes:         entity.Notes,
		IssuedBy:      entity.IssuedBy,
		Subtotal:      entity.Subtotal().StringFixed(2),
		CreatedAt:     ConvertTime(entity.CreatedAt),
	}
	if entity.Patient != nil {
		model.PatientName = nullableString(entity.Patient.Name)
		model.PatientContact = nullableString(entity.Patient.ContactNumber)
	}

	return model
}

func (IssueConverterImpl) ToLineModels(lines []domain.CartLine) []*IssueLineModel {
	out := make([]*IssueLineModel, 0, len(lines))
	for i, l := range lines {
		out = append(out, &IssueLineModel{
			LineNo:      i + 1,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			SKU:         l.SKU,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.String(),
			BatchNumber: nullableString(l.BatchNumber),
			ExpiryDate:  ConvertPointerTime(l.ExpiryDate),
		})
	}

	return out
}

func (IssueConverterImpl) ToEntity(model *IssueModel, lines []*IssueLineModel) (*domain.Issue, error) {
	issue := &domain.Issue{
		IssueNumber: model.IssueNumber,
		Notes:       model.Notes,
		CreatedAt:   ConvertTime(model.CreatedAt),
		IssuedBy:    model.IssuedBy,
		Lines:       make([]domain.CartLine, 0, len(lines)),
	}
	if model.PatientName != nil || model.PatientContact != nil {
		issue.Patient = &domain.PatientRef{
			Name:          derefString(model.PatientName),
			ContactNumber: derefString(model.PatientContact),
		}
	}

	for _, l := range lines {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, err
		}

		issue.Lines = append(issue.Lines, domain.CartLine{
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			SKU:          l.SKU,
			Quantity:     l.Quantity,
			UnitPrice:    price,
			StockCeiling: l.Quantity,
			BatchNumber:  derefString(l.BatchNumber),
			ExpiryDate:   ConvertPointerTime(l.ExpiryDate),
		})
	}

	return issue, nil
}

type OutboxEventConverterImpl struct{}

func NewOutboxEventConverter() *OutboxEventConverterImpl {
	return &OutboxEventConverterImpl{}
}

func (OutboxEventConverterImpl) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   string(ConvertOutboxEventType(entity.EventType)),
		AggregateID: entity.AggregateID,
		Payload:     entity.Payload,
		Status:      string(ConvertOutBoxStatus(entity.Status)),
		CreatedAt:   ConvertTime(entity.CreatedAt),
		ProcessedAt: ConvertPointerTime(entity.ProcessedAt),
	}
}

func (OutboxEventConverterImpl) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   usecase.OutboxEventType(model.EventType),
		AggregateID: model.AggregateID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   ConvertTime(model.CreatedAt),
		ProcessedAt: ConvertPointerTime(model.ProcessedAt),
	}
}

func (c OutboxEventConverterImpl) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	out := make([]*usecase.OutboxEvent, 0, len(models))
	for _, m := range models {
		out = append(out, c.ToEntity(m))
	}

	return out
}

func ConvertPointerTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t

	return &v
}

func ConvertTime(t time.Time) time.Time {
	return t
}

func ConvertOutBoxStatus(s usecase.OutboxStatus) usecase.OutboxStatus {
	return s
}

func ConvertOutboxEventType(t usecase.OutboxEventType) usecase.OutboxEventType {
	return t
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
