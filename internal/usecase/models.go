package usecase

import (
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/shopspring/decimal"
)

// INVENTORY COLLABORATOR

// CreateIssueReq — замороженные строки корзины, отправляемые на списание.
type CreateIssueReq struct {
	SubmissionKey string // ключ идемпотентности, ревизия корзины
	Lines         []domain.CartLine
	Patient       *domain.PatientRef
	Notes         string
	IssuedBy      string
}

// CreateIssueRes — ответ склада. При непустом RejectedLines выдача не создана.
type CreateIssueRes struct {
	IssueNumber   string
	CreatedAt     time.Time
	AcceptedLines []domain.CartLine
	RejectedLines []domain.RejectedLine
}

// DecrementStockRes — результат условного списания одной строки.
type DecrementStockRes struct {
	Exists      bool // товар найден и не в архиве
	Applied     bool // остатка хватило, списание выполнено
	Available   int  // остаток до списания, если не хватило
	BatchNumber string
	ExpiryDate  *time.Time
}

// PRESCRIPTION RECONCILER

// WarningReason — почему по рецепту загружено меньше, чем запрошено.
type WarningReason string

const (
	WarningCapped      WarningReason = "capped_to_stock"
	WarningOutOfStock  WarningReason = "out_of_stock"
	WarningCartCeiling WarningReason = "cart_ceiling"
)

// QuantityWarning — некритичное предупреждение по позиции рецепта.
type QuantityWarning struct {
	Name      string
	ProductID int64
	Requested int
	Loaded    int
	Available int
	Reason    WarningReason
}

// ReconcileResult — итог сопоставления рецепта с каталогом.
type ReconcileResult struct {
	Matched   []domain.CartLine
	Unmatched []string
	Warnings  []QuantityWarning
}

// ApplyPrescriptionRes — что реально попало в корзину.
type ApplyPrescriptionRes struct {
	Token     string
	Added     []domain.CartLine
	Unmatched []string
	Warnings  []QuantityWarning
}

// DOCUMENTS

// PharmacyIdentity — реквизиты для шапки документов.
type PharmacyIdentity struct {
	Name    string
	Address string
	Phone   string
	License string
}

type DispatchRes struct {
	Location string
	Format   domain.Format
}

// SESSION

// SessionView — снимок состояния сессии для внешнего слоя.
type SessionView struct {
	ID         string
	State      domain.SessionState
	OperatorID string
	Role       string
	Dashboard  string
	Cart       domain.Cart
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	Issue      *domain.Issue
	OpenedAt   time.Time
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

type OutboxEventType string

const (
	IssueCreated OutboxEventType = "issue.created"
)

type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	AggregateID string // номер выдачи
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type WriteRawMessageReq struct {
	Key     string
	Payload []byte
}

// MAPPERS

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     key,
		Payload: payload,
	}
}

func NewDispatchRes(location string, format domain.Format) *DispatchRes {
	return &DispatchRes{
		Location: location,
		Format:   format,
	}
}
