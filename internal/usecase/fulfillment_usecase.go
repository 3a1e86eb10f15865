package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
	"github.com/DRSN-tech/pharmacy-counter/pkg/tr"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FulfillmentUseCase — система учёта склада: единственное место, где остатки списываются
// и присваиваются номера выдач.
type FulfillmentUseCase struct {
	productRepo ProductRepository
	issueRepo   IssueRepository
	outboxRepo  OutboxRepository
	dbPool      transaction.Transactional
	encoder     IssueEventEncoder
	logger      logger.Logger
}

func NewFulfillmentUC(
	productRepo ProductRepository,
	issueRepo IssueRepository,
	outboxRepo OutboxRepository,
	dbPool transaction.Transactional,
	encoder IssueEventEncoder,
	logger logger.Logger,
) *FulfillmentUseCase {
	return &FulfillmentUseCase{
		productRepo: productRepo,
		issueRepo:   issueRepo,
		outboxRepo:  outboxRepo,
		dbPool:      dbPool,
		encoder:     encoder,
		logger:      logger,
	}
}

// ListActiveProducts возвращает активный каталог с текущими остатками.
func (f *FulfillmentUseCase) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "FulfillmentUseCase.ListActiveProducts"

	products, err := f.productRepo.ListActive(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return products, nil
}

// CreateIssue списывает все строки в одной транзакции. Хотя бы одна отклонённая строка
// откатывает всё: частичных выдач не бывает. Повтор с тем же SubmissionKey возвращает уже созданную выдачу.
func (f *FulfillmentUseCase) CreateIssue(ctx context.Context, req *CreateIssueReq) (*CreateIssueRes, error) {
	const op = "FulfillmentUseCase.CreateIssue"

	var err error
	if err = validateCreateIssue(req); err != nil {
		return nil, e.Wrap(op, err)
	}

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, f.dbPool)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer func() {
		if tx.IsActive() {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				f.logger.Warnf("Issue transaction rollback failed: %v", e.Wrap(op, rbErr))
			}
		}
	}()

	pgxTx, ok := tx.Transaction().(pgx.Tx)
	if !ok {
		return nil, e.Wrap(op, e.ErrTransactionNotFound)
	}
	ctx = tr.WithTx(ctx, pgxTx)

	// идемпотентность по ключу отправки
	existing, err := f.issueRepo.GetBySubmissionKey(ctx, req.SubmissionKey)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if existing != nil {
		f.logger.Infof("Issue already created for submission key. issue_number: %s, key: %s", existing.IssueNumber, req.SubmissionKey)
		return issueRes(existing), nil
	}

	accepted := make([]domain.CartLine, 0, len(req.Lines))
	var rejected []domain.RejectedLine
	for _, line := range req.Lines {
		res, err := f.productRepo.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		switch {
		case !res.Exists:
			rejected = append(rejected, rejectedLine(line, 0, domain.RejectUnknownProduct))
		case !res.Applied:
			rejected = append(rejected, rejectedLine(line, res.Available, domain.RejectInsufficientStock))
		default:
			l := line
			l.BatchNumber = res.BatchNumber
			l.ExpiryDate = res.ExpiryDate
			accepted = append(accepted, l)
		}
	}

	if len(rejected) > 0 {
		f.logger.Warnf("Issue rejected, rolling back. key: %s, rejected_lines: %d", req.SubmissionKey, len(rejected))
		return &CreateIssueRes{RejectedLines: rejected}, nil
	}

	issue, err := f.issueRepo.Create(ctx, &domain.Issue{
		Lines:     accepted,
		Patient:   req.Patient,
		Notes:     req.Notes,
		IssuedBy:  req.IssuedBy,
		CreatedAt: time.Now(),
	}, req.SubmissionKey)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	eventID := uuid.NewString()
	payload, err := f.encoder.EncodeIssueCreated(eventID, issue)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if _, err = f.outboxRepo.Create(ctx, &OutboxEvent{
		EventID:     eventID,
		EventType:   IssueCreated,
		AggregateID: issue.IssueNumber,
		Payload:     payload,
		Status:      Pending,
		CreatedAt:   time.Now(),
	}); err != nil {
		return nil, e.Wrap(op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, e.Wrap(op, err)
	}

	f.logger.Infof("Issue created. issue_number: %s, lines: %d, issued_by: %s", issue.IssueNumber, len(issue.Lines), issue.IssuedBy)

	return issueRes(issue), nil
}

func validateCreateIssue(req *CreateIssueReq) error {
	if req == nil || len(req.Lines) == 0 {
		return e.ErrEmptyCart
	}
	if strings.TrimSpace(req.SubmissionKey) == "" || strings.TrimSpace(req.IssuedBy) == "" {
		return e.ErrMissingFields
	}
	for _, l := range req.Lines {
		if l.Quantity < 1 {
			return e.ErrInvalidQuantity
		}
	}

	return nil
}

func rejectedLine(line domain.CartLine, available int, reason domain.RejectReason) domain.RejectedLine {
	return domain.RejectedLine{
		ProductID: line.ProductID,
		SKU:       line.SKU,
		Requested: line.Quantity,
		Available: available,
		Reason:    reason,
	}
}

func issueRes(issue *domain.Issue) *CreateIssueRes {
	return &CreateIssueRes{
		IssueNumber:   issue.IssueNumber,
		CreatedAt:     issue.CreatedAt,
		AcceptedLines: domain.CloneLines(issue.Lines),
	}
}
