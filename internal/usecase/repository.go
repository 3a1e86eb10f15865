package usecase

import (
	"context"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
)

// ProductRepository — остатки склада. DecrementStock работает только внутри транзакции из контекста.
type ProductRepository interface {
	ListActive(ctx context.Context) ([]domain.Product, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) (*DecrementStockRes, error)
}

// IssueRepository — учёт созданных выдач.
// GetBySubmissionKey возвращает nil, nil, если выдачи с таким ключом нет.
type IssueRepository interface {
	GetBySubmissionKey(ctx context.Context, key string) (*domain.Issue, error)
	Create(ctx context.Context, issue *domain.Issue, submissionKey string) (*domain.Issue, error)
}

// CatalogSnapshotRepository хранит последний известный снимок каталога.
// GetCatalogSnapshot возвращает nil, nil при промахе.
type CatalogSnapshotRepository interface {
	GetCatalogSnapshot(ctx context.Context) ([]domain.Product, error)
	SetCatalogSnapshot(ctx context.Context, products []domain.Product) error
}

// PrescriptionLedger — журнал погашенных рецептов.
// Consume возвращает false, если токен уже погашен.
type PrescriptionLedger interface {
	Consume(ctx context.Context, token string) (bool, error)
	Release(ctx context.Context, token string) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	MarkAsPending(ctx context.Context, id int64) error
}

// DocumentRepository — хранилище объектов печатного коллаборатора.
type DocumentRepository interface {
	Upload(ctx context.Context, obj *domain.StoredObject) (string, error)
	Delete(ctx context.Context, key string) error
}
