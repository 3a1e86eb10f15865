package usecase

import (
	"context"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
)

// InventoryCollaborator — внешний коллаборатор выдачи: единственный источник
// истины по остаткам и номерам выдач.
type InventoryCollaborator interface {
	ListActiveProducts(ctx context.Context) ([]domain.Product, error)
	CreateIssue(ctx context.Context, req *CreateIssueReq) (*CreateIssueRes, error)
}

// DocumentSink — коллаборатор печати/экспорта. Получает только структурированный документ.
type DocumentSink interface {
	Dispatch(ctx context.Context, doc *domain.Document) (*DispatchRes, error)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

// IssueEventEncoder сериализует событие о созданной выдаче для outbox.
type IssueEventEncoder interface {
	EncodeIssueCreated(eventID string, issue *domain.Issue) ([]byte, error)
}
