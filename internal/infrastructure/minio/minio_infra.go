package minio

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/cfg"
	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/internal/infrastructure"
	"github.com/DRSN-tech/pharmacy-counter/internal/usecase"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/jitter"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
)

const (
	uploadAttempts = 3
	metaFormat     = "Format"
	metaIssue      = "Issue-Number"
)

// documentPayload — то, что получает печатный коллаборатор. Деньги передаются строкой с двумя знаками.
type documentPayload struct {
	Format      domain.Format    `json:"format"`
	IssueNumber string           `json:"issue_number"`
	Sections    []domain.Section `json:"sections"`
	GrandTotal  string           `json:"grand_total"`
	RenderedAt  time.Time        `json:"rendered_at"`
}

// DocumentExporter передаёт документы печатному коллаборатору через MinIO.
type DocumentExporter struct {
	documentRepo usecase.DocumentRepository
	cfg          *cfg.MinIOCfg
	logger       logger.Logger
	retry        jitter.Policy
}

func NewDocumentExporter(documentRepo usecase.DocumentRepository, cfg *cfg.MinIOCfg, logger logger.Logger) *DocumentExporter {
	return &DocumentExporter{
		documentRepo: documentRepo,
		cfg:          cfg,
		logger:       logger,
		retry: jitter.Policy{
			Attempts: uploadAttempts,
			Base:     200 * time.Millisecond,
			Max:      2 * time.Second,
		},
	}
}

// Dispatch сериализует документ и кладёт его в бакет с подсказкой формата в метаданных.
// Повторная отправка того же документа перезаписывает объект.
func (d *DocumentExporter) Dispatch(ctx context.Context, doc *domain.Document) (*usecase.DispatchRes, error) {
	const op = "DocumentExporter.Dispatch"

	data, err := json.Marshal(documentPayload{
		Format:      doc.Format,
		IssueNumber: doc.IssueNumber,
		Sections:    doc.Sections,
		GrandTotal:  doc.GrandTotal.StringFixed(2),
		RenderedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	obj := domain.NewStoredObject(
		infrastructure.DocumentObjectKey(doc.IssueNumber, doc.Format),
		data,
		infrastructure.DocumentContentType,
		map[string]string{
			metaFormat: string(doc.Format),
			metaIssue:  doc.IssueNumber,
		},
	)

	var key string
	err = jitter.Retry(ctx, d.retry, retryableUpload,
		func(attempt int, wait time.Duration, err error) {
			d.logger.Warnf("Document upload failed, retrying. key: %s, attempt: %d, wait: %s, error: %v", obj.ObjectKey, attempt, wait, err)
		},
		func(ctx context.Context) error {
			var uploadErr error
			key, uploadErr = d.documentRepo.Upload(ctx, obj)
			return uploadErr
		},
	)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	d.logger.Debugf("Document stored. bucket: %s, key: %s, bytes: %d", d.cfg.BucketName, key, len(data))

	return usecase.NewDispatchRes(key, doc.Format), nil
}

// retryableUpload: отмена контекста не повторяется.
func retryableUpload(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
