package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/cfg"
	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/internal/usecase"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/jitter"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
)

// Client — коллаборатор склада для кассы. Повторяет чтение каталога с
// экспоненциальной задержкой и сводит транспортные сбои к ErrCollaboratorUnavailable.
type Client struct {
	backend usecase.InventoryCollaborator
	retry   jitter.Policy
	logger  logger.Logger
}

func NewClient(backend usecase.InventoryCollaborator, cfg *cfg.CounterCfg, logger logger.Logger) *Client {
	return &Client{
		backend: backend,
		retry: jitter.Policy{
			Attempts: cfg.InventoryMaxRetries,
			Base:     cfg.RetryBase,
			Max:      cfg.RetryMax,
		},
		logger: logger,
	}
}

// ListActiveProducts читает активный каталог с повторами.
func (c *Client) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "inventory.Client.ListActiveProducts"

	var products []domain.Product
	err := jitter.Retry(ctx, c.retry, retryable,
		func(attempt int, wait time.Duration, err error) {
			c.logger.Warnf("catalog read failed, retrying in %v (attempt %d): %v", wait, attempt, err)
		},
		func(ctx context.Context) error {
			var err error
			products, err = c.backend.ListActiveProducts(ctx)
			return err
		},
	)
	if err != nil {
		return nil, e.Wrap(op, classify(err))
	}

	return products, nil
}

// CreateIssue выполняется один раз: повтор оформления решает вызывающий по тому же ключу отправки.
func (c *Client) CreateIssue(ctx context.Context, req *usecase.CreateIssueReq) (*usecase.CreateIssueRes, error) {
	const op = "inventory.Client.CreateIssue"

	res, err := c.backend.CreateIssue(ctx, req)
	if err != nil {
		return nil, e.Wrap(op, classify(err))
	}

	return res, nil
}

// Ошибки, которые склад возвращает осознанно. Всё остальное — сбой доступа к складу.
var domainErrors = []error{
	e.ErrEmptyCart,
	e.ErrMissingFields,
	e.ErrInvalidQuantity,
	e.ErrCollaboratorUnavailable,
	context.Canceled,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func retryable(err error) bool {
	return !isDomainError(err) && !errors.Is(err, context.DeadlineExceeded)
}

func classify(err error) error {
	if isDomainError(err) {
		return err
	}

	return fmt.Errorf("%w: %w", e.ErrCollaboratorUnavailable, err)
}
