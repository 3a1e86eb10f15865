package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/DRSN-tech/pharmacy-counter/internal/cfg"
	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/internal/usecase"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	listFailures int
	listErr      error
	listCalls    int
	createErr    error
	createCalls  int
}

func (f *fakeBackend) ListActiveProducts(context.Context) ([]domain.Product, error) {
	f.listCalls++
	if f.listFailures > 0 {
		f.listFailures--
		return nil, f.listErr
	}
	return []domain.Product{{ID: 1, Name: "Paracetamol", UnitPrice: decimal.NewFromInt(10), AvailableQuantity: 5}}, nil
}

func (f *fakeBackend) CreateIssue(context.Context, *usecase.CreateIssueReq) (*usecase.CreateIssueRes, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &usecase.CreateIssueRes{IssueNumber: "ISS-000001"}, nil
}

func newTestClient(backend *fakeBackend, retries int) *Client {
	return NewClient(backend, &cfg.CounterCfg{InventoryMaxRetries: retries}, logger.Nop{})
}

func TestClient_ListActiveProductsRetries(t *testing.T) {
	backend := &fakeBackend{listFailures: 2, listErr: errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")}

	products, err := newTestClient(backend, 3).ListActiveProducts(context.Background())
	require.NoError(t, err)

	assert.Len(t, products, 1)
	assert.Equal(t, 3, backend.listCalls)
}

func TestClient_ListActiveProductsUnavailable(t *testing.T) {
	connErr := errors.New("connection refused")
	backend := &fakeBackend{listFailures: 10, listErr: connErr}

	_, err := newTestClient(backend, 3).ListActiveProducts(context.Background())

	assert.ErrorIs(t, err, e.ErrCollaboratorUnavailable)
	assert.ErrorIs(t, err, connErr)
	assert.Equal(t, 3, backend.listCalls)
}

func TestClient_ListActiveProductsCanceled(t *testing.T) {
	backend := &fakeBackend{listFailures: 10, listErr: context.Canceled}

	_, err := newTestClient(backend, 3).ListActiveProducts(context.Background())

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, e.ErrCollaboratorUnavailable)
	assert.Equal(t, 1, backend.listCalls)
}

func TestClient_CreateIssueNotRetried(t *testing.T) {
	backend := &fakeBackend{createErr: errors.New("i/o timeout")}

	_, err := newTestClient(backend, 3).CreateIssue(context.Background(), &usecase.CreateIssueReq{})

	assert.ErrorIs(t, err, e.ErrCollaboratorUnavailable)
	assert.Equal(t, 1, backend.createCalls)
}

func TestClient_CreateIssueValidationPassesThrough(t *testing.T) {
	backend := &fakeBackend{createErr: e.Wrap("FulfillmentUseCase.CreateIssue", e.ErrEmptyCart)}

	_, err := newTestClient(backend, 3).CreateIssue(context.Background(), &usecase.CreateIssueReq{})

	assert.ErrorIs(t, err, e.ErrEmptyCart)
	assert.NotErrorIs(t, err, e.ErrCollaboratorUnavailable)
}

func TestClient_CreateIssue(t *testing.T) {
	res, err := newTestClient(&fakeBackend{}, 3).CreateIssue(context.Background(), &usecase.CreateIssueReq{})
	require.NoError(t, err)
	assert.Equal(t, "ISS-000001", res.IssueNumber)
}
