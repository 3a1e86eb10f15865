package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var errConnRefused = errors.New("dial tcp 10.0.0.7:5432: connect: connection refused")

func product(id int64, name, sku, price string, qty int) domain.Product {
	return domain.Product{
		ID:                id,
		Name:              name,
		SKU:               sku,
		Category:          "analgesics",
		UnitPrice:         decimal.RequireFromString(price),
		AvailableQuantity: qty,
	}
}

func testCatalog() []domain.Product {
	expiry := time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC)

	amox := product(2, "Amoxicillin 500mg", "AMX-500", "25.50", 3)
	amox.Category = "antibiotics"
	amox.BatchNumber = "B-2291"
	amox.ExpiryDate = &expiry

	return []domain.Product{
		product(1, "Paracetamol", "PCM-500", "10", 5),
		amox,
		product(3, "Ibuprofen", "IBU-200", "7.25", 0),
	}
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}

type fakeInventory struct {
	mu          sync.Mutex
	products    []domain.Product
	listErr     error
	listCalls   int
	createCalls int
	lastReq     *CreateIssueReq
	createFn    func(ctx context.Context, req *CreateIssueReq) (*CreateIssueRes, error)
}

func newFakeInventory(products []domain.Product) *fakeInventory {
	return &fakeInventory{products: products}
}

func (f *fakeInventory) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.listErr != nil {
		return nil, f.listErr
	}

	return append([]domain.Product(nil), f.products...), nil
}

func (f *fakeInventory) CreateIssue(ctx context.Context, req *CreateIssueReq) (*CreateIssueRes, error) {
	f.mu.Lock()
	f.createCalls++
	f.lastReq = req
	fn := f.createFn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	return &CreateIssueRes{
		IssueNumber:   "ISS-000001",
		CreatedAt:     time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		AcceptedLines: req.Lines,
	}, nil
}

func (f *fakeInventory) setProducts(products []domain.Product) {
	f.mu.Lock()
	f.products = products
	f.mu.Unlock()
}

func (f *fakeInventory) setListErr(err error) {
	f.mu.Lock()
	f.listErr = err
	f.mu.Unlock()
}

func (f *fakeInventory) calls() (list, create int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.listCalls, f.createCalls
}

type fakeSnapshots struct {
	mu       sync.Mutex
	products []domain.Product
	getErr   error
	sets     int
}

func (f *fakeSnapshots) GetCatalogSnapshot(context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}

	return f.products, nil
}

func (f *fakeSnapshots) SetCatalogSnapshot(_ context.Context, products []domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.products = append([]domain.Product(nil), products...)
	f.sets++

	return nil
}

type fakeLedger struct {
	mu       sync.Mutex
	consumed map[string]bool
	err      error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{consumed: make(map[string]bool)}
}

func (f *fakeLedger) Consume(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return false, f.err
	}
	if f.consumed[token] {
		return false, nil
	}
	f.consumed[token] = true

	return true, nil
}

func (f *fakeLedger) Release(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.consumed, token)

	return nil
}

func (f *fakeLedger) isConsumed(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.consumed[token]
}

type fakeSink struct {
	mu      sync.Mutex
	docs    []*domain.Document
	started chan struct{}
	release chan struct{}
	err     error
}

func (f *fakeSink) Dispatch(_ context.Context, doc *domain.Document) (*DispatchRes, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, doc)

	return NewDispatchRes("issues/"+doc.IssueNumber+"/"+string(doc.Format)+".json", doc.Format), nil
}
