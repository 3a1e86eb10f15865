package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pharmacist = domain.Operator{ID: "op-17", Role: domain.RolePharmacist}

func newTestFinalizer(inv *fakeInventory, timeout time.Duration) (*IssueFinalizer, *CartEngine, *CatalogCache) {
	cart := NewCartEngine(nil)
	catalog := NewCatalogCache(inv, nil, logger.Nop{}, 0)
	_ = catalog.Refresh(context.Background())

	return NewIssueFinalizer(cart, inv, catalog, logger.Nop{}, timeout), cart, catalog
}

func addLine(t *testing.T, f *IssueFinalizer, p domain.Product, qty int) {
	t.Helper()
	require.NoError(t, f.Mutate(func(cart *CartEngine) error {
		return cart.AddLine(p, qty)
	}))
}

func TestIssueFinalizer_EmptyCart(t *testing.T) {
	f, _, _ := newTestFinalizer(newFakeInventory(testCatalog()), time.Second)

	assert.Equal(t, domain.StateEmpty, f.State())
	_, err := f.Submit(context.Background(), pharmacist)

	assert.ErrorIs(t, err, e.ErrEmptyCart)
	assert.Equal(t, domain.StateEmpty, f.State())
}

func TestIssueFinalizer_Success(t *testing.T) {
	inv := newFakeInventory(testCatalog())
	f, cart, _ := newTestFinalizer(inv, time.Second)

	addLine(t, f, testCatalog()[0], 2)
	addLine(t, f, testCatalog()[1], 1)
	require.NoError(t, f.Mutate(func(cart *CartEngine) error {
		cart.SetPatient(&domain.PatientRef{Name: "Jane Doe", ContactNumber: "+1 555 0100"})
		cart.SetNotes("take with water")
		return nil
	}))
	assert.Equal(t, domain.StateBuilding, f.State())
	key := cart.Revision()

	expiry := time.Date(2028, 1, 31, 0, 0, 0, 0, time.UTC)
	inv.createFn = func(_ context.Context, req *CreateIssueReq) (*CreateIssueRes, error) {
		// склад возвращает только серию первой строки
		accepted := []domain.CartLine{{ProductID: 1, Quantity: 2, BatchNumber: "PCM-B7", ExpiryDate: &expiry}}
		return &CreateIssueRes{IssueNumber: "ISS-000042", CreatedAt: time.Now(), AcceptedLines: accepted}, nil
	}
	listBefore, _ := inv.calls()

	issue, err := f.Submit(context.Background(), pharmacist)
	require.NoError(t, err)

	assert.Equal(t, domain.StateCompleted, f.State())
	assert.Equal(t, "ISS-000042", issue.IssueNumber)
	assert.Equal(t, "op-17", issue.IssuedBy)
	assert.Equal(t, "Jane Doe", issue.Patient.Name)
	assert.Equal(t, "take with water", issue.Notes)
	require.Len(t, issue.Lines, 2)
	assert.Equal(t, "PCM-B7", issue.Lines[0].BatchNumber)
	assert.Equal(t, 2028, issue.Lines[0].ExpiryDate.Year())
	assert.Equal(t, "B-2291", issue.Lines[1].BatchNumber)
	assertMoney(t, "45.50", issue.Subtotal())
	assert.Equal(t, issue, f.Issue())

	assert.Equal(t, key, inv.lastReq.SubmissionKey)
	assert.Equal(t, "op-17", inv.lastReq.IssuedBy)
	assert.Len(t, inv.lastReq.Lines, 2)

	listAfter, _ := inv.calls()
	assert.Equal(t, listBefore+1, listAfter, "catalog refreshed after issue")
}

func TestIssueFinalizer_RejectedKeepsCart(t *testing.T) {
	inv := newFakeInventory(nil)
	f, cart, _ := newTestFinalizer(inv, time.Second)

	a := domain.Product{ID: 9, Name: "Item A", SKU: "A", UnitPrice: decimal.NewFromInt(10), AvailableQuantity: 3}
	addLine(t, f, a, 3)
	before := cart.Snapshot()

	inv.createFn = func(context.Context, *CreateIssueReq) (*CreateIssueRes, error) {
		return &CreateIssueRes{RejectedLines: []domain.RejectedLine{
			{ProductID: 9, Requested: 3, Available: 1, Reason: domain.RejectInsufficientStock},
		}}, nil
	}

	issue, err := f.Submit(context.Background(), pharmacist)

	assert.Nil(t, issue)
	require.ErrorIs(t, err, e.ErrFulfillmentRejected)
	var rejErr *domain.RejectionError
	require.ErrorAs(t, err, &rejErr)
	require.Len(t, rejErr.Lines, 1)
	assert.Equal(t, "A", rejErr.Lines[0].SKU)
	assert.Equal(t, domain.RejectInsufficientStock, rejErr.Lines[0].Reason)
	assert.Contains(t, err.Error(), "A (insufficient_stock)")

	assert.Equal(t, domain.StateBuilding, f.State())
	assert.Nil(t, f.Issue())
	assert.Equal(t, before, cart.Snapshot())
	line, _ := cart.Line(9)
	assert.Equal(t, 3, line.Quantity)
	assertMoney(t, "30.00", cart.Total())
}

func TestIssueFinalizer_CollaboratorError(t *testing.T) {
	inv := newFakeInventory(testCatalog())
	f, cart, _ := newTestFinalizer(inv, time.Second)
	addLine(t, f, testCatalog()[0], 1)

	inv.createFn = func(context.Context, *CreateIssueReq) (*CreateIssueRes, error) {
		return nil, errConnRefused
	}

	_, err := f.Submit(context.Background(), pharmacist)

	assert.ErrorIs(t, err, e.ErrCollaboratorUnavailable)
	assert.ErrorIs(t, err, errConnRefused)
	assert.Equal(t, domain.StateBuilding, f.State())
	assert.Len(t, cart.Lines(), 1)

	// повтор после сбоя разрешён и использует тот же ключ
	key := inv.lastReq.SubmissionKey
	inv.createFn = nil
	_, err = f.Submit(context.Background(), pharmacist)
	require.NoError(t, err)
	assert.Equal(t, key, inv.lastReq.SubmissionKey)
}

func TestIssueFinalizer_Timeout(t *testing.T) {
	inv := newFakeInventory(testCatalog())
	f, _, _ := newTestFinalizer(inv, 30*time.Millisecond)
	addLine(t, f, testCatalog()[0], 1)

	inv.createFn = func(ctx context.Context, _ *CreateIssueReq) (*CreateIssueRes, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := f.Submit(context.Background(), pharmacist)

	assert.ErrorIs(t, err, e.ErrCollaboratorUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.StateBuilding, f.State())
}

func TestIssueFinalizer_SubmissionInProgress(t *testing.T) {
	inv := newFakeInventory(testCatalog())
	f, _, _ := newTestFinalizer(inv, time.Second)
	addLine(t, f, testCatalog()[0], 1)

	started := make(chan struct{})
	release := make(chan struct{})
	inv.createFn = func(context.Context, *CreateIssueReq) (*CreateIssueRes, error) {
		close(started)
		<-release
		return &CreateIssueRes{IssueNumber: "ISS-000007"}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background(), pharmacist)
		done <- err
	}()
	<-started

	assert.Equal(t, domain.StateSubmitting, f.State())

	_, err := f.Submit(context.Background(), pharmacist)
	assert.ErrorIs(t, err, e.ErrSubmissionInProgress)

	err = f.Mutate(func(cart *CartEngine) error {
		return cart.AddLine(testCatalog()[1], 1)
	})
	assert.ErrorIs(t, err, e.ErrSubmissionInProgress)
	assert.ErrorIs(t, f.Cancel(), e.ErrSubmissionInProgress)
	assert.ErrorIs(t, f.Reset(), e.ErrInvalidTransition)

	close(release)
	require.NoError(t, <-done)

	_, createCalls := inv.calls()
	assert.Equal(t, 1, createCalls)
	assert.Equal(t, domain.StateCompleted, f.State())
}

func TestIssueFinalizer_CallerCancelDoesNotAbortSubmission(t *testing.T) {
	inv := newFakeInventory(testCatalog())
	f, _, _ := newTestFinalizer(inv, time.Second)
	addLine(t, f, testCatalog()[0], 1)

	ctx, cancel := context.WithCancel(context.Background())
	inv.createFn = func(callCtx context.Context, _ *CreateIssueReq) (*CreateIssueRes, error) {
		cancel()
		if err := callCtx.Err(); err != nil {
			return nil, err
		}
		return &CreateIssueRes{IssueNumber: "ISS-000008"}, nil
	}

	issue, err := f.Submit(ctx, pharmacist)
	require.NoError(t, err)
	assert.Equal(t, "ISS-000008", issue.IssueNumber)
}

func TestIssueFinalizer_RefreshSurvivesCallerCancel(t *testing.T) {
	inv := newFakeInventory(testCatalog())
	f, _, catalog := newTestFinalizer(inv, time.Second)
	addLine(t, f, testCatalog()[0], 2)

	ctx, cancel := context.WithCancel(context.Background())
	inv.createFn = func(_ context.Context, req *CreateIssueReq) (*CreateIssueRes, error) {
		cancel()
		restocked := testCatalog()
		restocked[0].AvailableQuantity = 3
		inv.setProducts(restocked)
		return &CreateIssueRes{IssueNumber: "ISS-000009", AcceptedLines: req.Lines}, nil
	}

	_, err := f.Submit(ctx, pharmacist)
	require.NoError(t, err)

	p, ok := catalog.Product(1)
	require.True(t, ok)
	assert.Equal(t, 3, p.AvailableQuantity)
}

func TestIssueFinalizer_IssueIsNotShared(t *testing.T) {
	inv := newFakeInventory(testCatalog())
	f, _, _ := newTestFinalizer(inv, time.Second)
	addLine(t, f, testCatalog()[0], 2)
	require.NoError(t, f.Mutate(func(cart *CartEngine) error {
		cart.SetPatient(&domain.PatientRef{Name: "Jane Doe"})
		return nil
	}))

	issue, err := f.Submit(context.Background(), pharmacist)
	require.NoError(t, err)

	issue.Lines[0].Quantity = 99
	issue.Patient.Name = "Mallory"

	got := f.Issue()
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, "Jane Doe", got.Patient.Name)

	got.Lines[0].Quantity = 50
	assert.Equal(t, 2, f.Issue().Lines[0].Quantity)
}

func TestIssueFinalizer_RefreshFailureDoesNotFailIssue(t *testing.T) {
	inv := newFakeInventory(testCatalog())
	f, _, _ := newTestFinalizer(inv, time.Second)
	addLine(t, f, testCatalog()[0], 1)
	inv.setListErr(errConnRefused)

	issue, err := f.Submit(context.Background(), pharmacist)

	require.NoError(t, err)
	assert.NotNil(t, issue)
	assert.Equal(t, domain.StateCompleted, f.State())
}

func TestIssueFinalizer_RoleNotPermitted(t *testing.T) {
	inv := newFakeInventory(testCatalog())
	f, _, _ := newTestFinalizer(inv, time.Second)
	addLine(t, f, testCatalog()[0], 1)

	_, err := f.Submit(context.Background(), domain.Operator{ID: "audit-1", Role: domain.RoleViewer})

	assert.ErrorIs(t, err, e.ErrNotPermitted)
	assert.Equal(t, domain.StateBuilding, f.State())
	_, createCalls := inv.calls()
	assert.Zero(t, createCalls)
}

func TestIssueFinalizer_ResetAndCompletedGuards(t *testing.T) {
	inv := newFakeInventory(testCatalog())
	f, cart, _ := newTestFinalizer(inv, time.Second)

	assert.ErrorIs(t, f.Reset(), e.ErrInvalidTransition)
	addLine(t, f, testCatalog()[0], 1)
	assert.ErrorIs(t, f.Reset(), e.ErrInvalidTransition)

	_, err := f.Submit(context.Background(), pharmacist)
	require.NoError(t, err)

	err = f.Mutate(func(cart *CartEngine) error {
		return cart.AddLine(testCatalog()[0], 1)
	})
	assert.ErrorIs(t, err, e.ErrInvalidTransition)
	assert.ErrorIs(t, f.Cancel(), e.ErrInvalidTransition)
	_, err = f.Submit(context.Background(), pharmacist)
	assert.ErrorIs(t, err, e.ErrInvalidTransition)

	require.NoError(t, f.Reset())
	assert.Equal(t, domain.StateEmpty, f.State())
	assert.True(t, cart.IsEmpty())
	assert.Nil(t, f.Issue())
}

func TestIssueFinalizer_Cancel(t *testing.T) {
	f, cart, _ := newTestFinalizer(newFakeInventory(testCatalog()), time.Second)
	addLine(t, f, testCatalog()[0], 2)

	require.NoError(t, f.Cancel())
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, domain.StateEmpty, f.State())
	require.NoError(t, f.Cancel())
}
