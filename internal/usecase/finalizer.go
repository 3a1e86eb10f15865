package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
)

// CatalogRefresher обновляет потолки остатков после успешной выдачи.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

// IssueFinalizer — автомат Empty -> Building -> Submitting -> Completed.
// Любая ошибка оформления возвращает его в Building с нетронутой корзиной.
type IssueFinalizer struct {
	inventory InventoryCollaborator
	catalog   CatalogRefresher
	logger    logger.Logger
	timeout   time.Duration

	mu         sync.Mutex
	cart       *CartEngine
	submitting bool
	issue      *domain.Issue
}

func NewIssueFinalizer(
	cart *CartEngine,
	inventory InventoryCollaborator,
	catalog CatalogRefresher,
	logger logger.Logger,
	timeout time.Duration,
) *IssueFinalizer {
	return &IssueFinalizer{
		cart:      cart,
		inventory: inventory,
		catalog:   catalog,
		logger:    logger,
		timeout:   timeout,
	}
}

// State вычисляет текущее состояние автомата.
func (f *IssueFinalizer) State() domain.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state()
}

func (f *IssueFinalizer) state() domain.SessionState {
	switch {
	case f.submitting:
		return domain.StateSubmitting
	case f.issue != nil:
		return domain.StateCompleted
	case f.cart.IsEmpty():
		return domain.StateEmpty
	default:
		return domain.StateBuilding
	}
}

// Mutate выполняет изменение корзины, если автомат его допускает.
func (f *IssueFinalizer) Mutate(fn func(cart *CartEngine) error) error {
	const op = "IssueFinalizer.Mutate"

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkMutable(); err != nil {
		return e.Wrap(op, err)
	}

	return fn(f.cart)
}

// View даёт доступ на чтение к корзине и выдаче под блокировкой.
func (f *IssueFinalizer) View(fn func(cart *CartEngine, issue *domain.Issue, state domain.SessionState)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fn(f.cart, f.issue, f.state())
}

// Submit отправляет замороженные строки на склад.
// Блокировка на время вызова не удерживается, повторный Submit получает ErrSubmissionInProgress.
func (f *IssueFinalizer) Submit(ctx context.Context, operator domain.Operator) (*domain.Issue, error) {
	const op = "IssueFinalizer.Submit"

	if operator.Role == nil || !operator.Role.CanDispense() {
		return nil, e.Wrap(op, e.ErrNotPermitted)
	}

	f.mu.Lock()
	switch {
	case f.submitting:
		f.mu.Unlock()
		return nil, e.Wrap(op, e.ErrSubmissionInProgress)
	case f.issue != nil:
		f.mu.Unlock()
		return nil, e.Wrap(op, e.ErrInvalidTransition)
	case f.cart.IsEmpty():
		f.mu.Unlock()
		return nil, e.Wrap(op, e.ErrEmptyCart)
	}

	snapshot := f.cart.Snapshot()
	req := &CreateIssueReq{
		SubmissionKey: f.cart.Revision(),
		Lines:         domain.CloneLines(snapshot.Lines),
		Patient:       snapshot.Patient,
		Notes:         snapshot.Notes,
		IssuedBy:      operator.ID,
	}
	f.submitting = true
	f.mu.Unlock()

	f.logger.Infof("Issue submission started. operator: %s, lines: %d, key: %s", operator.ID, len(req.Lines), req.SubmissionKey)

	// отмена на середине не поддерживается: склад либо фиксирует, либо отказывает целиком
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	res, err := f.inventory.CreateIssue(callCtx, req)
	cancel()

	f.mu.Lock()
	f.submitting = false

	if err != nil {
		f.mu.Unlock()
		err = unavailable(err)
		f.logger.Errorf(err, "Issue submission failed, cart kept. operator: %s", operator.ID)
		return nil, e.Wrap(op, err)
	}

	if len(res.RejectedLines) > 0 {
		f.mu.Unlock()
		rejErr := &domain.RejectionError{Lines: attributeRejected(res.RejectedLines, snapshot.Lines)}
		f.logger.Warnf("Issue submission rejected by inventory: %v", rejErr)
		return nil, e.Wrap(op, rejErr)
	}

	issue := buildIssue(snapshot, res, operator.ID)
	f.issue = issue
	f.mu.Unlock()

	f.logger.Infof("Issue completed. issue_number: %s, operator: %s", issue.IssueNumber, operator.ID)

	if f.catalog != nil {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		if err := f.catalog.Refresh(refreshCtx); err != nil {
			f.logger.Warnf("Catalog refresh after issue failed: %v", e.Wrap(op, err))
		}
		cancel()
	}

	return issue.Clone(), nil
}

// Reset допустим только из Completed: очищает корзину и возвращает автомат в Empty.
func (f *IssueFinalizer) Reset() error {
	const op = "IssueFinalizer.Reset"

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state() != domain.StateCompleted {
		return e.Wrap(op, e.ErrInvalidTransition)
	}

	f.issue = nil
	f.cart.Clear()

	return nil
}

// Cancel — явная отмена сборки корзины.
func (f *IssueFinalizer) Cancel() error {
	const op = "IssueFinalizer.Cancel"

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkMutable(); err != nil {
		return e.Wrap(op, err)
	}
	f.cart.Clear()

	return nil
}

// Issue возвращает копию завершённой выдачи или nil.
func (f *IssueFinalizer) Issue() *domain.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.issue.Clone()
}

func (f *IssueFinalizer) checkMutable() error {
	switch {
	case f.submitting:
		return e.ErrSubmissionInProgress
	case f.issue != nil:
		return e.ErrInvalidTransition
	}

	return nil
}

// buildIssue собирает выдачу из локального снимка, серия и срок годности берутся у склада, если он их вернул.
func buildIssue(snapshot domain.Cart, res *CreateIssueRes, issuedBy string) *domain.Issue {
	accepted := make(map[int64]domain.CartLine, len(res.AcceptedLines))
	for _, l := range res.AcceptedLines {
		accepted[l.ProductID] = l
	}

	lines := domain.CloneLines(snapshot.Lines)
	for i, l := range lines {
		a, ok := accepted[l.ProductID]
		if !ok {
			continue
		}
		if a.BatchNumber != "" {
			lines[i].BatchNumber = a.BatchNumber
		}
		if a.ExpiryDate != nil {
			t := *a.ExpiryDate
			lines[i].ExpiryDate = &t
		}
	}

	createdAt := res.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &domain.Issue{
		IssueNumber: res.IssueNumber,
		Lines:       lines,
		Patient:     snapshot.Patient,
		Notes:       snapshot.Notes,
		CreatedAt:   createdAt,
		IssuedBy:    issuedBy,
	}
}

// attributeRejected дополняет отказы SKU из корзины, если склад его не вернул.
func attributeRejected(rejected []domain.RejectedLine, lines []domain.CartLine) []domain.RejectedLine {
	skus := make(map[int64]string, len(lines))
	for _, l := range lines {
		skus[l.ProductID] = l.SKU
	}

	out := make([]domain.RejectedLine, len(rejected))
	for i, r := range rejected {
		out[i] = r
		if out[i].SKU == "" {
			out[i].SKU = skus[r.ProductID]
		}
	}

	return out
}
