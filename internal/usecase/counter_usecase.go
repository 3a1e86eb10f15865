package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
	"github.com/google/uuid"
)

// CounterUC — операции прилавка, доступные транспортному слою.
type CounterUC interface {
	OpenSession(ctx context.Context, operator domain.Operator) (*SessionView, error)
	GetSession(id string) (*SessionView, error)
	CloseSession(id string) error
	SearchCatalog(ctx context.Context, id, query string, stockOnly bool) ([]domain.Product, error)
	AddLine(ctx context.Context, id string, productID int64, quantity int) (*SessionView, error)
	UpdateQuantity(id string, productID int64, quantity int) (*SessionView, error)
	RemoveLine(id string, productID int64) (*SessionView, error)
	ClearCart(id string) (*SessionView, error)
	SetPatient(id string, patient *domain.PatientRef, notes string) (*SessionView, error)
	ApplyPrescription(ctx context.Context, id string, p domain.Prescription) (*ApplyPrescriptionRes, error)
	Submit(ctx context.Context, id string) (*domain.Issue, error)
	ResetIssue(id string) (*SessionView, error)
	Cancel(id string) (*SessionView, error)
	RenderDocument(id string, format domain.Format) (*domain.Document, error)
	DispatchDocument(ctx context.Context, id string, format domain.Format) (*DispatchRes, error)
}

// CounterOptions — параметры сессий прилавка.
type CounterOptions struct {
	SubmitTimeout  time.Duration
	SearchDebounce time.Duration
}

// CounterUseCase связывает кэш каталога, корзину, сверку рецептов, оформление и документы в сессии оператора.
type CounterUseCase struct {
	inventory InventoryCollaborator
	snapshots CatalogSnapshotRepository
	ledger    PrescriptionLedger
	sink      DocumentSink
	renderer  *DocumentRenderer
	tax       TaxPolicy
	registry  *SessionRegistry
	logger    logger.Logger
	opts      CounterOptions
}

func NewCounterUC(
	inventory InventoryCollaborator,
	snapshots CatalogSnapshotRepository,
	ledger PrescriptionLedger,
	sink DocumentSink,
	renderer *DocumentRenderer,
	tax TaxPolicy,
	logger logger.Logger,
	opts CounterOptions,
) *CounterUseCase {
	if tax == nil {
		tax = ZeroTax{}
	}

	return &CounterUseCase{
		inventory: inventory,
		snapshots: snapshots,
		ledger:    ledger,
		sink:      sink,
		renderer:  renderer,
		tax:       tax,
		registry:  NewSessionRegistry(),
		logger:    logger,
		opts:      opts,
	}
}

// WarmUp загружает каталог один раз при старте и обновляет снимок в кэше.
func (c *CounterUseCase) WarmUp(ctx context.Context) error {
	const op = "CounterUseCase.WarmUp"

	cache := NewCatalogCache(c.inventory, c.snapshots, c.logger, 0)
	if err := cache.Refresh(ctx); err != nil {
		return e.Wrap(op, err)
	}
	c.logger.Infof("Catalog warmed up. products: %d", len(cache.Products()))

	return nil
}

// OpenSession открывает сессию и загружает каталог.
// Недоступный склад не мешает открыть сессию, каталог догрузится при первом поиске.
func (c *CounterUseCase) OpenSession(ctx context.Context, operator domain.Operator) (*SessionView, error) {
	const op = "CounterUseCase.OpenSession"

	if operator.ID == "" || operator.Role == nil {
		return nil, e.Wrap(op, e.ErrMissingFields)
	}

	log := c.logger.With("operator", operator.ID)
	catalog := NewCatalogCache(c.inventory, c.snapshots, log, c.opts.SearchDebounce)
	cart := NewCartEngine(c.tax)

	s := &Session{
		ID:       uuid.NewString(),
		Operator: operator,
		OpenedAt: time.Now(),
		catalog:  catalog,
	}
	s.finalizer = NewIssueFinalizer(cart, c.inventory, catalog, log.With("session", s.ID), c.opts.SubmitTimeout)

	if err := catalog.Refresh(ctx); err != nil {
		c.logger.Warnf("Session opened without catalog. session: %s, error: %v", s.ID, e.Wrap(op, err))
	}

	c.registry.Add(s)
	c.logger.Infof("Session opened. session: %s, operator: %s, role: %s", s.ID, operator.ID, operator.Role.Name())

	return s.View(), nil
}

func (c *CounterUseCase) GetSession(id string) (*SessionView, error) {
	const op = "CounterUseCase.GetSession"

	s, err := c.registry.Get(id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return s.View(), nil
}

// CloseSession закрывает сессию. Во время оформления закрыть нельзя.
func (c *CounterUseCase) CloseSession(id string) error {
	const op = "CounterUseCase.CloseSession"

	s, err := c.registry.Get(id)
	if err != nil {
		return e.Wrap(op, err)
	}

	if s.finalizer.State() == domain.StateSubmitting {
		return e.Wrap(op, e.ErrSubmissionInProgress)
	}

	c.registry.Delete(id)
	c.logger.Infof("Session closed. session: %s", id)

	return nil
}

// SearchCatalog — отложенный поиск по каталогу сессии.
func (c *CounterUseCase) SearchCatalog(ctx context.Context, id, query string, stockOnly bool) ([]domain.Product, error) {
	const op = "CounterUseCase.SearchCatalog"

	s, err := c.registry.Get(id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := c.ensureCatalog(ctx, s); err != nil {
		return nil, e.Wrap(op, err)
	}

	products, err := s.catalog.SearchDebounced(ctx, query, stockOnly)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return products, nil
}

// AddLine добавляет товар из каталога сессии в корзину.
func (c *CounterUseCase) AddLine(ctx context.Context, id string, productID int64, quantity int) (*SessionView, error) {
	const op = "CounterUseCase.AddLine"

	s, err := c.registry.Get(id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := c.ensureCatalog(ctx, s); err != nil {
		return nil, e.Wrap(op, err)
	}

	product, ok := s.catalog.Product(productID)
	if !ok {
		return nil, e.Wrap(op, fmt.Errorf("%w: id %d", e.ErrProductNotFound, productID))
	}

	err = s.finalizer.Mutate(func(cart *CartEngine) error {
		return cart.AddLine(product, quantity)
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return s.View(), nil
}

func (c *CounterUseCase) UpdateQuantity(id string, productID int64, quantity int) (*SessionView, error) {
	const op = "CounterUseCase.UpdateQuantity"

	return c.mutate(op, id, func(cart *CartEngine) error {
		return cart.UpdateQuantity(productID, quantity)
	})
}

func (c *CounterUseCase) RemoveLine(id string, productID int64) (*SessionView, error) {
	const op = "CounterUseCase.RemoveLine"

	return c.mutate(op, id, func(cart *CartEngine) error {
		cart.RemoveLine(productID)
		return nil
	})
}

func (c *CounterUseCase) ClearCart(id string) (*SessionView, error) {
	const op = "CounterUseCase.ClearCart"

	return c.mutate(op, id, func(cart *CartEngine) error {
		cart.Clear()
		return nil
	})
}

// SetPatient задаёт пациента (nil — без пациента) и примечание.
func (c *CounterUseCase) SetPatient(id string, patient *domain.PatientRef, notes string) (*SessionView, error) {
	const op = "CounterUseCase.SetPatient"

	return c.mutate(op, id, func(cart *CartEngine) error {
		cart.SetPatient(patient)
		cart.SetNotes(notes)
		return nil
	})
}

// ApplyPrescription загружает рецепт в корзину ровно один раз.
// Повторное применение того же рецепта возвращает ErrPrescriptionConsumed и корзину не меняет.
func (c *CounterUseCase) ApplyPrescription(ctx context.Context, id string, p domain.Prescription) (*ApplyPrescriptionRes, error) {
	const op = "CounterUseCase.ApplyPrescription"

	if len(p.Medications) == 0 {
		return nil, e.Wrap(op, e.ErrNoMedications)
	}

	s, err := c.registry.Get(id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if !s.catalog.Loaded() {
		return nil, e.Wrap(op, e.ErrCatalogNotLoaded)
	}

	token := p.Token(s.ID)
	consumed, err := c.ledger.Consume(ctx, token)
	if err != nil {
		return nil, e.Wrap(op, unavailable(err))
	}
	if !consumed {
		return nil, e.Wrap(op, fmt.Errorf("%w: %s", e.ErrPrescriptionConsumed, token))
	}

	products := s.catalog.Products()
	byID := make(map[int64]domain.Product, len(products))
	for _, pr := range products {
		byID[pr.ID] = pr
	}

	result := Reconcile(p.Medications, products)
	res := &ApplyPrescriptionRes{
		Token:     token,
		Unmatched: result.Unmatched,
		Warnings:  result.Warnings,
	}

	err = s.finalizer.Mutate(func(cart *CartEngine) error {
		for _, line := range result.Matched {
			added, warning, err := applyLine(cart, byID[line.ProductID], line.Quantity)
			if err != nil {
				return err
			}
			if warning != nil {
				res.Warnings = append(res.Warnings, *warning)
			}
			if added > 0 {
				l := line
				l.Quantity = added
				res.Added = append(res.Added, l)
			}
		}

		if p.Patient != nil {
			cart.SetPatient(p.Patient)
		}
		return nil
	})
	if err != nil {
		if relErr := c.ledger.Release(ctx, token); relErr != nil {
			c.logger.Errorf(relErr, "Failed to release prescription token %s", token)
		}
		return nil, e.Wrap(op, err)
	}

	c.logger.Infof("Prescription applied. session: %s, token: %s, added: %d, unmatched: %d, warnings: %d",
		id, token, len(res.Added), len(res.Unmatched), len(res.Warnings))

	return res, nil
}

// applyLine добавляет строку рецепта. Если в корзине уже есть такой товар и потолок не позволяет,
// загружается остаток до потолка с предупреждением.
func applyLine(cart *CartEngine, product domain.Product, quantity int) (int, *QuantityWarning, error) {
	err := cart.AddLine(product, quantity)
	if err == nil {
		return quantity, nil, nil
	}

	var stockErr *domain.StockError
	if !errors.As(err, &stockErr) {
		return 0, nil, err
	}

	loaded := 0
	existing, ok := cart.Line(product.ID)
	if ok {
		if room := existing.StockCeiling - existing.Quantity; room > 0 {
			if err := cart.AddLine(product, room); err != nil {
				return 0, nil, err
			}
			loaded = room
		}
	}

	return loaded, &QuantityWarning{
		Name:      product.Name,
		ProductID: product.ID,
		Requested: quantity,
		Loaded:    loaded,
		Available: stockErr.Available,
		Reason:    WarningCartCeiling,
	}, nil
}

// Submit оформляет выдачу от имени оператора сессии.
func (c *CounterUseCase) Submit(ctx context.Context, id string) (*domain.Issue, error) {
	const op = "CounterUseCase.Submit"

	s, err := c.registry.Get(id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	issue, err := s.finalizer.Submit(ctx, s.Operator)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return issue, nil
}

func (c *CounterUseCase) ResetIssue(id string) (*SessionView, error) {
	const op = "CounterUseCase.ResetIssue"

	s, err := c.registry.Get(id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := s.finalizer.Reset(); err != nil {
		return nil, e.Wrap(op, err)
	}

	return s.View(), nil
}

func (c *CounterUseCase) Cancel(id string) (*SessionView, error) {
	const op = "CounterUseCase.Cancel"

	s, err := c.registry.Get(id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := s.finalizer.Cancel(); err != nil {
		return nil, e.Wrap(op, err)
	}

	return s.View(), nil
}

// RenderDocument строит документ завершённой выдачи.
func (c *CounterUseCase) RenderDocument(id string, format domain.Format) (*domain.Document, error) {
	const op = "CounterUseCase.RenderDocument"

	s, err := c.registry.Get(id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	issue := s.finalizer.Issue()
	if issue == nil {
		return nil, e.Wrap(op, e.ErrNoIssue)
	}

	doc, err := c.renderer.Render(issue, format)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return doc, nil
}

// DispatchDocument передаёт документ на печать. Одновременно в сессии идёт не больше одной отправки.
func (c *CounterUseCase) DispatchDocument(ctx context.Context, id string, format domain.Format) (*DispatchRes, error) {
	const op = "CounterUseCase.DispatchDocument"

	s, err := c.registry.Get(id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if !s.Operator.Role.CanPrint() {
		return nil, e.Wrap(op, e.ErrNotPermitted)
	}

	if !s.dispatching.CompareAndSwap(false, true) {
		return nil, e.Wrap(op, e.ErrDispatchInProgress)
	}
	defer s.dispatching.Store(false)

	doc, err := c.RenderDocument(id, format)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res, err := c.sink.Dispatch(ctx, doc)
	if err != nil {
		return nil, e.Wrap(op, unavailable(err))
	}

	c.logger.Infof("Document dispatched. session: %s, issue_number: %s, format: %s, location: %s",
		id, doc.IssueNumber, format, res.Location)

	return res, nil
}

func (c *CounterUseCase) mutate(op, id string, fn func(cart *CartEngine) error) (*SessionView, error) {
	s, err := c.registry.Get(id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := s.finalizer.Mutate(fn); err != nil {
		return nil, e.Wrap(op, err)
	}

	return s.View(), nil
}

// ensureCatalog догружает каталог, если при открытии сессии склад был недоступен.
func (c *CounterUseCase) ensureCatalog(ctx context.Context, s *Session) error {
	if s.catalog.Loaded() {
		return nil
	}

	if err := s.catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", e.ErrCatalogNotLoaded, err)
	}

	return nil
}
