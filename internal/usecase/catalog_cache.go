package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
)

// CatalogCache — read-only копия активных товаров склада.
// Остатки в ней служат только потолком для корзины, авторитетная проверка происходит при оформлении.
type CatalogCache struct {
	inventory InventoryCollaborator
	snapshots CatalogSnapshotRepository
	logger    logger.Logger
	debounce  time.Duration

	mu       sync.RWMutex
	products []domain.Product
	byID     map[int64]int
	loadedAt time.Time

	// состояние отложенного поиска принадлежит экземпляру
	debounceMu    sync.Mutex
	searchSeq     uint64
	cancelPending context.CancelFunc
}

// NewCatalogCache создаёт пустой кэш. snapshots может быть nil.
func NewCatalogCache(
	inventory InventoryCollaborator,
	snapshots CatalogSnapshotRepository,
	logger logger.Logger,
	debounce time.Duration,
) *CatalogCache {
	return &CatalogCache{
		inventory: inventory,
		snapshots: snapshots,
		logger:    logger,
		debounce:  debounce,
		byID:      make(map[int64]int),
	}
}

// Refresh заменяет весь набор товаров данными склада.
// Если склад недоступен, используется последний снимок из кэша.
func (c *CatalogCache) Refresh(ctx context.Context) error {
	const op = "CatalogCache.Refresh"

	products, err := c.inventory.ListActiveProducts(ctx)
	if err != nil {
		err = unavailable(err)

		snapshot, ok := c.loadSnapshot(ctx)
		if !ok {
			return e.Wrap(op, err)
		}

		c.logger.Warnf("Inventory unavailable, catalog restored from snapshot. products: %d, error: %v", len(snapshot), e.Wrap(op, err))
		c.replace(snapshot)
		return nil
	}

	c.replace(products)
	c.logger.Debugf("Catalog refreshed. products: %d", len(products))

	if c.snapshots != nil {
		if err := c.snapshots.SetCatalogSnapshot(ctx, products); err != nil {
			c.logger.Warnf("Failed to store catalog snapshot: %v", e.Wrap(op, err))
		}
	}

	return nil
}

// Search — регистронезависимый поиск подстроки по названию, SKU и категории.
// При stockOnly товары с нулевым остатком исключаются.
func (c *CatalogCache) Search(query string, stockOnly bool) []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]domain.Product, 0)
	for _, p := range c.products {
		if stockOnly && !p.InStock() {
			continue
		}
		if p.Matches(query) {
			res = append(res, p)
		}
	}

	return res
}

// SearchDebounced ждёт паузу debounce и выполняет Search.
// Более новый вызов отменяет ожидающий, тот возвращает ErrSearchSuperseded.
func (c *CatalogCache) SearchDebounced(ctx context.Context, query string, stockOnly bool) ([]domain.Product, error) {
	const op = "CatalogCache.SearchDebounced"

	c.debounceMu.Lock()
	if c.cancelPending != nil {
		c.cancelPending()
	}
	c.searchSeq++
	seq := c.searchSeq
	waitCtx, cancel := context.WithCancel(ctx)
	c.cancelPending = cancel
	c.debounceMu.Unlock()
	defer cancel()

	timer := time.NewTimer(c.debounce)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-waitCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, e.Wrap(op, err)
		}
		return nil, e.Wrap(op, e.ErrSearchSuperseded)
	}

	c.debounceMu.Lock()
	current := c.searchSeq == seq
	if current {
		c.cancelPending = nil
	}
	c.debounceMu.Unlock()

	if !current {
		return nil, e.Wrap(op, e.ErrSearchSuperseded)
	}

	return c.Search(query, stockOnly), nil
}

// Product ищет товар по идентификатору.
func (c *CatalogCache) Product(id int64) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, false
	}

	return c.products[i], true
}

// Products возвращает копию всего набора.
func (c *CatalogCache) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]domain.Product(nil), c.products...)
}

// Loaded сообщает, был ли хотя бы один успешный Refresh.
func (c *CatalogCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return !c.loadedAt.IsZero()
}

func (c *CatalogCache) loadSnapshot(ctx context.Context) ([]domain.Product, bool) {
	const op = "CatalogCache.loadSnapshot"

	if c.snapshots == nil {
		return nil, false
	}

	snapshot, err := c.snapshots.GetCatalogSnapshot(ctx)
	if err != nil {
		c.logger.Warnf("Failed to read catalog snapshot: %v", e.Wrap(op, err))
		return nil, false
	}

	return snapshot, snapshot != nil
}

func (c *CatalogCache) replace(products []domain.Product) {
	byID := make(map[int64]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	c.mu.Lock()
	c.products = append([]domain.Product(nil), products...)
	c.byID = byID
	c.loadedAt = time.Now()
	c.mu.Unlock()
}

// unavailable приводит транспортную ошибку к ErrCollaboratorUnavailable.
func unavailable(err error) error {
	if errors.Is(err, e.ErrCollaboratorUnavailable) {
		return err
	}

	return fmt.Errorf("%w: %w", e.ErrCollaboratorUnavailable, err)
}
