package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/cfg"
	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/internal/repository/redis/converter"
	"github.com/DRSN-tech/pharmacy-counter/pkg/clients"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const catalogSnapshotKey = "catalog:snapshot"

// CacheRepo хранит последний снимок каталога на случай недоступности склада.
type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ProductConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.ProductConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetCatalogSnapshot возвращает снимок или nil, nil при промахе.
// Повреждённый снимок считается промахом и удаляется.
func (c *CacheRepo) GetCatalogSnapshot(ctx context.Context) ([]domain.Product, error) {
	data, err := c.client.Client.Get(ctx, catalogSnapshotKey).Bytes()
	if errors.Is(err, r.Nil) {
		return nil, nil // cache miss
	}
	if err != nil {
		c.logger.Warnf("Redis GET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	model, err := c.unmarshalSnapshot(data)
	if err != nil {
		c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		c.dropSnapshot(ctx)
		return nil, nil
	}

	products, err := c.conv.ToArrEntity(model.Products)
	if err != nil {
		c.logger.Warnf("Catalog snapshot has invalid product: %v", e.Wrap(whereami.WhereAmI(), err))
		c.dropSnapshot(ctx)
		return nil, nil
	}

	c.logger.Debugf("Catalog snapshot read. products: %d, stored_at: %s", len(products), model.StoredAt.Format(time.RFC3339))

	return products, nil
}

// SetCatalogSnapshot перезаписывает снимок с TTL из конфигурации.
func (c *CacheRepo) SetCatalogSnapshot(ctx context.Context, products []domain.Product) error {
	data, err := c.marshalSnapshot(&converter.CatalogSnapshotRedisModel{
		Products: c.conv.ToArrRedisModel(products),
		StoredAt: time.Now().UTC(),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := c.client.Client.Set(ctx, catalogSnapshotKey, data, c.cfg.CatalogSnapshotTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (c *CacheRepo) dropSnapshot(ctx context.Context) {
	if err := c.client.Client.Del(ctx, catalogSnapshotKey).Err(); err != nil {
		c.logger.Warnf("Redis DEL failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}
}

// marshalSnapshot сериализует снимок в JSON для кэша
func (c *CacheRepo) marshalSnapshot(model *converter.CatalogSnapshotRedisModel) ([]byte, error) {
	data, err := json.Marshal(model)
	if err != nil {
		return nil, err
	}

	return data, nil
}

// unmarshalSnapshot десериализует JSON из кэша
func (c *CacheRepo) unmarshalSnapshot(data []byte) (*converter.CatalogSnapshotRedisModel, error) {
	var model converter.CatalogSnapshotRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("decode catalog snapshot: %w", err)
	}

	return &model, nil
}
