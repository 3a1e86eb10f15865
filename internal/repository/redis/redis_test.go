package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/cfg"
	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/internal/repository/redis/converter"
	"github.com/DRSN-tech/pharmacy-counter/pkg/clients"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedis подключается к REDIS_ADDR; без него тесты пропускаются.
func setupRedis(t *testing.T) (*clients.RedisClient, *cfg.RedisCfg) {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis tests")
	}

	c := &cfg.RedisCfg{
		Addr:                 addr,
		DB:                   15,
		DialTimeout:          time.Second,
		Timeout:              time.Second,
		CatalogSnapshotTTL:   time.Minute,
		PrescriptionTokenTTL: time.Minute,
	}
	client := clients.NewRedisClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	t.Cleanup(func() {
		client.Client.Del(context.Background(), catalogSnapshotKey)
		_ = client.Close()
	})

	return client, c
}

func snapshotProducts() []domain.Product {
	expiry := time.Date(2027, 5, 1, 0, 0, 0, 0, time.UTC)

	return []domain.Product{
		{ID: 1, Name: "Paracetamol", SKU: "PCM-500", Category: "analgesics", UnitPrice: decimal.RequireFromString("10.50"), AvailableQuantity: 5},
		{ID: 2, Name: "Amoxicillin", SKU: "AMX-500", UnitPrice: decimal.RequireFromString("25"), AvailableQuantity: 0, BatchNumber: "B-1", ExpiryDate: &expiry},
	}
}

func TestCacheRepo_Snapshot(t *testing.T) {
	client, c := setupRedis(t)
	repo := NewCacheRepo(client, converter.NewProductConverter(), c, logger.Nop{})
	ctx := context.Background()

	client.Client.Del(ctx, catalogSnapshotKey)
	got, err := repo.GetCatalogSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.SetCatalogSnapshot(ctx, snapshotProducts()))

	got, err = repo.GetCatalogSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "10.50", got[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "B-1", got[1].BatchNumber)
	assert.True(t, got[1].ExpiryDate.Equal(*snapshotProducts()[1].ExpiryDate))

	ttl := client.Client.TTL(ctx, catalogSnapshotKey).Val()
	assert.Greater(t, ttl, time.Duration(0))
}

func TestCacheRepo_CorruptSnapshotIsMiss(t *testing.T) {
	client, c := setupRedis(t)
	repo := NewCacheRepo(client, converter.NewProductConverter(), c, logger.Nop{})
	ctx := context.Background()

	require.NoError(t, client.Client.Set(ctx, catalogSnapshotKey, "{not json", time.Minute).Err())

	got, err := repo.GetCatalogSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, client.Client.Exists(ctx, catalogSnapshotKey).Val())
}

func TestPrescriptionLedger_ConsumeOnce(t *testing.T) {
	client, c := setupRedis(t)
	ledger := NewPrescriptionLedger(client, c)
	ctx := context.Background()
	token := "RX-" + uuid.NewString()
	t.Cleanup(func() { client.Client.Del(context.Background(), prescriptionKey(token)) })

	ok, err := ledger.Consume(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.Consume(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Release(ctx, token))
	ok, err = ledger.Consume(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProductConverter_RoundTrip(t *testing.T) {
	conv := converter.NewProductConverter()

	models := conv.ToArrRedisModel(snapshotProducts())
	assert.Equal(t, "10.5", models[0].UnitPrice)
	assert.Nil(t, models[0].ExpiryDate)

	back, err := conv.ToArrEntity(models)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.True(t, back[0].UnitPrice.Equal(decimal.RequireFromString("10.50")))
	assert.Equal(t, 5, back[0].AvailableQuantity)

	_, err = conv.ToEntity(&converter.ProductRedisModel{UnitPrice: "ten"})
	assert.Error(t, err)
}
