package pgdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/pharmacy-counter/internal/usecase"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPostgres подключается к POSTGRES_DSN и пересоздаёт схему. Без переменной тест пропускается.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	if err := pool.Ping(ctx); err != nil {
		t.Skipf("postgres is not reachable: %v", err)
	}

	for _, name := range []string{"000001_init.down.sql", "000001_init.up.sql"} {
		sql, err := os.ReadFile(filepath.Join("..", "..", "..", "db", "migrations", name))
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO products (id, name, sku, category, unit_price, quantity, batch_number, expiry_date, is_archived) VALUES
			(1, 'Paracetamol', 'PCM-500', 'analgesics', 10.00, 5, NULL, NULL, FALSE),
			(2, 'Amoxicillin 500mg', 'AMX-500', 'antibiotics', 25.50, 3, 'B-2291', '2027-03-31', FALSE),
			(3, 'Codeine', 'COD-30', 'analgesics', 12.00, 9, NULL, NULL, TRUE)
	`)
	require.NoError(t, err)

	return pool
}

type stubEncoder struct{}

func (stubEncoder) EncodeIssueCreated(eventID string, issue *domain.Issue) ([]byte, error) {
	return []byte(eventID + "/" + issue.IssueNumber), nil
}

func newFulfillment(pool *pgxpool.Pool) (*usecase.FulfillmentUseCase, *OutboxEventRepo) {
	outbox := NewOutboxEventRepo(pool, converter.NewOutboxEventConverter())
	uc := usecase.NewFulfillmentUC(
		NewProductRepo(pool, converter.NewProductConverter()),
		NewIssueRepo(pool, converter.NewIssueConverter()),
		outbox,
		pool,
		stubEncoder{},
		logger.Nop{},
	)
	return uc, outbox
}

func cartLine(id int64, name, sku, price string, qty int) domain.CartLine {
	return domain.CartLine{ProductID: id, ProductName: name, SKU: sku, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func stockOf(t *testing.T, pool *pgxpool.Pool, id int64) int {
	t.Helper()
	var q int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT quantity FROM products WHERE id = $1", id).Scan(&q))
	return q
}

func TestProductRepo_ListActive(t *testing.T) {
	pool := setupPostgres(t)

	products, err := NewProductRepo(pool, converter.NewProductConverter()).ListActive(context.Background())
	require.NoError(t, err)

	require.Len(t, products, 2)
	amox := products[0]
	assert.Equal(t, "Amoxicillin 500mg", amox.Name)
	assert.Equal(t, "25.50", amox.UnitPrice.StringFixed(2))
	assert.Equal(t, "B-2291", amox.BatchNumber)
	require.NotNil(t, amox.ExpiryDate)
	assert.Equal(t, "2027-03-31", amox.ExpiryDate.Format(time.DateOnly))
	assert.Equal(t, "Paracetamol", products[1].Name)
	assert.Empty(t, products[1].BatchNumber)
}

func TestFulfillment_CreateIssue(t *testing.T) {
	pool := setupPostgres(t)
	uc, outbox := newFulfillment(pool)
	ctx := context.Background()

	req := &usecase.CreateIssueReq{
		SubmissionKey: "rev-1",
		Lines: []domain.CartLine{
			cartLine(1, "Paracetamol", "PCM-500", "10", 2),
			cartLine(2, "Amoxicillin 500mg", "AMX-500", "25.50", 1),
		},
		Patient:  &domain.PatientRef{Name: "Jane Doe"},
		IssuedBy: "ph-7",
	}

	res, err := uc.CreateIssue(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ISS-000001", res.IssueNumber)
	assert.Empty(t, res.RejectedLines)
	require.Len(t, res.AcceptedLines, 2)
	assert.Equal(t, "B-2291", res.AcceptedLines[1].BatchNumber)

	assert.Equal(t, 3, stockOf(t, pool, 1))
	assert.Equal(t, 2, stockOf(t, pool, 2))

	// повтор с тем же ключом не списывает второй раз
	again, err := uc.CreateIssue(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ISS-000001", again.IssueNumber)
	assert.Equal(t, 3, stockOf(t, pool, 1))

	events, err := outbox.GetAndMarkAsProcessing(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ISS-000001", events[0].AggregateID)
	assert.Equal(t, usecase.IssueCreated, events[0].EventType)
	require.NoError(t, outbox.MarkAsProcessed(ctx, events[0].ID))
}

func TestFulfillment_RejectionRollsBackEverything(t *testing.T) {
	pool := setupPostgres(t)
	uc, outbox := newFulfillment(pool)
	ctx := context.Background()

	res, err := uc.CreateIssue(ctx, &usecase.CreateIssueReq{
		SubmissionKey: "rev-2",
		Lines: []domain.CartLine{
			cartLine(1, "Paracetamol", "PCM-500", "10", 2),
			cartLine(2, "Amoxicillin 500mg", "AMX-500", "25.50", 4),
			cartLine(3, "Codeine", "COD-30", "12", 1),
		},
		IssuedBy: "ph-7",
	})
	require.NoError(t, err)
	assert.Empty(t, res.IssueNumber)
	require.Len(t, res.RejectedLines, 2)
	assert.Equal(t, domain.RejectInsufficientStock, res.RejectedLines[0].Reason)
	assert.Equal(t, 3, res.RejectedLines[0].Available)
	assert.Equal(t, domain.RejectUnknownProduct, res.RejectedLines[1].Reason)

	assert.Equal(t, 5, stockOf(t, pool, 1))
	assert.Equal(t, 3, stockOf(t, pool, 2))

	events, err := outbox.GetAndMarkAsProcessing(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOutboxEventRepo_MarkAsPending(t *testing.T) {
	pool := setupPostgres(t)
	uc, outbox := newFulfillment(pool)
	ctx := context.Background()

	_, err := uc.CreateIssue(ctx, &usecase.CreateIssueReq{
		SubmissionKey: "rev-3",
		Lines:         []domain.CartLine{cartLine(1, "Paracetamol", "PCM-500", "10", 1)},
		IssuedBy:      "ph-7",
	})
	require.NoError(t, err)

	events, err := outbox.GetAndMarkAsProcessing(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	empty, err := outbox.GetAndMarkAsProcessing(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, outbox.MarkAsPending(ctx, events[0].ID))

	again, err := outbox.GetAndMarkAsProcessing(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, again, 1)
}
