package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/pharmacy-counter/internal/usecase"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// ProductRepo реализует учёт остатков поверх PostgreSQL.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

// ListActive возвращает все неархивные товары, включая нулевые остатки.
func (p *ProductRepo) ListActive(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, name, sku, category, unit_price::text, quantity,
		       COALESCE(batch_number, ''), expiry_date
		FROM products
		WHERE NOT is_archived
		ORDER BY name, id
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	models := make([]*converter.ProductModel, 0)
	for rows.Next() {
		var model converter.ProductModel
		if err := rows.Scan(
			&model.ID, &model.Name, &model.SKU, &model.Category, &model.UnitPrice,
			&model.Quantity, &model.BatchNumber, &model.ExpiryDate,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		models = append(models, &model)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	products, err := p.conv.ToArrEntity(models)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return products, nil
}

// DecrementStock условно списывает остаток: строка обновляется только при quantity >= $2.
// Если остатка не хватило, возвращается текущий остаток, а транзакцию откатывает вызывающий.
func (p *ProductRepo) DecrementStock(ctx context.Context, productID int64, quantity int) (*usecase.DecrementStockRes, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		UPDATE products
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2 AND NOT is_archived
		RETURNING COALESCE(batch_number, ''), expiry_date
	`

	res := &usecase.DecrementStockRes{}
	err = tx.QueryRow(ctx, query, productID, quantity).Scan(&res.BatchNumber, &res.ExpiryDate)
	if err == nil {
		res.Exists = true
		res.Applied = true
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// списание не прошло: различаем нехватку и отсутствующий товар
	err = tx.QueryRow(ctx, `SELECT quantity FROM products WHERE id = $1 AND NOT is_archived`, productID).
		Scan(&res.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return res, nil
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	res.Exists = true

	return res, nil
}
