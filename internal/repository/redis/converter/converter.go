package converter

import (
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/shopspring/decimal"
)

// ProductConverter преобразует Product между domain и моделью Redis.
type ProductConverter interface {
	ToRedisModel(entity *domain.Product) *ProductRedisModel
	ToEntity(model *ProductRedisModel) (*domain.Product, error)
	ToArrRedisModel(entities []domain.Product) []ProductRedisModel
	ToArrEntity(models []ProductRedisModel) ([]domain.Product, error)
}

type ProductConverterImpl struct{}

func NewProductConverter() *ProductConverterImpl {
	return &ProductConverterImpl{}
}

func (ProductConverterImpl) ToRedisModel(entity *domain.Product) *ProductRedisModel {
	return &ProductRedisModel{
		ID:                entity.ID,
		Name:              entity.Name,
		SKU:               entity.SKU,
		Category:          entity.Category,
		UnitPrice:         entity.UnitPrice.String(),
		AvailableQuantity: entity.AvailableQuantity,
		BatchNumber:       entity.BatchNumber,
		ExpiryDate:        ConvertPointerTime(entity.ExpiryDate),
	}
}

func (ProductConverterImpl) ToEntity(model *ProductRedisModel) (*domain.Product, error) {
	price, err := decimal.NewFromString(model.UnitPrice)
	if err != nil {
		return nil, err
	}

	return &domain.Product{
		ID:                model.ID,
		Name:              model.Name,
		SKU:               model.SKU,
		Category:          model.Category,
		UnitPrice:         price,
		AvailableQuantity: model.AvailableQuantity,
		BatchNumber:       model.BatchNumber,
		ExpiryDate:        ConvertPointerTime(model.ExpiryDate),
	}, nil
}

func (c ProductConverterImpl) ToArrRedisModel(entities []domain.Product) []ProductRedisModel {
	out := make([]ProductRedisModel, 0, len(entities))
	for i := range entities {
		out = append(out, *c.ToRedisModel(&entities[i]))
	}

	return out
}

func (c ProductConverterImpl) ToArrEntity(models []ProductRedisModel) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(models))
	for i := range models {
		p, err := c.ToEntity(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}

	return out, nil
}

func ConvertPointerTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t

	return &v
}
