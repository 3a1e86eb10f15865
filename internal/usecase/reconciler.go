package usecase

import (
	"strings"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
)

// Reconcile сопоставляет позиции рецепта с каталогом.
// Совпадение только точное по названию без учёта регистра: нечёткий поиск может выдать не тот препарат.
// Количество по умолчанию 1, сверх остатка не загружается, излишек уходит в предупреждения.
// Чистая функция: корзину не трогает.
func Reconcile(requested []domain.MedicationRequest, catalog []domain.Product) ReconcileResult {
	var res ReconcileResult

	allocated := make(map[int64]int)
	matchedIdx := make(map[int64]int)

	for _, req := range requested {
		name := strings.TrimSpace(req.Name)
		quantity := req.Quantity
		if quantity < 1 {
			quantity = 1
		}

		product, ok := pickProduct(name, catalog, allocated)
		if !ok {
			res.Unmatched = append(res.Unmatched, req.Name)
			continue
		}

		remaining := product.AvailableQuantity - allocated[product.ID]
		if remaining <= 0 {
			res.Warnings = append(res.Warnings, QuantityWarning{
				Name:      product.Name,
				ProductID: product.ID,
				Requested: quantity,
				Loaded:    0,
				Available: product.AvailableQuantity,
				Reason:    WarningOutOfStock,
			})
			continue
		}

		load := min(quantity, remaining)
		if load < quantity {
			res.Warnings = append(res.Warnings, QuantityWarning{
				Name:      product.Name,
				ProductID: product.ID,
				Requested: quantity,
				Loaded:    load,
				Available: product.AvailableQuantity,
				Reason:    WarningCapped,
			})
		}

		allocated[product.ID] += load
		if i, ok := matchedIdx[product.ID]; ok {
			res.Matched[i].Quantity += load
			continue
		}

		matchedIdx[product.ID] = len(res.Matched)
		res.Matched = append(res.Matched, domain.NewCartLine(product, load))
	}

	return res
}

// pickProduct выбирает среди одноимённых товаров первый с нераспределённым остатком,
// иначе первый совпавший.
func pickProduct(name string, catalog []domain.Product, allocated map[int64]int) (domain.Product, bool) {
	if name == "" {
		return domain.Product{}, false
	}

	var (
		first domain.Product
		found bool
	)
	for _, p := range catalog {
		if !strings.EqualFold(strings.TrimSpace(p.Name), name) {
			continue
		}
		if p.AvailableQuantity-allocated[p.ID] > 0 {
			return p, true
		}
		if !found {
			first, found = p, true
		}
	}

	return first, found
}
