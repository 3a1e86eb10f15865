package converter

import "time"

// ProductRedisModel — товар в снимке каталога. Цена хранится строкой без потери точности.
type ProductRedisModel struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	SKU               string     `json:"sku"`
	Category          string     `json:"category"`
	UnitPrice         string     `json:"unit_price"`
	AvailableQuantity int        `json:"available_quantity"`
	BatchNumber       string     `json:"batch_number,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
}

// CatalogSnapshotRedisModel — весь каталог одним значением.
type CatalogSnapshotRedisModel struct {
	Products []ProductRedisModel `json:"products"`
	StoredAt time.Time           `json:"stored_at"`
}
