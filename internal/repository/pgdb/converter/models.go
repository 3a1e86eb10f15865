package converter

import "time"

// ProductModel представляет запись таблицы products в PostgreSQL.
// Цена читается как текст (unit_price::text), чтобы не терять точность NUMERIC.
type ProductModel struct {
	ID          int64      `db:"id"`
	Name        string     `db:"name"`
	SKU         string     `db:"sku"`
	Category    string     `db:"category"`
	UnitPrice   string     `db:"unit_price"`
	Quantity    int        `db:"quantity"`
	BatchNumber string     `db:"batch_number"`
	ExpiryDate  *time.Time `db:"expiry_date"`
}

// IssueModel представляет запись таблицы issues.
type IssueModel struct {
	ID             int64     `db:"id"`
	IssueNumber    string    `db:"issue_number"`
	SubmissionKey  string    `db:"submission_key"`
	PatientName    *string   `db:"patient_name"`
	PatientContact *string   `db:"patient_contact"`
	Notes          string    `db:"notes"`
	IssuedBy       string    `db:"issued_by"`
	Subtotal       string    `db:"subtotal"`
	CreatedAt      time.Time `db:"created_at"`
}

// IssueLineModel представляет запись таблицы issue_lines.
type IssueLineModel struct {
	LineNo      int        `db:"line_no"`
	ProductID   int64      `db:"product_id"`
	ProductName string     `db:"product_name"`
	SKU         string     `db:"sku"`
	Quantity    int        `db:"quantity"`
	UnitPrice   string     `db:"unit_price"`
	BatchNumber *string    `db:"batch_number"`
	ExpiryDate  *time.Time `db:"expiry_date"`
}

// OutboxEventModel представляет запись таблицы outbox_events.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     string     `db:"event_id"`
	EventType   string     `db:"event_type"`
	AggregateID string     `db:"aggregate_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
