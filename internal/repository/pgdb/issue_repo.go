package pgdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const issueNumberFormat = "ISS-%06d"

// IssueRepo хранит созданные выдачи и их строки.
type IssueRepo struct {
	pool *pgxpool.Pool
	conv converter.IssueConverter
}

func NewIssueRepo(pool *pgxpool.Pool, conv converter.IssueConverter) *IssueRepo {
	return &IssueRepo{
		pool: pool,
		conv: conv,
	}
}

// GetBySubmissionKey ищет выдачу, уже созданную по этому ключу. Работает в транзакции из контекста.
func (i *IssueRepo) GetBySubmissionKey(ctx context.Context, key string) (*domain.Issue, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		SELECT id, issue_number, submission_key, patient_name, patient_contact,
		       notes, issued_by, subtotal::text, created_at
		FROM issues
		WHERE submission_key = $1
	`

	var model converter.IssueModel
	err = tx.QueryRow(ctx, query, key).Scan(
		&model.ID, &model.IssueNumber, &model.SubmissionKey, &model.PatientName, &model.PatientContact,
		&model.Notes, &model.IssuedBy, &model.Subtotal, &model.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	lines, err := i.lines(ctx, tx, model.ID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	issue, err := i.conv.ToEntity(&model, lines)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return issue, nil
}

// Create присваивает номер из последовательности и сохраняет выдачу со строками.
func (i *IssueRepo) Create(ctx context.Context, issue *domain.Issue, submissionKey string) (*domain.Issue, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('issue_number_seq')`).Scan(&seq); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	created := *issue
	created.IssueNumber = fmt.Sprintf(issueNumberFormat, seq)
	created.Lines = domain.CloneLines(issue.Lines)

	model := i.conv.ToModel(&created, submissionKey)
	query := `
		INSERT INTO issues (
			issue_number,
			submission_key,
			patient_name,
			patient_contact,
			notes,
			issued_by,
			subtotal
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at;
	`

	if err := tx.QueryRow(ctx, query,
		model.IssueNumber,
		model.SubmissionKey,
		model.PatientName,
		model.PatientContact,
		model.Notes,
		model.IssuedBy,
		model.Subtotal,
	).Scan(&model.ID, &model.CreatedAt); err != nil {
		if postgresDuplicate(err) {
			return nil, fmt.Errorf("%s: issue with submission key %s already exists", whereami.WhereAmI(), submissionKey)
		}

		return nil, fmt.Errorf("%s: failed to insert issue: %w", whereami.WhereAmI(), err)
	}
	created.CreatedAt = model.CreatedAt

	batch := &pgx.Batch{}
	for _, l := range i.conv.ToLineModels(created.Lines) {
		batch.Queue(`
			INSERT INTO issue_lines (
				issue_id, line_no, product_id, product_name, sku,
				quantity, unit_price, batch_number, expiry_date
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			model.ID, l.LineNo, l.ProductID, l.ProductName, l.SKU,
			l.Quantity, l.UnitPrice, l.BatchNumber, l.ExpiryDate,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("%s: failed to insert issue lines: %w", whereami.WhereAmI(), err)
	}

	return &created, nil
}

func (i *IssueRepo) lines(ctx context.Context, tx pgx.Tx, issueID int64) ([]*converter.IssueLineModel, error) {
	query := `
		SELECT line_no, product_id, product_name, sku, quantity, unit_price::text, batch_number, expiry_date
		FROM issue_lines
		WHERE issue_id = $1
		ORDER BY line_no
	`

	rows, err := tx.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	models := make([]*converter.IssueLineModel, 0)
	for rows.Next() {
		var m converter.IssueLineModel
		if err := rows.Scan(
			&m.LineNo, &m.ProductID, &m.ProductName, &m.SKU, &m.Quantity,
			&m.UnitPrice, &m.BatchNumber, &m.ExpiryDate,
		); err != nil {
			return nil, err
		}
		models = append(models, &m)
	}

	return models, rows.Err()
}
