package kafka

import (
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/internal/usecase"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/jimlawless/whereami"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// IssueEventEncoder кодирует событие issue.created в protobuf (structpb.Struct).
type IssueEventEncoder struct {
	now func() time.Time
}

func NewIssueEventEncoder() *IssueEventEncoder {
	return &IssueEventEncoder{now: time.Now}
}

func (c *IssueEventEncoder) EncodeIssueCreated(eventID string, issue *domain.Issue) ([]byte, error) {
	event, err := structpb.NewStruct(c.eventFields(eventID, issue))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	payload, err := proto.Marshal(event)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return payload, nil
}

func (c *IssueEventEncoder) eventFields(eventID string, issue *domain.Issue) map[string]any {
	lines := make([]any, 0, len(issue.Lines))
	for _, l := range issue.Lines {
		line := map[string]any{
			"product_id":   l.ProductID,
			"product_name": l.ProductName,
			"sku":          l.SKU,
			"quantity":     l.Quantity,
			"unit_price":   l.UnitPrice.StringFixed(2),
			"line_total":   l.LineTotal().StringFixed(2),
		}
		if l.BatchNumber != "" {
			line["batch_number"] = l.BatchNumber
		}
		if l.ExpiryDate != nil {
			line["expiry_date"] = l.ExpiryDate.Format(time.DateOnly)
		}
		lines = append(lines, line)
	}

	payload := map[string]any{
		"issue_number": issue.IssueNumber,
		"issued_by":    issue.IssuedBy,
		"created_at":   issue.CreatedAt.UTC().Format(time.RFC3339Nano),
		"subtotal":     issue.Subtotal().StringFixed(2),
		"notes":        issue.Notes,
		"lines":        lines,
	}
	if issue.Patient != nil {
		payload["patient"] = map[string]any{
			"name":           issue.Patient.Name,
			"contact_number": issue.Patient.ContactNumber,
		}
	}

	return map[string]any{
		"event_id":        eventID,
		"event_type":      string(usecase.IssueCreated),
		"event_timestamp": c.now().UnixNano(),
		"issue":           payload,
	}
}
