package infrastructure

import (
	"testing"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDocumentObjectKey(t *testing.T) {
	assert.Equal(t, "issues/ISS-000001/full-page.json", DocumentObjectKey("ISS-000001", domain.FormatFullPage))
	assert.Equal(t, "issues/ISS-000001/thermal.json", DocumentObjectKey("ISS-000001", domain.FormatThermal))
}
