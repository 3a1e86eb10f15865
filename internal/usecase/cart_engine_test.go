package usecase

import (
	"math"
	"math/rand"
	"testing"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flatTax struct{ rate decimal.Decimal }

func (f flatTax) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(f.rate).Round(2)
}

func TestCartEngine_AddLineSnapshotsProduct(t *testing.T) {
	catalog := testCatalog()
	cart := NewCartEngine(nil)

	require.NoError(t, cart.AddLine(catalog[1], 2))

	line, ok := cart.Line(2)
	require.True(t, ok)
	assert.Equal(t, "Amoxicillin 500mg", line.ProductName)
	assert.Equal(t, 3, line.StockCeiling)
	assert.Equal(t, "B-2291", line.BatchNumber)
	assertMoney(t, "25.50", line.UnitPrice)
	assertMoney(t, "51.00", line.LineTotal())

	// изменение исходного товара не влияет на строку
	catalog[1].UnitPrice = decimal.NewFromInt(99)
	line, _ = cart.Line(2)
	assertMoney(t, "25.50", line.UnitPrice)
}

func TestCartEngine_AddLineInsufficientStock(t *testing.T) {
	catalog := testCatalog()
	cart := NewCartEngine(nil)
	rev := cart.Revision()

	err := cart.AddLine(catalog[0], 6)

	require.ErrorIs(t, err, e.ErrInsufficientStock)
	var stockErr *domain.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(1), stockErr.ProductID)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, rev, cart.Revision())
}

func TestCartEngine_AddLineExistingAddsQuantity(t *testing.T) {
	catalog := testCatalog()
	cart := NewCartEngine(nil)

	require.NoError(t, cart.AddLine(catalog[0], 2))
	require.NoError(t, cart.AddLine(catalog[0], 3))

	assert.Len(t, cart.Lines(), 1)
	line, _ := cart.Line(1)
	assert.Equal(t, 5, line.Quantity)

	err := cart.AddLine(catalog[0], 1)
	assert.ErrorIs(t, err, e.ErrInsufficientStock)
	line, _ = cart.Line(1)
	assert.Equal(t, 5, line.Quantity)
}

func TestCartEngine_AddLineHugeQuantityKeepsLine(t *testing.T) {
	cart := NewCartEngine(nil)
	require.NoError(t, cart.AddLine(testCatalog()[0], 1))
	rev := cart.Revision()

	err := cart.AddLine(testCatalog()[0], math.MaxInt)

	require.ErrorIs(t, err, e.ErrInsufficientStock)
	var stockErr *domain.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, math.MaxInt, stockErr.Requested)
	assert.Equal(t, 4, stockErr.Available)

	require.Len(t, cart.Lines(), 1)
	line, ok := cart.Line(1)
	require.True(t, ok)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, rev, cart.Revision())
}

func TestCartEngine_AddLineUsesSnapshotCeiling(t *testing.T) {
	catalog := testCatalog()
	cart := NewCartEngine(nil)
	require.NoError(t, cart.AddLine(catalog[0], 4))

	// склад пополнился, но потолок строки остался прежним
	restocked := catalog[0]
	restocked.AvailableQuantity = 50

	err := cart.AddLine(restocked, 2)
	assert.ErrorIs(t, err, e.ErrInsufficientStock)
}

func TestCartEngine_AddLineInvalidQuantity(t *testing.T) {
	cart := NewCartEngine(nil)

	assert.ErrorIs(t, cart.AddLine(testCatalog()[0], 0), e.ErrInvalidQuantity)
	assert.ErrorIs(t, cart.AddLine(testCatalog()[0], -2), e.ErrInvalidQuantity)
	assert.True(t, cart.IsEmpty())
}

func TestCartEngine_UpdateQuantityAboveCeiling(t *testing.T) {
	cart := NewCartEngine(nil)
	require.NoError(t, cart.AddLine(testCatalog()[1], 2))

	err := cart.UpdateQuantity(2, 4)

	assert.ErrorIs(t, err, e.ErrInsufficientStock)
	line, _ := cart.Line(2)
	assert.Equal(t, 2, line.Quantity)
}

func TestCartEngine_UpdateQuantity(t *testing.T) {
	cart := NewCartEngine(nil)
	require.NoError(t, cart.AddLine(testCatalog()[1], 1))

	require.NoError(t, cart.UpdateQuantity(2, 3))
	line, _ := cart.Line(2)
	assert.Equal(t, 3, line.Quantity)
	assertMoney(t, "76.50", cart.Total())

	require.NoError(t, cart.UpdateQuantity(2, 0))
	assert.True(t, cart.IsEmpty())
}

func TestCartEngine_UpdateQuantityMissingLine(t *testing.T) {
	cart := NewCartEngine(nil)

	assert.ErrorIs(t, cart.UpdateQuantity(42, 1), e.ErrLineNotFound)
	assert.NoError(t, cart.UpdateQuantity(42, 0))
}

func TestCartEngine_RemoveLineIdempotent(t *testing.T) {
	cart := NewCartEngine(nil)
	require.NoError(t, cart.AddLine(testCatalog()[0], 1))

	cart.RemoveLine(1)
	rev := cart.Revision()
	cart.RemoveLine(1)
	cart.RemoveLine(777)

	assert.True(t, cart.IsEmpty())
	assert.Equal(t, rev, cart.Revision())
}

func TestCartEngine_AddThenRemoveRestoresCart(t *testing.T) {
	catalog := testCatalog()
	cart := NewCartEngine(nil)
	require.NoError(t, cart.AddLine(catalog[0], 2))
	cart.SetNotes("after meals")

	before := cart.Snapshot()

	require.NoError(t, cart.AddLine(catalog[1], 1))
	cart.RemoveLine(catalog[1].ID)

	assert.Equal(t, before, cart.Snapshot())

	empty := NewCartEngine(nil)
	before = empty.Snapshot()
	require.NoError(t, empty.AddLine(catalog[0], 1))
	empty.RemoveLine(catalog[0].ID)
	assert.Equal(t, before, empty.Snapshot())
}

func TestCartEngine_ClearIdempotent(t *testing.T) {
	cart := NewCartEngine(nil)
	require.NoError(t, cart.AddLine(testCatalog()[0], 2))
	require.NoError(t, cart.AddLine(testCatalog()[1], 1))
	cart.SetPatient(&domain.PatientRef{Name: "Jane Doe"})
	cart.SetNotes("urgent")

	cart.Clear()
	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.Total().IsZero())
	assert.Nil(t, cart.Snapshot().Patient)
	assert.Empty(t, cart.Snapshot().Notes)

	rev := cart.Revision()
	cart.Clear()
	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.Total().IsZero())
	assert.Equal(t, rev, cart.Revision())
}

func TestCartEngine_TotalMatchesLinesAfterRandomOps(t *testing.T) {
	catalog := testCatalog()
	rnd := rand.New(rand.NewSource(7))
	cart := NewCartEngine(nil)

	for i := 0; i < 500; i++ {
		p := catalog[rnd.Intn(len(catalog))]
		switch rnd.Intn(4) {
		case 0:
			_ = cart.AddLine(p, rnd.Intn(4))
		case 1:
			_ = cart.UpdateQuantity(p.ID, rnd.Intn(7)-1)
		case 2:
			cart.RemoveLine(p.ID)
		case 3:
			if rnd.Intn(10) == 0 {
				cart.Clear()
			}
		}

		want := decimal.Zero
		for _, l := range cart.Lines() {
			assert.LessOrEqual(t, l.Quantity, l.StockCeiling)
			assert.GreaterOrEqual(t, l.Quantity, 1)
			want = want.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		require.True(t, want.Equal(cart.Total()), "step %d: want %s, got %s", i, want, cart.Total())
	}
}

func TestCartEngine_TaxPolicy(t *testing.T) {
	cart := NewCartEngine(flatTax{rate: decimal.RequireFromString("0.05")})
	require.NoError(t, cart.AddLine(testCatalog()[0], 3))

	assertMoney(t, "30.00", cart.Subtotal())
	assertMoney(t, "1.50", cart.Tax())
	assertMoney(t, "31.50", cart.Total())

	assert.True(t, NewCartEngine(nil).Tax().IsZero())
}

func TestCartEngine_RevisionChangesOnMutation(t *testing.T) {
	cart := NewCartEngine(nil)
	rev := cart.Revision()
	require.NotEmpty(t, rev)

	require.NoError(t, cart.AddLine(testCatalog()[0], 1))
	assert.NotEqual(t, rev, cart.Revision())

	rev = cart.Revision()
	require.NoError(t, cart.UpdateQuantity(1, 1))
	assert.Equal(t, rev, cart.Revision())

	cart.SetPatient(&domain.PatientRef{Name: "John Roe"})
	assert.NotEqual(t, rev, cart.Revision())
}

func TestCartEngine_SnapshotIsDeepCopy(t *testing.T) {
	cart := NewCartEngine(nil)
	require.NoError(t, cart.AddLine(testCatalog()[1], 1))
	cart.SetPatient(&domain.PatientRef{Name: "Jane Doe"})

	snap := cart.Snapshot()
	snap.Lines[0].Quantity = 3
	snap.Patient.Name = "changed"
	*snap.Lines[0].ExpiryDate = snap.Lines[0].ExpiryDate.AddDate(1, 0, 0)

	line, _ := cart.Line(2)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, 2027, line.ExpiryDate.Year())
	assert.Equal(t, "Jane Doe", cart.Snapshot().Patient.Name)
}
