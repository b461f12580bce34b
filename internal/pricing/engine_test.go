package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decantory/backend-decantory/internal/pricing"
)

func TestComputeTotals(t *testing.T) {
	// One set at 180 plus two items at 50 each, flat shipping 20.
	lines := []pricing.Line{
		{Qty: 1, UnitPrice: 180},
		{Qty: 2, UnitPrice: 50},
	}
	summary := pricing.Compute(lines, 20, 0)
	require.Equal(t, int64(280), summary.Subtotal)
	require.Equal(t, int64(20), summary.Shipping)
	require.Equal(t, int64(300), summary.Total)
	require.Equal(t, int64(0), summary.TaxIncluded)
}

func TestComputeTaxIncludedIsCarvedOut(t *testing.T) {
	lines := []pricing.Line{{Qty: 1, UnitPrice: 12100}}
	summary := pricing.Compute(lines, 0, 2100) // 21% inclusive

	require.Equal(t, int64(12100), summary.Total)
	// 12100 * 2100 / 12100 = 2100 minor units already inside the total.
	require.Equal(t, int64(2100), summary.TaxIncluded)
	require.Less(t, summary.TaxIncluded, summary.Total)
}

func TestComputeIgnoresNonPositiveQty(t *testing.T) {
	lines := []pricing.Line{
		{Qty: 0, UnitPrice: 999},
		{Qty: -3, UnitPrice: 999},
		{Qty: 2, UnitPrice: 150},
	}
	summary := pricing.Compute(lines, 0, 0)
	require.Equal(t, int64(300), summary.Subtotal)
	require.Equal(t, int64(300), summary.Total)
}

func TestComputeClampsNegativeShipping(t *testing.T) {
	summary := pricing.Compute([]pricing.Line{{Qty: 1, UnitPrice: 100}}, -50, 0)
	require.Equal(t, int64(0), summary.Shipping)
	require.Equal(t, int64(100), summary.Total)
}

func TestFormatMajor(t *testing.T) {
	require.Equal(t, "12.05", pricing.FormatMajor(1205))
	require.Equal(t, "0.09", pricing.FormatMajor(9))
	require.Equal(t, "-3.00", pricing.FormatMajor(-300))
}
