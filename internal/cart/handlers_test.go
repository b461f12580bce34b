package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestViewIncludesLineTotalsAndPreview(t *testing.T) {
	h := &Handler{TaxBps: 2100}
	c := Cart{
		ID: "cart-1",
		Lines: []Line{
			{ID: "l1", Kind: KindItem, Qty: 2, UnitPrice: 1100},
			{ID: "l2", Kind: KindCustomSet, Qty: 1, UnitPrice: 4500},
		},
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	v := h.view(c)

	lines, ok := v["lines"].([]lineView)
	require.True(t, ok)
	require.Len(t, lines, 2)
	require.Equal(t, int64(2200), lines[0].LineTotal)
	require.Equal(t, int64(4500), lines[1].LineTotal)

	preview, ok := v["preview"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, int64(6700), preview["subtotal"])
	require.Equal(t, int64(1162), preview["taxIncluded"])
}

func TestViewEmptyCart(t *testing.T) {
	h := &Handler{TaxBps: 2100}

	v := h.view(Cart{ID: "cart-1"})

	require.Empty(t, v["lines"])
	preview := v["preview"].(map[string]any)
	require.Equal(t, int64(0), preview["subtotal"])
	require.Equal(t, int64(0), preview["taxIncluded"])
}
