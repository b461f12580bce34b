package shipping

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByCode(t *testing.T) {
	m, err := ByCode("standard")
	require.NoError(t, err)
	require.Equal(t, int64(2000), m.Fee)

	m, err = ByCode("pickup")
	require.NoError(t, err)
	require.Zero(t, m.Fee)

	_, err = ByCode("drone")
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestMethodsReturnsCopy(t *testing.T) {
	a := Methods()
	a[0].Fee = 999999
	b := Methods()
	require.Equal(t, int64(2000), b[0].Fee)
}
