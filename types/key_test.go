package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangeNameRoundTrip(t *testing.T) {
	name := GetRangeName("tx_metrics", 1000, 2000)
	require.Equal(t, "tx_metrics_s1000_e2000", name)

	start, end, err := ParseRangeName(name)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), start)
	require.Equal(t, uint64(2000), end)
}

func TestParseRangeNameMalformed(t *testing.T) {
	_, _, err := ParseRangeName("nonsense")
	require.Error(t, err)

	_, _, err = ParseRangeName("job_sx_e2000")
	require.Error(t, err)
}
