package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint64OrZero(t *testing.T) {
	require.Equal(t, uint64(42), Uint64OrZero("42"))
	require.Equal(t, uint64(0), Uint64OrZero(""))
	require.Equal(t, uint64(0), Uint64OrZero("not a number"))
	require.Equal(t, uint64(0), Uint64OrZero("-1"))
}

func TestContentHash(t *testing.T) {
	first := ContentHash("transaction {}")
	second := ContentHash("transaction {}")
	require.Equal(t, first, second)
	require.Len(t, first, 64)
	require.NotEqual(t, first, ContentHash("transaction { }"))
}

func TestSplitJoinRoundTrip(t *testing.T) {
	addrs := []string{"0x01", "0x02", "0x03"}
	joined := JoinWithComma(addrs)
	require.Equal(t, addrs, SplitByComma(joined))

	require.Nil(t, SplitByComma(""))
	require.Equal(t, []string{"0x01"}, SplitByComma(" 0x01 , "))
}

func TestTrimHexPrefix(t *testing.T) {
	require.Equal(t, "abcd", TrimHexPrefix("0xabcd"))
	require.Equal(t, "abcd", TrimHexPrefix("0Xabcd"))
	require.Equal(t, "abcd", TrimHexPrefix("abcd"))
}

func TestIsHexString(t *testing.T) {
	require.True(t, IsHexString("00ff"))
	require.True(t, IsHexString("DeadBeef"))
	require.False(t, IsHexString(""))
	require.False(t, IsHexString("xyz"))
}
