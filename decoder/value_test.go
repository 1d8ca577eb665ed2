package decoder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValueScalars(t *testing.T) {
	v, err := ParseValue([]byte(`{"type":"UFix64","value":"5.00000000"}`))
	require.NoError(t, err)
	require.Equal(t, "UFix64", v.Type)
	require.Equal(t, "5.00000000", v.String())

	v, err = ParseValue([]byte(`{"type":"Bool","value":true}`))
	require.NoError(t, err)
	require.Equal(t, "true", v.String())
}

func TestParseValueOptional(t *testing.T) {
	v, err := ParseValue([]byte(`{"type":"Optional","value":null}`))
	require.NoError(t, err)
	require.Equal(t, "", v.String())

	v, err = ParseValue([]byte(`{"type":"Optional","value":{"type":"Address","value":"0x0000000000000001"}}`))
	require.NoError(t, err)
	require.Equal(t, "0x0000000000000001", v.String())
}

func TestParseValueComposite(t *testing.T) {
	raw := []byte(`{"type":"Event","value":{"id":"A.01.T.Deposited","fields":[` +
		`{"name":"amount","value":{"type":"UFix64","value":"1.50000000"}},` +
		`{"name":"to","value":{"type":"Optional","value":{"type":"Address","value":"0x0000000000000002"}}}]}}`)
	v, err := ParseValue(raw)
	require.NoError(t, err)
	require.Equal(t, "1.50000000", v.FieldByName("amount").String())
	require.Equal(t, "0x0000000000000002", v.FieldByName("to").String())
	require.Nil(t, v.FieldByName("missing"))
}

func TestParseValueDictionaryAndFlatten(t *testing.T) {
	raw := []byte(`{"type":"Dictionary","value":[` +
		`{"key":{"type":"String","value":"k1"},"value":{"type":"UInt64","value":"7"}}]}`)
	v, err := ParseValue(raw)
	require.NoError(t, err)
	flat := v.Flatten()
	require.Equal(t, "7", flat["k1"])
}

func TestFindFieldNested(t *testing.T) {
	raw := []byte(`{"type":"Event","value":{"id":"flow.AccountKeyAdded","fields":[` +
		`{"name":"publicKey","value":{"type":"Struct","value":{"id":"PublicKey","fields":[` +
		`{"name":"signatureAlgorithm","value":{"type":"Enum","value":{"id":"SigAlgo","fields":[` +
		`{"name":"rawValue","value":{"type":"UInt8","value":"1"}}]}}}]}}}]}}`)
	v, err := ParseValue(raw)
	require.NoError(t, err)
	require.Equal(t, "1", v.FindField("rawValue").String())
	require.Nil(t, v.FindField("absent"))
}

func TestParseValueRejectsUntagged(t *testing.T) {
	_, err := ParseValue([]byte(`{"value":"x"}`))
	require.Error(t, err)
}
