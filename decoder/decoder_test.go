package decoder

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowscan/indexer/db"
	"github.com/flowscan/indexer/types"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func makeTx(id string) *types.TransactionResponse {
	return &types.TransactionResponse{
		ID:     id,
		Script: b64("transaction { execute {} }"),
		ProposalKey: types.ProposalKey{
			Address: "0000000000000001",
		},
		Payer:    "0000000000000001",
		GasLimit: "9999",
	}
}

func makeResult(events ...types.EventResponse) *types.TransactionResultResponse {
	return &types.TransactionResultResponse{
		Status:          "Sealed",
		ComputationUsed: "42",
		Events:          events,
	}
}

func makeEvent(typeID string, index int, payload string) types.EventResponse {
	return types.EventResponse{
		Type:       typeID,
		EventIndex: fmt.Sprintf("%d", index),
		Payload:    b64(payload),
	}
}

func rolesOf(decoded *DecodedTransaction) map[string][]db.Role {
	out := make(map[string][]db.Role)
	for _, activity := range decoded.Activities {
		out[activity.Address] = append(out[activity.Address], activity.Role)
	}
	return out
}

func TestParseEventType(t *testing.T) {
	et := ParseEventType("A.0000000000000001.ExampleToken.TokensDeposited")
	require.Equal(t, "0x0000000000000001", et.OwnerAddress)
	require.Equal(t, "ExampleToken", et.ContractName)
	require.Equal(t, "TokensDeposited", et.EventName)
	require.Equal(t, "A.0000000000000001.ExampleToken", et.TokenContract())

	et = ParseEventType("flow.AccountCreated")
	require.Equal(t, "", et.OwnerAddress)
	require.Equal(t, "flow", et.ContractName)
	require.Equal(t, "AccountCreated", et.EventName)
	require.Equal(t, "", et.TokenContract())
}

func TestDecodeParticipants(t *testing.T) {
	tx := makeTx("tx1")
	tx.Payer = "0000000000000002"
	tx.Authorizers = []string{"0000000000000003", "0000000000000004"}

	decoded, warnings := DecodeTransaction(100, 0, tx, makeResult())
	require.Empty(t, warnings)
	require.Len(t, decoded.Activities, 4)

	roles := rolesOf(decoded)
	require.Equal(t, []db.Role{db.RoleProposer}, roles["0x0000000000000001"])
	require.Equal(t, []db.Role{db.RolePayer}, roles["0x0000000000000002"])
	require.Equal(t, []db.Role{db.RoleAuthorizer}, roles["0x0000000000000003"])
	require.Equal(t, []db.Role{db.RoleAuthorizer}, roles["0x0000000000000004"])
	for _, activity := range decoded.Activities {
		require.False(t, activity.Heuristic)
	}
}

func TestDecodeSelfPayerSingleRow(t *testing.T) {
	decoded, _ := DecodeTransaction(100, 0, makeTx("tx1"), makeResult())
	require.Len(t, decoded.Activities, 1)
	require.Equal(t, db.RoleProposer, decoded.Activities[0].Role)
}

func TestDecodeTransactionRow(t *testing.T) {
	decoded, _ := DecodeTransaction(100, 3, makeTx("tx1"), makeResult())
	require.Equal(t, uint64(100), decoded.Transaction.Height)
	require.Equal(t, 3, decoded.Transaction.TxIndex)
	require.Equal(t, db.TxSealed, decoded.Transaction.Status)
	require.Equal(t, uint64(9999), decoded.Transaction.GasLimit)
	require.Equal(t, uint64(42), decoded.Transaction.GasUsed)
	require.Equal(t, decoded.Script.Hash, decoded.Transaction.ScriptHash)
	require.Equal(t, "transaction { execute {} }", decoded.Script.Body)
	require.False(t, decoded.Transaction.IsEVM)
}

func TestDecodeFungibleTransfer(t *testing.T) {
	payload := `{"type":"Event","value":{"id":"A.0000000000000009.ExampleToken.TokensDeposited","fields":[` +
		`{"name":"amount","value":{"type":"UFix64","value":"5.00000000"}},` +
		`{"name":"to","value":{"type":"Optional","value":{"type":"Address","value":"0x0000000000000005"}}}]}}`
	event := makeEvent("A.0000000000000009.ExampleToken.TokensDeposited", 0, payload)

	decoded, warnings := DecodeTransaction(100, 0, makeTx("tx1"), makeResult(event))
	require.Empty(t, warnings)
	require.Len(t, decoded.Transfers, 1)

	transfer := decoded.Transfers[0]
	require.Equal(t, "A.0000000000000009.ExampleToken", transfer.TokenContract)
	require.Equal(t, "0x0000000000000005", transfer.ToAddress)
	require.Equal(t, "", transfer.FromAddress)
	require.Equal(t, "5.00000000", transfer.Amount)
	require.False(t, transfer.IsNFT)

	roles := rolesOf(decoded)
	require.Contains(t, roles["0x0000000000000005"], db.RoleAssetReceived)
}

func TestDecodeNFTWithdrawal(t *testing.T) {
	payload := `{"type":"Event","value":{"id":"A.0000000000000009.ExampleNFT.Withdraw","fields":[` +
		`{"name":"id","value":{"type":"UInt64","value":"1234"}},` +
		`{"name":"from","value":{"type":"Optional","value":{"type":"Address","value":"0x0000000000000006"}}}]}}`
	event := makeEvent("A.0000000000000009.ExampleNFT.Withdraw", 0, payload)

	decoded, _ := DecodeTransaction(100, 0, makeTx("tx1"), makeResult(event))
	require.Len(t, decoded.Transfers, 1)

	transfer := decoded.Transfers[0]
	require.True(t, transfer.IsNFT)
	require.Equal(t, "1234", transfer.TokenID)
	require.Equal(t, "0x0000000000000006", transfer.FromAddress)
	require.Equal(t, "", transfer.ToAddress)
}

func TestDecodeMintHasNoCounterparty(t *testing.T) {
	payload := `{"type":"Event","value":{"id":"A.0000000000000009.ExampleToken.TokensDeposited","fields":[` +
		`{"name":"amount","value":{"type":"UFix64","value":"1.00000000"}},` +
		`{"name":"to","value":{"type":"Optional","value":null}}]}}`
	event := makeEvent("A.0000000000000009.ExampleToken.TokensDeposited", 0, payload)

	decoded, _ := DecodeTransaction(100, 0, makeTx("tx1"), makeResult(event))
	require.Len(t, decoded.Transfers, 1)
	require.Equal(t, "", decoded.Transfers[0].ToAddress)
}

func TestDecodeEVMTransaction(t *testing.T) {
	tx := makeTx("tx1")
	tx.Script = b64("import EVM from 0xe467b9dd11fa00df\ntransaction { execute {} }")

	hashBytes := ""
	for i := 0; i < 32; i++ {
		if i > 0 {
			hashBytes += ","
		}
		hashBytes += fmt.Sprintf(`{"type":"UInt8","value":"%d"}`, i)
	}
	payload := `{"type":"Event","value":{"id":"A.e467b9dd11fa00df.EVM.TransactionExecuted","fields":[` +
		`{"name":"hash","value":{"type":"Array","value":[` + hashBytes + `]}}]}}`
	event := makeEvent("A.e467b9dd11fa00df.EVM.TransactionExecuted", 0, payload)

	decoded, _ := DecodeTransaction(100, 0, tx, makeResult(event))
	require.True(t, decoded.Transaction.IsEVM)
	require.Equal(t, "0x000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
		decoded.Transaction.EVMTxHash)
}

func TestDecodeEVMHexStringHash(t *testing.T) {
	hash := "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"
	payload := `{"type":"Event","value":{"id":"A.e467b9dd11fa00df.EVM.TransactionExecuted","fields":[` +
		`{"name":"hash","value":{"type":"String","value":"0x` + hash + `"}}]}}`
	event := makeEvent("A.e467b9dd11fa00df.EVM.TransactionExecuted", 0, payload)

	decoded, _ := DecodeTransaction(100, 0, makeTx("tx1"), makeResult(event))
	require.True(t, decoded.Transaction.IsEVM)
	require.Equal(t, "0x"+hash, decoded.Transaction.EVMTxHash)
}

func TestDecodeAccountKeyLifecycle(t *testing.T) {
	added := `{"type":"Event","value":{"id":"flow.AccountKeyAdded","fields":[` +
		`{"name":"address","value":{"type":"Address","value":"0x0000000000000007"}},` +
		`{"name":"publicKey","value":{"type":"Struct","value":{"id":"PublicKey","fields":[` +
		`{"name":"publicKey","value":{"type":"String","value":"deadbeef"}},` +
		`{"name":"signatureAlgorithm","value":{"type":"Enum","value":{"id":"SigAlgo","fields":[` +
		`{"name":"rawValue","value":{"type":"UInt8","value":"1"}}]}}}]}}},` +
		`{"name":"hashAlgorithm","value":{"type":"Enum","value":{"id":"HashAlgo","fields":[` +
		`{"name":"rawValue","value":{"type":"UInt8","value":"3"}}]}}},` +
		`{"name":"weight","value":{"type":"UFix64","value":"1000.00000000"}},` +
		`{"name":"keyIndex","value":{"type":"Int","value":"2"}}]}}`
	removed := `{"type":"Event","value":{"id":"flow.AccountKeyRemoved","fields":[` +
		`{"name":"address","value":{"type":"Address","value":"0x0000000000000007"}},` +
		`{"name":"keyIndex","value":{"type":"Int","value":"2"}}]}}`

	decoded, warnings := DecodeTransaction(100, 0, makeTx("tx1"), makeResult(
		makeEvent("flow.AccountKeyAdded", 0, added),
		makeEvent("flow.AccountKeyRemoved", 1, removed),
	))
	require.Empty(t, warnings)

	require.Len(t, decoded.AccountKeys, 1)
	key := decoded.AccountKeys[0]
	require.Equal(t, "0x0000000000000007", key.Address)
	require.Equal(t, 2, key.KeyIndex)
	require.Equal(t, "deadbeef", key.PublicKey)
	require.Equal(t, 1, key.SignAlgo)
	require.Equal(t, 3, key.HashAlgo)
	require.Equal(t, "1000.00000000", key.Weight)
	require.Equal(t, uint64(100), key.AddedAtHeight)

	require.Len(t, decoded.KeyRevocations, 1)
	require.Equal(t, 2, decoded.KeyRevocations[0].KeyIndex)
	require.Equal(t, uint64(100), decoded.KeyRevocations[0].Height)
}

func TestDecodeMalformedKeyEventIsWarning(t *testing.T) {
	malformed := `{"type":"Event","value":{"id":"flow.AccountKeyAdded","fields":[]}}`
	decoded, warnings := DecodeTransaction(100, 0, makeTx("tx1"), makeResult(
		makeEvent("flow.AccountKeyAdded", 0, malformed),
	))
	require.Len(t, warnings, 1)
	require.Empty(t, decoded.AccountKeys)
	require.Len(t, decoded.Events, 1)
}

func TestDecodeAccountCreated(t *testing.T) {
	payload := `{"type":"Event","value":{"id":"flow.AccountCreated","fields":[` +
		`{"name":"address","value":{"type":"Address","value":"0x0000000000000009"}}]}}`
	decoded, warnings := DecodeTransaction(100, 0, makeTx("tx1"), makeResult(
		makeEvent("flow.AccountCreated", 0, payload),
	))
	require.Empty(t, warnings)

	var created *db.AddressActivity
	for _, activity := range decoded.Activities {
		if activity.Address == "0x0000000000000009" {
			created = activity
		}
	}
	require.NotNil(t, created)
	require.Equal(t, db.RoleEventParticipant, created.Role)
	require.False(t, created.Heuristic)
}

func TestDecodeContractDeployer(t *testing.T) {
	payload := `{"type":"Event","value":{"id":"flow.AccountContractAdded","fields":[` +
		`{"name":"address","value":{"type":"Address","value":"0x0000000000000008"}},` +
		`{"name":"contract","value":{"type":"String","value":"ExampleToken"}}]}}`
	decoded, _ := DecodeTransaction(100, 0, makeTx("tx1"), makeResult(
		makeEvent("flow.AccountContractAdded", 0, payload),
	))
	roles := rolesOf(decoded)
	require.Contains(t, roles["0x0000000000000008"], db.RoleContractDeployer)
}

func TestHeuristicAddressScan(t *testing.T) {
	payload := `{"type":"Event","value":{"id":"A.0000000000000009.Marketplace.Listed","fields":[` +
		`{"name":"seller","value":{"type":"String","value":"00000000000000aa"}},` +
		`{"name":"buyer","value":{"type":"String","value":"0000000000000001"}},` +
		`{"name":"note","value":{"type":"String","value":"not an address"}},` +
		`{"name":"evmSide","value":{"type":"String","value":"0xAbCd00000000000000000000000000000000AbCd"}}]}}`
	decoded, _ := DecodeTransaction(100, 0, makeTx("tx1"), makeResult(
		makeEvent("A.0000000000000009.Marketplace.Listed", 0, payload),
	))

	roles := rolesOf(decoded)
	require.Contains(t, roles["0x00000000000000aa"], db.RoleEventParticipant)
	require.Contains(t, roles["0xabcd00000000000000000000000000000000abcd"], db.RoleEventParticipant)
	// the proposer already holds a structural role and must not reappear
	require.Equal(t, []db.Role{db.RoleProposer}, roles["0x0000000000000001"])

	heuristics := 0
	for _, activity := range decoded.Activities {
		if activity.Heuristic {
			heuristics++
			require.Equal(t, db.RoleEventParticipant, activity.Role)
		}
	}
	require.Equal(t, 2, heuristics)
}

func TestUndecodablePayloadKeepsEventRow(t *testing.T) {
	event := types.EventResponse{
		Type:       "A.0000000000000009.Broken.Event",
		EventIndex: "0",
		Payload:    b64("{not json"),
	}
	decoded, warnings := DecodeTransaction(100, 0, makeTx("tx1"), makeResult(event))
	require.Len(t, warnings, 1)
	require.Len(t, decoded.Events, 1)
	require.Equal(t, "", decoded.Events[0].Fields)
}
