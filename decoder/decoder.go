package decoder

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/flowscan/indexer/db"
	"github.com/flowscan/indexer/types"
	"github.com/flowscan/indexer/util"
)

const (
	protocolEventAccountCreated = "flow.AccountCreated"
	protocolEventContractAdded  = "flow.AccountContractAdded"
	protocolEventKeyAdded       = "flow.AccountKeyAdded"
	protocolEventKeyRemoved     = "flow.AccountKeyRemoved"
	evmImportMarker             = "import EVM"
	evmTypeMarker               = ".EVM."
	evmExecutedEventName        = "TransactionExecuted"
)

var (
	depositEventNames  = map[string]bool{"TokensDeposited": true, "Deposited": true, "Deposit": true}
	withdrawEventNames = map[string]bool{"TokensWithdrawn": true, "Withdrawn": true, "Withdraw": true}
	depositToFields    = []string{"to", "recipient", "receiver"}
	withdrawFromFields = []string{"from", "provider", "owner"}
	nftIDFields        = []string{"id", "nftID", "tokenId"}
)

// DecodedTransaction is everything derived from one transaction and its
// result, ready to be merged into an ingest unit.
type DecodedTransaction struct {
	Transaction    *db.Transaction
	Script         *db.Script
	Events         []*db.Event
	Transfers      []*db.TokenTransfer
	Activities     []*db.AddressActivity
	AccountKeys    []*db.AccountKey
	KeyRevocations []*db.KeyRevocation
}

// DecodeTransaction derives rows from a transaction and its result. Errors
// in individual event payloads never fail the transaction; they are returned
// as warnings so the caller can record them and move on.
func DecodeTransaction(height uint64, txIndex int, tx *types.TransactionResponse,
	result *types.TransactionResultResponse) (*DecodedTransaction, []error) {
	var warnings []error

	scriptBody := decodeBase64(tx.Script)
	scriptHash := util.ContentHash(scriptBody)

	decoded := &DecodedTransaction{
		Script: &db.Script{Hash: scriptHash, Body: scriptBody},
		Transaction: &db.Transaction{
			Height:       height,
			TxID:         tx.ID,
			TxIndex:      txIndex,
			Proposer:     normalizeAddress(tx.ProposalKey.Address),
			Payer:        normalizeAddress(tx.Payer),
			Authorizers:  joinAddresses(tx.Authorizers),
			ScriptHash:   scriptHash,
			Arguments:    decodeArguments(tx.Arguments),
			Status:       statusFromString(result.Status),
			GasLimit:     util.Uint64OrZero(tx.GasLimit),
			GasUsed:      util.Uint64OrZero(result.ComputationUsed),
			ErrorMessage: result.ErrorMessage,
		},
	}

	decoded.addParticipantActivities(height, tx)

	isEVM := strings.Contains(scriptBody, evmImportMarker)
	heuristicSeen := make(map[string]bool)

	for _, event := range result.Events {
		eventIndex := int(util.Uint64OrZero(event.EventIndex))
		eventType := ParseEventType(event.Type)
		if strings.Contains(event.Type, evmTypeMarker) {
			isEVM = true
		}

		payload, err := decodeEventPayload(event.Payload)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("undecodable payload for event %s at index %d: %w", event.Type, eventIndex, err))
			decoded.Events = append(decoded.Events, makeEventRow(height, tx.ID, eventIndex, event, eventType, nil))
			continue
		}
		decoded.Events = append(decoded.Events, makeEventRow(height, tx.ID, eventIndex, event, eventType, payload))

		if isEVM && eventType.EventName == evmExecutedEventName && strings.Contains(event.Type, evmTypeMarker) {
			if hash := extractEVMTxHash(payload); hash != "" {
				decoded.Transaction.EVMTxHash = hash
			}
		}

		decoded.decodeTransferEvent(height, tx.ID, eventIndex, eventType, payload)
		decoded.decodeAccountLifecycleEvent(height, tx.ID, event.Type, payload, &warnings)
		decoded.scanHeuristicAddresses(height, tx.ID, payload, heuristicSeen)
	}

	decoded.Transaction.IsEVM = isEVM
	decoded.Activities = dedupeActivities(decoded.Activities)
	return decoded, warnings
}

// dedupeActivities drops repeats of the same (address, role) pair so two
// transfer events in one transaction yield a single activity row.
func dedupeActivities(activities []*db.AddressActivity) []*db.AddressActivity {
	seen := make(map[string]bool, len(activities))
	out := activities[:0]
	for _, activity := range activities {
		key := activity.Address + "|" + string(activity.Role)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, activity)
	}
	return out
}

func (d *DecodedTransaction) addParticipantActivities(height uint64, tx *types.TransactionResponse) {
	proposer := normalizeAddress(tx.ProposalKey.Address)
	d.Activities = append(d.Activities, &db.AddressActivity{
		Address: proposer, Height: height, TxID: tx.ID, Role: db.RoleProposer,
	})
	if payer := normalizeAddress(tx.Payer); payer != "" && payer != proposer {
		d.Activities = append(d.Activities, &db.AddressActivity{
			Address: payer, Height: height, TxID: tx.ID, Role: db.RolePayer,
		})
	}
	for _, authorizer := range tx.Authorizers {
		d.Activities = append(d.Activities, &db.AddressActivity{
			Address: normalizeAddress(authorizer), Height: height, TxID: tx.ID, Role: db.RoleAuthorizer,
		})
	}
}

// authoritativeAddresses collects every address that already holds a
// non-heuristic role in this transaction so the payload scan can skip them.
func (d *DecodedTransaction) authoritativeAddresses() map[string]bool {
	out := make(map[string]bool)
	for _, activity := range d.Activities {
		if !activity.Heuristic {
			out[activity.Address] = true
		}
	}
	return out
}

func (d *DecodedTransaction) decodeTransferEvent(height uint64, txID string, eventIndex int, eventType EventType, payload *Value) {
	if eventType.OwnerAddress == "" || payload == nil {
		return
	}
	isDeposit := depositEventNames[eventType.EventName]
	isWithdraw := withdrawEventNames[eventType.EventName]
	if !isDeposit && !isWithdraw {
		return
	}

	transfer := &db.TokenTransfer{
		Height:        height,
		TxID:          txID,
		EventIndex:    eventIndex,
		TokenContract: eventType.TokenContract(),
	}

	var counterparty string
	if isDeposit {
		counterparty = firstFieldString(payload, depositToFields)
		transfer.ToAddress = normalizeAddress(counterparty)
	} else {
		counterparty = firstFieldString(payload, withdrawFromFields)
		transfer.FromAddress = normalizeAddress(counterparty)
	}

	if amount := payload.FieldByName("amount"); amount != nil && amount.String() != "" {
		transfer.Amount = amount.String()
	} else if id := firstFieldString(payload, nftIDFields); id != "" {
		transfer.TokenID = id
		transfer.IsNFT = true
	} else {
		// neither a fungible amount nor an item id, not a transfer we
		// know how to represent
		return
	}

	d.Transfers = append(d.Transfers, transfer)
	if transfer.FromAddress != "" {
		d.Activities = append(d.Activities, &db.AddressActivity{
			Address: transfer.FromAddress, Height: height, TxID: txID, Role: db.RoleAssetSent,
		})
	}
	if transfer.ToAddress != "" {
		d.Activities = append(d.Activities, &db.AddressActivity{
			Address: transfer.ToAddress, Height: height, TxID: txID, Role: db.RoleAssetReceived,
		})
	}
}

func (d *DecodedTransaction) decodeAccountLifecycleEvent(height uint64, txID string, typeID string, payload *Value, warnings *[]error) {
	if payload == nil {
		return
	}
	switch typeID {
	case protocolEventAccountCreated:
		address := normalizeAddress(payload.FieldByName("address").String())
		if address == "" {
			*warnings = append(*warnings, fmt.Errorf("malformed %s in tx %s: missing address", typeID, txID))
			return
		}
		d.Activities = append(d.Activities, &db.AddressActivity{
			Address: address, Height: height, TxID: txID, Role: db.RoleEventParticipant,
		})
	case protocolEventContractAdded:
		address := normalizeAddress(payload.FieldByName("address").String())
		if address == "" {
			return
		}
		d.Activities = append(d.Activities, &db.AddressActivity{
			Address: address, Height: height, TxID: txID, Role: db.RoleContractDeployer,
		})
	case protocolEventKeyAdded:
		key, err := decodeAccountKey(height, payload)
		if err != nil {
			*warnings = append(*warnings, fmt.Errorf("malformed %s in tx %s: %w", typeID, txID, err))
			return
		}
		d.AccountKeys = append(d.AccountKeys, key)
	case protocolEventKeyRemoved:
		address := normalizeAddress(payload.FieldByName("address").String())
		keyIndex := payload.FieldByName("keyIndex")
		if address == "" || keyIndex == nil {
			*warnings = append(*warnings, fmt.Errorf("malformed %s in tx %s: missing address or keyIndex", typeID, txID))
			return
		}
		d.KeyRevocations = append(d.KeyRevocations, &db.KeyRevocation{
			Address:  address,
			KeyIndex: int(util.Uint64OrZero(keyIndex.String())),
			Height:   height,
		})
	}
}

func decodeAccountKey(height uint64, payload *Value) (*db.AccountKey, error) {
	address := normalizeAddress(payload.FieldByName("address").String())
	if address == "" {
		return nil, fmt.Errorf("missing address")
	}
	publicKey := payload.FieldByName("publicKey")
	if publicKey == nil {
		return nil, fmt.Errorf("missing publicKey")
	}
	keyBytes := publicKey.FindField("publicKey")
	if keyBytes == nil {
		keyBytes = publicKey
	}
	signAlgo := publicKey.FindField("signatureAlgorithm").FindField("rawValue")
	hashAlgo := payload.FindField("hashAlgorithm").FindField("rawValue")
	key := &db.AccountKey{
		Address:       address,
		KeyIndex:      int(util.Uint64OrZero(payload.FieldByName("keyIndex").String())),
		PublicKey:     scalarOrBytesHex(keyBytes),
		SignAlgo:      int(util.Uint64OrZero(signAlgo.String())),
		HashAlgo:      int(util.Uint64OrZero(hashAlgo.String())),
		Weight:        payload.FieldByName("weight").String(),
		AddedAtHeight: height,
	}
	return key, nil
}

// scanHeuristicAddresses walks the payload for scalar strings shaped like a
// native (16 hex chars) or EVM (40 hex chars) address. Matches are recorded
// as low-confidence participants; addresses already holding a structural
// role in the same transaction are skipped.
func (d *DecodedTransaction) scanHeuristicAddresses(height uint64, txID string, payload *Value, seen map[string]bool) {
	if payload == nil {
		return
	}
	authoritative := d.authoritativeAddresses()
	payload.Walk(func(node *Value) bool {
		s, ok := node.Value.(string)
		if !ok {
			return true
		}
		address, ok := heuristicAddress(s)
		if !ok || authoritative[address] || seen[address] {
			return true
		}
		seen[address] = true
		d.Activities = append(d.Activities, &db.AddressActivity{
			Address: address, Height: height, TxID: txID, Role: db.RoleEventParticipant, Heuristic: true,
		})
		return true
	})
}

func heuristicAddress(s string) (string, bool) {
	body := util.TrimHexPrefix(s)
	if len(body) != 16 && len(body) != 40 {
		return "", false
	}
	if !util.IsHexString(body) {
		return "", false
	}
	return "0x" + strings.ToLower(body), true
}

// extractEVMTxHash pulls the executed transaction hash out of an EVM
// TransactionExecuted payload. Depending on the payload version the hash
// arrives as a byte array or a hex string.
func extractEVMTxHash(payload *Value) string {
	hash := payload.FindField("hash")
	if hash == nil {
		return ""
	}
	if elems, ok := hash.Value.([]*Value); ok {
		bz := make([]byte, 0, len(elems))
		for _, elem := range elems {
			b, err := strconv.ParseUint(elem.String(), 10, 8)
			if err != nil {
				return ""
			}
			bz = append(bz, byte(b))
		}
		if len(bz) != common.HashLength {
			return ""
		}
		return strings.ToLower(common.BytesToHash(bz).Hex())
	}
	body := util.TrimHexPrefix(hash.String())
	if len(body) != 2*common.HashLength || !util.IsHexString(body) {
		return ""
	}
	return "0x" + strings.ToLower(body)
}

func makeEventRow(height uint64, txID string, eventIndex int, event types.EventResponse,
	eventType EventType, payload *Value) *db.Event {
	row := &db.Event{
		Height:       height,
		TxID:         txID,
		EventIndex:   eventIndex,
		Type:         event.Type,
		OwnerAddress: eventType.OwnerAddress,
		ContractName: eventType.ContractName,
		EventName:    eventType.EventName,
		Payload:      decodeBase64(event.Payload),
	}
	if payload != nil {
		if fields, err := json.Marshal(payload.Flatten()); err == nil {
			row.Fields = string(fields)
		}
	}
	return row
}

func decodeEventPayload(encoded string) (*Value, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	return ParseValue(raw)
}

func decodeArguments(encoded []string) string {
	args := make([]json.RawMessage, 0, len(encoded))
	for _, arg := range encoded {
		raw := decodeBase64(arg)
		if json.Valid([]byte(raw)) {
			args = append(args, json.RawMessage(raw))
		} else {
			quoted, _ := json.Marshal(raw)
			args = append(args, quoted)
		}
	}
	out, err := json.Marshal(args)
	if err != nil {
		return "[]"
	}
	return string(out)
}

func decodeBase64(encoded string) string {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// some gateways return the content unencoded
		return encoded
	}
	return string(raw)
}

func firstFieldString(payload *Value, names []string) string {
	for _, name := range names {
		if field := payload.FieldByName(name); field != nil {
			if s := field.String(); s != "" {
				return s
			}
		}
	}
	return ""
}

func scalarOrBytesHex(v *Value) string {
	if v == nil {
		return ""
	}
	if elems, ok := v.Value.([]*Value); ok {
		bz := make([]byte, 0, len(elems))
		for _, elem := range elems {
			b, err := strconv.ParseUint(elem.String(), 10, 8)
			if err != nil {
				return ""
			}
			bz = append(bz, byte(b))
		}
		return common.Bytes2Hex(bz)
	}
	return strings.TrimPrefix(v.String(), "0x")
}

func joinAddresses(addrs []string) string {
	normalized := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		normalized = append(normalized, normalizeAddress(addr))
	}
	return util.JoinWithComma(normalized)
}

func statusFromString(status string) db.TxStatus {
	switch strings.ToUpper(status) {
	case "PENDING":
		return db.TxPending
	case "FINALIZED":
		return db.TxFinalized
	case "EXECUTED":
		return db.TxExecuted
	case "SEALED":
		return db.TxSealed
	case "EXPIRED":
		return db.TxExpired
	}
	return db.TxPending
}
