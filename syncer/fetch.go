package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowscan/indexer/db"
	"github.com/flowscan/indexer/decoder"
	"github.com/flowscan/indexer/external"
	"github.com/flowscan/indexer/util"
)

// FetchBlockData fetches a sealed block with all its transactions and
// results and decodes it into one ingest unit. Any fetch failure aborts the
// whole height so a partially decoded block can never reach storage; decode
// warnings for individual payloads are returned alongside the unit.
func FetchBlockData(client external.IClient, height uint64, timeout time.Duration) (*db.IngestUnit, []error, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	block, collections, err := client.GetBlockAndCollections(ctx, height)
	if err != nil {
		return nil, nil, err
	}

	unit := &db.IngestUnit{}
	var warnings []error
	scripts := make(map[string]*db.Script)

	txIndex := 0
	eventCount := 0
	var totalGasUsed uint64
	for _, collection := range collections {
		for _, txID := range collection.Transactions {
			txCtx, txCancel := context.WithTimeout(context.Background(), timeout)
			tx, err := client.GetTransaction(txCtx, txID)
			if err != nil {
				txCancel()
				return nil, nil, fmt.Errorf("failed to get transaction %s at height %d: %w", txID, height, err)
			}
			result, err := client.GetTransactionResult(txCtx, txID)
			txCancel()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to get result of transaction %s at height %d: %w", txID, height, err)
			}

			decoded, decodeWarnings := decoder.DecodeTransaction(height, txIndex, tx, result)
			warnings = append(warnings, decodeWarnings...)

			unit.Transactions = append(unit.Transactions, decoded.Transaction)
			unit.Events = append(unit.Events, decoded.Events...)
			unit.Transfers = append(unit.Transfers, decoded.Transfers...)
			unit.Activities = append(unit.Activities, decoded.Activities...)
			unit.AccountKeys = append(unit.AccountKeys, decoded.AccountKeys...)
			unit.KeyRevocations = append(unit.KeyRevocations, decoded.KeyRevocations...)
			scripts[decoded.Script.Hash] = decoded.Script

			eventCount += len(decoded.Events)
			totalGasUsed += decoded.Transaction.GasUsed
			txIndex++
		}
	}
	for _, script := range scripts {
		unit.Scripts = append(unit.Scripts, script)
	}

	rawGuarantees, _ := json.Marshal(block.Payload.CollectionGuarantees)
	rawSeals, _ := json.Marshal(block.Payload.BlockSeals)
	rawSignatures, _ := json.Marshal(block.Payload.Signatures)
	// The requested height keys the unit; a gateway response reporting a
	// different height is corrupt, not a block we asked for.
	if reported := util.Uint64OrZero(block.Header.Height); reported != height {
		return nil, nil, fmt.Errorf("gateway returned height %q for requested height %d", block.Header.Height, height)
	}
	unit.Block = &db.Block{
		Height:          height,
		BlockHash:       block.Header.ID,
		ParentHash:      block.Header.ParentID,
		Timestamp:       block.Header.Timestamp.Unix(),
		CollectionCount: len(collections),
		TxCount:         txIndex,
		EventCount:      eventCount,
		TotalGasUsed:    totalGasUsed,
		Sealed:          true,
		RawGuarantees:   string(rawGuarantees),
		RawSeals:        string(rawSeals),
		RawSignatures:   string(rawSignatures),
	}
	return unit, warnings, nil
}
