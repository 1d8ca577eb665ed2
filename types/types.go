package types

import "time"

// BlockResponse is the access-node representation of a sealed block,
// including the structural payload kept for audit.
type BlockResponse struct {
	Header  BlockHeader  `json:"header"`
	Payload BlockPayload `json:"payload"`
}

type BlockHeader struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id"`
	Height    string    `json:"height"`
	Timestamp time.Time `json:"timestamp"`
}

type BlockPayload struct {
	CollectionGuarantees []CollectionGuarantee `json:"collection_guarantees"`
	BlockSeals           []BlockSeal           `json:"block_seals"`
	Signatures           []string              `json:"signatures"`
}

type CollectionGuarantee struct {
	CollectionID  string `json:"collection_id"`
	SignerIndices string `json:"signer_indices"`
	Signature     string `json:"signature"`
}

type BlockSeal struct {
	BlockID    string `json:"block_id"`
	ResultID   string `json:"result_id"`
	FinalState string `json:"final_state"`
}

// CollectionResponse lists the transaction ids batched into one collection.
type CollectionResponse struct {
	ID           string   `json:"id"`
	Transactions []string `json:"transactions"`
}

type ProposalKey struct {
	Address        string `json:"address"`
	KeyIndex       string `json:"key_index"`
	SequenceNumber string `json:"sequence_number"`
}

// TransactionResponse is the access-node representation of a transaction.
// Script and Arguments are base64 encoded.
type TransactionResponse struct {
	ID          string      `json:"id"`
	Script      string      `json:"script"`
	Arguments   []string    `json:"arguments"`
	GasLimit    string      `json:"gas_limit"`
	ProposalKey ProposalKey `json:"proposal_key"`
	Payer       string      `json:"payer"`
	Authorizers []string    `json:"authorizers"`
}

// TransactionResultResponse carries the execution outcome of a transaction.
type TransactionResultResponse struct {
	BlockID         string          `json:"block_id"`
	Status          string          `json:"status"`
	StatusCode      int             `json:"status_code"`
	ErrorMessage    string          `json:"error_message"`
	ComputationUsed string          `json:"computation_used"`
	Events          []EventResponse `json:"events"`
}

// EventResponse is one emitted event. Payload is base64-encoded JSON-Cadence.
type EventResponse struct {
	Type             string `json:"type"`
	TransactionID    string `json:"transaction_id"`
	TransactionIndex string `json:"transaction_index"`
	EventIndex       string `json:"event_index"`
	Payload          string `json:"payload"`
}
