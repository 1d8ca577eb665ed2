package db

// IngestUnit carries every row produced for a single height. It is written
// atomically: a height is either fully present or fully absent.
type IngestUnit struct {
	Block          *Block
	Scripts        []*Script
	Transactions   []*Transaction
	Events         []*Event
	Transfers      []*TokenTransfer
	Activities     []*AddressActivity
	AccountKeys    []*AccountKey
	KeyRevocations []*KeyRevocation
}

// CheckpointAdvance asks SaveIngestUnit to move a stream checkpoint inside
// the same transaction as the unit write. Nil for backfill writes.
type CheckpointAdvance struct {
	ServiceName string
	SubCursor   int64
}
