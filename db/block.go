package db

// Block is the raw append-only block row, range-partitioned by height.
// Immutable once written; created exactly once per height by the ingestion
// worker. The raw structural payloads are kept for audit.
type Block struct {
	Height          uint64 `gorm:"primaryKey;autoIncrement:false"`
	BlockHash       string `gorm:"NOT NULL;index:idx_block_hash;size:64"`
	ParentHash      string `gorm:"size:64"`
	Timestamp       int64  `gorm:"NOT NULL"`
	CollectionCount int
	TxCount         int
	EventCount      int
	TotalGasUsed    uint64
	Sealed          bool
	RawGuarantees   string `gorm:"type:longtext"`
	RawSeals        string `gorm:"type:longtext"`
	RawSignatures   string `gorm:"type:longtext"`
}

func (*Block) TableName() string {
	return "block"
}
