package db

// TxMetric is a derived per-transaction aggregate recomputed by backfill
// jobs from raw events. Values are deterministic per transaction, so the
// merge semantics are replace.
type TxMetric struct {
	Height     uint64 `gorm:"primaryKey;autoIncrement:false"`
	TxID       string `gorm:"primaryKey;size:64"`
	EventCount int
	GasUsed    uint64
	Fee        string `gorm:"size:40"`
}

func (*TxMetric) TableName() string {
	return "tx_metric"
}

// AddressStat is a derived per-address aggregate. Deltas are summed, guarded
// by LastHeight so that re-running a range converges instead of
// double-counting.
type AddressStat struct {
	Address     string `gorm:"primaryKey;size:64"`
	TxCount     int64
	LastHeight  uint64
	UpdatedTime int64
}

func (*AddressStat) TableName() string {
	return "address_stat"
}

// DailyStat is a per-day rollup over raw tables; recomputation replaces the
// whole day.
type DailyStat struct {
	Day             string `gorm:"primaryKey;size:10"` // YYYY-MM-DD (UTC)
	TxCount         int64
	EventCount      int64
	GasUsed         uint64
	ActiveAddresses int64
}

func (*DailyStat) TableName() string {
	return "daily_stat"
}
