package db

type ErrSeverity int

const (
	SeverityWarn  ErrSeverity = 0
	SeverityFatal ErrSeverity = 1
)

func (s ErrSeverity) String() string {
	if s == SeverityFatal {
		return "FATAL"
	}
	return "WARN"
}

// MaxInlineErrorSize bounds the inlined message; longer messages keep only a
// truncated prefix inline and the full text in Body.
const MaxInlineErrorSize = 2048

// IndexingError is a durable, deduplicated record of an ingestion failure.
// Identical failures for the same (worker, height, tx) collapse onto one row
// via the content hash of the message.
type IndexingError struct {
	Id          int64
	Worker      string `gorm:"NOT NULL;uniqueIndex:idx_error_dedup;size:64"`
	Height      uint64 `gorm:"uniqueIndex:idx_error_dedup;autoIncrement:false"`
	TxID        string `gorm:"uniqueIndex:idx_error_dedup;size:64"`
	ContentHash string `gorm:"NOT NULL;uniqueIndex:idx_error_dedup;size:64"`
	Severity    ErrSeverity
	Message     string `gorm:"size:2048"`
	Body        string `gorm:"type:longtext"` // full message when it exceeds the inline bound
	Resolved    bool
	CreatedTime int64
}

func (*IndexingError) TableName() string {
	return "indexing_error"
}
