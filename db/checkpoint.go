package db

// Checkpoint is the forward cursor of one logical ingestion stream. It only
// advances after the height has been durably written. SubCursor records the
// last decoded transaction index within the height for mid-height resume.
type Checkpoint struct {
	Id          int64
	ServiceName string `gorm:"NOT NULL;uniqueIndex:idx_checkpoint_service;size:64"`
	LastHeight  uint64
	SubCursor   int64
	UpdatedTime int64
}

func (*Checkpoint) TableName() string {
	return "checkpoint"
}
