package db

type LeaseStatus int

const (
	LeaseActive    LeaseStatus = 0
	LeaseCompleted LeaseStatus = 1 // sticky, never reopened
	LeaseFailed    LeaseStatus = 2
)

// WorkerLease is a time-bounded exclusive claim on backfill work over the
// height range [RangeStart, RangeEnd). An ACTIVE lease whose expiry has
// passed may be reclaimed by any worker through a single conditional update,
// incrementing Attempts; the counter is never reset.
type WorkerLease struct {
	Id         int64
	WorkerType string `gorm:"NOT NULL;uniqueIndex:idx_lease_range;size:64"`
	RangeStart uint64 `gorm:"NOT NULL;uniqueIndex:idx_lease_range;autoIncrement:false"`
	RangeEnd   uint64 `gorm:"NOT NULL"`
	HolderID   string `gorm:"size:128"`
	ExpireTime int64  `gorm:"NOT NULL"`
	Status     LeaseStatus
	Attempts   int64
	LastError  string `gorm:"type:text"`
}

func (*WorkerLease) TableName() string {
	return "worker_lease"
}
