package db

// Event is one emitted event, keyed by (height, tx id, event index) and
// range-partitioned by height. Fields holds a flattened key-value projection
// of the payload for query convenience.
type Event struct {
	Height       uint64 `gorm:"primaryKey;autoIncrement:false"`
	TxID         string `gorm:"primaryKey;size:64"`
	EventIndex   int    `gorm:"primaryKey;autoIncrement:false"`
	Type         string `gorm:"NOT NULL;index:idx_event_type;size:255"`
	OwnerAddress string `gorm:"index:idx_event_owner;size:64"`
	ContractName string `gorm:"size:64"`
	EventName    string `gorm:"size:64"`
	Payload      string `gorm:"type:longtext"`
	Fields       string `gorm:"type:longtext"`
}

func (*Event) TableName() string {
	return "event"
}
