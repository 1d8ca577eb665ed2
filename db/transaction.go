package db

type TxStatus int

const (
	TxPending   TxStatus = 0
	TxFinalized TxStatus = 1
	TxExecuted  TxStatus = 2
	TxSealed    TxStatus = 3 // terminal
	TxExpired   TxStatus = 4 // terminal
)

func (s TxStatus) String() string {
	switch s {
	case TxPending:
		return "PENDING"
	case TxFinalized:
		return "FINALIZED"
	case TxExecuted:
		return "EXECUTED"
	case TxSealed:
		return "SEALED"
	case TxExpired:
		return "EXPIRED"
	}
	return "UNKNOWN"
}

// Transaction is the raw transaction row, keyed by (height, tx id) and
// range-partitioned by height. The script body lives in the script table,
// referenced by content hash.
type Transaction struct {
	Height       uint64 `gorm:"primaryKey;autoIncrement:false"`
	TxID         string `gorm:"primaryKey;size:64"`
	TxIndex      int    `gorm:"NOT NULL"`
	Proposer     string `gorm:"NOT NULL;index:idx_tx_proposer;size:64"`
	Payer        string `gorm:"size:64"`
	Authorizers  string // comma-joined addresses
	ScriptHash   string `gorm:"index:idx_tx_script_hash;size:64"`
	Arguments    string `gorm:"type:longtext"`
	Status       TxStatus
	GasLimit     uint64
	GasUsed      uint64
	ErrorMessage string `gorm:"type:text"`
	IsEVM        bool
	EVMTxHash    string `gorm:"index:idx_tx_evm_hash;size:66"`
}

func (*Transaction) TableName() string {
	return "transaction"
}

// Script deduplicates large repeated transaction script bodies by content
// hash to bound storage growth.
type Script struct {
	Hash string `gorm:"primaryKey;size:64"`
	Body string `gorm:"type:longtext"`
}

func (*Script) TableName() string {
	return "script"
}
