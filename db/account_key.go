package db

// AccountKey is built incrementally from account-lifecycle events. A key
// addition inserts the row; a later revocation updates it in place.
type AccountKey struct {
	Address         string `gorm:"primaryKey;size:64"`
	KeyIndex        int    `gorm:"primaryKey;autoIncrement:false"`
	PublicKey       string `gorm:"size:192"`
	SignAlgo        int
	HashAlgo        int
	Weight          string `gorm:"size:40"`
	Revoked         bool
	AddedAtHeight   uint64
	RevokedAtHeight uint64
}

func (*AccountKey) TableName() string {
	return "account_key"
}

// KeyRevocation marks an existing account key revoked at a height. It is not
// a table of its own; revocations are applied as updates inside the ingest
// unit transaction.
type KeyRevocation struct {
	Address  string
	KeyIndex int
	Height   uint64
}
