package db

type Role string

const (
	RoleProposer         Role = "PROPOSER"
	RolePayer            Role = "PAYER"
	RoleAuthorizer       Role = "AUTHORIZER"
	RoleAssetSent        Role = "ASSET_SENT"
	RoleAssetReceived    Role = "ASSET_RECEIVED"
	RoleContractDeployer Role = "CONTRACT_DEPLOYER"
	RoleEventParticipant Role = "EVENT_PARTICIPANT"
)

// AddressActivity records one role an address played in one transaction.
// Multiple roles per address per transaction are separate rows. Rows with
// RoleEventParticipant come from heuristic payload scanning and carry
// Heuristic=true so consumers can treat them as low confidence.
type AddressActivity struct {
	Address   string `gorm:"primaryKey;size:64"`
	Height    uint64 `gorm:"primaryKey;autoIncrement:false"`
	TxID      string `gorm:"primaryKey;size:64"`
	Role      Role   `gorm:"primaryKey;size:20"`
	Heuristic bool
}

func (*AddressActivity) TableName() string {
	return "address_activity"
}
