package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveIngestUnit persists every row of one height in a single transaction.
// Raw tables are written insert-if-absent, so re-ingesting an already
// written height is a no-op and two workers racing on the same height both
// converge to the same stored state. When advance is set, the stream
// checkpoint moves inside the same transaction as the unit write.
func (d *IndexerSvcDB) SaveIngestUnit(unit *IngestUnit, advance *CheckpointAdvance) error {
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		if unit.Block != nil {
			if err := insertIfAbsent(dbTx, unit.Block); err != nil {
				return err
			}
		}
		if len(unit.Scripts) != 0 {
			if err := insertIfAbsentBatch(dbTx, unit.Scripts); err != nil {
				return err
			}
		}
		if len(unit.Transactions) != 0 {
			if err := insertIfAbsentBatch(dbTx, unit.Transactions); err != nil {
				return err
			}
		}
		if len(unit.Events) != 0 {
			if err := insertIfAbsentBatch(dbTx, unit.Events); err != nil {
				return err
			}
		}
		if len(unit.Transfers) != 0 {
			if err := insertIfAbsentBatch(dbTx, unit.Transfers); err != nil {
				return err
			}
		}
		if len(unit.Activities) != 0 {
			if err := insertIfAbsentBatch(dbTx, unit.Activities); err != nil {
				return err
			}
		}
		if len(unit.AccountKeys) != 0 {
			if err := insertIfAbsentBatch(dbTx, unit.AccountKeys); err != nil {
				return err
			}
		}
		// revocations update keys in place; re-applying matches zero rows
		for _, rev := range unit.KeyRevocations {
			err := dbTx.Model(AccountKey{}).
				Where("address = ? and key_index = ? and revoked = ?", rev.Address, rev.KeyIndex, false).
				Updates(map[string]interface{}{
					"revoked":           true,
					"revoked_at_height": rev.Height,
				}).Error
			if err != nil {
				return err
			}
		}
		if advance != nil && unit.Block != nil {
			if err := upsertCheckpoint(dbTx, advance.ServiceName, unit.Block.Height, advance.SubCursor); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertIfAbsent(dbTx *gorm.DB, row interface{}) error {
	err := dbTx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
	return keepExisting(err)
}

func insertIfAbsentBatch(dbTx *gorm.DB, rows interface{}) error {
	err := dbTx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, insertBatchSize).Error
	return keepExisting(err)
}

// keepExisting downgrades duplicate-entry errors to success: a conflicting
// primary key means the row is already there, which is exactly the state we
// want.
func keepExisting(err error) error {
	if err != nil && MysqlErrCode(err) == ErrDuplicateEntryCode {
		return nil
	}
	return err
}
