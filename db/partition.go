package db

import (
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// partitionedTables are the raw append-only tables range-partitioned by
// height. Every unique key on them includes the height column, which MySQL
// range partitioning requires.
var partitionedTables = []string{
	(&Block{}).TableName(),
	(&Transaction{}).TableName(),
	(&Event{}).TableName(),
	(&TokenTransfer{}).TableName(),
	(&AddressActivity{}).TableName(),
}

// partitionManager creates height-window partitions on demand ahead of the
// write frontier. Only the mysql dialect has real partitions; sqlite (used
// in tests) keeps plain tables and every method is a no-op.
type partitionManager struct {
	db        *gorm.DB
	window    uint64
	precreate uint64

	mu       sync.Mutex
	maxBound map[string]uint64 // highest VALUES LESS THAN bound per table
}

func newPartitionManager(db *gorm.DB, window, precreate uint64) *partitionManager {
	return &partitionManager{
		db:        db,
		window:    window,
		precreate: precreate,
		maxBound:  make(map[string]uint64),
	}
}

func (p *partitionManager) enabled() bool {
	return p.db.Dialector.Name() == "mysql" && p.window > 0
}

// SetupPartitionedTables converts freshly migrated plain tables into
// range-partitioned ones. Safe to call on every start; tables that already
// have partitions are left alone.
func (d *IndexerSvcDB) SetupPartitionedTables() error {
	p := d.partitions
	if !p.enabled() {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, table := range partitionedTables {
		bound, err := p.currentMaxBound(table)
		if err != nil {
			return err
		}
		if bound > 0 {
			p.maxBound[table] = bound
			continue
		}
		parts := ""
		for i := uint64(0); i <= p.precreate; i++ {
			if i > 0 {
				parts += ", "
			}
			parts += fmt.Sprintf("PARTITION p%d VALUES LESS THAN (%d)", i+1, (i+1)*p.window)
		}
		ddl := fmt.Sprintf("ALTER TABLE `%s` PARTITION BY RANGE (height) (%s)", table, parts)
		if err = p.db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("partition table %s: %w", table, err)
		}
		p.maxBound[table] = (p.precreate + 1) * p.window
	}
	return nil
}

// EnsurePartitions guarantees that partitions covering the given height plus
// the configured precreate margin exist on every partitioned table. It is
// idempotent and safe under concurrent callers; duplicate-partition errors
// from a racing worker are tolerated.
func (d *IndexerSvcDB) EnsurePartitions(height uint64) error {
	p := d.partitions
	if !p.enabled() {
		return nil
	}
	needed := (height/p.window + 1 + p.precreate) * p.window

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, table := range partitionedTables {
		bound, ok := p.maxBound[table]
		if !ok {
			var err error
			if bound, err = p.currentMaxBound(table); err != nil {
				return err
			}
		}
		for bound < needed {
			bound += p.window
			ddl := fmt.Sprintf("ALTER TABLE `%s` ADD PARTITION (PARTITION p%d VALUES LESS THAN (%d))",
				table, bound/p.window, bound)
			if err := p.db.Exec(ddl).Error; err != nil {
				if MysqlErrCode(err) == ErrSamePartitionNameCode {
					continue
				}
				if MysqlErrCode(err) == ErrPartitionMgmtOnPlainTbl {
					return fmt.Errorf("table %s is not partitioned, run SetupPartitionedTables first: %w", table, err)
				}
				return fmt.Errorf("add partition to %s: %w", table, err)
			}
		}
		p.maxBound[table] = bound
	}
	return nil
}

func (p *partitionManager) currentMaxBound(table string) (uint64, error) {
	var bound uint64
	err := p.db.Raw(
		"SELECT coalesce(max(cast(partition_description as unsigned)), 0) "+
			"FROM information_schema.partitions "+
			"WHERE table_schema = DATABASE() AND table_name = ? AND partition_name IS NOT NULL",
		table).Scan(&bound).Error
	if err != nil {
		return 0, err
	}
	return bound, nil
}
