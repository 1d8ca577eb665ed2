package db

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flowscan/indexer/util"
)

const insertBatchSize = 500

// IndexerDao is the single storage surface shared by the streaming syncer,
// the backfill workers, and the status service.
type IndexerDao interface {
	BlockDB
	CheckpointDB
	LeaseDB
	ErrorDB
	StatsDB
	SaveIngestUnit(unit *IngestUnit, advance *CheckpointAdvance) error
	SetupPartitionedTables() error
	EnsurePartitions(height uint64) error
}

type IndexerSvcDB struct {
	db         *gorm.DB
	partitions *partitionManager
}

func NewIndexerSvcDB(db *gorm.DB, partitionWindow, partitionPrecreate uint64) IndexerDao {
	return &IndexerSvcDB{
		db:         db,
		partitions: newPartitionManager(db, partitionWindow, partitionPrecreate),
	}
}

type BlockDB interface {
	GetBlock(height uint64) (*Block, error)
	GetLatestBlock() (*Block, error)
	GetFirstBlock() (*Block, error)
	GetTransactionsByHeight(height uint64) ([]*Transaction, error)
	GetTransactionByID(txID string) (*Transaction, error)
	GetEventsByHeight(height uint64) ([]*Event, error)
	GetEventsInRange(from, to uint64) ([]*Event, error)
	GetTransfersByTransaction(height uint64, txID string) ([]*TokenTransfer, error)
	GetActivitiesByAddress(address string, limit int) ([]*AddressActivity, error)
	GetBlocksInRange(from, to uint64) ([]*Block, error)
	GetBlocksByTimeRange(fromTs, toTs int64) ([]*Block, error)
	GetTransactionsInRange(from, to uint64) ([]*Transaction, error)
	GetScript(hash string) (*Script, error)
}

func (d *IndexerSvcDB) GetBlock(height uint64) (*Block, error) {
	block := Block{}
	err := d.db.Model(Block{}).Where("height = ?", height).Take(&block).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &block, nil
}

func (d *IndexerSvcDB) GetLatestBlock() (*Block, error) {
	block := Block{}
	err := d.db.Model(Block{}).Order("height desc").Take(&block).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &block, nil
}

func (d *IndexerSvcDB) GetFirstBlock() (*Block, error) {
	block := Block{}
	err := d.db.Model(Block{}).Order("height asc").Take(&block).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &block, nil
}

func (d *IndexerSvcDB) GetTransactionsByHeight(height uint64) ([]*Transaction, error) {
	txs := make([]*Transaction, 0)
	if err := d.db.Where("height = ?", height).Order("tx_index asc").Find(&txs).Error; err != nil {
		return txs, err
	}
	return txs, nil
}

func (d *IndexerSvcDB) GetTransactionByID(txID string) (*Transaction, error) {
	tx := Transaction{}
	err := d.db.Model(Transaction{}).Where("tx_id = ?", txID).Take(&tx).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &tx, nil
}

func (d *IndexerSvcDB) GetEventsByHeight(height uint64) ([]*Event, error) {
	events := make([]*Event, 0)
	if err := d.db.Where("height = ?", height).Order("tx_id, event_index asc").Find(&events).Error; err != nil {
		return events, err
	}
	return events, nil
}

func (d *IndexerSvcDB) GetEventsInRange(from, to uint64) ([]*Event, error) {
	events := make([]*Event, 0)
	if err := d.db.Where("height >= ? and height < ?", from, to).Order("height, tx_id, event_index asc").Find(&events).Error; err != nil {
		return events, err
	}
	return events, nil
}

func (d *IndexerSvcDB) GetTransfersByTransaction(height uint64, txID string) ([]*TokenTransfer, error) {
	transfers := make([]*TokenTransfer, 0)
	if err := d.db.Where("height = ? and tx_id = ?", height, txID).Order("event_index asc").Find(&transfers).Error; err != nil {
		return transfers, err
	}
	return transfers, nil
}

func (d *IndexerSvcDB) GetActivitiesByAddress(address string, limit int) ([]*AddressActivity, error) {
	activities := make([]*AddressActivity, 0)
	if err := d.db.Where("address = ?", address).Order("height desc").Limit(limit).Find(&activities).Error; err != nil {
		return activities, err
	}
	return activities, nil
}

func (d *IndexerSvcDB) GetBlocksInRange(from, to uint64) ([]*Block, error) {
	blocks := make([]*Block, 0)
	if err := d.db.Where("height >= ? and height < ?", from, to).Order("height asc").Find(&blocks).Error; err != nil {
		return blocks, err
	}
	return blocks, nil
}

func (d *IndexerSvcDB) GetBlocksByTimeRange(fromTs, toTs int64) ([]*Block, error) {
	blocks := make([]*Block, 0)
	if err := d.db.Where("timestamp >= ? and timestamp < ?", fromTs, toTs).Order("height asc").Find(&blocks).Error; err != nil {
		return blocks, err
	}
	return blocks, nil
}

func (d *IndexerSvcDB) GetTransactionsInRange(from, to uint64) ([]*Transaction, error) {
	txs := make([]*Transaction, 0)
	if err := d.db.Where("height >= ? and height < ?", from, to).Order("height, tx_index asc").Find(&txs).Error; err != nil {
		return txs, err
	}
	return txs, nil
}

func (d *IndexerSvcDB) GetScript(hash string) (*Script, error) {
	script := Script{}
	err := d.db.Model(Script{}).Where("hash = ?", hash).Take(&script).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &script, nil
}

type CheckpointDB interface {
	GetCheckpoint(serviceName string) (*Checkpoint, error)
	UpdateCheckpoint(serviceName string, height uint64, subCursor int64) error
}

func (d *IndexerSvcDB) GetCheckpoint(serviceName string) (*Checkpoint, error) {
	checkpoint := Checkpoint{}
	err := d.db.Model(Checkpoint{}).Where("service_name = ?", serviceName).Take(&checkpoint).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &checkpoint, nil
}

func (d *IndexerSvcDB) UpdateCheckpoint(serviceName string, height uint64, subCursor int64) error {
	return d.db.Transaction(func(dbTx *gorm.DB) error {
		return upsertCheckpoint(dbTx, serviceName, height, subCursor)
	})
}

func upsertCheckpoint(dbTx *gorm.DB, serviceName string, height uint64, subCursor int64) error {
	return dbTx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "service_name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_height":  height,
			"sub_cursor":   subCursor,
			"updated_time": time.Now().Unix(),
		}),
	}).Create(&Checkpoint{
		ServiceName: serviceName,
		LastHeight:  height,
		SubCursor:   subCursor,
		UpdatedTime: time.Now().Unix(),
	}).Error
}

type LeaseDB interface {
	ClaimNextRange(workerType, holder string, rangeSize, maxHeight uint64, ttl time.Duration) (*WorkerLease, error)
	RenewLease(workerType string, rangeStart uint64, holder string, ttl time.Duration) error
	CompleteLease(workerType string, rangeStart uint64, holder string) error
	FailLease(workerType string, rangeStart uint64, holder string, lastError string) error
	GetLease(workerType string, rangeStart uint64) (*WorkerLease, error)
	ListActiveLeases() ([]*WorkerLease, error)
}

// ClaimNextRange claims work for the given worker type: first it tries to
// reclaim the oldest expired ACTIVE lease with a single conditional update
// (so two workers can never both win the same range), then falls back to
// opening a fresh range after the highest leased end. Returns nil when there
// is nothing to claim below maxHeight.
func (d *IndexerSvcDB) ClaimNextRange(workerType, holder string, rangeSize, maxHeight uint64, ttl time.Duration) (*WorkerLease, error) {
	now := time.Now().Unix()
	expire := time.Now().Add(ttl).Unix()

	// reclaim path
	expired := WorkerLease{}
	err := d.db.Model(WorkerLease{}).
		Where("worker_type = ? and status = ? and expire_time < ?", workerType, LeaseActive, now).
		Order("range_start asc").Take(&expired).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if err == nil {
		res := d.db.Model(WorkerLease{}).
			Where("worker_type = ? and range_start = ? and status = ? and expire_time < ?",
				workerType, expired.RangeStart, LeaseActive, now).
			Updates(map[string]interface{}{
				"holder_id":   holder,
				"expire_time": expire,
				"attempts":    gorm.Expr("attempts + 1"),
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return d.GetLease(workerType, expired.RangeStart)
		}
		// somebody else reclaimed it first; fall through to a fresh range
	}

	var from uint64
	if err = d.db.Model(WorkerLease{}).
		Where("worker_type = ?", workerType).
		Select("coalesce(max(range_end), 0)").Scan(&from).Error; err != nil {
		return nil, err
	}
	if from >= maxHeight {
		return nil, nil
	}
	to := from + rangeSize
	if to > maxHeight {
		to = maxHeight
	}
	lease := &WorkerLease{
		WorkerType: workerType,
		RangeStart: from,
		RangeEnd:   to,
		HolderID:   holder,
		ExpireTime: expire,
		Status:     LeaseActive,
		Attempts:   1,
	}
	res := d.db.Clauses(clause.OnConflict{DoNothing: true}).Create(lease)
	if res.Error != nil {
		if MysqlErrCode(res.Error) == ErrDuplicateEntryCode {
			return nil, nil
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// another worker inserted the same range first
		return nil, nil
	}
	return lease, nil
}

func (d *IndexerSvcDB) RenewLease(workerType string, rangeStart uint64, holder string, ttl time.Duration) error {
	res := d.db.Model(WorkerLease{}).
		Where("worker_type = ? and range_start = ? and holder_id = ? and status = ?",
			workerType, rangeStart, holder, LeaseActive).
		Updates(map[string]interface{}{"expire_time": time.Now().Add(ttl).Unix()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (d *IndexerSvcDB) CompleteLease(workerType string, rangeStart uint64, holder string) error {
	res := d.db.Model(WorkerLease{}).
		Where("worker_type = ? and range_start = ? and holder_id = ? and status = ?",
			workerType, rangeStart, holder, LeaseActive).
		Updates(map[string]interface{}{"status": LeaseCompleted})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (d *IndexerSvcDB) FailLease(workerType string, rangeStart uint64, holder string, lastError string) error {
	if len(lastError) > MaxInlineErrorSize {
		lastError = lastError[:MaxInlineErrorSize]
	}
	res := d.db.Model(WorkerLease{}).
		Where("worker_type = ? and range_start = ? and holder_id = ? and status = ?",
			workerType, rangeStart, holder, LeaseActive).
		Updates(map[string]interface{}{"status": LeaseFailed, "last_error": lastError})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (d *IndexerSvcDB) GetLease(workerType string, rangeStart uint64) (*WorkerLease, error) {
	lease := WorkerLease{}
	err := d.db.Model(WorkerLease{}).
		Where("worker_type = ? and range_start = ?", workerType, rangeStart).
		Take(&lease).Error
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

func (d *IndexerSvcDB) ListActiveLeases() ([]*WorkerLease, error) {
	leases := make([]*WorkerLease, 0)
	if err := d.db.Where("status = ?", LeaseActive).Order("worker_type, range_start asc").Find(&leases).Error; err != nil {
		return leases, err
	}
	return leases, nil
}

type ErrorDB interface {
	SaveIndexingError(worker string, height uint64, txID string, severity ErrSeverity, message string) error
	RecentErrors(limit int) ([]*IndexingError, error)
	ResolveError(id int64) error
}

func (d *IndexerSvcDB) SaveIndexingError(worker string, height uint64, txID string, severity ErrSeverity, message string) error {
	row := &IndexingError{
		Worker:      worker,
		Height:      height,
		TxID:        txID,
		ContentHash: util.ContentHash(message),
		Severity:    severity,
		Message:     message,
		CreatedTime: time.Now().Unix(),
	}
	if len(message) > MaxInlineErrorSize {
		row.Message = message[:MaxInlineErrorSize]
		row.Body = message
	}
	err := d.db.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
	if err != nil && MysqlErrCode(err) == ErrDuplicateEntryCode {
		return nil
	}
	return err
}

func (d *IndexerSvcDB) RecentErrors(limit int) ([]*IndexingError, error) {
	errs := make([]*IndexingError, 0)
	if err := d.db.Where("resolved = ?", false).Order("id desc").Limit(limit).Find(&errs).Error; err != nil {
		return errs, err
	}
	return errs, nil
}

func (d *IndexerSvcDB) ResolveError(id int64) error {
	return d.db.Model(IndexingError{}).Where("id = ?", id).Updates(map[string]interface{}{"resolved": true}).Error
}

func InitTables(db *gorm.DB) {
	var err error
	for _, model := range []interface{}{
		&Block{}, &Script{}, &Transaction{}, &Event{}, &TokenTransfer{},
		&AddressActivity{}, &AccountKey{}, &Checkpoint{}, &WorkerLease{},
		&IndexingError{}, &TxMetric{}, &AddressStat{}, &DailyStat{},
	} {
		if err = db.AutoMigrate(model); err != nil {
			panic(err)
		}
	}
}
