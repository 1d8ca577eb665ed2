package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/flowscan/indexer/config"
	"github.com/flowscan/indexer/db"
	"github.com/flowscan/indexer/external"
	"github.com/flowscan/indexer/external/flow"
	"github.com/flowscan/indexer/logging"
	"github.com/flowscan/indexer/metrics"
)

const (
	LoopSleepTime       = 10 * time.Millisecond
	HeadPauseTime       = 2 * time.Second
	MonitorHeadInterval = 10 * time.Second
)

// BlockSyncer walks the chain forward one sealed height at a time, decoding
// each block into an ingest unit and persisting it together with the stream
// checkpoint in one transaction.
type BlockSyncer struct {
	dao    db.IndexerDao
	client external.IClient
	config *config.SyncerConfig
}

func NewBlockSyncer(dao db.IndexerDao, cfg *config.SyncerConfig) *BlockSyncer {
	client, err := external.NewClient(cfg.AccessNodeEndpoints)
	if err != nil {
		panic(err)
	}
	return &BlockSyncer{
		dao:    dao,
		client: client,
		config: cfg,
	}
}

// Client exposes the access client so backfill workers reuse the same
// endpoint pool.
func (s *BlockSyncer) Client() external.IClient {
	return s.client
}

func (s *BlockSyncer) StartLoop() {
	go func() {
		syncTicker := time.NewTicker(LoopSleepTime)
		for range syncTicker.C {
			if err := s.sync(); err != nil {
				logging.Logger.Error(err)
				continue
			}
		}
	}()
	go s.monitorHead()
}

func (s *BlockSyncer) getNextHeight() (uint64, error) {
	checkpoint, err := s.dao.GetCheckpoint(s.config.ServiceName)
	if err != nil {
		return 0, err
	}
	if checkpoint.LastHeight == 0 && checkpoint.ServiceName == "" {
		return s.config.StartHeight, nil
	}
	next := checkpoint.LastHeight + 1
	if next < s.config.StartHeight {
		next = s.config.StartHeight
	}
	return next, nil
}

func (s *BlockSyncer) sync() error {
	height, err := s.getNextHeight()
	if err != nil {
		return err
	}

	unit, warnings, err := FetchBlockData(s.client, height, s.rpcTimeout())
	if err != nil {
		if errors.Is(err, flow.ErrBlockNotFound) {
			// caught up with the sealed head, wait for the chain
			time.Sleep(HeadPauseTime)
			return nil
		}
		s.recordError(height, db.SeverityFatal, err)
		return err
	}
	for _, warning := range warnings {
		logging.Logger.Warningf("decode warning at height %d: %s", height, warning.Error())
		s.recordError(height, db.SeverityWarn, warning)
	}

	if err = s.dao.EnsurePartitions(height); err != nil {
		return err
	}

	subCursor := int64(len(unit.Transactions)) - 1
	err = s.dao.SaveIngestUnit(unit, &db.CheckpointAdvance{
		ServiceName: s.config.ServiceName,
		SubCursor:   subCursor,
	})
	if err != nil {
		logging.Logger.Errorf("failed to save block(h=%d) with %d txs, err=%s", height, len(unit.Transactions), err.Error())
		s.recordError(height, db.SeverityFatal, err)
		return err
	}
	metrics.SyncedHeightGauge.Set(float64(height))
	logging.Logger.Infof("saved block(height=%d) txs(num=%d) events(num=%d) to DB", height, len(unit.Transactions), unit.Block.EventCount)
	return nil
}

func (s *BlockSyncer) monitorHead() {
	headTicker := time.NewTicker(MonitorHeadInterval)
	for range headTicker.C {
		ctx, cancel := context.WithTimeout(context.Background(), s.rpcTimeout())
		head, err := s.client.GetLatestBlockHeight(ctx)
		cancel()
		if err != nil {
			logging.Logger.Errorf("failed to get latest sealed height, err=%s", err.Error())
			continue
		}
		metrics.HeadHeightGauge.Set(float64(head))
	}
}

func (s *BlockSyncer) recordError(height uint64, severity db.ErrSeverity, cause error) {
	metrics.IndexingErrorsCounter.WithLabelValues(severity.String()).Inc()
	if err := s.dao.SaveIndexingError(s.config.ServiceName, height, "", severity, cause.Error()); err != nil {
		logging.Logger.Errorf("failed to record indexing error at height %d, err=%s", height, err.Error())
	}
}

func (s *BlockSyncer) rpcTimeout() time.Duration {
	return time.Duration(s.config.RPCTimeoutSeconds) * time.Second
}
