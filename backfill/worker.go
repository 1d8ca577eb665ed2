package backfill

import (
	"fmt"
	"os"
	"time"

	"github.com/flowscan/indexer/config"
	"github.com/flowscan/indexer/db"
	"github.com/flowscan/indexer/logging"
	"github.com/flowscan/indexer/metrics"
	"github.com/flowscan/indexer/types"
)

const IdleSleepTime = 5 * time.Second

// Worker runs one backfill job under the lease protocol: claim a range,
// process it in batches renewing the lease between batches, then mark the
// lease completed or failed. Any number of workers may run concurrently; the
// lease table keeps their ranges disjoint.
type Worker struct {
	dao      db.IndexerDao
	config   *config.BackfillConfig
	job      Job
	holderID string
}

func NewWorker(dao db.IndexerDao, cfg *config.BackfillConfig, job Job) *Worker {
	holderID := cfg.WorkerID
	if holderID == "" {
		holderID = DefaultWorkerID()
	}
	return &Worker{
		dao:      dao,
		config:   cfg,
		job:      job,
		holderID: holderID,
	}
}

// DefaultWorkerID identifies this process across restarts on the same host.
func DefaultWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

func (w *Worker) StartLoop() {
	go func() {
		for {
			worked, err := w.runOnce()
			if err != nil {
				logging.Logger.Errorf("backfill worker %s job %s: %s", w.holderID, w.job.Name(), err.Error())
			}
			if !worked {
				time.Sleep(IdleSleepTime)
			}
		}
	}()
}

// runOnce claims and processes at most one range. It returns false when
// there was nothing to claim.
func (w *Worker) runOnce() (bool, error) {
	maxHeight, err := w.dao.GetMaxIndexedHeight()
	if err != nil {
		return false, err
	}
	if maxHeight == 0 {
		return false, nil
	}
	lease, err := w.dao.ClaimNextRange(w.job.Name(), w.holderID, w.config.RangeSize, maxHeight, w.leaseTTL())
	if err != nil {
		return false, err
	}
	if lease == nil {
		return false, nil
	}
	w.updateLeaseGauge()

	if lease.Attempts > w.config.MaxAttempts {
		message := fmt.Sprintf("%s gave up after %d attempts",
			types.GetRangeName(w.job.Name(), lease.RangeStart, lease.RangeEnd), lease.Attempts)
		logging.Logger.Error(message)
		w.recordError(lease.RangeStart, message)
		return true, w.dao.FailLease(w.job.Name(), lease.RangeStart, w.holderID, message)
	}

	if err = w.process(lease); err != nil {
		w.recordError(lease.RangeStart, err.Error())
		if failErr := w.dao.FailLease(w.job.Name(), lease.RangeStart, w.holderID, err.Error()); failErr != nil {
			logging.Logger.Errorf("failed to fail lease for range [%d, %d): %s", lease.RangeStart, lease.RangeEnd, failErr.Error())
		}
		return true, err
	}
	if err = w.dao.CompleteLease(w.job.Name(), lease.RangeStart, w.holderID); err != nil {
		return true, err
	}
	metrics.BackfilledRangesCounter.Inc()
	logging.Logger.Infof("completed range %s", types.GetRangeName(w.job.Name(), lease.RangeStart, lease.RangeEnd))
	return true, nil
}

func (w *Worker) process(lease *db.WorkerLease) error {
	batchSize := uint64(w.config.BatchSize)
	for from := lease.RangeStart; from < lease.RangeEnd; from += batchSize {
		to := from + batchSize
		if to > lease.RangeEnd {
			to = lease.RangeEnd
		}
		rows, err := w.job.Run(from, to, false)
		if err != nil {
			return fmt.Errorf("batch [%d, %d) failed: %w", from, to, err)
		}
		logging.Logger.Debugf("job %s batch [%d, %d) wrote %d rows", w.job.Name(), from, to, rows)
		if to < lease.RangeEnd {
			// losing the lease means another worker took the range over,
			// stop touching it
			if err = w.dao.RenewLease(w.job.Name(), lease.RangeStart, w.holderID, w.leaseTTL()); err != nil {
				return fmt.Errorf("lost lease on range [%d, %d): %w", lease.RangeStart, lease.RangeEnd, err)
			}
		}
	}
	return nil
}

func (w *Worker) leaseTTL() time.Duration {
	return time.Duration(w.config.LeaseTTLSeconds) * time.Second
}

func (w *Worker) updateLeaseGauge() {
	leases, err := w.dao.ListActiveLeases()
	if err != nil {
		return
	}
	metrics.ActiveLeasesGauge.Set(float64(len(leases)))
}

func (w *Worker) recordError(height uint64, message string) {
	metrics.IndexingErrorsCounter.WithLabelValues(db.SeverityFatal.String()).Inc()
	if err := w.dao.SaveIndexingError(w.job.Name(), height, "", db.SeverityFatal, message); err != nil {
		logging.Logger.Errorf("failed to record backfill error: %s", err.Error())
	}
}
