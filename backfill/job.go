package backfill

import (
	"fmt"
	"time"

	"github.com/flowscan/indexer/db"
	"github.com/flowscan/indexer/external"
)

const (
	JobIngestRange  = "ingest_range"
	JobTxMetrics    = "tx_metrics"
	JobAddressStats = "address_stats"
	JobDailyRollup  = "daily_rollup"
)

// Job recomputes derived state over the height range [from, to). Jobs are
// idempotent: re-running the same range converges to the same rows. With
// dryRun set a job reports how many rows it would write without writing.
type Job interface {
	Name() string
	Run(from, to uint64, dryRun bool) (rows int64, err error)
}

// NewJob builds the named job. The client is only needed by jobs that go
// back to the chain; derived-state jobs read raw tables.
func NewJob(name string, dao db.IndexerDao, client external.IClient, rpcTimeout time.Duration) (Job, error) {
	switch name {
	case JobIngestRange:
		return &IngestRangeJob{dao: dao, client: client, rpcTimeout: rpcTimeout}, nil
	case JobTxMetrics:
		return &TxMetricsJob{dao: dao}, nil
	case JobAddressStats:
		return &AddressStatsJob{dao: dao}, nil
	case JobDailyRollup:
		return &DailyRollupJob{dao: dao}, nil
	}
	return nil, fmt.Errorf("unknown backfill job %s", name)
}
