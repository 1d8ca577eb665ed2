package backfill

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/flowscan/indexer/config"
	"github.com/flowscan/indexer/db"
)

func setupTestDao(t *testing.T) (db.IndexerDao, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	db.InitTables(gdb)
	return db.NewIndexerSvcDB(gdb, 0, 0), gdb
}

// seedHeight writes one block with a transaction and a fee event.
func seedHeight(t *testing.T, dao db.IndexerDao, height uint64, proposer string) {
	t.Helper()
	txID := fmt.Sprintf("tx-%d", height)
	fields, err := json.Marshal(map[string]string{"amount": "0.00100000"})
	require.NoError(t, err)
	unit := &db.IngestUnit{
		Block: &db.Block{
			Height:       height,
			BlockHash:    fmt.Sprintf("hash-%d", height),
			Timestamp:    1700000000 + int64(height),
			TxCount:      1,
			EventCount:   2,
			TotalGasUsed: 10,
			Sealed:       true,
		},
		Transactions: []*db.Transaction{{
			Height:   height,
			TxID:     txID,
			Proposer: proposer,
			Status:   db.TxSealed,
			GasUsed:  10,
		}},
		Events: []*db.Event{
			{
				Height: height, TxID: txID, EventIndex: 0,
				Type:      "A.0000000000000009.ExampleToken.TokensDeposited",
				EventName: "TokensDeposited",
			},
			{
				Height: height, TxID: txID, EventIndex: 1,
				Type:      "A.f919ee77447b7497.FlowFees.FeesDeducted",
				EventName: "FeesDeducted",
				Fields:    string(fields),
			},
		},
	}
	require.NoError(t, dao.SaveIngestUnit(unit, nil))
}

func TestTxMetricsJobDryRunThenWrite(t *testing.T) {
	dao, _ := setupTestDao(t)
	for height := uint64(100); height < 105; height++ {
		seedHeight(t, dao, height, "0x0000000000000001")
	}
	job := &TxMetricsJob{dao: dao}

	rows, err := job.Run(100, 105, true)
	require.NoError(t, err)
	require.Equal(t, int64(5), rows)
	count, err := dao.CountTxMetricsInRange(100, 105)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)

	rows, err = job.Run(100, 105, false)
	require.NoError(t, err)
	require.Equal(t, int64(5), rows)
	count, err = dao.CountTxMetricsInRange(100, 105)
	require.NoError(t, err)
	require.Equal(t, int64(5), count)

	// a third run converges without growing the table
	_, err = job.Run(100, 105, false)
	require.NoError(t, err)
	count, err = dao.CountTxMetricsInRange(100, 105)
	require.NoError(t, err)
	require.Equal(t, int64(5), count)
}

func TestTxMetricsJobExtractsFee(t *testing.T) {
	dao, gdb := setupTestDao(t)
	seedHeight(t, dao, 100, "0x0000000000000001")
	job := &TxMetricsJob{dao: dao}

	_, err := job.Run(100, 101, false)
	require.NoError(t, err)

	metrics := []*db.TxMetric{}
	require.NoError(t, gdb.Where("height = ?", 100).Find(&metrics).Error)
	require.Len(t, metrics, 1)
	require.Equal(t, "0.00100000", metrics[0].Fee)
	require.Equal(t, 2, metrics[0].EventCount)
	require.Equal(t, uint64(10), metrics[0].GasUsed)
}

func TestAddressStatsJobConverges(t *testing.T) {
	dao, gdb := setupTestDao(t)
	seedHeight(t, dao, 100, "0x0000000000000001")
	seedHeight(t, dao, 101, "0x0000000000000001")
	seedHeight(t, dao, 102, "0x0000000000000002")
	job := &AddressStatsJob{dao: dao}

	rows, err := job.Run(100, 103, false)
	require.NoError(t, err)
	require.Equal(t, int64(2), rows)

	// the same range again does not double-count
	_, err = job.Run(100, 103, false)
	require.NoError(t, err)

	stat := db.AddressStat{}
	require.NoError(t, gdb.Where("address = ?", "0x0000000000000001").Take(&stat).Error)
	require.Equal(t, int64(2), stat.TxCount)
	require.Equal(t, uint64(101), stat.LastHeight)
}

func TestDailyRollupJob(t *testing.T) {
	dao, gdb := setupTestDao(t)
	for height := uint64(100); height < 103; height++ {
		seedHeight(t, dao, height, "0x0000000000000001")
	}
	job := &DailyRollupJob{dao: dao}

	rows, err := job.Run(100, 103, false)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	stat := db.DailyStat{}
	require.NoError(t, gdb.Where("day = ?", "2023-11-14").Take(&stat).Error)
	require.Equal(t, int64(3), stat.TxCount)
	require.Equal(t, int64(6), stat.EventCount)
	require.Equal(t, uint64(30), stat.GasUsed)
	require.Equal(t, int64(1), stat.ActiveAddresses)

	// re-running replaces the day with identical values
	_, err = job.Run(100, 103, false)
	require.NoError(t, err)
	require.NoError(t, gdb.Where("day = ?", "2023-11-14").Take(&stat).Error)
	require.Equal(t, int64(3), stat.TxCount)
}

type countingJob struct {
	name string
	runs []string
	fail bool
}

func (j *countingJob) Name() string {
	return j.name
}

func (j *countingJob) Run(from, to uint64, dryRun bool) (int64, error) {
	j.runs = append(j.runs, fmt.Sprintf("[%d,%d)", from, to))
	if j.fail {
		return 0, fmt.Errorf("job blew up")
	}
	return int64(to - from), nil
}

func testBackfillConfig() *config.BackfillConfig {
	return &config.BackfillConfig{
		Enable:          true,
		WorkerID:        "test-worker",
		RangeSize:       10,
		LeaseTTLSeconds: 60,
		MaxAttempts:     3,
		BatchSize:       4,
	}
}

func TestWorkerProcessesRangeInBatches(t *testing.T) {
	dao, _ := setupTestDao(t)
	for height := uint64(0); height < 25; height++ {
		seedHeight(t, dao, height, "0x0000000000000001")
	}
	job := &countingJob{name: "counting"}
	worker := NewWorker(dao, testBackfillConfig(), job)

	worked, err := worker.runOnce()
	require.NoError(t, err)
	require.True(t, worked)
	require.Equal(t, []string{"[0,4)", "[4,8)", "[8,10)"}, job.runs)

	lease, err := dao.GetLease("counting", 0)
	require.NoError(t, err)
	require.Equal(t, db.LeaseCompleted, lease.Status)
}

func TestWorkerFailsLeaseOnError(t *testing.T) {
	dao, _ := setupTestDao(t)
	for height := uint64(0); height < 5; height++ {
		seedHeight(t, dao, height, "0x0000000000000001")
	}
	job := &countingJob{name: "counting", fail: true}
	worker := NewWorker(dao, testBackfillConfig(), job)

	worked, err := worker.runOnce()
	require.Error(t, err)
	require.True(t, worked)

	lease, err := dao.GetLease("counting", 0)
	require.NoError(t, err)
	require.Equal(t, db.LeaseFailed, lease.Status)
	require.Contains(t, lease.LastError, "job blew up")

	errors, err := dao.RecentErrors(10)
	require.NoError(t, err)
	require.Len(t, errors, 1)
}

func TestWorkerIdleWhenNothingToClaim(t *testing.T) {
	dao, _ := setupTestDao(t)
	job := &countingJob{name: "counting"}
	worker := NewWorker(dao, testBackfillConfig(), job)

	// no indexed blocks yet, nothing to claim
	worked, err := worker.runOnce()
	require.NoError(t, err)
	require.False(t, worked)
	require.Empty(t, job.runs)
}
