package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/flowscan/indexer/cache"
	"github.com/flowscan/indexer/db"
)

func setupService(t *testing.T) (*StatusService, db.IndexerDao) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	db.InitTables(gdb)
	dao := db.NewIndexerSvcDB(gdb, 0, 0)

	localCache, err := cache.NewLocalCache(cache.DefaultCacheSize)
	require.NoError(t, err)
	return NewStatusService(dao, localCache, "forward"), dao
}

func seedBlock(t *testing.T, dao db.IndexerDao, height uint64) {
	t.Helper()
	require.NoError(t, dao.SaveIngestUnit(&db.IngestUnit{
		Block: &db.Block{
			Height:    height,
			BlockHash: fmt.Sprintf("hash-%d", height),
			Timestamp: time.Now().Unix(),
			Sealed:    true,
		},
		Scripts: []*db.Script{{Hash: fmt.Sprintf("script-%d", height), Body: "transaction {}"}},
	}, &db.CheckpointAdvance{ServiceName: "forward", SubCursor: -1}))
}

func TestGetStatus(t *testing.T) {
	svc, dao := setupService(t)
	seedBlock(t, dao, 100)
	seedBlock(t, dao, 105)
	require.NoError(t, dao.SaveIndexingError("forward", 100, "", db.SeverityWarn, "odd payload"))

	status, err := svc.GetStatus()
	require.NoError(t, err)
	require.Equal(t, uint64(100), status.MinIndexedHeight)
	require.Equal(t, uint64(105), status.MaxIndexedHeight)
	require.Equal(t, uint64(105), status.Checkpoint.LastHeight)
	require.Len(t, status.RecentErrors, 1)
	require.Empty(t, status.ActiveLeases)
}

func TestGetStatusIsCached(t *testing.T) {
	svc, dao := setupService(t)
	seedBlock(t, dao, 100)

	first, err := svc.GetStatus()
	require.NoError(t, err)

	// new writes are not visible until the cached snapshot expires
	seedBlock(t, dao, 200)
	second, err := svc.GetStatus()
	require.NoError(t, err)
	require.Equal(t, first.MaxIndexedHeight, second.MaxIndexedHeight)
}

func TestGetScriptCached(t *testing.T) {
	svc, dao := setupService(t)
	seedBlock(t, dao, 100)

	script, err := svc.GetScript("script-100")
	require.NoError(t, err)
	require.Equal(t, "transaction {}", script.Body)

	again, err := svc.GetScript("script-100")
	require.NoError(t, err)
	require.Equal(t, script, again)

	missing, err := svc.GetScript("unknown")
	require.NoError(t, err)
	require.Equal(t, "", missing.Hash)
}
