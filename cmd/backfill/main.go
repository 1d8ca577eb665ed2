package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/flowscan/indexer/backfill"
	"github.com/flowscan/indexer/config"
	"github.com/flowscan/indexer/db"
	"github.com/flowscan/indexer/external"
	"github.com/flowscan/indexer/logging"
	"github.com/flowscan/indexer/types"
	"github.com/flowscan/indexer/util"
)

type options struct {
	ConfigPath string `short:"c" long:"config" description:"config file path" required:"true"`
	Jobs       string `short:"j" long:"job" description:"comma-separated job names: ingest_range, tx_metrics, address_stats or daily_rollup" required:"true"`
	From       uint64 `long:"from" description:"first height of the range (inclusive)"`
	To         uint64 `long:"to" description:"end of the range (exclusive), 0 means the max indexed height"`
	Range      string `short:"r" long:"range" description:"range name as logged by workers, e.g. tx_metrics_s1000_e2000; overrides --from/--to"`
	BatchSize  uint64 `long:"batch-size" description:"heights per batch" default:"200"`
	DryRun     bool   `long:"dry-run" description:"report affected rows without writing"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	cfg := config.ParseConfigFromFile(opts.ConfigPath)
	cfg.Validate()
	logging.InitLogger(&cfg.LogConfig)

	gdb := config.InitDBWithConfig(&cfg.DBConfig, true)
	dao := db.NewIndexerSvcDB(gdb, cfg.SyncerConfig.PartitionWindow, cfg.SyncerConfig.PartitionPrecreate)
	if err := dao.SetupPartitionedTables(); err != nil {
		fmt.Printf("failed to set up partitioned tables: %s\n", err.Error())
		os.Exit(1)
	}

	client, err := external.NewClient(cfg.SyncerConfig.AccessNodeEndpoints)
	if err != nil {
		fmt.Printf("failed to build access client: %s\n", err.Error())
		os.Exit(1)
	}

	from, to := opts.From, opts.To
	if opts.Range != "" {
		if from, to, err = types.ParseRangeName(opts.Range); err != nil {
			fmt.Println(err.Error())
			os.Exit(1)
		}
	}
	if to == 0 {
		maxHeight, err := dao.GetMaxIndexedHeight()
		if err != nil {
			fmt.Printf("failed to get max indexed height: %s\n", err.Error())
			os.Exit(1)
		}
		to = maxHeight + 1
	}
	if from >= to {
		fmt.Printf("empty range [%d, %d)\n", from, to)
		os.Exit(1)
	}

	for _, jobName := range util.SplitByComma(opts.Jobs) {
		job, err := backfill.NewJob(jobName, dao, client, cfg.SyncerConfig.RPCTimeout())
		if err != nil {
			fmt.Println(err.Error())
			os.Exit(1)
		}

		started := time.Now()
		var totalRows int64
		for batchFrom := from; batchFrom < to; batchFrom += opts.BatchSize {
			end := batchFrom + opts.BatchSize
			if end > to {
				end = to
			}
			rows, err := job.Run(batchFrom, end, opts.DryRun)
			totalRows += rows
			if err != nil {
				fmt.Printf("job %s failed in batch [%d, %d) after %s: %s\n",
					jobName, batchFrom, end, time.Since(started), err.Error())
				os.Exit(1)
			}
		}

		mode := "wrote"
		if opts.DryRun {
			mode = "would write"
		}
		fmt.Printf("job %s over [%d, %d) %s %d rows in %s\n",
			jobName, from, to, mode, totalRows, time.Since(started))
	}
}
