package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/flowscan/indexer/backfill"
	"github.com/flowscan/indexer/cache"
	"github.com/flowscan/indexer/config"
	"github.com/flowscan/indexer/db"
	"github.com/flowscan/indexer/logging"
	"github.com/flowscan/indexer/metrics"
	"github.com/flowscan/indexer/service"
	"github.com/flowscan/indexer/syncer"
)

func initFlags() {
	flag.String(config.FlagConfigPath, "", "config file path")
	flag.String(config.FlagConfigAwsRegion, "", "aws region of the config secret")
	flag.String(config.FlagConfigAwsSecretKey, "", "aws secret name holding the config")
	flag.String(config.FlagConfigDbPass, "", "indexer db password")

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		panic(err)
	}
}

func printUsage() {
	fmt.Print("usage: ./indexer --config-path configFile\n")
	fmt.Print("usage: ./indexer --aws-region awsRegion --aws-secret-key awsSecretKey\n")
}

func main() {
	initFlags()

	var cfg *config.Config
	awsSecretKey := viper.GetString(config.FlagConfigAwsSecretKey)
	if awsSecretKey != "" {
		awsRegion := viper.GetString(config.FlagConfigAwsRegion)
		if awsRegion == "" {
			printUsage()
			return
		}
		configContent, err := config.GetSecret(awsSecretKey, awsRegion)
		if err != nil {
			fmt.Printf("get aws config error, err=%s", err.Error())
			return
		}
		cfg = config.ParseConfigFromJson(configContent)
	} else {
		configFilePath := viper.GetString(config.FlagConfigPath)
		if configFilePath == "" {
			configFilePath = os.Getenv(config.EnvVarConfigFilePath)
			if configFilePath == "" {
				printUsage()
				return
			}
		}
		cfg = config.ParseConfigFromFile(configFilePath)
	}
	cfg.Validate()
	logging.InitLogger(&cfg.LogConfig)

	gdb := config.InitDBWithConfig(&cfg.DBConfig, true)
	dao := db.NewIndexerSvcDB(gdb, cfg.SyncerConfig.PartitionWindow, cfg.SyncerConfig.PartitionPrecreate)
	if err := dao.SetupPartitionedTables(); err != nil {
		panic(err)
	}

	blockSyncer := syncer.NewBlockSyncer(dao, &cfg.SyncerConfig)
	blockSyncer.StartLoop()

	if cfg.BackfillConfig.Enable {
		for _, workerType := range cfg.BackfillConfig.WorkerTypes {
			job, err := backfill.NewJob(workerType, dao, blockSyncer.Client(), cfg.SyncerConfig.RPCTimeout())
			if err != nil {
				panic(err)
			}
			backfill.NewWorker(dao, &cfg.BackfillConfig, job).StartLoop()
		}
	}

	if cfg.MetricsConfig.Enable {
		address := cfg.MetricsConfig.HTTPAddress
		if address == "" {
			address = metrics.DefaultMetricsAddress
		}
		metrics.NewMetrics(address).Start()
	}

	if cfg.ServerConfig.HTTPAddress != "" {
		localCache, err := cache.NewLocalCache(cfg.CacheConfig.GetCacheSize())
		if err != nil {
			panic(err)
		}
		svc := service.NewStatusService(dao, localCache, cfg.SyncerConfig.ServiceName)
		service.NewServer(svc, cfg.ServerConfig.HTTPAddress).Start()
	}

	select {}
}
