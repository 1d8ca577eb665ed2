package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/flowscan/indexer/cache"
)

type Config struct {
	LogConfig      LogConfig      `json:"log_config"`
	DBConfig       DBConfig       `json:"db_config"`
	SyncerConfig   SyncerConfig   `json:"syncer_config"`
	BackfillConfig BackfillConfig `json:"backfill_config"`
	ServerConfig   ServerConfig   `json:"server_config"`
	CacheConfig    CacheConfig    `json:"cache_config"`
	MetricsConfig  MetricsConfig  `json:"metrics_config"`
}

type SyncerConfig struct {
	ServiceName         string   `json:"service_name"`          // ServiceName identifies the checkpoint stream of this instance
	AccessNodeEndpoints []string `json:"access_node_endpoints"` // AccessNodeEndpoints is a list of chain access node REST addresses
	StartHeight         uint64   `json:"start_height"`          // StartHeight is the height to sync from when no checkpoint exists
	PartitionWindow     uint64   `json:"partition_window"`      // PartitionWindow is the number of heights per range partition
	PartitionPrecreate  uint64   `json:"partition_precreate"`   // PartitionPrecreate is how many partitions to keep ahead of the write frontier
	RPCTimeoutSeconds   int64    `json:"rpc_timeout_seconds"`
}

func (cfg *SyncerConfig) Validate() {
	if cfg.ServiceName == "" {
		panic("service_name should not be empty")
	}
	if len(cfg.AccessNodeEndpoints) == 0 {
		panic("access_node_endpoints should not be empty")
	}
	if cfg.PartitionWindow == 0 {
		cfg.PartitionWindow = DefaultPartitionWindow
	}
	if cfg.PartitionPrecreate == 0 {
		cfg.PartitionPrecreate = DefaultPartitionPrecreate
	}
	if cfg.RPCTimeoutSeconds == 0 {
		cfg.RPCTimeoutSeconds = DefaultRPCTimeoutSeconds
	}
}

func (cfg *SyncerConfig) RPCTimeout() time.Duration {
	return time.Duration(cfg.RPCTimeoutSeconds) * time.Second
}

type BackfillConfig struct {
	Enable          bool     `json:"enable"`
	WorkerID        string   `json:"worker_id"` // WorkerID defaults to hostname-pid when empty
	WorkerTypes     []string `json:"worker_types"`
	RangeSize       uint64   `json:"range_size"`
	LeaseTTLSeconds int64    `json:"lease_ttl_seconds"`
	MaxAttempts     int64    `json:"max_attempts"`
	BatchSize       int64    `json:"batch_size"`
}

func (cfg *BackfillConfig) Validate() {
	if !cfg.Enable {
		return
	}
	if cfg.RangeSize == 0 {
		cfg.RangeSize = DefaultBackfillRangeSize
	}
	if cfg.LeaseTTLSeconds == 0 {
		cfg.LeaseTTLSeconds = DefaultLeaseTTLSeconds
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultLeaseMaxAttempts
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBackfillBatchSize
	}
}

type ServerConfig struct {
	HTTPAddress string `json:"http_address"` // status/progress API listen address
}

type MetricsConfig struct {
	Enable      bool   `json:"enable"`
	HTTPAddress string `json:"http_address"`
}

type CacheConfig struct {
	CacheSize uint64 `json:"cache_size"`
}

func (c *CacheConfig) GetCacheSize() uint64 {
	if c.CacheSize != 0 {
		return c.CacheSize
	}
	return cache.DefaultCacheSize
}

type DBConfig struct {
	Dialect       string `json:"dialect"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	Url           string `json:"url"`
	MaxIdleConns  int    `json:"max_idle_conns"`
	MaxOpenConns  int    `json:"max_open_conns"`
	AWSSecretName string `json:"aws_secret_name"`
	AWSRegion     string `json:"aws_region"`
}

func (cfg *DBConfig) Validate() {
	if cfg.Dialect != DBDialectMysql && cfg.Dialect != DBDialectSqlite3 {
		panic(fmt.Sprintf("only %s and %s supported", DBDialectMysql, DBDialectSqlite3))
	}
	if cfg.Dialect == DBDialectMysql && (cfg.Username == "" || cfg.Url == "") {
		panic("db config is not correct, missing username and/or url")
	}
	if cfg.MaxIdleConns == 0 || cfg.MaxOpenConns == 0 {
		panic("db connections is not correct")
	}
}

type LogConfig struct {
	Level                        string `json:"level"`
	Filename                     string `json:"filename"`
	MaxFileSizeInMB              int    `json:"max_file_size_in_mb"`
	MaxBackupsOfLogFiles         int    `json:"max_backups_of_log_files"`
	MaxAgeToRetainLogFilesInDays int    `json:"max_age_to_retain_log_files_in_days"`
	UseConsoleLogger             bool   `json:"use_console_logger"`
	UseFileLogger                bool   `json:"use_file_logger"`
	Compress                     bool   `json:"compress"`
}

func (cfg *LogConfig) Validate() {
	if cfg.UseFileLogger {
		if cfg.Filename == "" {
			panic("filename should not be empty if use file logger")
		}
		if cfg.MaxFileSizeInMB <= 0 {
			panic("max_file_size_in_mb should be larger than 0 if use file logger")
		}
		if cfg.MaxBackupsOfLogFiles <= 0 {
			panic("max_backups_off_log_files should be larger than 0 if use file logger")
		}
	}
}

func (c *Config) Validate() {
	c.LogConfig.Validate()
	c.DBConfig.Validate()
	c.SyncerConfig.Validate()
	c.BackfillConfig.Validate()
}

func ParseConfigFromJson(content string) *Config {
	var config Config
	if err := json.Unmarshal([]byte(content), &config); err != nil {
		panic(err)
	}
	return &config
}

func ParseConfigFromFile(filePath string) *Config {
	bz, err := os.ReadFile(filePath)
	if err != nil {
		panic(err)
	}

	var config Config
	if err := json.Unmarshal(bz, &config); err != nil {
		panic(err)
	}
	return &config
}
