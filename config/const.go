package config

const (
	FlagConfigPath         = "config-path"
	FlagConfigAwsRegion    = "aws-region"
	FlagConfigAwsSecretKey = "aws-secret-key"
	FlagConfigDbPass       = "db-pass"

	DBDialectMysql   = "mysql"
	DBDialectSqlite3 = "sqlite3"

	EnvVarConfigFilePath = "CONFIG_FILE_PATH"
	EnvVarDBUserPass     = "DB_PASSWORD"

	DefaultPartitionWindow    = uint64(100000)
	DefaultPartitionPrecreate = uint64(2)
	DefaultRPCTimeoutSeconds  = int64(20)

	DefaultBackfillRangeSize = uint64(1000)
	DefaultLeaseTTLSeconds   = int64(300)
	DefaultLeaseMaxAttempts  = int64(5)
	DefaultBackfillBatchSize = int64(200)
)
