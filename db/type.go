package db

import (
	"github.com/go-sql-driver/mysql"
)

var (
	ErrDuplicateEntryCode      = 1062
	ErrSamePartitionNameCode   = 1517
	ErrPartitionMgmtOnPlainTbl = 1505
)

func MysqlErrCode(err error) int {
	mysqlErr, ok := err.(*mysql.MySQLError)
	if !ok {
		return 0
	}
	return int(mysqlErr.Number)
}
