package types

import (
	"fmt"
	"strconv"
	"strings"
)

// GetRangeName names a backfill height range [start, end), used in lease
// logs and error-ledger rows.
func GetRangeName(workerType string, start, end uint64) string {
	return fmt.Sprintf("%s_s%d_e%d", workerType, start, end)
}

func ParseRangeName(rangeName string) (start uint64, end uint64, err error) {
	parts := strings.Split(rangeName, "_")
	if len(parts) < 3 {
		return 0, 0, fmt.Errorf("malformed range name %s", rangeName)
	}
	start, err = strconv.ParseUint(parts[len(parts)-2][1:], 10, 64)
	if err != nil {
		return
	}
	end, err = strconv.ParseUint(parts[len(parts)-1][1:], 10, 64)
	if err != nil {
		return
	}
	return
}
