package batchmdw

import (
	"time"

	"github.com/kava-labs/kava-batch-service/decode"
)

// Aggregate assembles records into a BatchResult, batchDuration is
// attached only when non nil
func Aggregate(records []decode.ResponseRecord, batchDuration *time.Duration) *decode.BatchResult {
	if records == nil {
		records = []decode.ResponseRecord{}
	}

	return &decode.BatchResult{
		Records:  records,
		Duration: batchDuration,
	}
}
