package metrics

import "sync/atomic"

var syncsSucceeded int64
var syncsFailed int64
var recordsInserted int64
var duplicatesSkipped int64
var analyzeRequests int64
var llmFallbacks int64

func IncSyncSucceeded()        { atomic.AddInt64(&syncsSucceeded, 1) }
func IncSyncFailed()           { atomic.AddInt64(&syncsFailed, 1) }
func AddRecordsInserted(n int) { atomic.AddInt64(&recordsInserted, int64(n)) }
func AddDuplicates(n int)      { atomic.AddInt64(&duplicatesSkipped, int64(n)) }
func IncAnalyzeRequests()      { atomic.AddInt64(&analyzeRequests, 1) }
func IncLLMFallbacks()         { atomic.AddInt64(&llmFallbacks, 1) }

func Snapshot() map[string]int64 {
	return map[string]int64{
		"syncs_succeeded":    atomic.LoadInt64(&syncsSucceeded),
		"syncs_failed":       atomic.LoadInt64(&syncsFailed),
		"records_inserted":   atomic.LoadInt64(&recordsInserted),
		"duplicates_skipped": atomic.LoadInt64(&duplicatesSkipped),
		"analyze_requests":   atomic.LoadInt64(&analyzeRequests),
		"llm_fallbacks":      atomic.LoadInt64(&llmFallbacks),
	}
}
