package bench

import "time"

// TransactionRecord is the immutable outcome of one transaction. Produced
// by a job, consumed only by the metrics aggregator.
type TransactionRecord struct {
	Script  string        `json:"script"`
	Start   time.Time     `json:"start"`
	End     time.Time     `json:"end"`
	Latency time.Duration `json:"latency"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
}

// JobResult is the ordered record sequence of one job. Records preserve the
// job's execution order; Incomplete flags a shortfall against the configured
// transaction count so it is never silently dropped.
type JobResult struct {
	JobID      string              `json:"job_id"`
	Records    []TransactionRecord `json:"records"`
	Attempted  int                 `json:"attempted"`
	Incomplete bool                `json:"incomplete"`
	FatalError string              `json:"fatal_error,omitempty"`
}

// ResultBatch is everything one process produced. It crosses the process
// boundary exactly once, by value, as a single JSON message.
type ResultBatch struct {
	WorkerIndex int         `json:"worker_index"`
	PID         int         `json:"pid"`
	Jobs        []JobResult `json:"jobs"`
}

// RecordCount is the total number of transaction records in the batch.
func (b ResultBatch) RecordCount() int {
	n := 0
	for _, j := range b.Jobs {
		n += len(j.Records)
	}
	return n
}

// IncompleteJobs counts jobs that stopped short of their transaction count.
func (b ResultBatch) IncompleteJobs() int {
	n := 0
	for _, j := range b.Jobs {
		if j.Incomplete {
			n++
		}
	}
	return n
}
