package metrics

import (
	"math"
	"sort"
	"time"

	"pgblast/internal/bench"
)

// LatencySummary is the reduced latency distribution, in milliseconds.
type LatencySummary struct {
	AvgMs    float64 `json:"avg_ms"`
	StdDevMs float64 `json:"stddev_ms"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// ScriptReport is the per-script breakdown printed when a run mixes
// multiple weighted scripts.
type ScriptReport struct {
	Script       string         `json:"script"`
	Transactions int            `json:"transactions"`
	Failures     int            `json:"failures"`
	Latency      LatencySummary `json:"latency"`
}

// AggregateReport is the run's terminal artifact: one reduction over every
// batch that arrived. Expected/Missing fields are annotated by the
// orchestrator, which knows how many workers it spawned.
type AggregateReport struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`

	TotalTransactions      int `json:"total_transactions"`
	SuccessfulTransactions int `json:"successful_transactions"`
	FailedTransactions     int `json:"failed_transactions"`
	ExpectedTransactions   int `json:"expected_transactions"`

	ElapsedSeconds float64 `json:"elapsed_seconds"`
	TPS            float64 `json:"tps"`

	Latency LatencySummary `json:"latency"`
	Scripts []ScriptReport `json:"scripts,omitempty"`

	MissingWorkers int `json:"missing_workers"`
	IncompleteJobs int `json:"incomplete_jobs"`
}

// Complete reports whether every expected transaction was recorded.
func (r AggregateReport) Complete() bool {
	return r.MissingWorkers == 0 && r.IncompleteJobs == 0 &&
		r.TotalTransactions == r.ExpectedTransactions
}

// Reduce folds every batch into one report. It is a pure reduction over the
// full pooled record set: the same batches in any order produce the same
// report, because batch arrival order across processes is nondeterministic.
//
// Elapsed is the wall-clock span from the earliest record start to the
// latest record end. Failed transactions count toward the total and stay in
// the TPS denominator. Percentiles are exact, computed from the retained
// records rather than a streaming sketch.
func Reduce(batches []bench.ResultBatch) AggregateReport {
	var report AggregateReport

	var records []bench.TransactionRecord
	for _, b := range batches {
		for _, j := range b.Jobs {
			if j.Incomplete {
				report.IncompleteJobs++
			}
			records = append(records, j.Records...)
		}
	}
	if len(records) == 0 {
		return report
	}

	var (
		minStart = records[0].Start
		maxEnd   = records[0].End
	)
	latencies := make([]float64, 0, len(records))
	perScript := make(map[string][]float64)
	perScriptFails := make(map[string]int)

	for _, rec := range records {
		report.TotalTransactions++
		if rec.Success {
			report.SuccessfulTransactions++
		} else {
			report.FailedTransactions++
			perScriptFails[rec.Script]++
		}
		if rec.Start.Before(minStart) {
			minStart = rec.Start
		}
		if rec.End.After(maxEnd) {
			maxEnd = rec.End
		}
		ms := float64(rec.Latency) / float64(time.Millisecond)
		latencies = append(latencies, ms)
		perScript[rec.Script] = append(perScript[rec.Script], ms)
	}

	report.ElapsedSeconds = maxEnd.Sub(minStart).Seconds()
	if report.ElapsedSeconds > 0 {
		report.TPS = float64(report.TotalTransactions) / report.ElapsedSeconds
	}
	report.Latency = summarize(latencies)

	if len(perScript) > 1 {
		names := make([]string, 0, len(perScript))
		for name := range perScript {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			report.Scripts = append(report.Scripts, ScriptReport{
				Script:       name,
				Transactions: len(perScript[name]),
				Failures:     perScriptFails[name],
				Latency:      summarize(perScript[name]),
			})
		}
	}
	return report
}

// summarize computes exact distribution statistics over values. The input
// slice is not modified.
func summarize(values []float64) LatencySummary {
	if len(values) == 0 {
		return LatencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	avg := sum / float64(len(sorted))

	stddev := 0.0
	if len(sorted) > 1 {
		ss := 0.0
		for _, v := range sorted {
			d := v - avg
			ss += d * d
		}
		stddev = math.Sqrt(ss / float64(len(sorted)-1))
	}

	return LatencySummary{
		AvgMs:    avg,
		StdDevMs: stddev,
		MinMs:    sorted[0],
		MaxMs:    sorted[len(sorted)-1],
		P50Ms:    percentile(sorted, 0.50),
		P95Ms:    percentile(sorted, 0.95),
		P99Ms:    percentile(sorted, 0.99),
	}
}

// percentile indexes into an ascending slice, matching pgbench-style
// reporting: the value at floor(n*q), clamped to the last element.
func percentile(sorted []float64, q float64) float64 {
	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
