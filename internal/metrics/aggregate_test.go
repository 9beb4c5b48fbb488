package metrics

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgblast/internal/bench"
)

func record(start time.Time, latency time.Duration, success bool) bench.TransactionRecord {
	return bench.TransactionRecord{
		Script:  "<default>",
		Start:   start,
		End:     start.Add(latency),
		Latency: latency,
		Success: success,
	}
}

func TestReduceExactPercentiles(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var job bench.JobResult
	for i := 1; i <= 100; i++ {
		job.Records = append(job.Records, record(base, time.Duration(i)*time.Millisecond, true))
		job.Attempted++
	}
	report := Reduce([]bench.ResultBatch{{Jobs: []bench.JobResult{job}}})

	assert.Equal(t, 100, report.TotalTransactions)
	assert.Equal(t, 0, report.FailedTransactions)
	assert.Equal(t, 1.0, report.Latency.MinMs)
	assert.Equal(t, 100.0, report.Latency.MaxMs)
	assert.Equal(t, 50.5, report.Latency.AvgMs)
	assert.Equal(t, 51.0, report.Latency.P50Ms)
	assert.Equal(t, 96.0, report.Latency.P95Ms)
	assert.Equal(t, 100.0, report.Latency.P99Ms)
}

func TestReduceOrderIndependent(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rnd := rand.New(rand.NewSource(7))

	var batches []bench.ResultBatch
	for w := 0; w < 5; w++ {
		var jobs []bench.JobResult
		for j := 0; j < 3; j++ {
			var res bench.JobResult
			for i := 0; i < 20; i++ {
				start := base.Add(time.Duration(rnd.Intn(5000)) * time.Millisecond)
				latency := time.Duration(1+rnd.Intn(200)) * time.Millisecond
				res.Records = append(res.Records, record(start, latency, rnd.Intn(10) != 0))
				res.Attempted++
			}
			jobs = append(jobs, res)
		}
		batches = append(batches, bench.ResultBatch{WorkerIndex: w, Jobs: jobs})
	}

	expected := Reduce(batches)
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]bench.ResultBatch, len(batches))
		copy(shuffled, batches)
		rnd.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, expected, Reduce(shuffled))
	}
}

func TestReduceConcreteScenario(t *testing.T) {
	// P=1, J=4, T=10, every transaction succeeds in exactly 5ms.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var jobs []bench.JobResult
	for j := 0; j < 4; j++ {
		var res bench.JobResult
		for i := 0; i < 10; i++ {
			start := base.Add(time.Duration(i*100+j*7) * time.Millisecond)
			res.Records = append(res.Records, record(start, 5*time.Millisecond, true))
			res.Attempted++
		}
		jobs = append(jobs, res)
	}
	report := Reduce([]bench.ResultBatch{{Jobs: jobs}})

	assert.Equal(t, 40, report.TotalTransactions)
	assert.Equal(t, 40, report.SuccessfulTransactions)
	assert.Equal(t, 0, report.FailedTransactions)
	assert.Equal(t, 5.0, report.Latency.AvgMs)
	assert.Equal(t, 5.0, report.Latency.P50Ms)
	require.Greater(t, report.ElapsedSeconds, 0.0)
	assert.InDelta(t, 40.0/report.ElapsedSeconds, report.TPS, 1e-9)
}

func TestReduceEmpty(t *testing.T) {
	report := Reduce(nil)
	assert.Equal(t, 0, report.TotalTransactions)
	assert.Equal(t, 0.0, report.ElapsedSeconds)
	assert.Equal(t, 0.0, report.TPS)
	assert.Equal(t, LatencySummary{}, report.Latency)
}

func TestReduceCountsFailuresAndIncompleteJobs(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	complete := bench.JobResult{Attempted: 3}
	for i := 0; i < 3; i++ {
		complete.Records = append(complete.Records, record(base, 2*time.Millisecond, true))
	}
	partial := bench.JobResult{Attempted: 2, Incomplete: true, FatalError: "connection reset"}
	partial.Records = append(partial.Records,
		record(base, 2*time.Millisecond, true),
		record(base, 4*time.Millisecond, false),
	)

	report := Reduce([]bench.ResultBatch{{Jobs: []bench.JobResult{complete, partial}}})

	assert.Equal(t, 5, report.TotalTransactions)
	assert.Equal(t, 1, report.FailedTransactions)
	assert.Equal(t, 4, report.SuccessfulTransactions)
	assert.Equal(t, 1, report.IncompleteJobs)
}

func TestReducePerScriptBreakdown(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var job bench.JobResult
	for i := 0; i < 6; i++ {
		rec := record(base, time.Duration(i+1)*time.Millisecond, i%3 != 0)
		rec.Script = fmt.Sprintf("script-%d.sql", i%2)
		job.Records = append(job.Records, rec)
		job.Attempted++
	}
	report := Reduce([]bench.ResultBatch{{Jobs: []bench.JobResult{job}}})

	require.Len(t, report.Scripts, 2)
	assert.Equal(t, "script-0.sql", report.Scripts[0].Script)
	assert.Equal(t, "script-1.sql", report.Scripts[1].Script)
	assert.Equal(t, 3, report.Scripts[0].Transactions)
	assert.Equal(t, 3, report.Scripts[1].Transactions)
	assert.Equal(t, report.FailedTransactions, report.Scripts[0].Failures+report.Scripts[1].Failures)
}

func TestCompleteAnnotation(t *testing.T) {
	r := AggregateReport{TotalTransactions: 10, ExpectedTransactions: 10}
	assert.True(t, r.Complete())

	r.MissingWorkers = 1
	assert.False(t, r.Complete())

	r = AggregateReport{TotalTransactions: 8, ExpectedTransactions: 10}
	assert.False(t, r.Complete())
}
