package stats

import (
	"context"
	"sync/atomic"
	"time"
)

// Live holds the in-flight counters for one process. The authoritative
// per-transaction records live in the result batch; Live only feeds the
// progress display, so approximate histogram quantiles are fine here.
type Live struct {
	Transactions uint64
	Success      uint64
	Fail         uint64

	Latency *LatencyHistogram
}

func NewLive() *Live {
	return &Live{Latency: NewLatencyHistogram()}
}

func (l *Live) Record(success bool, latency time.Duration) {
	atomic.AddUint64(&l.Transactions, 1)
	if success {
		atomic.AddUint64(&l.Success, 1)
	} else {
		atomic.AddUint64(&l.Fail, 1)
	}
	l.Latency.Record(latency)
}

// Snapshot is a cheap copy sent over the updates channel.
type Snapshot struct {
	Transactions uint64
	Success      uint64
	Fail         uint64

	P50Ms  float64
	P95Ms  float64
	P99Ms  float64
	MeanMs float64
}

// SnapshotChan carries periodic snapshots to the progress display.
type SnapshotChan chan Snapshot

func (l *Live) Snapshot() Snapshot {
	return Snapshot{
		Transactions: atomic.LoadUint64(&l.Transactions),
		Success:      atomic.LoadUint64(&l.Success),
		Fail:         atomic.LoadUint64(&l.Fail),
		P50Ms:        l.Latency.QuantileMs(50),
		P95Ms:        l.Latency.QuantileMs(95),
		P99Ms:        l.Latency.QuantileMs(99),
		MeanMs:       l.Latency.MeanMs(),
	}
}

// StartTicker pushes snapshots onto updates until ctx is done. Sends are
// non-blocking: a slow consumer just misses ticks.
func (l *Live) StartTicker(ctx context.Context, interval time.Duration, updates SnapshotChan) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case updates <- l.Snapshot():
				default:
				}
			}
		}
	}()
}
