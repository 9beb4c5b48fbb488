package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pgblast/internal/bench"
	"pgblast/internal/config"
	"pgblast/internal/metrics"
	"pgblast/internal/stats"
	"pgblast/internal/worker"
)

// Orchestrator fans the configured run out across worker processes and
// merges whatever batches come back into one report. A single-process run
// executes the job group inline, with identical batch semantics and no
// forking.
type Orchestrator struct {
	cfg      config.Config
	provider worker.FactoryProvider

	// Updates carries live snapshots during inline runs. Multi-process runs
	// report progress through worker logs instead; the channel stays silent.
	Updates stats.SnapshotChan
}

// New builds an orchestrator. A nil provider selects the pgx pool.
func New(cfg config.Config, provider worker.FactoryProvider) *Orchestrator {
	if provider == nil {
		provider = worker.PgProvider
	}
	return &Orchestrator{
		cfg:      cfg.WithDefaults(),
		provider: provider,
		Updates:  make(stats.SnapshotChan, 100),
	}
}

// Run executes the whole benchmark. Cancelling ctx requests a soft stop:
// every worker finishes its in-flight transaction, and batches are
// collected for the configured grace period before stragglers are counted
// missing. The run always yields a report unless the configuration itself
// is invalid or the inline environment cannot be set up.
func (o *Orchestrator) Run(ctx context.Context) (metrics.AggregateReport, error) {
	if err := o.cfg.Validate(); err != nil {
		return metrics.AggregateReport{}, fmt.Errorf("invalid configuration: %w", err)
	}

	startedAt := time.Now()

	var (
		batches []bench.ResultBatch
		missing int
	)
	if o.cfg.Processes == 1 {
		batch, err := o.runInline(ctx)
		if err != nil {
			return metrics.AggregateReport{}, err
		}
		batches = []bench.ResultBatch{batch}
	} else {
		var err error
		batches, missing, err = o.runForked(ctx)
		if err != nil {
			return metrics.AggregateReport{}, err
		}
	}

	report := metrics.Reduce(batches)
	report.RunID = uuid.New().String()
	report.StartedAt = startedAt
	report.ExpectedTransactions = o.cfg.ExpectedTransactions()
	report.MissingWorkers = missing

	if !report.Complete() {
		logrus.WithFields(logrus.Fields{
			"expected":        report.ExpectedTransactions,
			"recorded":        report.TotalTransactions,
			"missing_workers": report.MissingWorkers,
			"incomplete_jobs": report.IncompleteJobs,
		}).Warn("run finished with missing or incomplete results")
	}
	return report, nil
}

// runInline hosts the single job group in this process. Soft cancellation
// comes from the stop latch; the grace period gives in-flight transactions
// a bounded window before the execution context is cut.
func (o *Orchestrator) runInline(ctx context.Context) (bench.ResultBatch, error) {
	scripts, err := worker.LoadScripts(o.cfg)
	if err != nil {
		return bench.ResultBatch{}, fmt.Errorf("loading scripts: %w", err)
	}

	factory, err := o.provider(ctx, o.cfg)
	if err != nil {
		return bench.ResultBatch{}, fmt.Errorf("opening connection factory: %w", err)
	}
	defer factory.Close()

	stop := bench.NewStopper()
	group, err := bench.NewGroup(o.cfg, scripts, factory, stop)
	if err != nil {
		return bench.ResultBatch{}, err
	}

	// Jobs run on a context detached from ctx so cancellation is soft; the
	// latch stops new transactions and the grace timer bounds the rest.
	execCtx, execCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer execCancel()
	go func() {
		select {
		case <-ctx.Done():
			stop.Stop()
			timer := time.NewTimer(o.cfg.Grace)
			defer timer.Stop()
			select {
			case <-timer.C:
				execCancel()
			case <-execCtx.Done():
			}
		case <-execCtx.Done():
		}
	}()

	group.Live.StartTicker(execCtx, 200*time.Millisecond, o.Updates)

	return group.RunAll(execCtx)
}

func (o *Orchestrator) runForked(ctx context.Context) ([]bench.ResultBatch, int, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, 0, fmt.Errorf("resolving own executable: %w", err)
	}

	var procs []*worker.Proc
	failed := 0
	for i := 0; i < o.cfg.Processes; i++ {
		proc, err := worker.Spawn(exe, worker.Spec{Index: i, Config: o.cfg})
		if err != nil {
			logrus.WithError(err).WithField("worker", i).Error("spawning worker failed")
			failed++
			continue
		}
		logrus.WithFields(logrus.Fields{"worker": i, "pid": proc.PID()}).Info("worker spawned")
		procs = append(procs, proc)
	}

	results := make(chan workerResult, len(procs))
	for _, proc := range procs {
		go func(p *worker.Proc) {
			batch, err := p.Wait()
			results <- workerResult{index: p.Index, batch: batch, err: err}
		}(proc)
	}

	interruptAll := func() {
		logrus.Info("cancellation requested, interrupting workers")
		for _, p := range procs {
			p.Interrupt()
		}
	}
	killAll := func() {
		logrus.Warn("grace period expired, killing remaining workers")
		for _, p := range procs {
			p.Kill()
		}
	}

	batches, missing := gather(ctx, results, len(procs), o.cfg.Grace, interruptAll, killAll)
	return batches, missing + failed, nil
}

type workerResult struct {
	index int
	batch bench.ResultBatch
	err   error
}

// gather collects up to n worker results. When ctx is cancelled it invokes
// interruptAll once, then keeps collecting for the grace period; workers
// that still have not reported when it expires are killed and counted
// missing. It never blocks indefinitely on a dead worker.
func gather(ctx context.Context, results <-chan workerResult, n int, grace time.Duration, interruptAll, killAll func()) ([]bench.ResultBatch, int) {
	var batches []bench.ResultBatch
	missing := 0
	received := 0

	done := ctx.Done()
	var graceExpired <-chan time.Time

	for received < n {
		select {
		case res := <-results:
			received++
			if res.err != nil {
				logrus.WithError(res.err).WithField("worker", res.index).Error("worker contribution missing")
				missing++
				continue
			}
			logrus.WithFields(logrus.Fields{
				"worker":  res.index,
				"records": res.batch.RecordCount(),
			}).Info("worker batch received")
			batches = append(batches, res.batch)

		case <-done:
			done = nil
			interruptAll()
			timer := time.NewTimer(grace)
			defer timer.Stop()
			graceExpired = timer.C

		case <-graceExpired:
			killAll()
			missing += n - received
			return batches, missing
		}
	}
	return batches, missing
}
