package bench

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pgblast/internal/config"
	"pgblast/internal/db"
	"pgblast/internal/script"
	"pgblast/internal/stats"
)

// Job runs a fixed number of transactions sequentially on one connection.
// It owns its handle and its selector; nothing is shared with sibling jobs
// except the live counters, which are atomic.
type Job struct {
	ID  string
	cfg config.Config
	sel *script.Selector

	factory db.Factory
	live    *stats.Live
	stop    *Stopper
	log     *logrus.Entry
}

func NewJob(cfg config.Config, sel *script.Selector, factory db.Factory, live *stats.Live, stop *Stopper) *Job {
	id := uuid.New().String()
	return &Job{
		ID:      id,
		cfg:     cfg,
		sel:     sel,
		factory: factory,
		live:    live,
		stop:    stop,
		log:     logrus.WithField("job", id[:8]),
	}
}

// Run executes the job's transactions and returns its result. Failures
// below this level are always turned into data: a failed record, or an
// incomplete result when the handle dies. Run never returns an error.
func (j *Job) Run(ctx context.Context) JobResult {
	res := JobResult{JobID: j.ID}

	var handle db.Handle
	if j.cfg.Mode == config.ModeSingleSession {
		h, err := j.factory.Acquire(ctx)
		if err != nil {
			j.log.WithError(err).Error("acquiring session failed, job aborted")
			res.Incomplete = j.cfg.Transactions > 0
			res.FatalError = err.Error()
			return res
		}
		handle = h
		defer handle.Release()
	}

	j.log.Debug("job started")
	for i := 0; i < j.cfg.Transactions; i++ {
		if j.stop.Stopped() {
			j.log.Debug("stop requested, finishing early")
			break
		}

		sc := j.sel.Pick()
		stmts := sc.Statements(j.sel.GenParams(i))

		start := time.Now()
		var err error
		if handle != nil {
			err = handle.Execute(ctx, stmts)
		} else {
			err = j.factory.ExecutePooled(ctx, stmts)
		}
		end := time.Now()

		rec := TransactionRecord{
			Script:  sc.Name,
			Start:   start,
			End:     end,
			Latency: end.Sub(start),
			Success: err == nil,
		}
		if err != nil {
			rec.Error = err.Error()
		}
		res.Records = append(res.Records, rec)
		res.Attempted++
		j.live.Record(err == nil, rec.Latency)

		if db.IsFatal(err) {
			j.log.WithError(err).Error("connection unusable, job aborted")
			res.FatalError = err.Error()
			break
		}
	}

	res.Incomplete = res.Attempted < j.cfg.Transactions
	j.log.WithFields(logrus.Fields{
		"attempted":  res.Attempted,
		"incomplete": res.Incomplete,
	}).Debug("job finished")
	return res
}
