package bench

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"pgblast/internal/config"
	"pgblast/internal/db"
	"pgblast/internal/script"
	"pgblast/internal/stats"
)

// Group runs all jobs of one process concurrently and collects their
// results into a single batch. Each job writes into its own result slot, so
// the only synchronization is the WaitGroup join.
type Group struct {
	cfg     config.Config
	scripts []*script.Script
	factory db.Factory
	stop    *Stopper

	// Live feeds the progress display for this process.
	Live *stats.Live
}

func NewGroup(cfg config.Config, scripts []*script.Script, factory db.Factory, stop *Stopper) (*Group, error) {
	if len(scripts) == 0 {
		return nil, fmt.Errorf("at least one workload script is required")
	}
	return &Group{
		cfg:     cfg,
		scripts: scripts,
		factory: factory,
		stop:    stop,
		Live:    stats.NewLive(),
	}, nil
}

// RunAll launches the configured number of jobs and returns only after
// every one of them has terminated, whether it completed, stopped early, or
// hit a fatal connection error. One job's death never cancels a sibling.
func (g *Group) RunAll(ctx context.Context) (ResultBatch, error) {
	results := make([]JobResult, g.cfg.Jobs)

	baseSeed := time.Now().UnixNano()
	var wg sync.WaitGroup
	for i := 0; i < g.cfg.Jobs; i++ {
		sel, err := script.NewSelector(g.scripts, g.cfg.Scale, baseSeed+int64(i)*7919)
		if err != nil {
			return ResultBatch{}, fmt.Errorf("building script selector: %w", err)
		}
		job := NewJob(g.cfg, sel, g.factory, g.Live, g.stop)

		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = job.Run(ctx)
		}(i)
	}
	wg.Wait()

	return ResultBatch{PID: os.Getpid(), Jobs: results}, nil
}
