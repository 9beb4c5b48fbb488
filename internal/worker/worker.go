package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"pgblast/internal/bench"
	"pgblast/internal/config"
	"pgblast/internal/db"
	"pgblast/internal/script"
)

// Spec is the message a parent writes to a child worker's stdin: everything
// the child needs to run one job group.
type Spec struct {
	Index  int           `json:"index"`
	Config config.Config `json:"config"`
}

// FactoryProvider opens the connection factory for one process. Tests
// substitute fakes; production uses PgProvider.
type FactoryProvider func(ctx context.Context, cfg config.Config) (db.Factory, error)

// PgProvider opens a pgx pool sized to the job count.
func PgProvider(ctx context.Context, cfg config.Config) (db.Factory, error) {
	return db.Open(ctx, cfg.Target, cfg.Jobs+1, cfg.TxTimeout)
}

// LoadScripts resolves the configured script specs, falling back to the
// built-in TPC-B script when none are given.
func LoadScripts(cfg config.Config) ([]*script.Script, error) {
	if len(cfg.Scripts) == 0 {
		return []*script.Script{script.Default(cfg.Prefix)}, nil
	}
	scripts := make([]*script.Script, 0, len(cfg.Scripts))
	for _, spec := range cfg.Scripts {
		s, err := script.Load(spec.Path, spec.Weight, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

// RunChild is the body of a worker child process. It reads its Spec from
// in, runs one job group, and writes exactly one ResultBatch to out. Logs
// go to stderr so the batch stream stays clean. SIGTERM and SIGINT request
// a soft stop: in-flight transactions finish, no new ones start.
func RunChild(ctx context.Context, in io.Reader, out io.Writer, provider FactoryProvider) error {
	var spec Spec
	if err := json.NewDecoder(in).Decode(&spec); err != nil {
		return fmt.Errorf("decoding worker spec: %w", err)
	}
	cfg := spec.Config.WithDefaults()
	log := logrus.WithFields(logrus.Fields{"worker": spec.Index, "pid": os.Getpid()})

	scripts, err := LoadScripts(cfg)
	if err != nil {
		return fmt.Errorf("loading scripts: %w", err)
	}

	factory, err := provider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening connection factory: %w", err)
	}
	defer factory.Close()

	stop := bench.NewStopper()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		log.Info("stop requested, finishing in-flight transactions")
		stop.Stop()
	}()

	group, err := bench.NewGroup(cfg, scripts, factory, stop)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"jobs":         cfg.Jobs,
		"transactions": cfg.Transactions,
		"mode":         cfg.Mode,
	}).Info("worker started")

	batch, err := group.RunAll(ctx)
	if err != nil {
		return err
	}
	batch.WorkerIndex = spec.Index

	log.WithField("records", batch.RecordCount()).Info("worker finished")
	return json.NewEncoder(out).Encode(batch)
}
