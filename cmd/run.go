package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pgblast/internal/config"
	"pgblast/internal/metrics"
	"pgblast/internal/orchestrator"
	"pgblast/internal/report"
	"pgblast/internal/stats"
	"pgblast/internal/storage"
	"pgblast/internal/tui"
)

var (
	runProcesses     int
	runJobs          int
	runTransactions  int
	runSingleSession bool
	runFiles         []string
	runGrace         time.Duration
	runTxTimeout     time.Duration
	runOut           string
	runLive          bool
	runNoHistory     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the workload against the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildRunConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"processes":    cfg.Processes,
			"jobs":         cfg.Jobs,
			"transactions": cfg.Transactions,
			"mode":         cfg.Mode,
			"prefix":       cfg.Prefix,
			"scale":        cfg.Scale,
		}).Info("starting workload")

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		orch := orchestrator.New(cfg, nil)

		type runResult struct {
			report metrics.AggregateReport
			err    error
		}
		resultCh := make(chan runResult, 1)
		done := make(chan struct{})
		go func() {
			rep, err := orch.Run(ctx)
			resultCh <- runResult{report: rep, err: err}
			close(done)
		}()

		if runLive && cfg.Processes == 1 {
			if err := tui.Run(orch.Updates, cfg.ExpectedTransactions(), done, cancel); err != nil {
				logrus.WithError(err).Warn("live view failed, continuing headless")
			}
		} else if cfg.Processes == 1 {
			plainProgress(ctx, orch.Updates, cfg.ExpectedTransactions(), done)
		}

		res := <-resultCh
		if res.err != nil {
			return res.err
		}

		report.Print(res.report)
		if runOut != "" {
			path := runOut + ".json"
			if err := report.ExportJSON(res.report, path); err != nil {
				return fmt.Errorf("exporting report: %w", err)
			}
			logrus.Infof("report written to %s", path)
		}
		if !runNoHistory {
			saveHistory(cfg, res.report)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runProcesses, "processes", 1, "Number of parallel worker processes")
	runCmd.Flags().IntVarP(&runJobs, "jobs", "j", 1, "Number of concurrent jobs per process")
	runCmd.Flags().IntVarP(&runTransactions, "transactions", "t", 100, "Number of transactions each job runs")
	runCmd.Flags().BoolVar(&runSingleSession, "single-session", false, "Reuse one session per job instead of pooled acquisition")
	runCmd.Flags().StringSliceVarP(&runFiles, "file", "f", nil, "SQL script with optional weight: file.sql@weight (repeatable)")
	runCmd.Flags().DurationVar(&runGrace, "grace", config.DefaultGrace, "How long to wait for worker batches after cancellation")
	runCmd.Flags().DurationVar(&runTxTimeout, "tx-timeout", config.DefaultTxTimeout, "Per-transaction execution timeout")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "Output filename prefix for the JSON report")
	runCmd.Flags().BoolVar(&runLive, "live", false, "Show the live progress view (single-process runs)")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Do not archive this run")
}

func buildRunConfig() (config.Config, error) {
	mode := config.ModePooled
	if runSingleSession {
		mode = config.ModeSingleSession
	}

	cfg := config.Config{
		Target:       target,
		Prefix:       prefix,
		Scale:        scale,
		Processes:    runProcesses,
		Jobs:         runJobs,
		Transactions: runTransactions,
		Mode:         mode,
		Grace:        runGrace,
		TxTimeout:    runTxTimeout,
	}
	for _, spec := range runFiles {
		parsed, err := parseScriptSpec(spec)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Scripts = append(cfg.Scripts, parsed)
	}
	return cfg.WithDefaults(), nil
}

// parseScriptSpec splits "file.sql@weight"; a bare path gets weight 1.
func parseScriptSpec(spec string) (config.ScriptSpec, error) {
	path := spec
	weight := 1.0
	if at := strings.LastIndex(spec, "@"); at >= 0 {
		parsed, err := strconv.ParseFloat(spec[at+1:], 64)
		if err != nil {
			return config.ScriptSpec{}, fmt.Errorf("invalid weight in %q: expected file.sql@weight", spec)
		}
		if parsed <= 0 {
			return config.ScriptSpec{}, fmt.Errorf("weight must be positive in %q", spec)
		}
		path = spec[:at]
		weight = parsed
	}
	if path == "" {
		return config.ScriptSpec{}, fmt.Errorf("empty script path in %q", spec)
	}
	return config.ScriptSpec{Path: path, Weight: weight}, nil
}

// plainProgress redraws a single status line until the run finishes.
func plainProgress(ctx context.Context, updates stats.SnapshotChan, expected int, done <-chan struct{}) {
	start := time.Now()
	var latest stats.Snapshot
	for {
		select {
		case latest = <-updates:
			fmt.Fprint(os.Stderr, report.ProgressLine(latest, expected, time.Since(start)))
		case <-done:
			fmt.Fprintln(os.Stderr)
			return
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr)
			// Keep draining quietly until the run winds down.
			<-done
			return
		}
	}
}

func saveHistory(cfg config.Config, rep metrics.AggregateReport) {
	path, err := storage.DefaultPath()
	if err != nil {
		logrus.WithError(err).Warn("history path unavailable, skipping archive")
		return
	}
	store, err := storage.Open(path)
	if err != nil {
		logrus.WithError(err).Warn("opening history store failed, skipping archive")
		return
	}
	defer store.Close()

	rec := storage.RunRecord{
		ID:        rep.RunID,
		Timestamp: rep.StartedAt,
		Config:    cfg,
		Report:    rep,
	}
	if err := store.Save(rec); err != nil {
		logrus.WithError(err).Warn("archiving run failed")
	}
}
