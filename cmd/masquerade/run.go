package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/TFMV/masquerade/integrations/all"

	"github.com/TFMV/masquerade/config"
	"github.com/TFMV/masquerade/integrations"
	"github.com/TFMV/masquerade/internal/orchestrator"
	"github.com/TFMV/masquerade/logger"
	"github.com/TFMV/masquerade/metrics"
	"github.com/TFMV/masquerade/pkg/dialect"
	"github.com/TFMV/masquerade/pkg/writers"
	"github.com/TFMV/masquerade/report"
)

// RunOptions are the flags of the run command. Negative numbers and empty
// strings keep the configured setting.
type RunOptions struct {
	Limit      int
	Workers    int
	DryRun     bool
	ChangeLog  string
	ReportJSON string
	ReportHTML string
	MetricsOut string
	Tables     []string
	NoSpinner  bool
}

func newRunCommand(global *globalOptions) *cobra.Command {
	options := &RunOptions{Limit: -1, Workers: -1}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Anonymize every configured table",
		Long: `The run command applies the configured column rules to each table.
Tables are processed in parallel, each one page at a time. A failing row
does not stop its table and a failing table does not stop the others; the
exit status is non-zero if any table did not fully succeed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global, true)
			if err != nil {
				return err
			}
			options.apply(cfg, cmd)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if missing := missingTables(cfg, options.Tables); len(missing) > 0 {
				return fmt.Errorf("unknown tables: %v", missing)
			}

			log, err := initLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAnonymizer(ctx, cmd.OutOrStdout(), cfg, options, log)
		},
	}

	cmd.Flags().IntVarP(&options.Limit, "limit", "l", -1, "Rows fetched per page (0 = unbounded); overrides anonymizer.limit")
	cmd.Flags().IntVarP(&options.Workers, "workers", "w", -1, "Tables processed in parallel; overrides anonymizer.workers")
	cmd.Flags().BoolVar(&options.DryRun, "dry-run", false, "Generate values without updating the database")
	cmd.Flags().StringVar(&options.ChangeLog, "change-log", "", "Write generated values to this file (format from anonymizer.change_log_format)")
	cmd.Flags().StringVar(&options.ReportJSON, "report-json", "", "Write a JSON run report to this path")
	cmd.Flags().StringVar(&options.ReportHTML, "report-html", "", "Write an HTML run report to this path")
	cmd.Flags().StringVar(&options.MetricsOut, "metrics-file", "", "Write the raw run metrics as JSON to this path")
	cmd.Flags().StringArrayVarP(&options.Tables, "table", "t", nil, "Only process this table (repeatable)")
	cmd.Flags().BoolVar(&options.NoSpinner, "no-spinner", false, "Disable the progress spinner")

	return cmd
}

// apply overrides cfg with the flags that were set.
func (o *RunOptions) apply(cfg *config.Config, cmd *cobra.Command) {
	if o.Limit >= 0 {
		cfg.Anonymizer.Limit = o.Limit
	}
	if o.Workers >= 0 {
		cfg.Anonymizer.Workers = o.Workers
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.Anonymizer.DryRun = o.DryRun
	}
	if o.ChangeLog != "" {
		cfg.Anonymizer.ChangeLog = o.ChangeLog
	}
}

func missingTables(cfg *config.Config, tables []string) []string {
	var missing []string
	for _, t := range tables {
		found := false
		for _, tc := range cfg.Tables {
			if tc.Name == t {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, t)
		}
	}
	return missing
}

func runAnonymizer(ctx context.Context, out io.Writer, cfg *config.Config, options *RunOptions, log *zap.Logger) error {
	driver, err := integrations.Lookup(cfg.Database.Driver)
	if err != nil {
		return err
	}
	dialectName := cfg.Database.Dialect
	if dialectName == "" {
		dialectName = driver.Dialect
	}
	policy, err := dialect.ForName(dialectName)
	if err != nil {
		return err
	}

	gens, err := newGenerators(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("loading generators: %w", err)
	}
	defer gens.Close()

	store, err := driver.Open(integrations.NewOptions(
		integrations.WithPath(cfg.Database.DSN),
		integrations.WithDriverPath(cfg.Database.DriverPath),
		integrations.WithContext(ctx),
	))
	if err != nil {
		return fmt.Errorf("opening %s store: %w", driver.Name, err)
	}
	defer store.Close()

	opts := []orchestrator.Option{
		orchestrator.WithLimit(cfg.Anonymizer.Limit),
		orchestrator.WithDryRun(cfg.Anonymizer.DryRun),
		orchestrator.WithLogger(log),
	}

	var collector *metrics.PrometheusCollector
	if cfg.Metrics.Enabled || cfg.Metrics.Pushgateway != "" {
		if collector, err = metrics.NewPrometheusCollector(); err != nil {
			return err
		}
		opts = append(opts, orchestrator.WithCollector(collector))
	}

	if cfg.Anonymizer.ChangeLog != "" {
		w, err := writers.DefaultFactory.Create(writers.Config{
			Type: cfg.Anonymizer.ChangeLogFormat,
			Path: cfg.Anonymizer.ChangeLog,
		})
		if err != nil {
			return fmt.Errorf("creating change log: %w", err)
		}
		defer func() {
			if err := w.Close(); err != nil {
				log.Error("Failed to close change log", zap.Error(err))
			}
		}()
		opts = append(opts, orchestrator.WithChangeWriter(w))
	}

	o := orchestrator.New(store, dialect.NewBuilder(cfg.Database.Schema, policy), gens.registry, opts...)

	var spin *spinner.Spinner
	if !options.NoSpinner {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		spin.Suffix = " Anonymizing..."
		spin.Start()
	}
	run := o.RunAll(ctx, cfg.RuleSets(options.Tables...), cfg.Anonymizer.Workers)
	if spin != nil {
		spin.Stop()
	}

	run.Metadata.Driver = driver.Name
	run.Metadata.Schema = cfg.Database.Schema

	if err := report.WriteSummary(out, run); err != nil {
		return err
	}
	if err := report.SaveReports(run, options.ReportJSON, options.ReportHTML); err != nil {
		return err
	}
	if options.MetricsOut != "" {
		var ms metrics.MetricsStore = &metrics.JSONMetricsStore{FilePath: options.MetricsOut}
		if err := ms.SaveWithContext(context.WithoutCancel(ctx), run); err != nil {
			return fmt.Errorf("save run metrics: %w", err)
		}
	}
	if collector != nil && cfg.Metrics.Pushgateway != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := collector.Push(pushCtx, cfg.Metrics.Pushgateway, cfg.Metrics.Job); err != nil {
			log.Error("Failed to push metrics", zap.String("url", cfg.Metrics.Pushgateway), zap.Error(err))
		}
	}

	if run.Failed() {
		return errRunFailed
	}
	return nil
}
