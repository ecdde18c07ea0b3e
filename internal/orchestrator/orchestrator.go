// Package orchestrator drives rule sets through fetch, generate and write
// cycles against a store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TFMV/masquerade/metrics"
	"github.com/TFMV/masquerade/pkg/core"
	"github.com/TFMV/masquerade/pkg/dialect"
	"github.com/TFMV/masquerade/pkg/writers"
)

// WriteError is the RowResult.Errors key for a failed update.
const WriteError = "(write)"

// Dispatcher resolves and invokes generator functions by name.
type Dispatcher interface {
	Validate(name string, params map[string]any) error
	Invoke(ctx context.Context, name string, params map[string]any) (any, error)
}

// Orchestrator anonymizes rule sets against one store. It is safe to run
// rule sets for different tables concurrently.
type Orchestrator struct {
	store     core.Store
	builder   *dialect.Builder
	funcs     Dispatcher
	limit     int
	dryRun    bool
	log       *zap.Logger
	collector metrics.Collector
	changes   writers.ChangeWriter
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLimit sets the page size. Zero fetches every row in one query.
func WithLimit(n int) Option {
	return func(o *Orchestrator) {
		o.limit = max(n, 0)
	}
}

// WithDryRun skips store updates. Generated values still reach the change
// writer when one is set.
func WithDryRun(dryRun bool) Option {
	return func(o *Orchestrator) {
		o.dryRun = dryRun
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithCollector sets the metrics collector.
func WithCollector(c metrics.Collector) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.collector = c
		}
	}
}

// WithChangeWriter records every generated value to w.
func WithChangeWriter(w writers.ChangeWriter) Option {
	return func(o *Orchestrator) {
		o.changes = w
	}
}

// New returns an orchestrator reading and writing through store.
func New(store core.Store, builder *dialect.Builder, funcs Dispatcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		builder:   builder,
		funcs:     funcs,
		log:       zap.NewNop(),
		collector: metrics.NopCollector{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunAll processes sets with at most workers rule sets in flight. A failing
// rule set does not stop the others.
func (o *Orchestrator) RunAll(ctx context.Context, sets []core.RuleSet, workers int) metrics.RunReport {
	if workers <= 0 {
		workers = max(len(sets), 1)
	}
	report := metrics.RunReport{
		Metadata: metrics.RunMetadata{
			RunID:     uuid.NewString(),
			Dialect:   o.builder.Dialect(),
			Limit:     o.limit,
			Workers:   workers,
			DryRun:    o.dryRun,
			StartTime: time.Now(),
		},
		RuleSets: make([]metrics.RuleSetSummary, len(sets)),
	}
	o.log.Info("Starting anonymization run",
		zap.String("run_id", report.Metadata.RunID),
		zap.Int("rule_sets", len(sets)),
		zap.Int("workers", workers))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, rs := range sets {
		g.Go(func() error {
			report.RuleSets[i] = o.Run(ctx, rs)
			return nil
		})
	}
	_ = g.Wait()

	report.Metadata.EndTime = time.Now()
	report.Metadata.Duration = report.Metadata.EndTime.Sub(report.Metadata.StartTime)
	return report
}

// Run processes one rule set page by page until a page comes back short,
// the context is cancelled between pages, or a fetch fails.
func (o *Orchestrator) Run(ctx context.Context, rs core.RuleSet) metrics.RuleSetSummary {
	summary := metrics.RuleSetSummary{
		Table:     rs.Table,
		Columns:   rs.Columns(),
		Status:    metrics.Succeeded,
		State:     metrics.Idle,
		StartTime: time.Now(),
	}
	log := o.log.With(zap.String("table", rs.Table))
	defer func() {
		summary.EndTime = time.Now()
		summary.Duration = summary.EndTime.Sub(summary.StartTime)
		o.collector.RuleSetFinished(summary)
		log.Info("Rule set finished",
			zap.String("status", string(summary.Status)),
			zap.Int64("rows", summary.RowsProcessed),
			zap.Int64("updated", summary.RowsUpdated),
			zap.Int64("failed", summary.RowsFailed),
			zap.Duration("duration", summary.Duration))
	}()

	rules := o.activeRules(rs, &summary, log)
	if len(rules) == 0 {
		summary.Status = metrics.Aborted
		summary.State = metrics.Failed
		return summary
	}
	active := rs
	active.Rules = rules
	query := o.builder.SelectForRules(active)
	update := make(map[string]string)

	for offset := 0; ; offset += o.limit {
		if err := ctx.Err(); err != nil {
			summary.Status = metrics.Cancelled
			summary.RecordError(core.Classify(err), err.Error())
			log.Warn("Rule set cancelled", zap.Int("pages", summary.Pages))
			return summary
		}

		summary.State = metrics.Fetching
		page, err := o.store.Query(ctx, o.builder.BuildSelectPage(query, o.limit, offset))
		if err != nil {
			o.abort(&summary, fmt.Errorf("fetch page %d: %w", summary.Pages+1, err), log)
			return summary
		}
		summary.Pages++
		if len(page) == 0 {
			break
		}

		// Writes for a fetched page complete even if ctx is cancelled meanwhile.
		wctx := context.WithoutCancel(ctx)
		for _, row := range page {
			res, err := o.processRow(wctx, active, row, update, &summary, log)
			if err != nil {
				o.abort(&summary, err, log)
				return summary
			}
			summary.RowsProcessed++
			o.collector.RowProcessed(rs.Table)
			if res.Written {
				summary.RowsUpdated++
			}
			if res.Failed() {
				summary.RowsFailed++
			}
		}

		if o.limit == 0 || len(page) < o.limit {
			break
		}
	}

	summary.State = metrics.Idle
	if summary.RowsFailed > 0 && summary.Status == metrics.Succeeded {
		summary.Status = metrics.PartiallyFailed
	}
	return summary
}

// activeRules drops rules whose function or parameters are misconfigured.
func (o *Orchestrator) activeRules(rs core.RuleSet, summary *metrics.RuleSetSummary, log *zap.Logger) []core.Rule {
	rules := make([]core.Rule, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		if err := o.funcs.Validate(r.Function, r.Params); err != nil {
			summary.RecordError(core.Classify(err), fmt.Sprintf("column %s: %v", r.Column, err))
			summary.Status = metrics.PartiallyFailed
			log.Error("Rule aborted",
				zap.String("column", r.Column),
				zap.String("function", r.Function),
				zap.Error(err))
			continue
		}
		rules = append(rules, r)
	}
	return rules
}

// processRow generates values for one row and writes them. Only store
// unavailability is returned; other failures are recorded on the result.
func (o *Orchestrator) processRow(ctx context.Context, rs core.RuleSet, row core.Row, update map[string]string, summary *metrics.RuleSetSummary, log *zap.Logger) (metrics.RowResult, error) {
	if len(row) != len(rs.Rules)+1 {
		return metrics.RowResult{}, fmt.Errorf("row has %d values, expected %d", len(row), len(rs.Rules)+1)
	}
	res := metrics.RowResult{Key: row[0]}
	fail := func(column string, err error) {
		if res.Errors == nil {
			res.Errors = make(map[string]string)
		}
		res.Errors[column] = err.Error()
		class := core.Classify(err)
		summary.RecordError(class, err.Error())
		o.collector.RowFailed(rs.Table, class)
		log.Warn("Row failed",
			zap.String("key", core.ValueString(res.Key)),
			zap.String("column", column),
			zap.String("class", class),
			zap.Error(err))
	}

	summary.State = metrics.Generating
	var values []any
	var changes []writers.Change
	for i, r := range rs.Rules {
		if r.Excludes(row[i+1]) {
			res.Skipped = append(res.Skipped, r.Column)
			continue
		}
		v, err := o.funcs.Invoke(ctx, r.Function, r.Params)
		if err != nil {
			fail(r.Column, err)
			continue
		}
		res.Updated = append(res.Updated, r.Column)
		values = append(values, v)
		changes = append(changes, writers.Change{
			Table:  rs.Table,
			Key:    core.ValueString(res.Key),
			Column: r.Column,
			Value:  core.ValueString(v),
		})
	}
	if len(values) == 0 {
		return res, nil
	}

	summary.State = metrics.Writing
	logChanges := func() {
		if o.changes == nil {
			return
		}
		if err := o.changes.Write(ctx, changes); err != nil {
			fail(WriteError, fmt.Errorf("%w: change log: %v", core.ErrIOFailure, err))
		}
	}
	if o.dryRun {
		logChanges()
		res.Written = res.Errors[WriteError] == ""
		return res, nil
	}

	sig := fmt.Sprint(res.Updated)
	stmt, ok := update[sig]
	if !ok {
		stmt = o.builder.BuildUpdate(rs.Table, res.Updated, rs.PrimaryKey)
		update[sig] = stmt
	}
	if _, err := o.store.Exec(ctx, stmt, append(values, res.Key)...); err != nil {
		if errors.Is(err, core.ErrStoreUnavailable) {
			return res, fmt.Errorf("update key %s: %w", core.ValueString(res.Key), err)
		}
		fail(WriteError, err)
		return res, nil
	}
	res.Written = true
	// Only values the store accepted are logged.
	logChanges()
	return res, nil
}

func (o *Orchestrator) abort(summary *metrics.RuleSetSummary, err error, log *zap.Logger) {
	summary.Status = metrics.Aborted
	summary.State = metrics.Failed
	summary.RecordError(core.Classify(err), err.Error())
	log.Error("Rule set aborted", zap.Int("pages", summary.Pages), zap.Error(err))
}
