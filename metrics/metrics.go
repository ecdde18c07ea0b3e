package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// -----------------------------
// Domain Types & Metadata
// -----------------------------

// State is the position of a rule set in its processing cycle.
type State string

const (
	Idle       State = "idle"
	Fetching   State = "fetching"
	Generating State = "generating"
	Writing    State = "writing"
	Failed     State = "failed"
)

// Status is the overall outcome of a rule set.
type Status string

const (
	Succeeded Status = "succeeded"
	// PartiallyFailed means the rule set ran to completion but some rows failed.
	PartiallyFailed Status = "partially_failed"
	Aborted         Status = "aborted"
	Cancelled       Status = "cancelled"
)

// RunMetadata captures high-level context for an anonymization run.
type RunMetadata struct {
	RunID     string        `json:"run_id"`
	Driver    string        `json:"driver"`
	Dialect   string        `json:"dialect"`
	Schema    string        `json:"schema"`
	Limit     int           `json:"limit"`
	Workers   int           `json:"workers"`
	DryRun    bool          `json:"dry_run"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
}

// -----------------------------
// Result Types
// -----------------------------

// RowResult is the outcome of one fetched row.
type RowResult struct {
	Key     any               `json:"key"`
	Updated []string          `json:"updated,omitempty"`
	Skipped []string          `json:"skipped,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"` // column -> error
	Written bool              `json:"written"`
}

// Failed reports whether any column or the write of the row failed.
func (r RowResult) Failed() bool {
	return len(r.Errors) > 0
}

// RuleSetSummary reports one table's rule set.
type RuleSetSummary struct {
	Table         string            `json:"table"`
	Columns       []string          `json:"columns"`
	RowsProcessed int64             `json:"rows_processed"`
	RowsUpdated   int64             `json:"rows_updated"`
	RowsFailed    int64             `json:"rows_failed"`
	Pages         int               `json:"pages"`
	FirstErrors   map[string]string `json:"first_errors,omitempty"` // failure class -> first message
	ErrorCounts   map[string]int64  `json:"error_counts,omitempty"`
	Status        Status            `json:"status"`
	State         State             `json:"state"`
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
	Duration      time.Duration     `json:"duration"`
}

// RecordError counts an error of class, keeping the first message per class.
func (s *RuleSetSummary) RecordError(class, message string) {
	if s.FirstErrors == nil {
		s.FirstErrors = make(map[string]string)
		s.ErrorCounts = make(map[string]int64)
	}
	if _, ok := s.FirstErrors[class]; !ok {
		s.FirstErrors[class] = message
	}
	s.ErrorCounts[class]++
}

// ErrorClasses lists the recorded failure classes in name order.
func (s RuleSetSummary) ErrorClasses() []string {
	classes := make([]string, 0, len(s.FirstErrors))
	for c := range s.FirstErrors {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes
}

// Failed reports whether the rule set did not fully succeed.
func (s RuleSetSummary) Failed() bool {
	return s.Status != Succeeded
}

// RunReport aggregates the rule sets of one run.
type RunReport struct {
	Metadata RunMetadata      `json:"metadata"`
	RuleSets []RuleSetSummary `json:"rule_sets"`
}

// Totals sums row counts over every rule set.
type Totals struct {
	RowsProcessed int64 `json:"rows_processed"`
	RowsUpdated   int64 `json:"rows_updated"`
	RowsFailed    int64 `json:"rows_failed"`
	FailedSets    int   `json:"failed_rule_sets"`
}

func (r RunReport) Totals() Totals {
	var t Totals
	for _, s := range r.RuleSets {
		t.RowsProcessed += s.RowsProcessed
		t.RowsUpdated += s.RowsUpdated
		t.RowsFailed += s.RowsFailed
		if s.Failed() {
			t.FailedSets++
		}
	}
	return t
}

// Failed reports whether any rule set failed.
func (r RunReport) Failed() bool {
	return r.Totals().FailedSets > 0
}

// -----------------------------
// Metrics Storage
// -----------------------------

// MetricsStore abstracts run report storage.
type MetricsStore interface {
	Save(run RunReport) error
	SaveWithContext(ctx context.Context, run RunReport) error
}

// JSONMetricsStore stores reports as JSON. An empty FilePath prints to stdout.
type JSONMetricsStore struct {
	FilePath string
}

func (j *JSONMetricsStore) Save(run RunReport) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	if j.FilePath != "" {
		return os.WriteFile(j.FilePath, data, 0644)
	}
	fmt.Println(string(data))
	return nil
}

func (j *JSONMetricsStore) SaveWithContext(ctx context.Context, run RunReport) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return j.Save(run)
	}
}

// -----------------------------
// Collection
// -----------------------------

// Collector receives progress events from the orchestrator.
type Collector interface {
	RowProcessed(table string)
	RowFailed(table, class string)
	RuleSetFinished(summary RuleSetSummary)
}

// NopCollector discards events.
type NopCollector struct{}

func (NopCollector) RowProcessed(string)            {}
func (NopCollector) RowFailed(string, string)       {}
func (NopCollector) RuleSetFinished(RuleSetSummary) {}
