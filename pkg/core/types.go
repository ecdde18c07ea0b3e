// Package core provides the core types and interfaces for the masquerade anonymizer.
package core

import (
	"context"
)

// Row is a single result row. Values are ordered as the columns of the SELECT
// that produced it.
type Row []any

// Store defines the relational store connector used by the orchestrator.
type Store interface {
	// Query executes a statement that returns rows.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)

	// Exec executes a statement that doesn't return rows and reports the
	// number of affected rows, or -1 if unknown.
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	// Close releases the underlying connections.
	Close() error
}

// Rule binds one column of a table to a generator function.
type Rule struct {
	// Table is the unqualified table name.
	Table string

	// Column is the column whose values are replaced.
	Column string

	// Function is the registered generator name.
	Function string

	// Params are the named parameters passed to the generator.
	Params map[string]any

	// SkipNull leaves NULL values untouched.
	SkipNull bool

	// Exclude lists current values that are left untouched.
	Exclude []string
}

// Excludes reports whether the current value of the column must be kept.
func (r Rule) Excludes(current any) bool {
	if current == nil {
		return r.SkipNull
	}
	if len(r.Exclude) == 0 {
		return false
	}
	s := ValueString(current)
	for _, e := range r.Exclude {
		if e == s {
			return true
		}
	}
	return false
}

// RuleSet is all rules targeting one table, processed as one unit.
type RuleSet struct {
	// Table is the unqualified table name.
	Table string

	// PrimaryKey is the column used to key updates and to order pages.
	PrimaryKey string

	// Where is an optional filter appended to the page query.
	Where string

	// Rules are the column rules, in declaration order.
	Rules []Rule
}

// Columns returns the ruled column names in declaration order.
func (rs RuleSet) Columns() []string {
	cols := make([]string, len(rs.Rules))
	for i, r := range rs.Rules {
		cols[i] = r.Column
	}
	return cols
}
