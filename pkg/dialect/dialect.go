// Package dialect builds the SELECT and UPDATE statements used to page
// through and rewrite rows. A Policy holds the engine-specific fragments;
// builders never execute SQL.
package dialect

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/TFMV/masquerade/pkg/core"
)

// Policy is the set of SQL fragments that differ between engines. Nil
// fields fall back to Default.
type Policy struct {
	Name string
	// Quote wraps an identifier that is not a plain name.
	Quote func(ident string) string
	// Limit adds a clause returning at most limit rows after skipping offset
	// rows. It is only called with limit > 0.
	Limit func(query string, limit, offset int) string
	// Placeholder returns the bind marker for the n-th argument, counted from 1.
	Placeholder func(n int) string
}

// Default leaves identifiers as written, limits with LIMIT/OFFSET and binds
// with question marks.
var Default = Policy{
	Name:        "default",
	Quote:       func(ident string) string { return ident },
	Limit:       limitOffset,
	Placeholder: func(int) string { return "?" },
}

func limitOffset(query string, limit, offset int) string {
	q := query + " LIMIT " + strconv.Itoa(limit)
	if offset > 0 {
		q += " OFFSET " + strconv.Itoa(offset)
	}
	return q
}

// with fills the fragments p leaves unset from Default.
func (p Policy) with() Policy {
	if p.Quote == nil {
		p.Quote = Default.Quote
	}
	if p.Limit == nil {
		p.Limit = Default.Limit
	}
	if p.Placeholder == nil {
		p.Placeholder = Default.Placeholder
	}
	return p
}

var (
	mu       sync.RWMutex
	policies = map[string]Policy{}
)

// Register makes p available to ForName under p.Name.
func Register(p Policy) {
	mu.Lock()
	defer mu.Unlock()
	policies[p.Name] = p.with()
}

// ForName returns the policy registered under name. An empty name selects
// Default.
func ForName(name string) (Policy, error) {
	if name == "" {
		return Default, nil
	}
	mu.RLock()
	defer mu.RUnlock()
	p, ok := policies[strings.ToLower(name)]
	if !ok {
		return Policy{}, fmt.Errorf("unknown dialect %q", name)
	}
	return p, nil
}

// Names lists the registered dialects.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(policies))
	for n := range policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Builder produces statements for one schema and dialect.
type Builder struct {
	schema string
	policy Policy
}

// NewBuilder returns a builder qualifying tables with schema, which may be empty.
func NewBuilder(schema string, p Policy) *Builder {
	return &Builder{schema: schema, policy: p.with()}
}

// Dialect returns the name of the builder's policy.
func (b *Builder) Dialect() string {
	return b.policy.Name
}

// BuildSelect limits query to limit rows. A zero limit returns query unchanged.
func (b *Builder) BuildSelect(query string, limit int) string {
	return b.BuildSelectPage(query, limit, 0)
}

// BuildSelectPage limits query to limit rows starting after offset rows.
// A zero limit returns query unchanged.
func (b *Builder) BuildSelectPage(query string, limit, offset int) string {
	if limit <= 0 {
		return query
	}
	return b.policy.Limit(strings.TrimRight(strings.TrimSpace(query), ";"), limit, max(offset, 0))
}

// QuoteIdent quotes name when it is not a plain identifier.
func (b *Builder) QuoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return b.policy.Quote(name)
}

// Qualify prefixes table with the schema when one is configured. Each
// dot-separated segment is quoted separately.
func (b *Builder) Qualify(table string) string {
	parts := strings.Split(table, ".")
	if b.schema != "" {
		parts = append([]string{b.schema}, parts...)
	}
	for i, p := range parts {
		parts[i] = b.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// Placeholder returns the bind marker for the n-th argument, counted from 1.
func (b *Builder) Placeholder(n int) string {
	return b.policy.Placeholder(n)
}

// SelectRows selects key followed by columns from table, filtered by where
// when it is non-empty and ordered by key so pages are stable.
func (b *Builder) SelectRows(table, key string, columns []string, where string) string {
	cols := make([]string, 0, len(columns)+1)
	cols = append(cols, b.QuoteIdent(key))
	for _, c := range columns {
		cols = append(cols, b.QuoteIdent(c))
	}
	q := "SELECT " + strings.Join(cols, ", ") + " FROM " + b.Qualify(table)
	if w := strings.TrimSpace(where); w != "" {
		q += " WHERE " + w
	}
	return q + " ORDER BY " + b.QuoteIdent(key)
}

// SelectForRules selects the key and ruled columns of a rule set.
func (b *Builder) SelectForRules(rs core.RuleSet) string {
	return b.SelectRows(rs.Table, rs.PrimaryKey, rs.Columns(), rs.Where)
}

// BuildUpdate sets columns on the row of table identified by key. The
// column values bind to arguments 1..len(columns) and the key value to the
// last argument.
func (b *Builder) BuildUpdate(table string, columns []string, key string) string {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = b.QuoteIdent(c) + " = " + b.Placeholder(i+1)
	}
	return "UPDATE " + b.Qualify(table) + " SET " + strings.Join(sets, ", ") +
		" WHERE " + b.QuoteIdent(key) + " = " + b.Placeholder(len(columns)+1)
}
