package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/masquerade/pkg/core"
)

func builder(t *testing.T, name, schema string) *Builder {
	t.Helper()
	p, err := ForName(name)
	require.NoError(t, err)
	return NewBuilder(schema, p)
}

func TestBuildSelectDefault(t *testing.T) {
	b := builder(t, "", "")
	assert.Equal(t, "SELECT * FROM users", b.BuildSelect("SELECT * FROM users", 0))
	assert.Equal(t, "SELECT * FROM users LIMIT 10", b.BuildSelect("SELECT * FROM users", 10))
	assert.Equal(t, "SELECT * FROM users LIMIT 10 OFFSET 20", b.BuildSelectPage("SELECT * FROM users;", 10, 20))
	// limit 0 means unbounded, so the offset is ignored too
	assert.Equal(t, "SELECT * FROM users", b.BuildSelectPage("SELECT * FROM users", 0, 20))
}

func TestQualify(t *testing.T) {
	assert.Equal(t, "users", builder(t, "", "").Qualify("users"))
	assert.Equal(t, "hr.users", builder(t, "", "hr").Qualify("users"))
	assert.Equal(t, `hr."user list"`, builder(t, "postgres", "hr").Qualify("user list"))
	assert.Equal(t, "[my schema].Users", builder(t, "sqlserver", "my schema").Qualify("Users"))
	assert.Equal(t, "sales.orders", builder(t, "", "").Qualify("sales.orders"))
}

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		dialect string
		ident   string
		want    string
	}{
		{"default", "email", "email"},
		{"default", "e mail", "e mail"},
		{"postgres", "email", "email"},
		{"postgres", "Email Address", `"Email Address"`},
		{"postgres", `we"ird`, `"we""ird"`},
		{"mysql", "order-id", "`order-id`"},
		{"mysql", "a`b", "`a``b`"},
		{"sqlite", "1st", `"1st"`},
		{"duckdb", "first name", `"first name"`},
		{"sqlserver", "weird]id", "[weird]]id]"},
		{"oracle", "last name", `"last name"`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.ident, func(t *testing.T) {
			assert.Equal(t, tt.want, builder(t, tt.dialect, "").QuoteIdent(tt.ident))
		})
	}
}

func TestLimitClauses(t *testing.T) {
	const q = "SELECT id, email FROM users ORDER BY id"
	tests := []struct {
		dialect string
		offset  int
		want    string
	}{
		{"postgres", 0, q + " LIMIT 5"},
		{"postgres", 10, q + " LIMIT 5 OFFSET 10"},
		{"mysql", 10, q + " LIMIT 5 OFFSET 10"},
		{"sqlite", 0, q + " LIMIT 5"},
		{"duckdb", 5, q + " LIMIT 5 OFFSET 5"},
		{"oracle", 0, q + " FETCH FIRST 5 ROWS ONLY"},
		{"oracle", 10, q + " OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY"},
		{"sqlserver", 0, "SELECT TOP 5 id, email FROM users ORDER BY id"},
		{"sqlserver", 10, q + " OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			assert.Equal(t, tt.want, builder(t, tt.dialect, "").BuildSelectPage(q, 5, tt.offset))
		})
	}

	b := builder(t, "sqlserver", "")
	assert.Equal(t, "SELECT id FROM t ORDER BY (SELECT NULL) OFFSET 3 ROWS FETCH NEXT 2 ROWS ONLY",
		b.BuildSelectPage("SELECT id FROM t", 2, 3))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", builder(t, "mysql", "").Placeholder(3))
	assert.Equal(t, "$3", builder(t, "postgres", "").Placeholder(3))
	assert.Equal(t, "@p3", builder(t, "sqlserver", "").Placeholder(3))
	assert.Equal(t, ":3", builder(t, "oracle", "").Placeholder(3))
}

func TestSelectForRules(t *testing.T) {
	rs := core.RuleSet{
		Table:      "users",
		PrimaryKey: "id",
		Where:      "active = 1",
		Rules: []core.Rule{
			{Column: "email", Function: "randomUUID"},
			{Column: "full name", Function: "randomFirstName"},
		},
	}
	assert.Equal(t,
		`SELECT id, email, "full name" FROM hr.users WHERE active = 1 ORDER BY id`,
		builder(t, "postgres", "hr").SelectForRules(rs))

	rs.Where = ""
	assert.Equal(t,
		"SELECT id, email, full name FROM users ORDER BY id",
		builder(t, "default", "").SelectForRules(rs))
}

func TestBuildUpdate(t *testing.T) {
	assert.Equal(t,
		"UPDATE hr.users SET email = $1, phone = $2 WHERE id = $3",
		builder(t, "postgres", "hr").BuildUpdate("users", []string{"email", "phone"}, "id"))
	assert.Equal(t,
		"UPDATE users SET email = ? WHERE id = ?",
		builder(t, "sqlite", "").BuildUpdate("users", []string{"email"}, "id"))
	assert.Equal(t,
		"UPDATE dbo.[Order Lines] SET note = @p1 WHERE line_id = @p2",
		builder(t, "sqlserver", "dbo").BuildUpdate("Order Lines", []string{"note"}, "line_id"))
}

func TestForName(t *testing.T) {
	p, err := ForName("Postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", p.Name)

	_, err = ForName("db2")
	assert.Error(t, err)

	assert.Subset(t, Names(), []string{"default", "postgres", "mysql", "sqlite", "sqlserver", "oracle", "duckdb"})
}

func TestPartialPolicyFallsBackToDefault(t *testing.T) {
	b := NewBuilder("", Policy{Name: "custom", Placeholder: func(n int) string { return "#" }})
	assert.Equal(t, "SELECT 1 LIMIT 2", b.BuildSelect("SELECT 1", 2))
	assert.Equal(t, "a b", b.QuoteIdent("a b"))
	assert.Equal(t, "#", b.Placeholder(1))
}
