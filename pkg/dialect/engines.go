package dialect

import (
	"strconv"
	"strings"
)

func init() {
	Register(Default)
	Register(Policy{
		Name:        "postgres",
		Quote:       doubleQuote,
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	})
	Register(Policy{Name: "mysql", Quote: backtick})
	Register(Policy{Name: "sqlite", Quote: doubleQuote})
	Register(Policy{Name: "duckdb", Quote: doubleQuote})
	Register(Policy{
		Name:        "sqlserver",
		Quote:       bracket,
		Limit:       topOrFetch,
		Placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
	})
	Register(Policy{
		Name:        "oracle",
		Quote:       doubleQuote,
		Limit:       offsetFetch,
		Placeholder: func(n int) string { return ":" + strconv.Itoa(n) },
	})
}

// doubleQuote quotes with ANSI double quotes, doubling embedded quotes.
func doubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func backtick(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// bracket quotes for SQL Server, escaping closing brackets.
//
//	weird]id -> [weird]]id]
func bracket(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

// offsetFetch uses the SQL:2008 row-limiting clause.
func offsetFetch(query string, limit, offset int) string {
	if offset > 0 {
		return query + " OFFSET " + strconv.Itoa(offset) + " ROWS FETCH NEXT " + strconv.Itoa(limit) + " ROWS ONLY"
	}
	return query + " FETCH FIRST " + strconv.Itoa(limit) + " ROWS ONLY"
}

// topOrFetch limits a first page with TOP. Later pages need OFFSET/FETCH,
// which SQL Server only accepts after ORDER BY.
func topOrFetch(query string, limit, offset int) string {
	if offset == 0 && len(query) >= 7 && strings.EqualFold(query[:7], "SELECT ") {
		return query[:7] + "TOP " + strconv.Itoa(limit) + " " + query[7:]
	}
	if !strings.Contains(strings.ToUpper(query), "ORDER BY") {
		query += " ORDER BY (SELECT NULL)"
	}
	return query + " OFFSET " + strconv.Itoa(offset) + " ROWS FETCH NEXT " + strconv.Itoa(limit) + " ROWS ONLY"
}
