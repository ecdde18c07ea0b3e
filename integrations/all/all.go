// Package all links every store driver into the binary.
package all

import (
	_ "github.com/TFMV/masquerade/integrations/duckdb"
	_ "github.com/TFMV/masquerade/integrations/postgres"
	_ "github.com/TFMV/masquerade/integrations/sqldb"
)
