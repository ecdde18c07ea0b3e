// Package duckdb reaches DuckDB through its ADBC entrypoint in libduckdb.
package duckdb

import (
	"fmt"
	"os"
	"runtime"

	"github.com/apache/arrow-adbc/go/adbc/drivermgr"

	"github.com/TFMV/masquerade/integrations"
	"github.com/TFMV/masquerade/pkg/core"
)

// DriverName is the name the DuckDB driver registers under.
const DriverName = "duckdb"

func init() {
	integrations.Register(integrations.Driver{
		Name:    DriverName,
		Dialect: "duckdb",
		Open: func(opts integrations.Options) (core.Store, error) {
			return New(opts)
		},
	})
}

// DriverPath returns the default location of libduckdb.
func DriverPath() string {
	switch runtime.GOOS {
	case "darwin":
		return "/usr/local/lib/libduckdb.dylib"
	case "linux":
		return "/usr/local/lib/libduckdb.so"
	case "windows":
		if home, err := os.UserHomeDir(); err == nil {
			return home + "/Downloads/duckdb-windows-amd64/duckdb.dll"
		}
	}
	return ""
}

// DatabaseOptions returns the ADBC database options for opts. An empty
// opts.Path opens an in-memory database.
func DatabaseOptions(opts integrations.Options) map[string]string {
	dPath := opts.DriverPath
	if dPath == "" {
		dPath = DriverPath()
	}
	dbOpts := map[string]string{
		"driver":     dPath,
		"entrypoint": "duckdb_adbc_init",
	}
	if opts.Path != "" {
		dbOpts["path"] = opts.Path
	}
	return dbOpts
}

// New opens or creates a DuckDB database file.
func New(opts integrations.Options) (*integrations.ADBCStore, error) {
	driver := drivermgr.Driver{}
	db, err := driver.NewDatabase(DatabaseOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("%w: error creating new DuckDB database: %v", core.ErrStoreUnavailable, err)
	}
	return integrations.NewADBCStore(opts.Context, db)
}
