// Package postgres reaches PostgreSQL through the ADBC PostgreSQL driver.
package postgres

import (
	"fmt"
	"os"
	"runtime"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-adbc/go/adbc/drivermgr"

	"github.com/TFMV/masquerade/integrations"
	"github.com/TFMV/masquerade/pkg/core"
)

// DriverName is the name the ADBC PostgreSQL driver registers under.
const DriverName = "adbc-postgres"

func init() {
	integrations.Register(integrations.Driver{
		Name:    DriverName,
		Dialect: "postgres",
		Open: func(opts integrations.Options) (core.Store, error) {
			return New(opts)
		},
	})
}

// DriverPath returns the default location of the native driver library.
func DriverPath() string {
	switch runtime.GOOS {
	case "darwin":
		return "/usr/local/lib/libadbc_driver_postgresql.dylib"
	case "linux":
		return "/usr/local/lib/libadbc_driver_postgresql.so"
	case "windows":
		if home, err := os.UserHomeDir(); err == nil {
			return home + "/Downloads/postgresql-windows-amd64/postgresql.dll"
		}
	}
	return ""
}

// DatabaseOptions returns the ADBC database options for opts.
func DatabaseOptions(opts integrations.Options) map[string]string {
	dPath := opts.DriverPath
	if dPath == "" {
		dPath = DriverPath()
	}
	return map[string]string{
		"driver":          dPath,
		adbc.OptionKeyURI: opts.Path,
	}
}

// New opens a PostgreSQL store at the URI in opts.Path.
func New(opts integrations.Options) (*integrations.ADBCStore, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("postgres: a connection URI is required")
	}

	driver := drivermgr.Driver{}
	db, err := driver.NewDatabase(DatabaseOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("%w: error creating new PostgreSQL database: %v", core.ErrStoreUnavailable, err)
	}
	return integrations.NewADBCStore(opts.Context, db)
}
