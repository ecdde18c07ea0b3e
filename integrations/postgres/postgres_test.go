package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/apache/arrow-adbc/go/adbc"

	"github.com/TFMV/masquerade/integrations"
)

func TestDatabaseOptions(t *testing.T) {
	opts := DatabaseOptions(integrations.NewOptions(integrations.WithPath("postgres://localhost/app")))
	if opts[adbc.OptionKeyURI] != "postgres://localhost/app" {
		t.Errorf("unexpected URI option %q", opts[adbc.OptionKeyURI])
	}
	if opts["driver"] != DriverPath() {
		t.Errorf("expected default driver path, got %q", opts["driver"])
	}
}

func TestNewRequiresURI(t *testing.T) {
	if _, err := New(integrations.NewOptions()); err == nil {
		t.Fatal("expected an error without a URI")
	}
}

// TestPostgresConnectivity needs a server and the ADBC driver; set
// POSTGRES_URL and optionally ADBC_POSTGRES_DRIVER.
func TestPostgresConnectivity(t *testing.T) {
	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := integrations.Open(DriverName,
		integrations.WithPath(dbURL),
		integrations.WithDriverPath(os.Getenv("ADBC_POSTGRES_DRIVER")),
		integrations.WithContext(ctx),
	)
	if err != nil {
		t.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer store.Close()

	rows, err := store.Query(ctx, "SELECT 1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected one row, got %d", len(rows))
	}
	t.Logf("Successfully connected to PostgreSQL at %s", dbURL)
}
