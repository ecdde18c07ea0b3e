package integrations

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/masquerade/pkg/core"
)

// Ensure ADBCStore implements core.Store.
var _ core.Store = (*ADBCStore)(nil)

// ADBCStore runs statements over a single ADBC connection. ADBC connections
// are not safe for concurrent use, so statements are serialized.
type ADBCStore struct {
	mu   sync.Mutex
	db   adbc.Database
	conn adbc.Connection
	mem  memory.Allocator
}

// NewADBCStore opens a connection on db. The store owns db from then on.
func NewADBCStore(ctx context.Context, db adbc.Database) (*ADBCStore, error) {
	conn, err := db.Open(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to open connection: %v", core.ErrStoreUnavailable, err)
	}
	return &ADBCStore{db: db, conn: conn, mem: memory.NewGoAllocator()}, nil
}

// Query executes a statement and collects its result rows.
func (s *ADBCStore) Query(ctx context.Context, query string, args ...any) ([]core.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, fmt.Errorf("%w: store is closed", core.ErrStoreUnavailable)
	}

	stmt, err := s.prepare(ctx, query, args)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rr, _, err := stmt.ExecuteQuery(ctx)
	if err != nil {
		return nil, classify(err)
	}
	defer rr.Release()
	return ReadRows(rr)
}

// Exec executes a statement that doesn't produce a result set.
func (s *ADBCStore) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return -1, fmt.Errorf("%w: store is closed", core.ErrStoreUnavailable)
	}

	stmt, err := s.prepare(ctx, query, args)
	if err != nil {
		return -1, err
	}
	defer stmt.Close()

	affected, err := stmt.ExecuteUpdate(ctx)
	if err != nil {
		return -1, classify(err)
	}
	return affected, nil
}

func (s *ADBCStore) prepare(ctx context.Context, query string, args []any) (adbc.Statement, error) {
	stmt, err := s.conn.NewStatement()
	if err != nil {
		return nil, classify(fmt.Errorf("failed to create statement: %w", err))
	}
	if err := stmt.SetSqlQuery(query); err != nil {
		stmt.Close()
		return nil, fmt.Errorf("failed to set SQL query: %w", err)
	}
	if len(args) > 0 {
		rec, err := BindRecord(s.mem, args)
		if err != nil {
			stmt.Close()
			return nil, err
		}
		defer rec.Release()
		if err := stmt.Bind(ctx, rec); err != nil {
			stmt.Close()
			return nil, fmt.Errorf("failed to bind parameters: %w", err)
		}
	}
	return stmt, nil
}

// Close closes the connection and the database.
func (s *ADBCStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		if dbErr := s.db.Close(); dbErr != nil && err == nil {
			err = dbErr
		}
		s.db = nil
	}
	return err
}

// classify marks connectivity failures reported by the driver as store
// unavailability.
func classify(err error) error {
	var ae adbc.Error
	if errors.As(err, &ae) {
		switch ae.Code {
		case adbc.StatusIO, adbc.StatusUnauthenticated, adbc.StatusUnauthorized, adbc.StatusTimeout:
			return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
		}
	}
	return err
}
