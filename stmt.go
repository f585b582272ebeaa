package minidb

import (
	"context"
	"database/sql/driver"

	"github.com/RichardKnop/minidb/internal/minidb"
)

type Stmt struct {
	conn      *Conn
	statement minidb.Statement
}

// Close closes the statement.
func (s Stmt) Close() error {
	return nil
}

// NumInput returns the number of placeholder parameters, statements never
// have any.
func (s Stmt) NumInput() int {
	return 0
}

// Exec executes a query that doesn't return rows, such
// as an INSERT.
//
// Deprecated: Drivers should implement StmtExecContext instead (or additionally).
func (s Stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), nil)
}

// ExecContext executes a query that doesn't return rows.
func (s Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if len(args) > 0 {
		return nil, errArgumentsNotSupported
	}

	result, err := s.conn.executeStatement(ctx, s.statement)
	if err != nil {
		return nil, err
	}

	return Result{rowsAffected: int64(result.rowsAffected)}, nil
}

// Query executes a query that may return rows, such as a
// SELECT.
//
// Deprecated: Drivers should implement StmtQueryContext instead (or additionally).
func (s Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), nil)
}

// QueryContext executes a query that may return rows.
func (s Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if len(args) > 0 {
		return nil, errArgumentsNotSupported
	}

	result, err := s.conn.executeStatement(ctx, s.statement)
	if err != nil {
		return nil, err
	}

	return &Rows{
		columns: result.columns,
		rows:    result.rows,
	}, nil
}

var _ driver.StmtExecContext = Stmt{}
var _ driver.StmtQueryContext = Stmt{}
