package minidb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/RichardKnop/minidb/internal/minidb"
	"github.com/RichardKnop/minidb/internal/parser"
	"github.com/RichardKnop/minidb/internal/pkg/logging"
	"github.com/RichardKnop/minidb/pkg/lrucache"
)

const (
	driverName = "minidb"

	// Number of parsed queries kept per driver
	statementCacheSize = 256
)

// Errors returned by the engine, exported so callers can match them with
// errors.Is.
var (
	ErrDuplicateKey  = minidb.ErrDuplicateKey
	ErrTableFull     = minidb.ErrTableFull
	ErrStringTooLong = minidb.ErrStringTooLong
	ErrInvalidText   = minidb.ErrInvalidText
	ErrSyntax        = parser.ErrSyntax
	ErrNegativeID    = parser.ErrNegativeID

	errTransactionsNotSupported = errors.New("transactions are not supported")
	errArgumentsNotSupported    = errors.New("query arguments are not supported")
	errConnectionClosed         = errors.New("connection is closed")
)

func init() {
	sql.Register(driverName, &Driver{})
}

// Driver implements the database/sql/driver.Driver interface.
type Driver struct {
	mu        sync.Mutex
	databases map[string]*sharedDatabase
	stmtCache lrucache.LRUCache[string, []minidb.Statement]
}

// sharedDatabase is a database opened by one or more connections. The
// engine is single threaded, every statement runs under mu.
type sharedDatabase struct {
	mu          sync.Mutex
	db          *minidb.Database
	refs        int
	logger      *zap.Logger
	closeLogger func() error
}

// Open returns a new connection to the database.
// The name is a path to a database file, optionally followed by query
// parameters, see ParseConnectionString.
func (d *Driver) Open(name string) (driver.Conn, error) {
	config, err := ParseConnectionString(name)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.databases == nil {
		d.databases = make(map[string]*sharedDatabase)
	}
	if d.stmtCache == nil {
		d.stmtCache = lrucache.New[string, []minidb.Statement](statementCacheSize)
	}

	// Different spellings of the same path must share one pager
	filePath, err := filepath.Abs(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	// Check if database is already open
	shared, exists := d.databases[filePath]
	if !exists {
		logger, closeLogger, err := logging.Open(logging.Config{
			Level:      config.LogLevel,
			FileName:   config.LogFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}

		db, err := minidb.Open(
			context.Background(),
			logger,
			filePath,
			minidb.WithMaxCachedPages(config.MaxCachedPages),
			minidb.WithMaxPages(config.MaxPages),
		)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to open database: %w", err), closeLogger())
		}

		shared = &sharedDatabase{db: db, logger: logger, closeLogger: closeLogger}
		d.databases[filePath] = shared
	}
	shared.refs += 1

	return &Conn{
		driver:   d,
		shared:   shared,
		filePath: filePath,
	}, nil
}

// release drops a connection's reference, the last one closes the database.
func (d *Driver) release(filePath string, shared *sharedDatabase) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	shared.refs -= 1
	if shared.refs > 0 {
		return nil
	}
	delete(d.databases, filePath)

	shared.mu.Lock()
	defer shared.mu.Unlock()
	return errors.Join(shared.db.Close(context.Background()), shared.closeLogger())
}

// parse returns the statements of a query, parsing it only on a cache miss.
func (d *Driver) parse(ctx context.Context, query string) ([]minidb.Statement, error) {
	if statements, ok := d.stmtCache.Get(query); ok {
		return slices.Clone(statements), nil
	}

	statements, err := parser.New().Parse(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	d.stmtCache.Put(query, statements)

	return slices.Clone(statements), nil
}

// Conn implements the database/sql/driver.Conn interface.
type Conn struct {
	driver   *Driver
	shared   *sharedDatabase
	filePath string
	closed   bool
	mu       sync.Mutex
}

func (c *Conn) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return driver.ErrBadConn
	}
	return nil
}

// Close marks this connection as no longer in use. The database file is
// flushed and closed once all connections to it are closed.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	return c.driver.release(c.filePath, c.shared)
}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

// PrepareContext returns a prepared statement, bound to this connection.
func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	statements, err := c.driver.parse(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(statements) == 0 {
		return nil, fmt.Errorf("no statements in query")
	}

	if len(statements) > 1 {
		return nil, fmt.Errorf("multiple statements not supported in prepared statements")
	}

	return &Stmt{
		conn:      c,
		statement: statements[0],
	}, nil
}

// Begin is not supported, every statement is applied on its own.
//
// Deprecated: Drivers should implement ConnBeginTx instead (or additionally).
func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx is not supported, every statement is applied on its own.
func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return nil, errTransactionsNotSupported
}

// ExecContext executes a query that doesn't return rows.
func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if len(args) > 0 {
		return nil, errArgumentsNotSupported
	}

	statements, err := c.driver.parse(ctx, query)
	if err != nil {
		return nil, err
	}

	var totalRowsAffected int64

	for _, stmt := range statements {
		result, err := c.executeStatement(ctx, stmt)
		if err != nil {
			return nil, err
		}
		totalRowsAffected += int64(result.rowsAffected)
	}

	return Result{rowsAffected: totalRowsAffected}, nil
}

// QueryContext executes a query that may return rows.
func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if len(args) > 0 {
		return nil, errArgumentsNotSupported
	}

	statements, err := c.driver.parse(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(statements) == 0 {
		return nil, fmt.Errorf("no statements in query")
	}

	if len(statements) > 1 {
		return nil, fmt.Errorf("multiple statements not supported")
	}

	result, err := c.executeStatement(ctx, statements[0])
	if err != nil {
		return nil, err
	}

	return &Rows{
		columns: result.columns,
		rows:    result.rows,
	}, nil
}

type executeResult struct {
	columns      []string
	rows         []minidb.Row
	rowsAffected int
}

// executeStatement runs a statement and reads all of its rows while holding
// the database lock, so no iterator outlives the statement.
func (c *Conn) executeStatement(ctx context.Context, stmt minidb.Statement) (executeResult, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return executeResult{}, errConnectionClosed
	}

	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()

	aResult, err := c.shared.db.ExecuteStatement(ctx, stmt)
	if err != nil {
		if minidb.IsFatal(err) {
			c.shared.logger.Error("fatal error executing statement", zap.Stringer("kind", stmt.Kind), zap.Error(err))
		}
		return executeResult{}, err
	}

	result := executeResult{
		columns:      aResult.Columns,
		rowsAffected: aResult.RowsAffected,
	}
	if stmt.Kind == minidb.Select {
		result.rows, err = aResult.Rows.Collect(ctx)
		if err != nil {
			return executeResult{}, err
		}
	}

	return result, nil
}

// Ensure interfaces are implemented
var _ driver.Driver = (*Driver)(nil)
var _ driver.Conn = (*Conn)(nil)
var _ driver.Pinger = (*Conn)(nil)
var _ driver.ConnPrepareContext = (*Conn)(nil)
var _ driver.ConnBeginTx = (*Conn)(nil)
var _ driver.ExecerContext = (*Conn)(nil)
var _ driver.QueryerContext = (*Conn)(nil)
