package minidb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

const tableName = "users"

type Database struct {
	FilePath       string
	pager          Pager
	table          *Table
	maxPages       uint32
	maxCachedPages int
	maxICells      uint32
	logger         *zap.Logger
}

type DatabaseOption func(*Database)

// WithMaxPages limits how many pages the file may grow to.
func WithMaxPages(maxPages uint32) DatabaseOption {
	return func(d *Database) {
		d.maxPages = maxPages
	}
}

// WithMaxCachedPages sets how many pages stay cached between statements,
// 0 keeps every page in memory.
func WithMaxCachedPages(maxCachedPages int) DatabaseOption {
	return func(d *Database) {
		d.maxCachedPages = maxCachedPages
	}
}

// WithInternalNodeMaxCells lowers the fan-out of internal nodes, mostly
// useful to exercise internal node splits with few rows.
func WithInternalNodeMaxCells(maxICells uint32) DatabaseOption {
	return func(d *Database) {
		if maxICells >= 2 && maxICells <= InternalNodeMaxCells {
			d.maxICells = maxICells
		}
	}
}

// Open opens or creates the database file at path.
func Open(ctx context.Context, logger *zap.Logger, path string, opts ...DatabaseOption) (*Database, error) {
	dbFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}

	aDatabase := newDatabase(logger, opts...)
	aDatabase.FilePath = path

	aPager, err := NewPager(logger, dbFile, aDatabase.maxPages, aDatabase.maxCachedPages)
	if err != nil {
		return nil, errors.Join(err, dbFile.Close())
	}
	aDatabase.init(aPager)

	logger.Sugar().With(
		"file_name", path,
		"total_pages", int(aPager.TotalPages()),
	).Debug("opened database")

	return aDatabase, nil
}

// NewDatabase creates a database on top of an existing pager.
func NewDatabase(logger *zap.Logger, aPager Pager, opts ...DatabaseOption) *Database {
	aDatabase := newDatabase(logger, opts...)
	aDatabase.init(aPager)
	return aDatabase
}

func newDatabase(logger *zap.Logger, opts ...DatabaseOption) *Database {
	aDatabase := &Database{
		maxPages:       MaxPages,
		maxCachedPages: PageCacheSize,
		maxICells:      InternalNodeMaxCells,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(aDatabase)
	}
	return aDatabase
}

func (d *Database) init(aPager Pager) {
	d.pager = aPager
	d.table = NewTable(d.logger, tableName, aPager, 0)
	d.table.maxICells = d.maxICells
}

// ExecuteStatement runs a single statement. The page cache is trimmed once
// the statement is done, so pages stay pinned for its whole duration.
func (d *Database) ExecuteStatement(ctx context.Context, stmt Statement) (StatementResult, error) {
	aResult, err := d.executeStatement(ctx, stmt)
	if err != nil && IsFatal(err) {
		return StatementResult{}, err
	}

	if trimErr := d.pager.Trim(ctx); trimErr != nil {
		return StatementResult{}, fmt.Errorf("trim page cache: %w", trimErr)
	}

	return aResult, err
}

func (d *Database) executeStatement(ctx context.Context, stmt Statement) (StatementResult, error) {
	switch stmt.Kind {
	case Insert:
		if err := d.table.Insert(ctx, stmt.Row.Key(), stmt.Row); err != nil {
			return StatementResult{}, err
		}
		return StatementResult{RowsAffected: 1}, nil
	case Select:
		aResult := StatementResult{Columns: Columns}
		if !stmt.ByID {
			aResult.Rows = d.table.Scan(ctx)
			return aResult, nil
		}
		aRow, err := d.table.Find(ctx, uint64(stmt.ID))
		if errors.Is(err, ErrNotFound) {
			aResult.Rows = NewEmptyIterator()
			return aResult, nil
		}
		if err != nil {
			return StatementResult{}, err
		}
		aResult.Rows = NewSingleRowIterator(aRow)
		return aResult, nil
	}
	return StatementResult{}, errUnrecognizedStatementType
}

// Flush writes all dirty pages without closing the file.
func (d *Database) Flush(ctx context.Context) error {
	return d.pager.FlushAll(ctx)
}

// Close flushes all dirty pages and closes the file.
func (d *Database) Close(ctx context.Context) error {
	d.logger.Debug("closing database", zap.String("file_name", d.FilePath))
	return d.pager.Close()
}

// PrintTree writes the B-tree structure to w.
func (d *Database) PrintTree(ctx context.Context, w io.Writer) error {
	return d.table.Print(ctx, w)
}

// PrintConstants writes the storage layout constants to w.
func (d *Database) PrintConstants(w io.Writer) {
	fmt.Fprintf(w, "ROW_SIZE: %d\n", RowSize)
	fmt.Fprintf(w, "COMMON_NODE_HEADER_SIZE: %d\n", HeaderSize)
	fmt.Fprintf(w, "LEAF_NODE_HEADER_SIZE: %d\n", LeafNodeHeaderSize)
	fmt.Fprintf(w, "LEAF_NODE_CELL_SIZE: %d\n", LeafNodeCellSize)
	fmt.Fprintf(w, "LEAF_NODE_SPACE_FOR_CELLS: %d\n", PageSize-LeafNodeHeaderSize)
	fmt.Fprintf(w, "LEAF_NODE_MAX_CELLS: %d\n", LeafNodeMaxCells)
	fmt.Fprintf(w, "INTERNAL_NODE_MAX_CELLS: %d\n", InternalNodeMaxCells)
}
