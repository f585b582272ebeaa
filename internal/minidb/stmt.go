package minidb

import (
	"context"
	"errors"
)

type StatementKind int

const (
	Insert StatementKind = iota + 1
	Select
)

func (s StatementKind) String() string {
	switch s {
	case Insert:
		return "INSERT"
	case Select:
		return "SELECT"
	default:
		return "UNKNOWN"
	}
}

// Statement is a single parsed command. Row is only used by inserts, ID and
// ByID narrow a select down to one row.
type Statement struct {
	Kind StatementKind
	Row  Row
	ID   uint32
	ByID bool
}

type Iterator struct {
	rowFunc func(ctx context.Context) (Row, error)
	nextRow Row
	end     bool
	err     error
}

func NewIterator(rowFunc func(ctx context.Context) (Row, error)) Iterator {
	return Iterator{
		rowFunc: rowFunc,
	}
}

func NewSingleRowIterator(aRow Row) Iterator {
	end := false
	return NewIterator(func(ctx context.Context) (Row, error) {
		if end {
			return Row{}, ErrNoMoreRows
		}
		end = true
		return aRow, nil
	})
}

func NewEmptyIterator() Iterator {
	return NewIterator(func(ctx context.Context) (Row, error) {
		return Row{}, ErrNoMoreRows
	})
}

func (i *Iterator) Row() Row {
	return i.nextRow
}

func (i *Iterator) Next(ctx context.Context) bool {
	if i.err != nil || i.end || i.rowFunc == nil {
		return false
	}
	aRow, err := i.rowFunc(ctx)
	if err != nil {
		if errors.Is(err, ErrNoMoreRows) {
			i.end = true
			return false
		}
		i.err = err
		return false
	}
	i.nextRow = aRow
	return true
}

func (i *Iterator) Err() error {
	return i.err
}

// Collect drains the iterator.
func (i *Iterator) Collect(ctx context.Context) ([]Row, error) {
	var rows []Row
	for i.Next(ctx) {
		rows = append(rows, i.Row())
	}
	return rows, i.Err()
}

type StatementResult struct {
	Columns      []string
	Rows         Iterator
	RowsAffected int
}
