package minidb

import (
	"database/sql/driver"
	"fmt"
	"io"

	"github.com/RichardKnop/minidb/internal/minidb"
)

type Rows struct {
	columns []string
	rows    []minidb.Row
	pos     int
}

// Columns returns the names of the columns.
func (r *Rows) Columns() []string {
	return r.columns
}

// Close closes the rows iterator.
func (r *Rows) Close() error {
	r.rows = nil
	return nil
}

// Next is called to populate the next row of data into
// the provided slice. The provided slice will be the same
// size as the Columns() are wide.
//
// Next should return io.EOF when there are no more rows.
func (r *Rows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	if len(dest) != len(minidb.Columns) {
		return fmt.Errorf("expected %d values, got %d", len(minidb.Columns), len(dest))
	}

	aRow := r.rows[r.pos]
	r.pos += 1

	dest[0] = int64(aRow.ID)
	dest[1] = aRow.Username
	dest[2] = aRow.Email

	return nil
}
