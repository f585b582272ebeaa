package minidb

import "fmt"

type Result struct {
	rowsAffected int64
}

// LastInsertId is not supported, the id of an inserted row is always
// supplied by the caller.
func (r Result) LastInsertId() (int64, error) {
	return 0, fmt.Errorf("LastInsertId is not supported")
}

// RowsAffected returns the number of rows affected by the
// query.
func (r Result) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}
