package minidb

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	IDSize       = 4
	UsernameSize = 32
	EmailSize    = 255

	IDOffset       = 0
	UsernameOffset = IDOffset + IDSize
	EmailOffset    = UsernameOffset + UsernameSize
	RowSize        = IDSize + UsernameSize + EmailSize
)

// Columns lists the fixed schema in the order rows are returned.
var Columns = []string{"id", "username", "email"}

type Row struct {
	ID       uint32
	Username string
	Email    string
}

func (r Row) Size() uint64 {
	return RowSize
}

func (r Row) Key() uint64 {
	return uint64(r.ID)
}

// Validate checks text fields fit into their fixed-width columns. Text is
// zero padded on disk so it cannot contain NUL bytes either.
func (r Row) Validate() error {
	if len(r.Username) > UsernameSize {
		return fmt.Errorf("%w: username has %d bytes, max is %d", ErrStringTooLong, len(r.Username), UsernameSize)
	}
	if len(r.Email) > EmailSize {
		return fmt.Errorf("%w: email has %d bytes, max is %d", ErrStringTooLong, len(r.Email), EmailSize)
	}
	if strings.IndexByte(r.Username, 0) >= 0 || strings.IndexByte(r.Email, 0) >= 0 {
		return fmt.Errorf("%w: text fields must not contain NUL bytes", ErrInvalidText)
	}
	return nil
}

func (r Row) Marshal() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, RowSize)
	marshalUint32(buf, r.ID, IDOffset)
	copy(buf[UsernameOffset:UsernameOffset+UsernameSize], r.Username)
	copy(buf[EmailOffset:EmailOffset+EmailSize], r.Email)

	return buf, nil
}

func UnmarshalRow(buf []byte, aRow *Row) error {
	if len(buf) != RowSize {
		return fmt.Errorf("%w: row needs %d bytes, got %d", ErrSchemaMismatch, RowSize, len(buf))
	}

	aRow.ID = unmarshalUint32(buf, IDOffset)
	aRow.Username = string(bytes.TrimRight(buf[UsernameOffset:UsernameOffset+UsernameSize], "\x00"))
	aRow.Email = string(bytes.TrimRight(buf[EmailOffset:EmailOffset+EmailSize], "\x00"))

	return nil
}

func (r Row) String() string {
	return fmt.Sprintf("(%d, %s, %s)", r.ID, r.Username, r.Email)
}
