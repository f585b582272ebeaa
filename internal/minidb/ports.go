package minidb

import (
	"context"
)

//go:generate mockery --name=Pager --structname=MockPager --inpackage --case=snake --testonly

// Pager owns the backing file and all cached pages. ReadPage and ModifyPage
// return the single cached instance of a page, ModifyPage additionally marks
// it dirty so it gets written back on flush.
type Pager interface {
	ReadPage(context.Context, PageIndex) (*Page, error)
	ModifyPage(context.Context, PageIndex) (*Page, error)
	AllocatePage(context.Context) (*Page, error)
	TotalPages() uint32
	MaxPages() uint32
	Flush(context.Context, PageIndex) error
	FlushAll(context.Context) error
	Trim(context.Context) error
	Close() error
}
