package minidb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/RichardKnop/minidb/pkg/lrucache"
)

type DBFile interface {
	io.ReadSeeker
	io.ReaderAt
	io.WriterAt
	io.Closer
}

type pagerImpl struct {
	totalPages     uint32 // total number of pages, including ones not yet written
	maxPages       uint32 // pages beyond this limit cannot be allocated
	maxCachedPages int    // cache size Trim shrinks to, 0 = unlimited

	// At most one *Page per index is ever alive, evicting a page drops the
	// only reference the pager holds.
	pages lrucache.LRUCache[PageIndex, *Page]
	dirty map[PageIndex]struct{}

	file     DBFile
	fileSize int64
	logger   *zap.Logger
}

// NewPager opens the database file. An empty file gets an empty root leaf
// at page 0, which is written on the first flush.
func NewPager(logger *zap.Logger, file DBFile, maxPages uint32, maxCachedPages int) (*pagerImpl, error) {
	aPager := &pagerImpl{
		maxPages:       maxPages,
		maxCachedPages: maxCachedPages,
		pages:          lrucache.New[PageIndex, *Page](0),
		dirty:          make(map[PageIndex]struct{}),
		file:           file,
		logger:         logger,
	}

	fileSize, err := aPager.file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, &IOError{Op: "seek", Err: err}
	}
	aPager.fileSize = fileSize

	// Basic check to verify file size is a multiple of page size (4096B),
	// anything else means the last page was truncated
	if fileSize%PageSize != 0 {
		return nil, &IOError{
			Op:      "open",
			PageIdx: PageIndex(fileSize / PageSize),
			Err:     fmt.Errorf("db file size %d is not divisible by page size: %w", fileSize, io.ErrUnexpectedEOF),
		}
	}
	aPager.totalPages = uint32(fileSize / PageSize)

	if aPager.totalPages == 0 {
		aRootPage, err := aPager.AllocatePage(context.Background())
		if err != nil {
			return nil, err
		}
		aRootPage.LeafNode.Header.IsRoot = true
	}

	return aPager, nil
}

func (p *pagerImpl) TotalPages() uint32 {
	return p.totalPages
}

func (p *pagerImpl) MaxPages() uint32 {
	return p.maxPages
}

func (p *pagerImpl) ReadPage(ctx context.Context, pageIdx PageIndex) (*Page, error) {
	return p.getPage(ctx, pageIdx)
}

func (p *pagerImpl) ModifyPage(ctx context.Context, pageIdx PageIndex) (*Page, error) {
	aPage, err := p.getPage(ctx, pageIdx)
	if err != nil {
		return nil, err
	}
	p.dirty[pageIdx] = struct{}{}
	return aPage, nil
}

func (p *pagerImpl) getPage(ctx context.Context, pageIdx PageIndex) (*Page, error) {
	if aPage, ok := p.pages.Get(pageIdx); ok {
		return aPage, nil
	}

	if uint32(pageIdx) >= p.totalPages {
		return nil, fmt.Errorf("%w: index %d, number of pages %d", ErrOutOfBounds, pageIdx, p.totalPages)
	}

	// Cache miss, load the page from file
	buf := make([]byte, PageSize)
	n, err := p.file.ReadAt(buf, int64(pageIdx)*PageSize)
	if n < PageSize {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &IOError{Op: "read", PageIdx: pageIdx, Err: err}
	}

	aPage, err := unmarshalPage(pageIdx, buf)
	if err != nil {
		return nil, err
	}

	if pageIdx == 0 {
		if aPage.LeafNode != nil {
			aPage.LeafNode.Header.IsRoot = true
		}
		if aPage.InternalNode != nil {
			aPage.InternalNode.Header.IsRoot = true
		}
	}

	p.pages.Put(pageIdx, aPage)

	return aPage, nil
}

// AllocatePage returns the next unused page as an empty dirty leaf.
func (p *pagerImpl) AllocatePage(ctx context.Context) (*Page, error) {
	if p.totalPages >= p.maxPages {
		return nil, fmt.Errorf("%w: reached limit of %d pages", ErrTableFull, p.maxPages)
	}

	pageIdx := PageIndex(p.totalPages)
	aPage := &Page{Index: pageIdx, LeafNode: NewLeafNode()}

	p.totalPages += 1
	p.pages.Put(pageIdx, aPage)
	p.dirty[pageIdx] = struct{}{}

	return aPage, nil
}

// Flush writes a dirty page back to the file, clean pages are skipped.
func (p *pagerImpl) Flush(ctx context.Context, pageIdx PageIndex) error {
	if _, ok := p.dirty[pageIdx]; !ok {
		return nil
	}

	aPage, ok := p.pages.Peek(pageIdx)
	if !ok {
		return fmt.Errorf("%w: dirty page %d is not cached", ErrOutOfBounds, pageIdx)
	}

	buf := make([]byte, PageSize)
	if _, err := marshalPage(aPage, buf); err != nil {
		return fmt.Errorf("error flushing page %d: %w", pageIdx, err)
	}

	if _, err := p.file.WriteAt(buf, int64(pageIdx)*PageSize); err != nil {
		return &IOError{Op: "write", PageIdx: pageIdx, Err: err}
	}
	delete(p.dirty, pageIdx)

	if end := int64(pageIdx+1) * PageSize; end > p.fileSize {
		p.fileSize = end
	}

	return nil
}

// FlushAll writes every dirty page in ascending page order.
func (p *pagerImpl) FlushAll(ctx context.Context) error {
	for _, pageIdx := range slices.Sorted(maps.Keys(p.dirty)) {
		if err := p.Flush(ctx, pageIdx); err != nil {
			return err
		}
	}
	return nil
}

// Trim evicts least recently used pages until the cache is within its
// limit. Dirty pages are flushed before they are dropped, the root page is
// never evicted. Only call Trim between statements, pages handed out
// earlier must not be used after it.
func (p *pagerImpl) Trim(ctx context.Context) error {
	if p.maxCachedPages <= 0 || p.pages.Len() <= p.maxCachedPages {
		return nil
	}

	for _, pageIdx := range p.pages.Keys() {
		if p.pages.Len() <= p.maxCachedPages {
			break
		}
		if pageIdx == 0 {
			continue
		}
		if err := p.Flush(ctx, pageIdx); err != nil {
			return err
		}
		p.pages.Remove(pageIdx)
		p.logger.Debug("evicted page", zap.Uint32("page_index", uint32(pageIdx)))
	}

	return nil
}

// Close flushes all dirty pages and closes the file.
func (p *pagerImpl) Close() error {
	if err := p.FlushAll(context.Background()); err != nil {
		return err
	}
	if syncer, ok := p.file.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return &IOError{Op: "sync", Err: err}
		}
	}
	if err := p.file.Close(); err != nil {
		return &IOError{Op: "close", Err: err}
	}
	return nil
}
