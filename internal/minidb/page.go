package minidb

import (
	"fmt"
)

const (
	PageSize      = 4096 // 4 kilobytes
	MaxPages      = 100
	PageCacheSize = 1000
)

type PageIndex uint32

type Page struct {
	Index        PageIndex
	InternalNode *InternalNode
	LeafNode     *LeafNode
}

func (p *Page) setParent(parentIdx PageIndex) {
	if p.LeafNode != nil {
		p.LeafNode.Header.Parent = parentIdx
	} else if p.InternalNode != nil {
		p.InternalNode.Header.Parent = parentIdx
	}
}

func (p *Page) isRoot() bool {
	if p.LeafNode != nil {
		return p.LeafNode.Header.IsRoot
	}
	return p.InternalNode != nil && p.InternalNode.Header.IsRoot
}

func (p *Page) parent() PageIndex {
	if p.LeafNode != nil {
		return p.LeafNode.Header.Parent
	}
	return p.InternalNode.Header.Parent
}

// setInternal turns the page into an empty internal node.
func (p *Page) setInternal() {
	p.LeafNode = nil
	p.InternalNode = NewInternalNode()
}

func marshalPage(aPage *Page, buf []byte) ([]byte, error) {
	if aPage.LeafNode != nil {
		data, err := aPage.LeafNode.Marshal(buf)
		if err != nil {
			return nil, fmt.Errorf("error marshaling leaf node: %w", err)
		}
		return data, nil
	} else if aPage.InternalNode != nil {
		data, err := aPage.InternalNode.Marshal(buf)
		if err != nil {
			return nil, fmt.Errorf("error marshaling internal node: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("page %d is neither internal nor leaf node", aPage.Index)
}

func unmarshalPage(pageIdx PageIndex, buf []byte) (*Page, error) {
	if len(buf) != PageSize {
		return nil, fmt.Errorf("%w: page %d has %d bytes", ErrSchemaMismatch, pageIdx, len(buf))
	}

	// First byte is the internal flag, a zeroed page reads as an empty leaf
	if buf[0] == 0 {
		leaf := NewLeafNode()
		if _, err := leaf.Unmarshal(buf); err != nil {
			return nil, fmt.Errorf("page %d: %w", pageIdx, err)
		}
		return &Page{Index: pageIdx, LeafNode: leaf}, nil
	}

	internal := NewInternalNode()
	if _, err := internal.Unmarshal(buf); err != nil {
		return nil, fmt.Errorf("page %d: %w", pageIdx, err)
	}
	return &Page{Index: pageIdx, InternalNode: internal}, nil
}
