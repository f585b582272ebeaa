package minidb

import (
	"context"
	"fmt"
)

type Cursor struct {
	Table      *Table
	PageIdx    PageIndex
	CellIdx    uint32
	EndOfTable bool
}

func (c *Cursor) LeafNodeInsert(ctx context.Context, key uint64, aRow Row) error {
	aCell, err := newCell(key, aRow)
	if err != nil {
		return err
	}

	aPage, err := c.Table.pager.ModifyPage(ctx, c.PageIdx)
	if err != nil {
		return fmt.Errorf("leaf node insert: %w", err)
	}
	if aPage.LeafNode == nil {
		return fmt.Errorf("%w: inserting key %d into non leaf page %d", ErrSchemaMismatch, key, c.PageIdx)
	}

	if aPage.LeafNode.Header.Cells >= LeafNodeMaxCells {
		// Split leaf node
		if err := c.LeafNodeSplitInsert(ctx, aCell); err != nil {
			return fmt.Errorf("leaf node split insert: %w", err)
		}
		return nil
	}

	if c.CellIdx < aPage.LeafNode.Header.Cells {
		// Need make room for new cell
		for i := aPage.LeafNode.Header.Cells; i > c.CellIdx; i-- {
			aPage.LeafNode.Cells[i] = aPage.LeafNode.Cells[i-1]
		}
	}

	aPage.LeafNode.Cells[c.CellIdx] = aCell
	aPage.LeafNode.Header.Cells += 1

	return nil
}

// Create a new node and move half the cells over.
// Insert the new value in one of the two nodes.
// Update parent or create a new parent.
func (c *Cursor) LeafNodeSplitInsert(ctx context.Context, aCell Cell) error {
	aPager := c.Table.pager

	aSplitPage, err := aPager.ModifyPage(ctx, c.PageIdx)
	if err != nil {
		return fmt.Errorf("get page: %w", err)
	}

	aNewPage, err := aPager.AllocatePage(ctx)
	if err != nil {
		return fmt.Errorf("get new page: %w", err)
	}

	// All existing keys plus new key should be divided between old (left)
	// and new (right) nodes, right gets the larger half.
	aLeaf := aSplitPage.LeafNode
	cells := make([]Cell, 0, aLeaf.Header.Cells+1)
	cells = append(cells, aLeaf.Cells[0:c.CellIdx]...)
	cells = append(cells, aCell)
	cells = append(cells, aLeaf.Cells[c.CellIdx:aLeaf.Header.Cells]...)

	var (
		total           = uint32(len(cells))
		rightSplitCount = (total + 1) / 2
		leftSplitCount  = total - rightSplitCount
	)

	c.Table.logger.Sugar().With(
		"key", int(aCell.Key),
		"page_index", int(aSplitPage.Index),
		"new_page_index", int(aNewPage.Index),
	).Debug("leaf node split insert")

	aNewPage.LeafNode = NewLeafNode(cells[leftSplitCount:]...)
	aNewPage.LeafNode.Header.Parent = aLeaf.Header.Parent
	aNewPage.LeafNode.Header.NextLeaf = aLeaf.Header.NextLeaf

	header := aLeaf.Header
	aSplitPage.LeafNode = NewLeafNode(cells[:leftSplitCount]...)
	aSplitPage.LeafNode.Header.Header = header.Header
	aSplitPage.LeafNode.Header.NextLeaf = aNewPage.Index

	if aSplitPage.isRoot() {
		return c.Table.createNewRoot(ctx, aNewPage.Index)
	}

	return c.Table.insertChild(ctx, header.Parent, aSplitPage.Index, aNewPage.Index)
}

func (c *Cursor) fetchRow(ctx context.Context) (Row, error) {
	aPage, err := c.Table.pager.ReadPage(ctx, c.PageIdx)
	if err != nil {
		return Row{}, fmt.Errorf("fetch row: %w", err)
	}
	if aPage.LeafNode == nil || c.CellIdx >= aPage.LeafNode.Header.Cells {
		return Row{}, fmt.Errorf("%w: no cell %d on page %d", ErrOutOfBounds, c.CellIdx, c.PageIdx)
	}

	var aRow Row
	if err := UnmarshalRow(aPage.LeafNode.Cells[c.CellIdx].Value[:], &aRow); err != nil {
		return Row{}, fmt.Errorf("fetch row: %w", err)
	}

	// There are still more cells in the page, move cursor to next cell and return
	if c.CellIdx < aPage.LeafNode.Header.Cells-1 {
		c.CellIdx += 1
		return aRow, nil
	}

	// If there is no leaf page to the right, set end of table flag and return
	if aPage.LeafNode.Header.NextLeaf == 0 {
		c.EndOfTable = true
		return aRow, nil
	}

	// Otherwise, we try to move the cursor to the next leaf page
	c.PageIdx = aPage.LeafNode.Header.NextLeaf
	c.CellIdx = 0

	return aRow, nil
}

func newCell(key uint64, aRow Row) (Cell, error) {
	rowBuf, err := aRow.Marshal()
	if err != nil {
		return Cell{}, fmt.Errorf("new cell: %w", err)
	}
	aCell := Cell{Key: key}
	copy(aCell.Value[:], rowBuf)
	return aCell, nil
}
