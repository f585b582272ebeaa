package minidb

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.uber.org/zap"
)

type Table struct {
	Name        string
	RootPageIdx PageIndex
	pager       Pager
	maxICells   uint32
	logger      *zap.Logger
}

func NewTable(logger *zap.Logger, name string, pager Pager, rootPageIdx PageIndex) *Table {
	return &Table{
		Name:        name,
		RootPageIdx: rootPageIdx,
		pager:       pager,
		maxICells:   InternalNodeMaxCells,
		logger:      logger,
	}
}

// Seek the cursor for a key, if it does not exist, return a cursor
// to the position where the key should be inserted.
func (t *Table) Seek(ctx context.Context, key uint64) (*Cursor, bool, error) {
	pageIdx := t.RootPageIdx
	for {
		aPage, err := t.pager.ReadPage(ctx, pageIdx)
		if err != nil {
			return nil, false, fmt.Errorf("seek: %w", err)
		}

		if aPage.LeafNode != nil {
			cellIdx, found := aPage.LeafNode.Search(key)
			return &Cursor{
				Table:   t,
				PageIdx: pageIdx,
				CellIdx: cellIdx,
			}, found, nil
		}

		childIdx := aPage.InternalNode.IndexOfChild(key)
		pageIdx, err = aPage.InternalNode.Child(childIdx)
		if err != nil {
			return nil, false, fmt.Errorf("seek: page %d: %w", aPage.Index, err)
		}
	}
}

// SeekFirst returns a cursor pointing at the leftmost cell of the tree.
func (t *Table) SeekFirst(ctx context.Context) (*Cursor, error) {
	pageIdx := t.RootPageIdx
	for {
		aPage, err := t.pager.ReadPage(ctx, pageIdx)
		if err != nil {
			return nil, fmt.Errorf("seek first: %w", err)
		}

		if aPage.LeafNode != nil {
			return &Cursor{
				Table:      t,
				PageIdx:    pageIdx,
				CellIdx:    0,
				EndOfTable: aPage.LeafNode.Header.Cells == 0,
			}, nil
		}

		pageIdx, err = aPage.InternalNode.Child(0)
		if err != nil {
			return nil, fmt.Errorf("seek first: page %d: %w", aPage.Index, err)
		}
	}
}

// Insert stores a row under key. Nothing is modified when the key already
// exists or when there are not enough free pages left to split.
func (t *Table) Insert(ctx context.Context, key uint64, aRow Row) error {
	if err := aRow.Validate(); err != nil {
		return err
	}

	aCursor, found, err := t.Seek(ctx, key)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: %d", ErrDuplicateKey, key)
	}

	aPage, err := t.pager.ReadPage(ctx, aCursor.PageIdx)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if aPage.LeafNode.Header.Cells >= LeafNodeMaxCells {
		needed, err := t.pagesNeededForSplit(ctx, aPage)
		if err != nil {
			return err
		}
		if t.pager.TotalPages()+needed > t.pager.MaxPages() {
			return fmt.Errorf("%w: split needs %d more pages", ErrTableFull, needed)
		}
	}

	return aCursor.LeafNodeInsert(ctx, key, aRow)
}

// pagesNeededForSplit walks up from a full leaf and counts how many pages
// inserting into it would allocate: one per split node plus one more when
// the split reaches the root.
func (t *Table) pagesNeededForSplit(ctx context.Context, aLeafPage *Page) (uint32, error) {
	needed := uint32(1)
	if aLeafPage.isRoot() {
		return needed + 1, nil
	}

	parentIdx := aLeafPage.parent()
	for {
		aParentPage, err := t.pager.ReadPage(ctx, parentIdx)
		if err != nil {
			return 0, fmt.Errorf("pages needed for split: %w", err)
		}
		if aParentPage.InternalNode.Header.KeysNum < t.maxICells {
			return needed, nil
		}
		needed += 1
		if aParentPage.isRoot() {
			return needed + 1, nil
		}
		parentIdx = aParentPage.parent()
	}
}

// Find returns the row stored under key.
func (t *Table) Find(ctx context.Context, key uint64) (Row, error) {
	aCursor, found, err := t.Seek(ctx, key)
	if err != nil {
		return Row{}, err
	}
	if !found {
		return Row{}, fmt.Errorf("%w: key %d", ErrNotFound, key)
	}
	return aCursor.fetchRow(ctx)
}

// Scan returns an iterator over all rows in ascending key order. Pages are
// only read as the iterator advances.
func (t *Table) Scan(ctx context.Context) Iterator {
	var aCursor *Cursor
	return NewIterator(func(ctx context.Context) (Row, error) {
		if aCursor == nil {
			var err error
			aCursor, err = t.SeekFirst(ctx)
			if err != nil {
				return Row{}, err
			}
		}
		if aCursor.EndOfTable {
			return Row{}, ErrNoMoreRows
		}
		return aCursor.fetchRow(ctx)
	})
}

// Handle splitting the root.
// Old root copied to new page, becomes left child.
// Address of right child passed in.
// Re-initialize root page to contain the new root node.
// New root node points to two children.
func (t *Table) createNewRoot(ctx context.Context, rightChildPageIdx PageIndex) error {
	aRootPage, err := t.pager.ModifyPage(ctx, t.RootPageIdx)
	if err != nil {
		return fmt.Errorf("create new root: %w", err)
	}
	aRightChildPage, err := t.pager.ModifyPage(ctx, rightChildPageIdx)
	if err != nil {
		return fmt.Errorf("create new root: %w", err)
	}
	aLeftChildPage, err := t.pager.AllocatePage(ctx)
	if err != nil {
		return fmt.Errorf("create new root: %w", err)
	}

	t.logger.Sugar().With(
		"root_page_index", int(t.RootPageIdx),
		"left_page_index", int(aLeftChildPage.Index),
		"right_page_index", int(aRightChildPage.Index),
	).Debug("create new root")

	// Left child has data copied from old root
	aLeftChildPage.LeafNode = aRootPage.LeafNode
	aLeftChildPage.InternalNode = aRootPage.InternalNode
	if aLeftChildPage.LeafNode != nil {
		aLeftChildPage.LeafNode.Header.IsRoot = false
	}
	if aLeftChildPage.InternalNode != nil {
		aLeftChildPage.InternalNode.Header.IsRoot = false
		for _, childIdx := range aLeftChildPage.InternalNode.Children() {
			aChildPage, err := t.pager.ModifyPage(ctx, childIdx)
			if err != nil {
				return fmt.Errorf("create new root: %w", err)
			}
			aChildPage.setParent(aLeftChildPage.Index)
		}
	}

	leftChildMaxKey, err := t.GetMaxKey(ctx, aLeftChildPage)
	if err != nil {
		return fmt.Errorf("create new root: %w", err)
	}

	// Root node is a new internal node with one key and two children
	aRootPage.setInternal()
	aRootPage.InternalNode.Header.IsRoot = true
	aRootPage.InternalNode.Header.KeysNum = 1
	aRootPage.InternalNode.ICells[0] = ICell{
		Key:   leftChildMaxKey,
		Child: aLeftChildPage.Index,
	}
	aRootPage.InternalNode.Header.RightChild = aRightChildPage.Index

	aLeftChildPage.setParent(aRootPage.Index)
	aRightChildPage.setParent(aRootPage.Index)

	return nil
}

// insertChild adds newChildIdx to the parent directly to the right of
// leftChildIdx, which has just been split.
func (t *Table) insertChild(ctx context.Context, parentIdx, leftChildIdx, newChildIdx PageIndex) error {
	aParentPage, err := t.pager.ModifyPage(ctx, parentIdx)
	if err != nil {
		return fmt.Errorf("insert child: %w", err)
	}
	if aParentPage.InternalNode == nil {
		return fmt.Errorf("%w: parent page %d is not an internal node", ErrSchemaMismatch, parentIdx)
	}

	pos, err := aParentPage.InternalNode.IndexOfPage(leftChildIdx)
	if err != nil {
		return fmt.Errorf("insert child: %w: %w", ErrOutOfBounds, err)
	}

	aLeftChildPage, err := t.pager.ReadPage(ctx, leftChildIdx)
	if err != nil {
		return fmt.Errorf("insert child: %w", err)
	}
	leftMaxKey, err := t.GetMaxKey(ctx, aLeftChildPage)
	if err != nil {
		return fmt.Errorf("insert child: %w", err)
	}
	aNewChildPage, err := t.pager.ModifyPage(ctx, newChildIdx)
	if err != nil {
		return fmt.Errorf("insert child: %w", err)
	}
	newMaxKey, err := t.GetMaxKey(ctx, aNewChildPage)
	if err != nil {
		return fmt.Errorf("insert child: %w", err)
	}

	if aParentPage.InternalNode.Header.KeysNum >= t.maxICells {
		return t.internalNodeSplitInsert(ctx, aParentPage, pos, leftMaxKey, newChildIdx, newMaxKey)
	}

	aParentPage.InternalNode.InsertChildAfter(pos, leftMaxKey, newChildIdx, newMaxKey)
	aNewChildPage.setParent(parentIdx)

	return nil
}

// internalNodeSplitInsert splits a full internal node. The node keeps the
// left half of its children, a new sibling takes the right half, and the
// sibling is then inserted into the parent the same way a split leaf is.
func (t *Table) internalNodeSplitInsert(ctx context.Context, aSplitPage *Page, pos uint32, leftMaxKey uint64, newChildIdx PageIndex, newMaxKey uint64) error {
	aNode := aSplitPage.InternalNode

	// Flatten children into a single list, the key of the last one is unused
	children := make([]ICell, 0, aNode.Header.KeysNum+2)
	children = append(children, aNode.ICells[0:aNode.Header.KeysNum]...)
	children = append(children, ICell{Child: aNode.Header.RightChild})
	children[pos].Key = leftMaxKey
	children = slices.Insert(children, int(pos)+1, ICell{Key: newMaxKey, Child: newChildIdx})

	aNewPage, err := t.pager.AllocatePage(ctx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}

	var (
		total           = uint32(len(children))
		rightSplitCount = (total + 1) / 2
		leftSplitCount  = total - rightSplitCount
	)

	t.logger.Sugar().With(
		"page_index", int(aSplitPage.Index),
		"new_page_index", int(aNewPage.Index),
		"left_children", int(leftSplitCount),
		"right_children", int(rightSplitCount),
	).Debug("internal node split insert")

	header := aNode.Header
	aSplitPage.InternalNode = newInternalNodeFrom(header.Header, children[:leftSplitCount])

	aNewPage.setInternal()
	aNewPage.InternalNode = newInternalNodeFrom(Header{IsInternal: true, Parent: header.Parent}, children[leftSplitCount:])

	// New child lands in the left half unless moved below
	aNewChildPage, err := t.pager.ModifyPage(ctx, newChildIdx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	aNewChildPage.setParent(aSplitPage.Index)

	for _, aCell := range children[leftSplitCount:] {
		aChildPage, err := t.pager.ModifyPage(ctx, aCell.Child)
		if err != nil {
			return fmt.Errorf("internal node split insert: %w", err)
		}
		aChildPage.setParent(aNewPage.Index)
	}

	if aSplitPage.isRoot() {
		return t.createNewRoot(ctx, aNewPage.Index)
	}

	return t.insertChild(ctx, header.Parent, aSplitPage.Index, aNewPage.Index)
}

func newInternalNodeFrom(header Header, children []ICell) *InternalNode {
	aNode := NewInternalNode()
	aNode.Header.Header = header
	aNode.Header.IsInternal = true
	last := len(children) - 1
	aNode.Header.KeysNum = uint32(copy(aNode.ICells[:], children[:last]))
	aNode.Header.RightChild = children[last].Child
	return aNode
}

// GetMaxKey returns the largest key stored in the subtree of a page.
func (t *Table) GetMaxKey(ctx context.Context, aPage *Page) (uint64, error) {
	if aPage.LeafNode != nil {
		if aPage.LeafNode.Header.Cells == 0 {
			return 0, fmt.Errorf("get max key: page %d is an empty leaf", aPage.Index)
		}
		return aPage.LeafNode.LastCell().Key, nil
	}

	if aPage.InternalNode.Header.RightChild == RightChildNotSet {
		return 0, fmt.Errorf("%w: internal page %d has no right child", ErrOutOfBounds, aPage.Index)
	}
	aRightChildPage, err := t.pager.ReadPage(ctx, aPage.InternalNode.Header.RightChild)
	if err != nil {
		return 0, fmt.Errorf("get max key: %w", err)
	}
	return t.GetMaxKey(ctx, aRightChildPage)
}

// BFS visits every page of the tree level by level, left to right.
// Depth of the root is 0.
func (t *Table) BFS(ctx context.Context, f func(aPage *Page, depth int) error) error {
	type item struct {
		pageIdx PageIndex
		depth   int
	}

	queue := []item{{pageIdx: t.RootPageIdx}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		aPage, err := t.pager.ReadPage(ctx, current.pageIdx)
		if err != nil {
			return fmt.Errorf("bfs: %w", err)
		}
		if err := f(aPage, current.depth); err != nil {
			return err
		}

		if aPage.InternalNode != nil {
			for _, childIdx := range aPage.InternalNode.Children() {
				queue = append(queue, item{pageIdx: childIdx, depth: current.depth + 1})
			}
		}
	}

	return nil
}

// Depth returns the number of levels in the tree, a single root leaf is 1.
func (t *Table) Depth(ctx context.Context) (int, error) {
	depth := 0
	pageIdx := t.RootPageIdx
	for {
		aPage, err := t.pager.ReadPage(ctx, pageIdx)
		if err != nil {
			return 0, fmt.Errorf("depth: %w", err)
		}
		depth += 1
		if aPage.LeafNode != nil {
			return depth, nil
		}
		pageIdx, err = aPage.InternalNode.Child(0)
		if err != nil {
			return 0, fmt.Errorf("depth: %w", err)
		}
	}
}

// LeafDepths returns the depth of every leaf in left to right order.
func (t *Table) LeafDepths(ctx context.Context) ([]int, error) {
	var depths []int
	if err := t.BFS(ctx, func(aPage *Page, depth int) error {
		if aPage.LeafNode != nil {
			depths = append(depths, depth+1)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return depths, nil
}

// Print writes the tree in the same indented format the REPL .btree
// command shows.
func (t *Table) Print(ctx context.Context, w io.Writer) error {
	return t.printPage(ctx, w, t.RootPageIdx, 0)
}

func (t *Table) printPage(ctx context.Context, w io.Writer, pageIdx PageIndex, level int) error {
	aPage, err := t.pager.ReadPage(ctx, pageIdx)
	if err != nil {
		return fmt.Errorf("print: %w", err)
	}

	indent := strings.Repeat("  ", level)
	if aPage.LeafNode != nil {
		fmt.Fprintf(w, "%s- leaf (size %d)\n", indent, aPage.LeafNode.Header.Cells)
		for _, key := range aPage.LeafNode.Keys() {
			fmt.Fprintf(w, "%s  - %d\n", indent, key)
		}
		return nil
	}

	aNode := aPage.InternalNode
	fmt.Fprintf(w, "%s- internal (size %d)\n", indent, aNode.Header.KeysNum)
	for idx := range aNode.Header.KeysNum {
		if err := t.printPage(ctx, w, aNode.ICells[idx].Child, level+1); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s  - key %d\n", indent, aNode.ICells[idx].Key)
	}
	if aNode.Header.RightChild != RightChildNotSet {
		return t.printPage(ctx, w, aNode.Header.RightChild, level+1)
	}
	return nil
}
