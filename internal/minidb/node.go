package minidb

import (
	"fmt"
)

// IndexOfChild returns the index of the child which should contain the given key.
// For example, if node has 2 keys, this could return 0 for the leftmost child,
// 1 for the middle child or 2 for the rightmost child.
// The returned value is not a node index!
func (n *InternalNode) IndexOfChild(key uint64) uint32 {
	// Binary search
	var (
		minIdx = uint32(0)
		maxIdx = n.Header.KeysNum
	)
	for minIdx != maxIdx {
		idx := (minIdx + maxIdx) / 2
		rightKey := n.ICells[idx].Key
		if rightKey >= key {
			maxIdx = idx
		} else {
			minIdx = idx + 1
		}
	}

	return minIdx
}

// IndexOfPage returns index of child which contains page number
func (n *InternalNode) IndexOfPage(pageIdx PageIndex) (uint32, error) {
	for idx, aCell := range n.ICells[0:n.Header.KeysNum] {
		if aCell.Child == pageIdx {
			return uint32(idx), nil
		}
	}
	if n.Header.RightChild == pageIdx {
		return n.Header.KeysNum, nil
	}
	return 0, fmt.Errorf("page %d is not a child of this node", pageIdx)
}

// Child returns a node index of nth child of the node marked by its index
// (0 for the leftmost child, index equal to number of keys means the rightmost child).
func (n *InternalNode) Child(childIdx uint32) (PageIndex, error) {
	keysNum := n.Header.KeysNum
	if childIdx > keysNum {
		return 0, fmt.Errorf("%w: childIdx %d out of keysNum %d", ErrOutOfBounds, childIdx, keysNum)
	}

	if childIdx == keysNum {
		if n.Header.RightChild == RightChildNotSet {
			return 0, fmt.Errorf("%w: internal node has no right child", ErrOutOfBounds)
		}
		return n.Header.RightChild, nil
	}

	return n.ICells[childIdx].Child, nil
}

// InsertChildAfter places newChild directly to the right of the child at pos.
// The child at pos gets leftMaxKey as its new separator, newMaxKey is only
// stored when newChild does not become the right child.
// The caller must make sure there is room for one more key.
func (n *InternalNode) InsertChildAfter(pos uint32, leftMaxKey uint64, newChild PageIndex, newMaxKey uint64) {
	if pos == n.Header.KeysNum {
		n.ICells[pos] = ICell{
			Key:   leftMaxKey,
			Child: n.Header.RightChild,
		}
		n.Header.RightChild = newChild
		n.Header.KeysNum += 1
		return
	}

	// Make room for the new cell
	for i := n.Header.KeysNum; i > pos+1; i-- {
		n.ICells[i] = n.ICells[i-1]
	}
	n.ICells[pos].Key = leftMaxKey
	n.ICells[pos+1] = ICell{
		Key:   newMaxKey,
		Child: newChild,
	}
	n.Header.KeysNum += 1
}

func (n *InternalNode) Keys() []uint64 {
	keys := make([]uint64, 0, n.Header.KeysNum)
	for idx := range n.Header.KeysNum {
		keys = append(keys, n.ICells[idx].Key)
	}
	return keys
}

func (n *InternalNode) Children() []PageIndex {
	children := make([]PageIndex, 0, n.Header.KeysNum+1)
	for idx := range n.Header.KeysNum {
		children = append(children, n.ICells[idx].Child)
	}
	if n.Header.RightChild != RightChildNotSet {
		children = append(children, n.Header.RightChild)
	}
	return children
}
