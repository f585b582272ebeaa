package minidb

import (
	"fmt"
)

const (
	// Header size: 6 (base header) + 8 (leaf header)
	LeafNodeHeaderSize = HeaderSize + 8
	// Key plus the encoded row
	LeafNodeCellSize = 8 + RowSize
	// (4096 - 14) / 299
	LeafNodeMaxCells = (PageSize - LeafNodeHeaderSize) / LeafNodeCellSize
)

type LeafNodeHeader struct {
	Header
	Cells    uint32
	NextLeaf PageIndex // 0 means there is no leaf to the right
}

func (h *LeafNodeHeader) Size() uint64 {
	return h.Header.Size() + 8
}

func (h *LeafNodeHeader) Marshal(buf []byte) ([]byte, error) {
	size := h.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	i := uint64(0)

	hbuf, err := h.Header.Marshal(buf[i:])
	if err != nil {
		return nil, err
	}
	i += uint64(len(hbuf))

	marshalUint32(buf, h.Cells, i)
	i += 4
	marshalUint32(buf, uint32(h.NextLeaf), i)

	return buf[:size], nil
}

func (h *LeafNodeHeader) Unmarshal(buf []byte) (uint64, error) {
	i := uint64(0)

	hi, err := h.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	h.Cells = unmarshalUint32(buf, i)
	i += 4
	h.NextLeaf = PageIndex(unmarshalUint32(buf, i))

	return h.Size(), nil
}

type Cell struct {
	Key   uint64
	Value [RowSize]byte
}

func (c *Cell) Size() uint64 {
	return LeafNodeCellSize
}

func (c *Cell) Marshal(buf []byte) ([]byte, error) {
	size := c.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	marshalUint64(buf, c.Key, 0)
	copy(buf[8:], c.Value[:])

	return buf[:size], nil
}

func (c *Cell) Unmarshal(buf []byte) (uint64, error) {
	if uint64(len(buf)) < c.Size() {
		return 0, fmt.Errorf("%w: cell needs %d bytes, got %d", ErrSchemaMismatch, c.Size(), len(buf))
	}

	c.Key = unmarshalUint64(buf, 0)
	copy(c.Value[:], buf[8:c.Size()])

	return c.Size(), nil
}

type LeafNode struct {
	Header LeafNodeHeader
	Cells  [LeafNodeMaxCells]Cell
}

func NewLeafNode(cells ...Cell) *LeafNode {
	aNode := LeafNode{}
	aNode.Header.Cells = uint32(copy(aNode.Cells[:], cells))
	return &aNode
}

func (n *LeafNode) Size() uint64 {
	return n.Header.Size() + uint64(n.Header.Cells)*LeafNodeCellSize
}

func (n *LeafNode) Marshal(buf []byte) ([]byte, error) {
	size := n.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	i := uint64(0)

	hbuf, err := n.Header.Marshal(buf[i:])
	if err != nil {
		return nil, err
	}
	i += uint64(len(hbuf))

	for idx := range n.Cells[0:n.Header.Cells] {
		cbuf, err := n.Cells[idx].Marshal(buf[i:])
		if err != nil {
			return nil, err
		}
		i += uint64(len(cbuf))
	}

	return buf[:i], nil
}

func (n *LeafNode) Unmarshal(buf []byte) (uint64, error) {
	i := uint64(0)

	hi, err := n.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	if n.Header.Cells > LeafNodeMaxCells {
		return 0, fmt.Errorf("%w: leaf node with %d cells, max is %d", ErrSchemaMismatch, n.Header.Cells, LeafNodeMaxCells)
	}

	for idx := range n.Cells[0:n.Header.Cells] {
		ci, err := n.Cells[idx].Unmarshal(buf[i:])
		if err != nil {
			return 0, err
		}
		i += ci
	}

	return i, nil
}

// Search returns the index of the cell holding key, or the index where the
// key would have to be inserted, and whether the key was found.
func (n *LeafNode) Search(key uint64) (uint32, bool) {
	var (
		minIdx uint32
		maxIdx = n.Header.Cells
	)
	for minIdx != maxIdx {
		idx := (minIdx + maxIdx) / 2
		cellKey := n.Cells[idx].Key
		if key == cellKey {
			return idx, true
		}
		if key < cellKey {
			maxIdx = idx
		} else {
			minIdx = idx + 1
		}
	}

	return minIdx, false
}

func (n *LeafNode) Keys() []uint64 {
	keys := make([]uint64, 0, n.Header.Cells)
	for idx := range n.Header.Cells {
		keys = append(keys, n.Cells[idx].Key)
	}
	return keys
}

func (n *LeafNode) LastCell() Cell {
	return n.Cells[n.Header.Cells-1]
}
