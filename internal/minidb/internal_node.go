package minidb

import (
	"fmt"
	"math"
)

const (
	// Header size: 6 (base header) + 8 (internal header)
	InternalNodeHeaderSize = HeaderSize + 8
	// Key plus child page index
	ICellSize = 12
	// (4096 - 14) / 12
	InternalNodeMaxCells = (PageSize - InternalNodeHeaderSize) / ICellSize
)

const RightChildNotSet = PageIndex(math.MaxUint32)

type InternalNodeHeader struct {
	Header
	KeysNum    uint32
	RightChild PageIndex
}

func (h *InternalNodeHeader) Size() uint64 {
	return h.Header.Size() + 8
}

func (h *InternalNodeHeader) Marshal(buf []byte) ([]byte, error) {
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

	marshalUint32(buf, h.KeysNum, i)
	i += 4
	marshalUint32(buf, uint32(h.RightChild), i)

	return buf[:size], nil
}

func (h *InternalNodeHeader) Unmarshal(buf []byte) (uint64, error) {
	i := uint64(0)

	hi, err := h.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	h.KeysNum = unmarshalUint32(buf, i)
	i += 4
	h.RightChild = PageIndex(unmarshalUint32(buf, i))

	return h.Size(), nil
}

// ICell points to a child page, Key is the largest key stored in the
// child's subtree.
type ICell struct {
	Key   uint64
	Child PageIndex
}

func (c *ICell) Size() uint64 {
	return ICellSize
}

func (c *ICell) Marshal(buf []byte) ([]byte, error) {
	size := c.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	marshalUint64(buf, c.Key, 0)
	marshalUint32(buf, uint32(c.Child), 8)

	return buf[:size], nil
}

func (c *ICell) Unmarshal(buf []byte) (uint64, error) {
	c.Key = unmarshalUint64(buf, 0)
	c.Child = PageIndex(unmarshalUint32(buf, 8))

	return c.Size(), nil
}

type InternalNode struct {
	Header InternalNodeHeader
	ICells [InternalNodeMaxCells]ICell
}

func NewInternalNode() *InternalNode {
	aNode := InternalNode{
		Header: InternalNodeHeader{
			Header: Header{
				IsInternal: true,
			},
			RightChild: RightChildNotSet,
		},
	}
	return &aNode
}

func (n *InternalNode) Size() uint64 {
	return n.Header.Size() + uint64(n.Header.KeysNum)*ICellSize
}

func (n *InternalNode) Marshal(buf []byte) ([]byte, error) {
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

	for idx := range n.ICells[0:n.Header.KeysNum] {
		icbuf, err := n.ICells[idx].Marshal(buf[i:])
		if err != nil {
			return nil, err
		}
		i += uint64(len(icbuf))
	}

	return buf[:i], nil
}

func (n *InternalNode) Unmarshal(buf []byte) (uint64, error) {
	i := uint64(0)

	hi, err := n.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	if n.Header.KeysNum > InternalNodeMaxCells {
		return 0, fmt.Errorf("%w: internal node with %d keys, max is %d", ErrSchemaMismatch, n.Header.KeysNum, InternalNodeMaxCells)
	}

	for idx := range n.ICells[0:n.Header.KeysNum] {
		ci, err := n.ICells[idx].Unmarshal(buf[i:])
		if err != nil {
			return 0, err
		}
		i += ci
	}

	return i, nil
}
