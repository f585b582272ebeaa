package minidb

type Header struct {
	IsInternal bool
	IsRoot     bool
	Parent     PageIndex
}

const HeaderSize = 6

func (h *Header) Size() uint64 {
	return HeaderSize
}

func (h *Header) Marshal(buf []byte) ([]byte, error) {
	size := h.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	buf[0] = boolToByte(h.IsInternal)
	buf[1] = boolToByte(h.IsRoot)
	marshalUint32(buf, uint32(h.Parent), 2)

	return buf[:size], nil
}

func (h *Header) Unmarshal(buf []byte) (uint64, error) {
	h.IsInternal = buf[0] == 1
	h.IsRoot = buf[1] == 1
	h.Parent = PageIndex(unmarshalUint32(buf, 2))

	return h.Size(), nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func marshalUint32(buf []byte, n uint32, i uint64) []byte {
	buf[i+0] = byte(n >> 0)
	buf[i+1] = byte(n >> 8)
	buf[i+2] = byte(n >> 16)
	buf[i+3] = byte(n >> 24)
	return buf
}

func unmarshalUint32(buf []byte, i uint64) uint32 {
	return 0 |
		(uint32(buf[i+0]) << 0) |
		(uint32(buf[i+1]) << 8) |
		(uint32(buf[i+2]) << 16) |
		(uint32(buf[i+3]) << 24)
}

func marshalUint64(buf []byte, n uint64, i uint64) []byte {
	buf[i+0] = byte(n >> 0)
	buf[i+1] = byte(n >> 8)
	buf[i+2] = byte(n >> 16)
	buf[i+3] = byte(n >> 24)
	buf[i+4] = byte(n >> 32)
	buf[i+5] = byte(n >> 40)
	buf[i+6] = byte(n >> 48)
	buf[i+7] = byte(n >> 56)
	return buf
}

func unmarshalUint64(buf []byte, i uint64) uint64 {
	return 0 |
		(uint64(buf[i+0]) << 0) |
		(uint64(buf[i+1]) << 8) |
		(uint64(buf[i+2]) << 16) |
		(uint64(buf[i+3]) << 24) |
		(uint64(buf[i+4]) << 32) |
		(uint64(buf[i+5]) << 40) |
		(uint64(buf[i+6]) << 48) |
		(uint64(buf[i+7]) << 56)
}
