package classfile

import (
	"encoding/binary"
	"errors"
)

var (
	ErrTruncated = errors.New("classfile: unexpected end of data")
	ErrBadMagic  = errors.New("classfile: bad magic number")
)

// reader is a big-endian cursor over class file bytes. The first failure is
// sticky: later reads return zero values and err keeps the original cause and
// the offset it happened at.
type reader struct {
	data   []byte
	pos    int
	err    error
	errPos int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
		r.errPos = r.pos
	}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.fail(ErrTruncated)
		return false
	}
	return true
}

func (r *reader) u1() uint8 {
	if !r.need(1) {
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) u8() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

// bytes returns a sub-slice without copying
func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) skip(n int) {
	if r.need(n) {
		r.pos += n
	}
}
