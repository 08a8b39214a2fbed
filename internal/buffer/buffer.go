// Package buffer provides bounds-checked views over an in-memory executable image.
package buffer

import (
	"encoding/binary"
	"errors"
)

var (
	ErrOutOfRange = errors.New("buffer: offset out of range")
	ErrOverflow   = errors.New("buffer: value does not fit")
)

// View is a read-only window over an image. Offsets are relative to the
// start of the window. The zero value is an empty view.
type View struct {
	d []byte
}

// NewView returns a View backed by b. The caller must not mutate b while
// the view is in use.
func NewView(b []byte) View {
	return View{d: b}
}

// Size returns the number of bytes in the view.
func (v View) Size() uint32 { return uint32(len(v.d)) }

// Bytes returns the view's underlying data.
func (v View) Bytes() []byte { return v.d }

// Shrink truncates the view to at most n bytes.
func (v *View) Shrink(n uint32) {
	if n < uint32(len(v.d)) {
		v.d = v.d[:n]
	}
}

// Slice returns the sub-view [off, off+n), or false if it does not fit.
func (v View) Slice(off, n uint32) (View, bool) {
	if off > v.Size() || n > v.Size()-off {
		return View{}, false
	}
	return View{d: v.d[off : off+n]}, true
}

// Covers reports whether the region [off, off+size) lies inside the view.
// An offset equal to the end of the view is never covered.
func (v View) Covers(off, size uint32) bool {
	return off < v.Size() && size <= v.Size()-off
}

// CoversArray reports whether num elements of eltSize bytes starting at off
// fit inside the view. Division is used to avoid overflow.
func (v View) CoversArray(off, num, eltSize uint32) bool {
	if eltSize == 0 {
		return false
	}
	if num == 0 {
		return off <= v.Size()
	}
	return off < v.Size() && (v.Size()-off)/eltSize >= num
}

// U8 reads the byte at off. The caller must have validated off.
func (v View) U8(off uint32) uint8 { return v.d[off] }

// U16 reads a little-endian uint16 at off.
func (v View) U16(off uint32) uint16 { return binary.LittleEndian.Uint16(v.d[off:]) }

// U32 reads a little-endian uint32 at off.
func (v View) U32(off uint32) uint32 { return binary.LittleEndian.Uint32(v.d[off:]) }

func (v View) S8(off uint32) int8   { return int8(v.U8(off)) }
func (v View) S16(off uint32) int16 { return int16(v.U16(off)) }
func (v View) S32(off uint32) int32 { return int32(v.U32(off)) }

// ReadUint reads an unsigned little-endian integer of width bytes (1, 2 or 4)
// at off and widens it to uint32.
func (v View) ReadUint(off, width uint32) (uint32, bool) {
	if !v.Covers(off, width) {
		return 0, false
	}
	switch width {
	case 1:
		return uint32(v.U8(off)), true
	case 2:
		return uint32(v.U16(off)), true
	case 4:
		return v.U32(off), true
	}
	return 0, false
}

// ReadInt reads a signed little-endian integer of width bytes (1, 2 or 4)
// at off and sign-extends it.
func (v View) ReadInt(off, width uint32) (int32, bool) {
	if !v.Covers(off, width) {
		return 0, false
	}
	switch width {
	case 1:
		return int32(v.S8(off)), true
	case 2:
		return int32(v.S16(off)), true
	case 4:
		return v.S32(off), true
	}
	return 0, false
}

// MutableView is a writable window over an image. Writers need exclusive
// ownership of the backing bytes.
type MutableView struct {
	d []byte
}

// NewMutableView returns a MutableView backed by b.
func NewMutableView(b []byte) MutableView {
	return MutableView{d: b}
}

// Size returns the number of bytes in the view.
func (m MutableView) Size() uint32 { return uint32(len(m.d)) }

// Bytes returns the view's underlying data.
func (m MutableView) Bytes() []byte { return m.d }

// View returns a read-only view over the same bytes.
func (m MutableView) View() View { return View{d: m.d} }

// PutUint writes the low width bytes (1, 2 or 4) of val at off in
// little-endian order. Values that do not fit are rejected.
func (m MutableView) PutUint(off, width uint32, val uint64) error {
	if !m.View().Covers(off, width) {
		return ErrOutOfRange
	}
	switch width {
	case 1:
		if val > 0xFF {
			return ErrOverflow
		}
		m.d[off] = uint8(val)
	case 2:
		if val > 0xFFFF {
			return ErrOverflow
		}
		binary.LittleEndian.PutUint16(m.d[off:], uint16(val))
	case 4:
		if val > 0xFFFFFFFF {
			return ErrOverflow
		}
		binary.LittleEndian.PutUint32(m.d[off:], uint32(val))
	default:
		return ErrOverflow
	}
	return nil
}

// PutInt writes val as a signed little-endian integer of width bytes
// (1, 2 or 4) at off. Values that do not fit are rejected.
func (m MutableView) PutInt(off, width uint32, val int64) error {
	var lo, hi int64
	switch width {
	case 1:
		lo, hi = -1<<7, 1<<7-1
	case 2:
		lo, hi = -1<<15, 1<<15-1
	case 4:
		lo, hi = -1<<31, 1<<31-1
	default:
		return ErrOverflow
	}
	if val < lo || val > hi {
		return ErrOverflow
	}
	mask := uint64(1)<<(8*width) - 1
	return m.PutUint(off, width, uint64(val)&mask)
}
