package buffer

// Source is a forward-only cursor over a View. Every getter either succeeds
// and advances, or fails and leaves the cursor where it was.
type Source struct {
	image View
	pos   uint32
}

// NewSource returns a cursor positioned at off inside image. Offsets past
// the end are clamped so that every subsequent read fails.
func NewSource(image View, off uint32) Source {
	if off > image.Size() {
		off = image.Size()
	}
	return Source{image: image, pos: off}
}

// Offset returns the cursor position relative to the start of the image.
func (s *Source) Offset() uint32 { return s.pos }

// Remaining returns the number of unread bytes.
func (s *Source) Remaining() uint32 { return s.image.Size() - s.pos }

// Skip advances n bytes.
func (s *Source) Skip(n uint32) bool {
	if n > s.Remaining() {
		return false
	}
	s.pos += n
	return true
}

// AlignOn advances to the next multiple of align (a power of two) relative
// to the image start.
func (s *Source) AlignOn(align uint32) bool {
	aligned := (uint64(s.pos) + uint64(align) - 1) &^ (uint64(align) - 1)
	if aligned > uint64(s.image.Size()) {
		return false
	}
	s.pos = uint32(aligned)
	return true
}

// CoversArray reports whether num elements of eltSize fit in the unread bytes.
func (s *Source) CoversArray(num, eltSize uint32) bool {
	if eltSize == 0 {
		return false
	}
	return s.Remaining()/eltSize >= num
}

// SkipArray advances past num elements of eltSize bytes.
func (s *Source) SkipArray(num, eltSize uint32) bool {
	if !s.CoversArray(num, eltSize) {
		return false
	}
	s.pos += num * eltSize
	return true
}

// U16 reads a little-endian uint16.
func (s *Source) U16() (uint16, bool) {
	if s.Remaining() < 2 {
		return 0, false
	}
	v := s.image.U16(s.pos)
	s.pos += 2
	return v, true
}

// U32 reads a little-endian uint32.
func (s *Source) U32() (uint32, bool) {
	if s.Remaining() < 4 {
		return 0, false
	}
	v := s.image.U32(s.pos)
	s.pos += 4
	return v, true
}

func (s *Source) rest() []byte { return s.image.d[s.pos:] }

// Uleb128 reads an unsigned LEB128 value.
func (s *Source) Uleb128() (uint32, bool) {
	v, n, err := Uleb128(s.rest())
	if err != nil {
		return 0, false
	}
	s.pos += uint32(n)
	return v, true
}

// Sleb128 reads a signed LEB128 value.
func (s *Source) Sleb128() (int32, bool) {
	v, n, err := Sleb128(s.rest())
	if err != nil {
		return 0, false
	}
	s.pos += uint32(n)
	return v, true
}

// SkipLeb128 advances past one LEB128 value of either signedness.
func (s *Source) SkipLeb128() bool {
	n, err := SkipUleb128(s.rest())
	if err != nil {
		return false
	}
	s.pos += uint32(n)
	return true
}
