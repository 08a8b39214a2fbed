package dex

import (
	"fmt"

	"github.com/kiwibrowser/android-sub011/internal/buffer"
)

// codeItemScanner extracts successive code items from the code section of a
// parsed image. Only enough is decoded to find where the next item starts:
//
//	struct code_item {              // 4-byte aligned
//	  uint16 registers_size, ins_size, outs_size, tries_size;
//	  uint32 debug_info_off, insns_size;
//	  uint16 insns[insns_size];
//	  uint16 padding;               // iff tries_size > 0 && insns_size is odd
//	  try_item tries[tries_size];   // 8 bytes each
//	  encoded_catch_handler_list {  // iff tries_size > 0
//	    uleb128 size;
//	    encoded_catch_handler {
//	      sleb128 size;             // <= 0 means a catch-all follows
//	      { uleb128 type_idx, addr } handlers[abs(size)];
//	      uleb128 catch_all_addr;   // iff size <= 0
//	    } list[size];
//	  }
//	}
type codeItemScanner struct {
	image buffer.View
	src   buffer.Source
}

func newCodeItemScanner(image buffer.View, mi MapItem) (*codeItemScanner, error) {
	// Quick rejection of an absurd count; every item is at least a header.
	if !image.CoversArray(mi.Offset, mi.Size, sizeofCodeItem) {
		return nil, fmt.Errorf("%w: code section at %#x with %d items", ErrBadCodeItem, mi.Offset, mi.Size)
	}
	return &codeItemScanner{
		image: image,
		src:   buffer.NewSource(image, mi.Offset),
	}, nil
}

func readCodeItem(image buffer.View, off uint32) (CodeItem, bool) {
	if !image.Covers(off, sizeofCodeItem) {
		return CodeItem{}, false
	}
	return CodeItem{
		RegistersSize: image.U16(off),
		InsSize:       image.U16(off + 2),
		OutsSize:      image.U16(off + 4),
		TriesSize:     image.U16(off + 6),
		DebugInfoOff:  image.U32(off + 8),
		InsnsSize:     image.U32(off + 12),
	}, true
}

// next returns the offset of the next code item. Instruction contents are
// still untrusted afterwards; only the structure has been bounds checked.
func (s *codeItemScanner) next() (uint32, error) {
	if !s.src.AlignOn(4) {
		return 0, fmt.Errorf("%w: misaligned at %#x", ErrBadCodeItem, s.src.Offset())
	}
	off := s.src.Offset()
	item, ok := readCodeItem(s.image, off)
	if !ok {
		return 0, fmt.Errorf("%w: header truncated at %#x", ErrBadCodeItem, off)
	}
	s.src.Skip(sizeofCodeItem)

	if !s.src.SkipArray(item.InsnsSize, instrUnitSize) {
		return 0, fmt.Errorf("%w: %d instruction units at %#x overrun image", ErrBadCodeItem, item.InsnsSize, off)
	}
	if item.TriesSize == 0 {
		return off, nil
	}

	// Padding.
	if !s.src.AlignOn(4) {
		return 0, fmt.Errorf("%w: padding truncated at %#x", ErrBadCodeItem, off)
	}
	if !s.src.SkipArray(uint32(item.TriesSize), sizeofTryItem) {
		return 0, fmt.Errorf("%w: %d try items at %#x overrun image", ErrBadCodeItem, item.TriesSize, off)
	}

	handlersSize, ok := s.src.Uleb128()
	if !ok {
		return 0, fmt.Errorf("%w: bad handler list size in code item at %#x", ErrBadCodeItem, off)
	}
	// Each handler takes at least one byte.
	if s.src.Remaining() < handlersSize {
		return 0, fmt.Errorf("%w: %d handlers in code item at %#x overrun image", ErrBadCodeItem, handlersSize, off)
	}
	for k := uint32(0); k < handlersSize; k++ {
		size, ok := s.src.Sleb128()
		if !ok {
			return 0, fmt.Errorf("%w: bad handler size in code item at %#x", ErrBadCodeItem, off)
		}
		abs := int64(size)
		if abs < 0 {
			abs = -abs
		}
		if int64(s.src.Remaining()) < abs {
			return 0, fmt.Errorf("%w: handler with %d pairs in code item at %#x overruns image", ErrBadCodeItem, abs, off)
		}
		for j := int64(0); j < abs; j++ {
			if !s.src.SkipLeb128() || !s.src.SkipLeb128() {
				return 0, fmt.Errorf("%w: truncated type/addr pair in code item at %#x", ErrBadCodeItem, off)
			}
		}
		if size <= 0 && !s.src.SkipLeb128() {
			return 0, fmt.Errorf("%w: truncated catch-all in code item at %#x", ErrBadCodeItem, off)
		}
	}
	return off, nil
}

// codeItemInsns returns the byte range [begin, end) of the instructions of
// the code item at off, clamped to the image. Both are off if no code item
// header fits there.
func codeItemInsns(image buffer.View, off uint32) (begin, end uint32) {
	item, ok := readCodeItem(image, off)
	if !ok {
		return off, off
	}
	begin = off + sizeofCodeItem
	end = uint32(min(uint64(begin)+uint64(item.InsnsSize)*instrUnitSize, uint64(image.Size())))
	return begin, end
}
