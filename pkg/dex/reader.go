package dex

import (
	"fmt"
	"iter"
	"sort"

	"github.com/apex/log"
	"github.com/kiwibrowser/android-sub011/internal/buffer"
)

// Reader enumerates the References of one type located in a window [lo, hi)
// in ascending location order. Windows never split the encoded bytes of a
// reference. Once GetNext reports false the reader is exhausted.
type Reader interface {
	GetNext() (Reference, bool)
}

// Collect drains r into a slice.
func Collect(r Reader) []Reference {
	var refs []Reference
	for ref, ok := r.GetNext(); ok; ref, ok = r.GetNext() {
		refs = append(refs, ref)
	}
	return refs
}

// All returns an iterator over the references remaining in r.
func All(r Reader) iter.Seq[Reference] {
	return func(yield func(Reference) bool) {
		for ref, ok := r.GetNext(); ok; ref, ok = r.GetNext() {
			if !yield(ref) {
				return
			}
		}
	}
}

func hex32(v uint32) string {
	return fmt.Sprintf("%#08x", v)
}

func isSentinel(target uint32) bool {
	return target == SentinelOffset || target == SentinelIndex
}

// A mapper reads the encoded field at location and resolves it to a target
// offset. Sentinels are returned unresolved. It reports false if the field
// holds an out-of-range value.
type mapper func(location uint32) (uint32, bool)

// indexMapper resolves a width-byte index into the fixed-stride pool mi.
func indexMapper(image buffer.View, width uint32, mi MapItem, stride uint32) mapper {
	return func(location uint32) (uint32, bool) {
		idx, ok := image.ReadUint(location, width)
		if !ok {
			return 0, false
		}
		if idx == SentinelIndex {
			return idx, true
		}
		if idx >= mi.Size {
			return 0, false
		}
		return mi.Offset + idx*stride, true
	}
}

// offsetMapper resolves an absolute 32-bit offset.
func offsetMapper(image buffer.View) mapper {
	return func(location uint32) (uint32, bool) {
		target, ok := image.ReadUint(location, 4)
		if !ok {
			return 0, false
		}
		if target == SentinelOffset {
			return target, true
		}
		if target >= image.Size() {
			return 0, false
		}
		return target, true
	}
}

// relCodeMapper resolves a signed branch displacement of width bytes,
// counted in units from the start of the owning instruction, which lies
// operand bytes before location.
func relCodeMapper(image buffer.View, width, operand uint32) mapper {
	return func(location uint32) (uint32, bool) {
		delta, ok := image.ReadInt(location, width)
		if !ok || location < operand {
			return 0, false
		}
		target := int64(location-operand) + int64(delta)*instrUnitSize
		if target < 0 || target >= int64(image.Size()) {
			return 0, false
		}
		return uint32(target), true
	}
}

// itemReader visits one field at offset rel inside every item of a
// fixed-stride array.
type itemReader struct {
	hi     uint32
	base   uint32
	num    uint32
	stride uint32
	rel    uint32
	mapper mapper
	cur    uint32
}

func newItemReader(lo, hi uint32, mi MapItem, stride, rel uint32, m mapper) *itemReader {
	r := &itemReader{
		hi:     hi,
		base:   mi.Offset,
		num:    mi.Size,
		stride: stride,
		rel:    rel,
		mapper: m,
	}
	switch {
	case r.base == 0: // empty section
		r.cur = r.num
	case lo < r.base:
		r.cur = 0
	case lo < r.offsetOfIndex(r.num):
		r.cur = (lo - r.base) / r.stride
		// Advance if lo lies past the field.
		if lo > r.offsetOfIndex(r.cur)+r.rel {
			r.cur++
		}
	default:
		r.cur = r.num
	}
	return r
}

func (r *itemReader) offsetOfIndex(idx uint32) uint32 {
	return r.base + idx*r.stride
}

func (r *itemReader) GetNext() (Reference, bool) {
	for r.cur < r.num {
		location := r.offsetOfIndex(r.cur) + r.rel
		if location >= r.hi {
			break
		}
		target, ok := r.mapper(location)
		if !ok {
			log.WithField("location", hex32(location)).Warn("invalid item target")
			r.cur = r.num
			break
		}
		r.cur++
		if isSentinel(target) {
			continue
		}
		return Reference{Location: location, Target: target}, true
	}
	return Reference{}, false
}

// cachedItemListReader visits one field at offset rel inside every item
// whose offset was recorded by the prescanner.
type cachedItemListReader struct {
	hi      uint32
	rel     uint32
	offsets []uint32
	mapper  mapper
}

func newCachedItemListReader(lo, hi, rel uint32, offsets []uint32, m mapper) *cachedItemListReader {
	i := sort.Search(len(offsets), func(i int) bool { return offsets[i] > lo })
	// The field may lie past lo even when its item starts before it.
	if i > 0 && offsets[i-1]+rel >= lo {
		i--
	}
	return &cachedItemListReader{
		hi:      hi,
		rel:     rel,
		offsets: offsets[i:],
		mapper:  m,
	}
}

func (r *cachedItemListReader) GetNext() (Reference, bool) {
	for len(r.offsets) > 0 {
		location := r.offsets[0] + r.rel
		if location >= r.hi {
			break
		}
		target, ok := r.mapper(location)
		if !ok {
			log.WithField("location", hex32(location)).Warn("invalid item target")
			r.offsets = nil
			break
		}
		r.offsets = r.offsets[1:]
		if isSentinel(target) {
			continue
		}
		return Reference{Location: location, Target: target}, true
	}
	return Reference{}, false
}

// A filter decides whether a decoded instruction encodes a reference of one
// type, and if so returns the location of its operand.
type filter func(DecodedInstruction) (uint32, bool)

// opcodeFilter matches instructions of the given format whose base opcode
// is one of opcodes. The operand lies operand bytes into the instruction.
func opcodeFilter(format Format, operand uint32, opcodes ...uint8) filter {
	return func(v DecodedInstruction) (uint32, bool) {
		if v.Instr.Format != format {
			return 0, false
		}
		for _, op := range opcodes {
			if v.Instr.Opcode == op {
				return v.Offset + operand, true
			}
		}
		return 0, false
	}
}

// instructionReader decodes the code items overlapping [lo, hi) and emits
// the operands selected by its filter.
type instructionReader struct {
	image     buffer.View
	lo, hi    uint32
	codeItems []uint32
	filter    filter
	mapper    mapper
	decoder   *InstructionDecoder
}

func newInstructionReader(image buffer.View, lo, hi uint32, codeItems []uint32, f filter, m mapper) *instructionReader {
	r := &instructionReader{
		image:  image,
		lo:     lo,
		hi:     hi,
		filter: f,
		mapper: m,
	}
	if len(codeItems) == 0 {
		return r
	}
	// Find the code item containing lo.
	i := sort.Search(len(codeItems), func(i int) bool { return codeItems[i] > lo })
	if i > 0 {
		i--
	}
	r.decoder = newCodeItemDecoder(image, codeItems[i])
	r.codeItems = codeItems[i+1:]
	return r
}

func (r *instructionReader) GetNext() (Reference, bool) {
	for r.decoder != nil {
		for r.decoder.ReadNext() {
			v := r.decoder.Value()
			if v.Offset >= r.hi {
				r.decoder = nil
				return Reference{}, false
			}
			location, ok := r.filter(v)
			if !ok || location < r.lo {
				continue
			}
			if location >= r.hi {
				r.decoder = nil
				return Reference{}, false
			}
			target, ok := r.mapper(location)
			if !ok {
				log.WithField("location", hex32(location)).Warnf("invalid %s target", v.Instr.Name)
				r.decoder = nil
				return Reference{}, false
			}
			if isSentinel(target) {
				log.WithField("location", hex32(location)).Warnf("%s operand holds a sentinel", v.Instr.Name)
				r.decoder = nil
				return Reference{}, false
			}
			return Reference{Location: location, Target: target}, true
		}
		if len(r.codeItems) == 0 {
			r.decoder = nil
			break
		}
		r.decoder = newCodeItemDecoder(r.image, r.codeItems[0])
		r.codeItems = r.codeItems[1:]
	}
	return Reference{}, false
}
