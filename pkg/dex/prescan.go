package dex

import (
	"fmt"

	"github.com/kiwibrowser/android-sub011/internal/buffer"
)

// parseItemOffsets walks a flattened jagged list of lists laid out as
//
//	NTTT|NTT|NTTTT|N|NTT...
//
// where N is a 4-byte aligned uint32 element count and T an element of
// itemWidth bytes. It returns the offset of every T, in ascending order.
func parseItemOffsets(image buffer.View, mi MapItem, itemWidth uint32) ([]uint32, error) {
	// The image must at least hold mi.Size copies of N.
	if !image.CoversArray(mi.Offset, mi.Size, 4) {
		return nil, fmt.Errorf("%w: %s at %#x with %d lists", ErrBadItemList, MapItemTypeName(mi.Type), mi.Offset, mi.Size)
	}

	src := buffer.NewSource(image, mi.Offset)
	var offsets []uint32
	for i := uint32(0); i < mi.Size; i++ {
		if !src.AlignOn(4) {
			return nil, fmt.Errorf("%w: %s list %d misaligned", ErrBadItemList, MapItemTypeName(mi.Type), i)
		}
		count, ok := src.U32()
		if !ok {
			return nil, fmt.Errorf("%w: %s list %d size truncated", ErrBadItemList, MapItemTypeName(mi.Type), i)
		}
		if !src.CoversArray(count, itemWidth) {
			return nil, fmt.Errorf("%w: %s list %d at %#x claims %d items", ErrBadItemList, MapItemTypeName(mi.Type), i, src.Offset()-4, count)
		}
		for j := uint32(0); j < count; j++ {
			offsets = append(offsets, src.Offset())
			src.Skip(itemWidth)
		}
	}
	return offsets, nil
}

// annotationsDirectoryOffsets holds the prescanned layout of every
// annotations_directory_item, which follow the pattern (AF*M*P*)*.
type annotationsDirectoryOffsets struct {
	items      []uint32 // A: directory headers
	fields     []uint32 // F: field_annotation
	methods    []uint32 // M: method_annotation
	parameters []uint32 // P: parameter_annotation
}

func parseAnnotationsDirectoryItems(image buffer.View, mi MapItem) (*annotationsDirectoryOffsets, error) {
	if !image.CoversArray(mi.Offset, mi.Size, sizeofAnnotationsDirectoryItem) {
		return nil, fmt.Errorf("%w: annotations directory at %#x with %d items", ErrBadItemList, mi.Offset, mi.Size)
	}

	src := buffer.NewSource(image, mi.Offset)
	out := &annotationsDirectoryOffsets{
		items: make([]uint32, 0, mi.Size),
	}

	parseList := func(count, width uint32, offsets *[]uint32) bool {
		if !src.CoversArray(count, width) {
			return false
		}
		for k := uint32(0); k < count; k++ {
			*offsets = append(*offsets, src.Offset())
			src.Skip(width)
		}
		return true
	}

	for i := uint32(0); i < mi.Size; i++ {
		if !src.AlignOn(4) {
			return nil, fmt.Errorf("%w: annotations directory %d misaligned", ErrBadItemList, i)
		}
		base := src.Offset()
		if src.Remaining() < sizeofAnnotationsDirectoryItem {
			return nil, fmt.Errorf("%w: annotations directory %d truncated", ErrBadItemList, i)
		}
		hdr := AnnotationsDirectoryItem{
			ClassAnnotationsOff:     image.U32(base),
			FieldsSize:              image.U32(base + 4),
			AnnotatedMethodsSize:    image.U32(base + 8),
			AnnotatedParametersSize: image.U32(base + 12),
		}
		out.items = append(out.items, base)
		src.Skip(sizeofAnnotationsDirectoryItem)

		if !parseList(hdr.FieldsSize, sizeofFieldAnnotation, &out.fields) ||
			!parseList(hdr.AnnotatedMethodsSize, sizeofMethodAnnotation, &out.methods) ||
			!parseList(hdr.AnnotatedParametersSize, sizeofParameterAnnotation, &out.parameters) {
			return nil, fmt.Errorf("%w: annotations directory at %#x has oversized sub-list", ErrBadItemList, base)
		}
	}
	return out, nil
}
