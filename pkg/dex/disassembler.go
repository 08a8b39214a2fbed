package dex

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kiwibrowser/android-sub011/internal/buffer"
)

// Map item types that every parsed image must carry.
var requiredMapItems = []uint16{
	TypeStringIdItem,
	TypeTypeIdItem,
	TypeProtoIdItem,
	TypeFieldIdItem,
	TypeMethodIdItem,
	TypeClassDefItem,
	TypeTypeList,
	TypeCodeItem,
}

// Fixed-stride sections whose whole extent is checked against the image.
var mapItemStrides = map[uint16]uint32{
	TypeStringIdItem: sizeofStringIdItem,
	TypeTypeIdItem:   sizeofTypeIdItem,
	TypeProtoIdItem:  sizeofProtoIdItem,
	TypeFieldIdItem:  sizeofFieldIdItem,
	TypeMethodIdItem: sizeofMethodIdItem,
	TypeClassDefItem: sizeofClassDefItem,
}

// Disassembler holds the structure of a parsed DEX image. It is immutable
// once Parse returns and may be shared by concurrent readers, as long as
// the image is not written meanwhile.
type Disassembler struct {
	image   buffer.View
	header  *HeaderItem
	version int

	mapItems map[uint16]MapItem

	stringIds MapItem
	typeIds   MapItem
	protoIds  MapItem
	fieldIds  MapItem
	methodIds MapItem
	classDefs MapItem
	typeLists MapItem
	codeItems MapItem

	// Optional; zero when absent.
	annotationSetRefLists  MapItem
	annotationSets         MapItem
	annotationsDirectories MapItem

	// Sorted offsets of parsed items.
	codeItemOffsets             []uint32
	typeListOffsets             []uint32
	annotationSetRefListOffsets []uint32
	annotationSetOffsets        []uint32
	annotationsDirectory        annotationsDirectoryOffsets
}

// Parse validates image and prescans its variable-length sections. The
// image must not be modified while the Disassembler or its readers are in
// use.
func Parse(image []byte) (*Disassembler, error) {
	view := buffer.NewView(image)
	hdr, version, err := readHeader(view)
	if err != nil {
		return nil, err
	}
	// Ignore anything past the declared end of file.
	view.Shrink(hdr.FileSize)

	d := &Disassembler{
		image:    view,
		header:   hdr,
		version:  version,
		mapItems: make(map[uint16]MapItem),
	}
	if err := d.parseMapList(); err != nil {
		return nil, err
	}

	d.stringIds = d.mapItems[TypeStringIdItem]
	d.typeIds = d.mapItems[TypeTypeIdItem]
	d.protoIds = d.mapItems[TypeProtoIdItem]
	d.fieldIds = d.mapItems[TypeFieldIdItem]
	d.methodIds = d.mapItems[TypeMethodIdItem]
	d.classDefs = d.mapItems[TypeClassDefItem]
	d.typeLists = d.mapItems[TypeTypeList]
	d.codeItems = d.mapItems[TypeCodeItem]
	d.annotationSetRefLists = d.mapItems[TypeAnnotationSetRefList]
	d.annotationSets = d.mapItems[TypeAnnotationSetItem]
	d.annotationsDirectories = d.mapItems[TypeAnnotationsDirectoryItem]

	if err := d.prescan(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Disassembler) parseMapList() error {
	src := buffer.NewSource(d.image, d.header.MapOff)
	count, ok := src.U32()
	if !ok {
		return fmt.Errorf("%w: size at %#x truncated", ErrBadMapList, d.header.MapOff)
	}
	if count > MaxItemListSize {
		return fmt.Errorf("%w: %d items exceeds %d", ErrBadMapList, count, MaxItemListSize)
	}
	if !src.CoversArray(count, sizeofMapItem) {
		return fmt.Errorf("%w: %d items at %#x overrun image", ErrBadMapList, count, d.header.MapOff)
	}

	for i := uint32(0); i < count; i++ {
		var mi MapItem
		mi.Type, _ = src.U16()
		mi.Unused, _ = src.U16()
		mi.Size, _ = src.U32()
		mi.Offset, _ = src.U32()

		// Size is a count, so this only rejects absurd values.
		// TODO: bound variable-length sections by their prescanned extent.
		if !d.image.Covers(mi.Offset, mi.Size) {
			return fmt.Errorf("%w: %s at %#x with %d items", ErrBadMapItem, MapItemTypeName(mi.Type), mi.Offset, mi.Size)
		}
		if stride, ok := mapItemStrides[mi.Type]; ok && !d.image.CoversArray(mi.Offset, mi.Size, stride) {
			return fmt.Errorf("%w: %d %s at %#x", ErrBadMapItem, mi.Size, MapItemTypeName(mi.Type), mi.Offset)
		}
		if _, dup := d.mapItems[mi.Type]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateMapItem, MapItemTypeName(mi.Type))
		}
		d.mapItems[mi.Type] = mi
	}

	var missing []string
	for _, t := range requiredMapItems {
		if _, ok := d.mapItems[t]; !ok {
			missing = append(missing, MapItemTypeName(t))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingMapItem, strings.Join(missing, ", "))
	}
	return nil
}

// prescan records the offset of every item in the variable-length sections.
// Success means the structure is sound; the references these items hold
// are still validated when read.
func (d *Disassembler) prescan() (err error) {
	if d.typeListOffsets, err = parseItemOffsets(d.image, d.typeLists, sizeofTypeItem); err != nil {
		return err
	}
	if d.annotationSetRefListOffsets, err = parseItemOffsets(d.image, d.annotationSetRefLists, sizeofAnnotationSetRefItem); err != nil {
		return err
	}
	if d.annotationSetOffsets, err = parseItemOffsets(d.image, d.annotationSets, sizeofAnnotationOffItem); err != nil {
		return err
	}
	dirs, err := parseAnnotationsDirectoryItems(d.image, d.annotationsDirectories)
	if err != nil {
		return err
	}
	d.annotationsDirectory = *dirs

	scanner, err := newCodeItemScanner(d.image, d.codeItems)
	if err != nil {
		return err
	}
	d.codeItemOffsets = make([]uint32, d.codeItems.Size)
	for i := range d.codeItemOffsets {
		if d.codeItemOffsets[i], err = scanner.next(); err != nil {
			return err
		}
	}
	return nil
}

// Version returns the DEX format version, e.g. 35.
func (d *Disassembler) Version() int { return d.version }

// ExeTypeString describes the executable type.
func (d *Disassembler) ExeTypeString() string {
	return fmt.Sprintf("DEX (version %d)", d.version)
}

// Size returns the length of the image after truncation to the declared
// file size.
func (d *Disassembler) Size() uint32 { return d.image.Size() }

// Header returns a copy of the image header.
func (d *Disassembler) Header() HeaderItem { return *d.header }

// MapItems returns the map list sorted by offset.
func (d *Disassembler) MapItems() []MapItem {
	items := make([]MapItem, 0, len(d.mapItems))
	for _, mi := range d.mapItems {
		items = append(items, mi)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Offset == items[j].Offset {
			return items[i].Type < items[j].Type
		}
		return items[i].Offset < items[j].Offset
	})
	return items
}

// ItemCounts reports how many items the prescanner found per section.
type ItemCounts struct {
	CodeItems            int
	TypeItems            int
	AnnotationSetRefs    int
	AnnotationOffs       int
	AnnotationsDirs      int
	FieldAnnotations     int
	MethodAnnotations    int
	ParameterAnnotations int
}

// ItemCounts returns the prescanned item counts.
func (d *Disassembler) ItemCounts() ItemCounts {
	return ItemCounts{
		CodeItems:            len(d.codeItemOffsets),
		TypeItems:            len(d.typeListOffsets),
		AnnotationSetRefs:    len(d.annotationSetRefListOffsets),
		AnnotationOffs:       len(d.annotationSetOffsets),
		AnnotationsDirs:      len(d.annotationsDirectory.items),
		FieldAnnotations:     len(d.annotationsDirectory.fields),
		MethodAnnotations:    len(d.annotationsDirectory.methods),
		ParameterAnnotations: len(d.annotationsDirectory.parameters),
	}
}

// CodeItemOffsets returns the offset of every code item in ascending order.
func (d *Disassembler) CodeItemOffsets() []uint32 {
	return append([]uint32(nil), d.codeItemOffsets...)
}
