// Package dex parses Dalvik Executable images into typed cross-references.
//
// A DEX file is a header followed by homogeneous sections located by a map
// list. Many fields in those sections point elsewhere in the file, either as
// an index into a fixed-size id table or as an absolute byte offset; method
// bodies additionally embed indices and relative branch displacements in
// their bytecode. The Disassembler exposes every such field as a Reference
// whose Target is always a byte offset, and can rewrite them in place.
package dex

import "errors"

// Map item type codes.
// https://source.android.com/docs/core/runtime/dex-format#type-codes
const (
	TypeHeaderItem               uint16 = 0x0000
	TypeStringIdItem             uint16 = 0x0001
	TypeTypeIdItem               uint16 = 0x0002
	TypeProtoIdItem              uint16 = 0x0003
	TypeFieldIdItem              uint16 = 0x0004
	TypeMethodIdItem             uint16 = 0x0005
	TypeClassDefItem             uint16 = 0x0006
	TypeCallSiteIdItem           uint16 = 0x0007
	TypeMethodHandleItem         uint16 = 0x0008
	TypeMapList                  uint16 = 0x1000
	TypeTypeList                 uint16 = 0x1001
	TypeAnnotationSetRefList     uint16 = 0x1002
	TypeAnnotationSetItem        uint16 = 0x1003
	TypeClassDataItem            uint16 = 0x2000
	TypeCodeItem                 uint16 = 0x2001
	TypeStringDataItem           uint16 = 0x2002
	TypeDebugInfoItem            uint16 = 0x2003
	TypeAnnotationItem           uint16 = 0x2004
	TypeEncodedArrayItem         uint16 = 0x2005
	TypeAnnotationsDirectoryItem uint16 = 0x2006
	TypeHiddenapiClassDataItem   uint16 = 0xF000
)

var mapItemTypeNames = map[uint16]string{
	TypeHeaderItem:               "header_item",
	TypeStringIdItem:             "string_id_item",
	TypeTypeIdItem:               "type_id_item",
	TypeProtoIdItem:              "proto_id_item",
	TypeFieldIdItem:              "field_id_item",
	TypeMethodIdItem:             "method_id_item",
	TypeClassDefItem:             "class_def_item",
	TypeCallSiteIdItem:           "call_site_id_item",
	TypeMethodHandleItem:         "method_handle_item",
	TypeMapList:                  "map_list",
	TypeTypeList:                 "type_list",
	TypeAnnotationSetRefList:     "annotation_set_ref_list",
	TypeAnnotationSetItem:        "annotation_set_item",
	TypeClassDataItem:            "class_data_item",
	TypeCodeItem:                 "code_item",
	TypeStringDataItem:           "string_data_item",
	TypeDebugInfoItem:            "debug_info_item",
	TypeAnnotationItem:           "annotation_item",
	TypeEncodedArrayItem:         "encoded_array_item",
	TypeAnnotationsDirectoryItem: "annotations_directory_item",
	TypeHiddenapiClassDataItem:   "hiddenapi_class_data_item",
}

// MapItemTypeName returns the DEX documentation name of a map item type code.
func MapItemTypeName(t uint16) string {
	if name, ok := mapItemTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

const (
	// SentinelOffset marks an absent item referenced by offset. 0 is never a
	// valid item offset since it points at the header magic.
	SentinelOffset uint32 = 0
	// SentinelIndex is NO_INDEX, marking an absent item referenced by index.
	// It is carried in offset space unchanged.
	SentinelIndex uint32 = 0xFFFFFFFF
)

// MaxItemListSize bounds the number of entries accepted in a map list.
const MaxItemListSize = 18

// Size of a Dalvik instruction unit in bytes.
const instrUnitSize = 2

// Fixed item sizes in bytes.
const (
	sizeofHeaderItem               = 0x70
	sizeofMapItem                  = 12
	sizeofStringIdItem             = 4
	sizeofTypeIdItem               = 4
	sizeofProtoIdItem              = 12
	sizeofFieldIdItem              = 8
	sizeofMethodIdItem             = 8
	sizeofClassDefItem             = 32
	sizeofTypeItem                 = 2
	sizeofAnnotationSetRefItem     = 4
	sizeofAnnotationOffItem        = 4
	sizeofAnnotationsDirectoryItem = 16
	sizeofFieldAnnotation          = 8
	sizeofMethodAnnotation         = 8
	sizeofParameterAnnotation      = 8
	sizeofCodeItem                 = 16
	sizeofTryItem                  = 8
)

// Offsets of reference-bearing fields inside fixed-size items.
const (
	offStringIdStringDataOff = 0

	offTypeIdDescriptorIdx = 0

	offProtoIdShortyIdx     = 0
	offProtoIdReturnTypeIdx = 4
	offProtoIdParametersOff = 8

	offFieldIdClassIdx = 0
	offFieldIdTypeIdx  = 2
	offFieldIdNameIdx  = 4

	offMethodIdClassIdx = 0
	offMethodIdProtoIdx = 2
	offMethodIdNameIdx  = 4

	offClassDefClassIdx        = 0
	offClassDefSuperclassIdx   = 8
	offClassDefInterfacesOff   = 12
	offClassDefSourceFileIdx   = 16
	offClassDefAnnotationsOff  = 20
	offClassDefClassDataOff    = 24
	offClassDefStaticValuesOff = 28

	offTypeItemTypeIdx = 0

	offAnnotationSetRefItemAnnotationsOff = 0
	offAnnotationOffItemAnnotationOff     = 0

	offAnnotationsDirectoryClassAnnotationsOff = 0

	offFieldAnnotationFieldIdx           = 0
	offFieldAnnotationAnnotationsOff     = 4
	offMethodAnnotationMethodIdx         = 0
	offMethodAnnotationAnnotationsOff    = 4
	offParameterAnnotationMethodIdx      = 0
	offParameterAnnotationAnnotationsOff = 4
)

// HeaderItem is the fixed header at the start of every DEX file.
type HeaderItem struct {
	Magic         [8]byte
	Checksum      uint32
	Signature     [20]byte
	FileSize      uint32
	HeaderSize    uint32
	EndianTag     uint32
	LinkSize      uint32
	LinkOff       uint32
	MapOff        uint32
	StringIdsSize uint32
	StringIdsOff  uint32
	TypeIdsSize   uint32
	TypeIdsOff    uint32
	ProtoIdsSize  uint32
	ProtoIdsOff   uint32
	FieldIdsSize  uint32
	FieldIdsOff   uint32
	MethodIdsSize uint32
	MethodIdsOff  uint32
	ClassDefsSize uint32
	ClassDefsOff  uint32
	DataSize      uint32
	DataOff       uint32
}

// MapItem locates one homogeneous section of a DEX file. Size is an element
// count, not a byte length.
type MapItem struct {
	Type   uint16
	Unused uint16
	Size   uint32
	Offset uint32
}

// AnnotationsDirectoryItem is the fixed header of an annotations_directory_item.
type AnnotationsDirectoryItem struct {
	ClassAnnotationsOff     uint32
	FieldsSize              uint32
	AnnotatedMethodsSize    uint32
	AnnotatedParametersSize uint32
}

// CodeItem is the fixed header of a code_item.
type CodeItem struct {
	RegistersSize uint16
	InsSize       uint16
	OutsSize      uint16
	TriesSize     uint16
	DebugInfoOff  uint32
	InsnsSize     uint32
}

var (
	ErrNotDex             = errors.New("dex: invalid magic")
	ErrUnsupportedVersion = errors.New("dex: unsupported version")
	ErrBadHeader          = errors.New("dex: invalid header")
	ErrBadMapList         = errors.New("dex: invalid map list")
	ErrBadMapItem         = errors.New("dex: map item does not fit image")
	ErrDuplicateMapItem   = errors.New("dex: duplicate map item type")
	ErrMissingMapItem     = errors.New("dex: required map item missing")
	ErrBadItemList        = errors.New("dex: invalid item list")
	ErrBadCodeItem        = errors.New("dex: invalid code item")
)
