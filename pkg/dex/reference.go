package dex

import (
	"fmt"
	"strings"
)

// ReferencePool identifies the section that references resolve into. Pools
// follow the order of the DEX type codes.
type ReferencePool uint8

const (
	PoolStringId ReferencePool = iota
	PoolTypeId
	PoolProtoId
	PoolFieldId
	PoolMethodId
	PoolTypeList
	PoolAnnotationSetRefList
	PoolAnnotationSet
	PoolClassData
	PoolCode
	PoolStringData
	PoolAnnotation
	PoolEncodedArray
	PoolAnnotationsDirectory
	NumPools
)

var poolNames = [NumPools]string{
	"StringId",
	"TypeId",
	"ProtoId",
	"FieldId",
	"MethodId",
	"TypeList",
	"AnnotationSetRefList",
	"AnnotationSet",
	"ClassData",
	"Code",
	"StringData",
	"Annotation",
	"EncodedArray",
	"AnnotationsDirectory",
}

func (p ReferencePool) String() string {
	if p < NumPools {
		return poolNames[p]
	}
	return fmt.Sprintf("ReferencePool(%d)", uint8(p))
}

// ReferenceType is one kind of cross-reference. Types are grouped and
// ordered by target pool, so that visiting types in order visits pools in
// order.
type ReferenceType uint8

const (
	TypeIdToDescriptorStringId ReferenceType = iota // PoolStringId
	ProtoIdToShortyStringId
	FieldIdToNameStringId
	MethodIdToNameStringId
	ClassDefToSourceFileStringId
	CodeToStringId16
	CodeToStringId32

	ProtoIdToReturnTypeId // PoolTypeId
	FieldIdToClassTypeId
	FieldIdToTypeId
	MethodIdToClassTypeId
	ClassDefToClassTypeId
	ClassDefToSuperClassTypeId
	TypeListToTypeId
	CodeToTypeId

	MethodIdToProtoId // PoolProtoId

	CodeToFieldId // PoolFieldId
	AnnotationsDirectoryToFieldId

	CodeToMethodId // PoolMethodId
	AnnotationsDirectoryToMethodId
	AnnotationsDirectoryToParameterMethodId

	ProtoIdToParametersTypeList // PoolTypeList
	ClassDefToInterfacesTypeList

	AnnotationsDirectoryToParameterAnnotationSetRef // PoolAnnotationSetRefList

	AnnotationSetRefListToAnnotationSet // PoolAnnotationSet
	AnnotationsDirectoryToClassAnnotationSet
	AnnotationsDirectoryToFieldAnnotationSet
	AnnotationsDirectoryToMethodAnnotationSet

	ClassDefToClassData // PoolClassData

	CodeToRelCode8 // PoolCode
	CodeToRelCode16
	CodeToRelCode32

	StringIdToStringData // PoolStringData

	AnnotationSetToAnnotation // PoolAnnotation

	ClassDefToStaticValuesEncodedArray // PoolEncodedArray

	ClassDefToAnnotationDirectory // PoolAnnotationsDirectory

	NumTypes
)

// typeInfo is the static description of every ReferenceType: its name, the
// width in bytes of its encoded field, and its target pool.
var typeInfo = [NumTypes]struct {
	name  string
	width uint32
	pool  ReferencePool
}{
	TypeIdToDescriptorStringId:   {"TypeIdToDescriptorStringId", 4, PoolStringId},
	ProtoIdToShortyStringId:      {"ProtoIdToShortyStringId", 4, PoolStringId},
	FieldIdToNameStringId:        {"FieldIdToNameStringId", 4, PoolStringId},
	MethodIdToNameStringId:       {"MethodIdToNameStringId", 4, PoolStringId},
	ClassDefToSourceFileStringId: {"ClassDefToSourceFileStringId", 4, PoolStringId},
	CodeToStringId16:             {"CodeToStringId16", 2, PoolStringId},
	CodeToStringId32:             {"CodeToStringId32", 4, PoolStringId},

	ProtoIdToReturnTypeId:      {"ProtoIdToReturnTypeId", 4, PoolTypeId},
	FieldIdToClassTypeId:       {"FieldIdToClassTypeId", 2, PoolTypeId},
	FieldIdToTypeId:            {"FieldIdToTypeId", 2, PoolTypeId},
	MethodIdToClassTypeId:      {"MethodIdToClassTypeId", 2, PoolTypeId},
	ClassDefToClassTypeId:      {"ClassDefToClassTypeId", 4, PoolTypeId},
	ClassDefToSuperClassTypeId: {"ClassDefToSuperClassTypeId", 4, PoolTypeId},
	TypeListToTypeId:           {"TypeListToTypeId", 2, PoolTypeId},
	CodeToTypeId:               {"CodeToTypeId", 2, PoolTypeId},

	MethodIdToProtoId: {"MethodIdToProtoId", 2, PoolProtoId},

	CodeToFieldId:                 {"CodeToFieldId", 2, PoolFieldId},
	AnnotationsDirectoryToFieldId: {"AnnotationsDirectoryToFieldId", 4, PoolFieldId},

	CodeToMethodId:                          {"CodeToMethodId", 2, PoolMethodId},
	AnnotationsDirectoryToMethodId:          {"AnnotationsDirectoryToMethodId", 4, PoolMethodId},
	AnnotationsDirectoryToParameterMethodId: {"AnnotationsDirectoryToParameterMethodId", 4, PoolMethodId},

	ProtoIdToParametersTypeList:  {"ProtoIdToParametersTypeList", 4, PoolTypeList},
	ClassDefToInterfacesTypeList: {"ClassDefToInterfacesTypeList", 4, PoolTypeList},

	AnnotationsDirectoryToParameterAnnotationSetRef: {"AnnotationsDirectoryToParameterAnnotationSetRef", 4, PoolAnnotationSetRefList},

	AnnotationSetRefListToAnnotationSet:       {"AnnotationSetRefListToAnnotationSet", 4, PoolAnnotationSet},
	AnnotationsDirectoryToClassAnnotationSet:  {"AnnotationsDirectoryToClassAnnotationSet", 4, PoolAnnotationSet},
	AnnotationsDirectoryToFieldAnnotationSet:  {"AnnotationsDirectoryToFieldAnnotationSet", 4, PoolAnnotationSet},
	AnnotationsDirectoryToMethodAnnotationSet: {"AnnotationsDirectoryToMethodAnnotationSet", 4, PoolAnnotationSet},

	ClassDefToClassData: {"ClassDefToClassData", 4, PoolClassData},

	CodeToRelCode8:  {"CodeToRelCode8", 1, PoolCode},
	CodeToRelCode16: {"CodeToRelCode16", 2, PoolCode},
	CodeToRelCode32: {"CodeToRelCode32", 4, PoolCode},

	StringIdToStringData: {"StringIdToStringData", 4, PoolStringData},

	AnnotationSetToAnnotation: {"AnnotationSetToAnnotation", 4, PoolAnnotation},

	ClassDefToStaticValuesEncodedArray: {"ClassDefToStaticValuesEncodedArray", 4, PoolEncodedArray},

	ClassDefToAnnotationDirectory: {"ClassDefToAnnotationDirectory", 4, PoolAnnotationsDirectory},
}

func init() {
	// Pools must be visited in order when types are visited in order.
	for t := ReferenceType(1); t < NumTypes; t++ {
		if typeInfo[t].pool < typeInfo[t-1].pool {
			panic(fmt.Sprintf("dex: %s is out of pool order", typeInfo[t].name))
		}
	}
}

func (t ReferenceType) String() string {
	if t < NumTypes {
		return typeInfo[t].name
	}
	return fmt.Sprintf("ReferenceType(%d)", uint8(t))
}

// Pool returns the pool that references of type t resolve into.
func (t ReferenceType) Pool() ReferencePool {
	return typeInfo[t].pool
}

// Width returns the size in bytes of the encoded field of type t.
func (t ReferenceType) Width() uint32 {
	return typeInfo[t].width
}

// ReferenceTypeFromString looks up a ReferenceType by name, ignoring case.
func ReferenceTypeFromString(name string) (ReferenceType, error) {
	for t := ReferenceType(0); t < NumTypes; t++ {
		if strings.EqualFold(typeInfo[t].name, name) {
			return t, nil
		}
	}
	return NumTypes, fmt.Errorf("unknown reference type %q", name)
}

// Traits describes a ReferenceType for consumers that visit every type.
type Traits struct {
	Width uint32
	Type  ReferenceType
	Pool  ReferencePool
}

// TypeTraits returns the traits of t.
func TypeTraits(t ReferenceType) Traits {
	return Traits{Width: t.Width(), Type: t, Pool: t.Pool()}
}

// Reference is a cross-reference found in an image. Location is the offset
// of the encoded field; Target is the offset of the item it denotes.
type Reference struct {
	Location uint32 `json:"location" yaml:"location"`
	Target   uint32 `json:"target" yaml:"target"`
}

func (r Reference) String() string {
	return fmt.Sprintf("%#08x -> %#08x", r.Location, r.Target)
}
