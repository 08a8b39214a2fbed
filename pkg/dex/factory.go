package dex

import "github.com/kiwibrowser/android-sub011/internal/buffer"

// Reader factories. These follow the order of reference locations in the
// image, which groups readers sharing one parsing strategy.

func (d *Disassembler) MakeReadStringIdToStringData(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.stringIds, sizeofStringIdItem, offStringIdStringDataOff, offsetMapper(d.image))
}

func (d *Disassembler) MakeReadTypeIdToDescriptorStringId32(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.typeIds, sizeofTypeIdItem, offTypeIdDescriptorIdx,
		indexMapper(d.image, 4, d.stringIds, sizeofStringIdItem))
}

func (d *Disassembler) MakeReadProtoIdToShortyStringId32(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.protoIds, sizeofProtoIdItem, offProtoIdShortyIdx,
		indexMapper(d.image, 4, d.stringIds, sizeofStringIdItem))
}

func (d *Disassembler) MakeReadProtoIdToReturnTypeId32(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.protoIds, sizeofProtoIdItem, offProtoIdReturnTypeIdx,
		indexMapper(d.image, 4, d.typeIds, sizeofTypeIdItem))
}

func (d *Disassembler) MakeReadProtoIdToParametersTypeList(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.protoIds, sizeofProtoIdItem, offProtoIdParametersOff, offsetMapper(d.image))
}

func (d *Disassembler) MakeReadFieldToClassTypeId16(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.fieldIds, sizeofFieldIdItem, offFieldIdClassIdx,
		indexMapper(d.image, 2, d.typeIds, sizeofTypeIdItem))
}

func (d *Disassembler) MakeReadFieldToTypeId16(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.fieldIds, sizeofFieldIdItem, offFieldIdTypeIdx,
		indexMapper(d.image, 2, d.typeIds, sizeofTypeIdItem))
}

func (d *Disassembler) MakeReadFieldToNameStringId32(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.fieldIds, sizeofFieldIdItem, offFieldIdNameIdx,
		indexMapper(d.image, 4, d.stringIds, sizeofStringIdItem))
}

func (d *Disassembler) MakeReadMethodIdToClassTypeId16(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.methodIds, sizeofMethodIdItem, offMethodIdClassIdx,
		indexMapper(d.image, 2, d.typeIds, sizeofTypeIdItem))
}

func (d *Disassembler) MakeReadMethodIdToProtoId16(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.methodIds, sizeofMethodIdItem, offMethodIdProtoIdx,
		indexMapper(d.image, 2, d.protoIds, sizeofProtoIdItem))
}

func (d *Disassembler) MakeReadMethodIdToNameStringId32(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.methodIds, sizeofMethodIdItem, offMethodIdNameIdx,
		indexMapper(d.image, 4, d.stringIds, sizeofStringIdItem))
}

func (d *Disassembler) MakeReadClassDefToClassTypeId32(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.classDefs, sizeofClassDefItem, offClassDefClassIdx,
		indexMapper(d.image, 4, d.typeIds, sizeofTypeIdItem))
}

func (d *Disassembler) MakeReadClassDefToSuperClassTypeId32(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.classDefs, sizeofClassDefItem, offClassDefSuperclassIdx,
		indexMapper(d.image, 4, d.typeIds, sizeofTypeIdItem))
}

func (d *Disassembler) MakeReadClassDefToInterfacesTypeList(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.classDefs, sizeofClassDefItem, offClassDefInterfacesOff, offsetMapper(d.image))
}

func (d *Disassembler) MakeReadClassDefToSourceFileStringId32(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.classDefs, sizeofClassDefItem, offClassDefSourceFileIdx,
		indexMapper(d.image, 4, d.stringIds, sizeofStringIdItem))
}

func (d *Disassembler) MakeReadClassDefToAnnotationDirectory(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.classDefs, sizeofClassDefItem, offClassDefAnnotationsOff, offsetMapper(d.image))
}

func (d *Disassembler) MakeReadClassDefToClassData(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.classDefs, sizeofClassDefItem, offClassDefClassDataOff, offsetMapper(d.image))
}

func (d *Disassembler) MakeReadClassDefToStaticValuesEncodedArray(lo, hi uint32) Reader {
	return newItemReader(lo, hi, d.classDefs, sizeofClassDefItem, offClassDefStaticValuesOff, offsetMapper(d.image))
}

func (d *Disassembler) MakeReadTypeListToTypeId16(lo, hi uint32) Reader {
	return newCachedItemListReader(lo, hi, offTypeItemTypeIdx, d.typeListOffsets,
		indexMapper(d.image, 2, d.typeIds, sizeofTypeIdItem))
}

func (d *Disassembler) MakeReadAnnotationSetToAnnotation(lo, hi uint32) Reader {
	return newCachedItemListReader(lo, hi, offAnnotationOffItemAnnotationOff, d.annotationSetOffsets, offsetMapper(d.image))
}

func (d *Disassembler) MakeReadAnnotationSetRefListToAnnotationSet(lo, hi uint32) Reader {
	return newCachedItemListReader(lo, hi, offAnnotationSetRefItemAnnotationsOff, d.annotationSetRefListOffsets, offsetMapper(d.image))
}

func (d *Disassembler) MakeReadAnnotationsDirectoryToClassAnnotationSet(lo, hi uint32) Reader {
	return newCachedItemListReader(lo, hi, offAnnotationsDirectoryClassAnnotationsOff, d.annotationsDirectory.items, offsetMapper(d.image))
}

func (d *Disassembler) MakeReadAnnotationsDirectoryToFieldId32(lo, hi uint32) Reader {
	return newCachedItemListReader(lo, hi, offFieldAnnotationFieldIdx, d.annotationsDirectory.fields,
		indexMapper(d.image, 4, d.fieldIds, sizeofFieldIdItem))
}

func (d *Disassembler) MakeReadAnnotationsDirectoryToFieldAnnotationSet(lo, hi uint32) Reader {
	return newCachedItemListReader(lo, hi, offFieldAnnotationAnnotationsOff, d.annotationsDirectory.fields, offsetMapper(d.image))
}

func (d *Disassembler) MakeReadAnnotationsDirectoryToMethodId32(lo, hi uint32) Reader {
	return newCachedItemListReader(lo, hi, offMethodAnnotationMethodIdx, d.annotationsDirectory.methods,
		indexMapper(d.image, 4, d.methodIds, sizeofMethodIdItem))
}

func (d *Disassembler) MakeReadAnnotationsDirectoryToMethodAnnotationSet(lo, hi uint32) Reader {
	return newCachedItemListReader(lo, hi, offMethodAnnotationAnnotationsOff, d.annotationsDirectory.methods, offsetMapper(d.image))
}

func (d *Disassembler) MakeReadAnnotationsDirectoryToParameterMethodId32(lo, hi uint32) Reader {
	return newCachedItemListReader(lo, hi, offParameterAnnotationMethodIdx, d.annotationsDirectory.parameters,
		indexMapper(d.image, 4, d.methodIds, sizeofMethodIdItem))
}

func (d *Disassembler) MakeReadAnnotationsDirectoryToParameterAnnotationSetRef(lo, hi uint32) Reader {
	return newCachedItemListReader(lo, hi, offParameterAnnotationAnnotationsOff, d.annotationsDirectory.parameters, offsetMapper(d.image))
}

// Operands of 21c and 31c instructions, e.g. BBBB in const-string vAA,
// string@BBBB, follow the first unit.

func (d *Disassembler) MakeReadCodeToStringId16(lo, hi uint32) Reader {
	return newInstructionReader(d.image, lo, hi, d.codeItemOffsets,
		opcodeFilter(FormatC, 2, 0x1A), // const-string
		indexMapper(d.image, 2, d.stringIds, sizeofStringIdItem))
}

func (d *Disassembler) MakeReadCodeToStringId32(lo, hi uint32) Reader {
	return newInstructionReader(d.image, lo, hi, d.codeItemOffsets,
		opcodeFilter(FormatC, 2, 0x1B), // const-string/jumbo
		indexMapper(d.image, 4, d.stringIds, sizeofStringIdItem))
}

func (d *Disassembler) MakeReadCodeToTypeId16(lo, hi uint32) Reader {
	return newInstructionReader(d.image, lo, hi, d.codeItemOffsets,
		opcodeFilter(FormatC, 2,
			0x1C, // const-class
			0x1F, // check-cast
			0x20, // instance-of
			0x22, // new-instance
			0x23, // new-array
			0x24, // filled-new-array
			0x25, // filled-new-array/range
		),
		indexMapper(d.image, 2, d.typeIds, sizeofTypeIdItem))
}

func (d *Disassembler) MakeReadCodeToFieldId16(lo, hi uint32) Reader {
	return newInstructionReader(d.image, lo, hi, d.codeItemOffsets,
		opcodeFilter(FormatC, 2,
			0x52, // iget-*, iput-*
			0x60, // sget-*, sput-*
		),
		indexMapper(d.image, 2, d.fieldIds, sizeofFieldIdItem))
}

func (d *Disassembler) MakeReadCodeToMethodId16(lo, hi uint32) Reader {
	return newInstructionReader(d.image, lo, hi, d.codeItemOffsets,
		opcodeFilter(FormatC, 2,
			0x6E, // invoke-kind
			0x74, // invoke-kind/range
		),
		indexMapper(d.image, 2, d.methodIds, sizeofMethodIdItem))
}

// Branch displacements count units from the start of the instruction. The
// 8-bit one of goto +AA shares the first unit with the opcode.

func (d *Disassembler) MakeReadCodeToRelCode8(lo, hi uint32) Reader {
	return newInstructionReader(d.image, lo, hi, d.codeItemOffsets,
		opcodeFilter(FormatT, 1, 0x28), // goto
		relCodeMapper(d.image, 1, 1))
}

func (d *Disassembler) MakeReadCodeToRelCode16(lo, hi uint32) Reader {
	return newInstructionReader(d.image, lo, hi, d.codeItemOffsets,
		opcodeFilter(FormatT, 2,
			0x29, // goto/16
			0x32, // if-test
			0x38, // if-testz
		),
		relCodeMapper(d.image, 2, 2))
}

func (d *Disassembler) MakeReadCodeToRelCode32(lo, hi uint32) Reader {
	return newInstructionReader(d.image, lo, hi, d.codeItemOffsets,
		opcodeFilter(FormatT, 2,
			0x26, // fill-array-data
			0x2A, // goto/32
			0x2B, // packed-switch
			0x2C, // sparse-switch
		),
		relCodeMapper(d.image, 4, 2))
}

// Writer factories. Several reference types share one writer.

func (d *Disassembler) newWriter(image []byte, write writeFunc) Writer {
	return &writerAdaptor{image: buffer.NewMutableView(image), write: write}
}

func (d *Disassembler) MakeWriteStringId16(image []byte) Writer {
	return d.newWriter(image, indexWriter(2, d.stringIds, sizeofStringIdItem))
}

func (d *Disassembler) MakeWriteStringId32(image []byte) Writer {
	return d.newWriter(image, indexWriter(4, d.stringIds, sizeofStringIdItem))
}

func (d *Disassembler) MakeWriteTypeId16(image []byte) Writer {
	return d.newWriter(image, indexWriter(2, d.typeIds, sizeofTypeIdItem))
}

func (d *Disassembler) MakeWriteTypeId32(image []byte) Writer {
	return d.newWriter(image, indexWriter(4, d.typeIds, sizeofTypeIdItem))
}

func (d *Disassembler) MakeWriteProtoId16(image []byte) Writer {
	return d.newWriter(image, indexWriter(2, d.protoIds, sizeofProtoIdItem))
}

func (d *Disassembler) MakeWriteFieldId16(image []byte) Writer {
	return d.newWriter(image, indexWriter(2, d.fieldIds, sizeofFieldIdItem))
}

func (d *Disassembler) MakeWriteFieldId32(image []byte) Writer {
	return d.newWriter(image, indexWriter(4, d.fieldIds, sizeofFieldIdItem))
}

func (d *Disassembler) MakeWriteMethodId16(image []byte) Writer {
	return d.newWriter(image, indexWriter(2, d.methodIds, sizeofMethodIdItem))
}

func (d *Disassembler) MakeWriteMethodId32(image []byte) Writer {
	return d.newWriter(image, indexWriter(4, d.methodIds, sizeofMethodIdItem))
}

func (d *Disassembler) MakeWriteRelCode8(image []byte) Writer {
	return d.newWriter(image, relCodeWriter(1, 1))
}

func (d *Disassembler) MakeWriteRelCode16(image []byte) Writer {
	return d.newWriter(image, relCodeWriter(2, 2))
}

func (d *Disassembler) MakeWriteRelCode32(image []byte) Writer {
	return d.newWriter(image, relCodeWriter(4, 2))
}

func (d *Disassembler) MakeWriteAbs32(image []byte) Writer {
	return d.newWriter(image, absWriter)
}

// ReferenceGroup binds a ReferenceType to the factories that read and write
// it.
type ReferenceGroup struct {
	Traits
	MakeReader func(lo, hi uint32) Reader
	MakeWriter func(image []byte) Writer
}

// ReferenceGroups returns one group per ReferenceType, in type order.
func (d *Disassembler) ReferenceGroups() []ReferenceGroup {
	readers := [NumTypes]func(lo, hi uint32) Reader{
		TypeIdToDescriptorStringId:   d.MakeReadTypeIdToDescriptorStringId32,
		ProtoIdToShortyStringId:      d.MakeReadProtoIdToShortyStringId32,
		FieldIdToNameStringId:        d.MakeReadFieldToNameStringId32,
		MethodIdToNameStringId:       d.MakeReadMethodIdToNameStringId32,
		ClassDefToSourceFileStringId: d.MakeReadClassDefToSourceFileStringId32,
		CodeToStringId16:             d.MakeReadCodeToStringId16,
		CodeToStringId32:             d.MakeReadCodeToStringId32,

		ProtoIdToReturnTypeId:      d.MakeReadProtoIdToReturnTypeId32,
		FieldIdToClassTypeId:       d.MakeReadFieldToClassTypeId16,
		FieldIdToTypeId:            d.MakeReadFieldToTypeId16,
		MethodIdToClassTypeId:      d.MakeReadMethodIdToClassTypeId16,
		ClassDefToClassTypeId:      d.MakeReadClassDefToClassTypeId32,
		ClassDefToSuperClassTypeId: d.MakeReadClassDefToSuperClassTypeId32,
		TypeListToTypeId:           d.MakeReadTypeListToTypeId16,
		CodeToTypeId:               d.MakeReadCodeToTypeId16,

		MethodIdToProtoId: d.MakeReadMethodIdToProtoId16,

		CodeToFieldId:                 d.MakeReadCodeToFieldId16,
		AnnotationsDirectoryToFieldId: d.MakeReadAnnotationsDirectoryToFieldId32,

		CodeToMethodId:                          d.MakeReadCodeToMethodId16,
		AnnotationsDirectoryToMethodId:          d.MakeReadAnnotationsDirectoryToMethodId32,
		AnnotationsDirectoryToParameterMethodId: d.MakeReadAnnotationsDirectoryToParameterMethodId32,

		ProtoIdToParametersTypeList:  d.MakeReadProtoIdToParametersTypeList,
		ClassDefToInterfacesTypeList: d.MakeReadClassDefToInterfacesTypeList,

		AnnotationsDirectoryToParameterAnnotationSetRef: d.MakeReadAnnotationsDirectoryToParameterAnnotationSetRef,

		AnnotationSetRefListToAnnotationSet:       d.MakeReadAnnotationSetRefListToAnnotationSet,
		AnnotationsDirectoryToClassAnnotationSet:  d.MakeReadAnnotationsDirectoryToClassAnnotationSet,
		AnnotationsDirectoryToFieldAnnotationSet:  d.MakeReadAnnotationsDirectoryToFieldAnnotationSet,
		AnnotationsDirectoryToMethodAnnotationSet: d.MakeReadAnnotationsDirectoryToMethodAnnotationSet,

		ClassDefToClassData: d.MakeReadClassDefToClassData,

		CodeToRelCode8:  d.MakeReadCodeToRelCode8,
		CodeToRelCode16: d.MakeReadCodeToRelCode16,
		CodeToRelCode32: d.MakeReadCodeToRelCode32,

		StringIdToStringData: d.MakeReadStringIdToStringData,

		AnnotationSetToAnnotation: d.MakeReadAnnotationSetToAnnotation,

		ClassDefToStaticValuesEncodedArray: d.MakeReadClassDefToStaticValuesEncodedArray,

		ClassDefToAnnotationDirectory: d.MakeReadClassDefToAnnotationDirectory,
	}

	writers := [NumTypes]func(image []byte) Writer{
		TypeIdToDescriptorStringId:   d.MakeWriteStringId32,
		ProtoIdToShortyStringId:      d.MakeWriteStringId32,
		FieldIdToNameStringId:        d.MakeWriteStringId32,
		MethodIdToNameStringId:       d.MakeWriteStringId32,
		ClassDefToSourceFileStringId: d.MakeWriteStringId32,
		CodeToStringId16:             d.MakeWriteStringId16,
		CodeToStringId32:             d.MakeWriteStringId32,

		ProtoIdToReturnTypeId:      d.MakeWriteTypeId32,
		FieldIdToClassTypeId:       d.MakeWriteTypeId16,
		FieldIdToTypeId:            d.MakeWriteTypeId16,
		MethodIdToClassTypeId:      d.MakeWriteTypeId16,
		ClassDefToClassTypeId:      d.MakeWriteTypeId32,
		ClassDefToSuperClassTypeId: d.MakeWriteTypeId32,
		TypeListToTypeId:           d.MakeWriteTypeId16,
		CodeToTypeId:               d.MakeWriteTypeId16,

		MethodIdToProtoId: d.MakeWriteProtoId16,

		CodeToFieldId:                 d.MakeWriteFieldId16,
		AnnotationsDirectoryToFieldId: d.MakeWriteFieldId32,

		CodeToMethodId:                          d.MakeWriteMethodId16,
		AnnotationsDirectoryToMethodId:          d.MakeWriteMethodId32,
		AnnotationsDirectoryToParameterMethodId: d.MakeWriteMethodId32,

		ProtoIdToParametersTypeList:  d.MakeWriteAbs32,
		ClassDefToInterfacesTypeList: d.MakeWriteAbs32,

		AnnotationsDirectoryToParameterAnnotationSetRef: d.MakeWriteAbs32,

		AnnotationSetRefListToAnnotationSet:       d.MakeWriteAbs32,
		AnnotationsDirectoryToClassAnnotationSet:  d.MakeWriteAbs32,
		AnnotationsDirectoryToFieldAnnotationSet:  d.MakeWriteAbs32,
		AnnotationsDirectoryToMethodAnnotationSet: d.MakeWriteAbs32,

		ClassDefToClassData: d.MakeWriteAbs32,

		CodeToRelCode8:  d.MakeWriteRelCode8,
		CodeToRelCode16: d.MakeWriteRelCode16,
		CodeToRelCode32: d.MakeWriteRelCode32,

		StringIdToStringData: d.MakeWriteAbs32,

		AnnotationSetToAnnotation: d.MakeWriteAbs32,

		ClassDefToStaticValuesEncodedArray: d.MakeWriteAbs32,

		ClassDefToAnnotationDirectory: d.MakeWriteAbs32,
	}

	groups := make([]ReferenceGroup, NumTypes)
	for t := range NumTypes {
		groups[t] = ReferenceGroup{
			Traits:     TypeTraits(t),
			MakeReader: readers[t],
			MakeWriter: writers[t],
		}
	}
	return groups
}

// Group returns the ReferenceGroup of t, or false if t is not a known type.
func (d *Disassembler) Group(t ReferenceType) (ReferenceGroup, bool) {
	if t >= NumTypes {
		return ReferenceGroup{}, false
	}
	return d.ReferenceGroups()[t], true
}
