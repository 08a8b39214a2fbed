package dex

import (
	"github.com/apex/log"
	"github.com/kiwibrowser/android-sub011/internal/buffer"
)

// Format is the trailing letter of a Dalvik instruction format id, e.g. 'c'
// in "21c". It classifies the kind of operand the instruction carries.
// https://source.android.com/docs/core/runtime/instruction-formats
type Format byte

const (
	FormatB Format = 'b' // signed 8-bit literal
	FormatC Format = 'c' // constant pool index
	FormatH Format = 'h' // high-order literal bits
	FormatI Format = 'i' // 32-bit immediate
	FormatL Format = 'l' // 64-bit immediate
	FormatN Format = 'n' // 4-bit immediate
	FormatS Format = 's' // signed 16-bit literal
	FormatT Format = 't' // branch target
	FormatX Format = 'x' // no additional data
)

// Instruction describes a run of opcodes sharing one layout.
type Instruction struct {
	Opcode  uint8  // first opcode of the run
	Layout  uint8  // instruction length in 16-bit units
	Format  Format // operand kind
	Variant uint8  // number of contiguous opcodes in the run
	Name    string // mnemonic of the run
}

// byteCode lists every opcode defined by DEX 035 and 037. Unused opcodes
// (0x3E-0x43, 0x73, 0x79-0x7A, 0xE3-0xFF) are absent.
var byteCode = []Instruction{
	{0x00, 1, FormatX, 1, "nop"},
	{0x01, 1, FormatX, 1, "move"},
	{0x02, 2, FormatX, 1, "move/from16"},
	{0x03, 3, FormatX, 1, "move/16"},
	{0x04, 1, FormatX, 1, "move-wide"},
	{0x05, 2, FormatX, 1, "move-wide/from16"},
	{0x06, 3, FormatX, 1, "move-wide/16"},
	{0x07, 1, FormatX, 1, "move-object"},
	{0x08, 2, FormatX, 1, "move-object/from16"},
	{0x09, 3, FormatX, 1, "move-object/16"},
	{0x0A, 1, FormatX, 4, "move-result"},
	{0x0E, 1, FormatX, 1, "return-void"},
	{0x0F, 1, FormatX, 3, "return"},
	{0x12, 1, FormatN, 1, "const/4"},
	{0x13, 2, FormatS, 1, "const/16"},
	{0x14, 3, FormatI, 1, "const"},
	{0x15, 2, FormatH, 1, "const/high16"},
	{0x16, 2, FormatS, 1, "const-wide/16"},
	{0x17, 3, FormatI, 1, "const-wide/32"},
	{0x18, 5, FormatL, 1, "const-wide"},
	{0x19, 2, FormatH, 1, "const-wide/high16"},
	{0x1A, 2, FormatC, 1, "const-string"},
	{0x1B, 3, FormatC, 1, "const-string/jumbo"},
	{0x1C, 2, FormatC, 1, "const-class"},
	{0x1D, 1, FormatX, 1, "monitor-enter"},
	{0x1E, 1, FormatX, 1, "monitor-exit"},
	{0x1F, 2, FormatC, 1, "check-cast"},
	{0x20, 2, FormatC, 1, "instance-of"},
	{0x21, 1, FormatX, 1, "array-length"},
	{0x22, 2, FormatC, 1, "new-instance"},
	{0x23, 2, FormatC, 1, "new-array"},
	{0x24, 3, FormatC, 1, "filled-new-array"},
	{0x25, 3, FormatC, 1, "filled-new-array/range"},
	{0x26, 3, FormatT, 1, "fill-array-data"},
	{0x27, 1, FormatX, 1, "throw"},
	{0x28, 1, FormatT, 1, "goto"},
	{0x29, 2, FormatT, 1, "goto/16"},
	{0x2A, 3, FormatT, 1, "goto/32"},
	{0x2B, 3, FormatT, 1, "packed-switch"},
	{0x2C, 3, FormatT, 1, "sparse-switch"},
	{0x2D, 2, FormatX, 5, "cmpkind"},
	{0x32, 2, FormatT, 6, "if-test"},
	{0x38, 2, FormatT, 6, "if-testz"},
	{0x44, 2, FormatX, 14, "arrayop"},
	{0x52, 2, FormatC, 14, "iinstanceop"},
	{0x60, 2, FormatC, 14, "sstaticop"},
	{0x6E, 3, FormatC, 5, "invoke-kind"},
	{0x74, 3, FormatC, 5, "invoke-kind/range"},
	{0x7B, 1, FormatX, 21, "unop"},
	{0x90, 2, FormatX, 32, "binop"},
	{0xB0, 1, FormatX, 32, "binop/2addr"},
	{0xD0, 2, FormatS, 8, "binop/lit16"},
	{0xD8, 2, FormatB, 11, "binop/lit8"},
}

// Opcodes whose 31t operand points at a payload inside the code item.
const (
	opFillArrayData uint8 = 0x26
	opPackedSwitch  uint8 = 0x2B
	opSparseSwitch  uint8 = 0x2C
)

type opcodeTable [256]*Instruction

func newOpcodeTable(code []Instruction) *opcodeTable {
	var t opcodeTable
	for i := range code {
		instr := &code[i]
		for op := int(instr.Opcode); op < int(instr.Opcode)+int(instr.Variant) && op < len(t); op++ {
			t[op] = instr
		}
	}
	return &t
}

var dalvik = newOpcodeTable(byteCode)

// FindInstruction returns the decode table entry for opcode, or nil if the
// opcode is not defined.
func FindInstruction(opcode uint8) *Instruction {
	return dalvik[opcode]
}

// DecodedInstruction is one instruction found by an InstructionDecoder.
type DecodedInstruction struct {
	Offset uint32
	Instr  *Instruction
}

// InstructionDecoder walks the instructions of one code item. Units after
// the earliest payload pointed to by a switch or fill-array-data instruction
// are payload and are never decoded.
type InstructionDecoder struct {
	image           buffer.View
	cur             uint32
	end             uint32
	payloadBoundary uint32
	value           DecodedInstruction
}

// newCodeItemDecoder returns a decoder over the instructions of the code item
// at off. An offset that does not hold a code item yields no instructions.
func newCodeItemDecoder(image buffer.View, off uint32) *InstructionDecoder {
	begin, end := codeItemInsns(image, off)
	return newInstructionDecoder(image, begin, end)
}

func newInstructionDecoder(image buffer.View, begin, end uint32) *InstructionDecoder {
	return &InstructionDecoder{
		image:           image,
		cur:             begin,
		end:             end,
		payloadBoundary: end,
	}
}

// ReadNext decodes the next instruction and reports whether one was found.
// It returns false at the payload boundary, at the end of the code item, or
// on malformed input.
func (d *InstructionDecoder) ReadNext() bool {
	if d.cur >= d.payloadBoundary {
		return false
	}

	off := d.cur
	instr := FindInstruction(d.image.U8(off))
	if instr == nil {
		log.WithField("offset", hex32(off)).Warnf("unknown Dalvik instruction %#02x", d.image.U8(off))
		return false
	}

	remaining := d.end - d.cur
	length := uint32(instr.Layout) * instrUnitSize
	if remaining < length {
		return false
	}

	if instr.Opcode == opFillArrayData || instr.Opcode == opPackedSwitch || instr.Opcode == opSparseSwitch {
		rel := d.image.S32(off + 2)
		// The payload must lie in this code item, after this instruction.
		if rel < int32(instr.Layout) || uint32(rel) >= remaining/instrUnitSize {
			log.WithField("offset", hex32(off)).Warnf("invalid %s payload offset %d", instr.Name, rel)
			return false
		}
		if payload := off + uint32(rel)*instrUnitSize; payload < d.payloadBoundary {
			d.payloadBoundary = payload
		}
	}

	d.cur += length
	d.value = DecodedInstruction{Offset: off, Instr: instr}
	return true
}

// Value returns the instruction found by the last successful ReadNext.
func (d *InstructionDecoder) Value() DecodedInstruction {
	return d.value
}
