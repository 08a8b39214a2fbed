package dex

import (
	"encoding/binary"
	"fmt"
	"testing"
)

// dexBuilder assembles synthetic DEX images for tests. Offsets are recorded
// under labels so that references can be emitted before their targets are
// placed and so that tests can locate fields afterwards.
type dexBuilder struct {
	t       *testing.T
	version string
	buf     []byte
	labels  map[string]uint32
	fixups  []fixup
	maps    []MapItem
}

type fixup struct {
	at    uint32
	label string
}

func newDexBuilder(t *testing.T) *dexBuilder {
	t.Helper()
	return &dexBuilder{
		t:       t,
		version: "035",
		buf:     make([]byte, sizeofHeaderItem),
		labels:  make(map[string]uint32),
	}
}

func (b *dexBuilder) off() uint32 { return uint32(len(b.buf)) }

func (b *dexBuilder) align(n int) {
	for len(b.buf)%n != 0 {
		b.buf = append(b.buf, 0)
	}
}

func (b *dexBuilder) label(name string) {
	if _, dup := b.labels[name]; dup {
		b.t.Fatalf("duplicate label %q", name)
	}
	b.labels[name] = b.off()
}

func (b *dexBuilder) u8(vs ...uint8) { b.buf = append(b.buf, vs...) }

func (b *dexBuilder) u16(vs ...uint16) {
	for _, v := range vs {
		b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
	}
}

func (b *dexBuilder) u32(vs ...uint32) {
	for _, v := range vs {
		b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
	}
}

func (b *dexBuilder) uleb(v uint32) {
	for v >= 0x80 {
		b.buf = append(b.buf, byte(v)|0x80)
		v >>= 7
	}
	b.buf = append(b.buf, byte(v))
}

// ref32 emits the offset of label, resolved when the image is finished.
func (b *dexBuilder) ref32(label string) {
	b.fixups = append(b.fixups, fixup{at: b.off(), label: label})
	b.u32(0)
}

// section starts a map item of count elements at the next 4-byte boundary.
func (b *dexBuilder) section(typ uint16, name string, count uint32) {
	b.align(4)
	b.label(name)
	b.maps = append(b.maps, MapItem{Type: typ, Size: count, Offset: b.off()})
}

func (b *dexBuilder) stringData(name, s string) {
	b.label(name)
	b.uleb(uint32(len(s)))
	b.buf = append(b.buf, s...)
	b.u8(0)
}

func (b *dexBuilder) mapItem(typ uint16) MapItem {
	for _, mi := range b.maps {
		if mi.Type == typ {
			return mi
		}
	}
	return MapItem{}
}

// finish appends the map list, fills in the header and checksums, and
// returns the image.
func (b *dexBuilder) finish() []byte {
	b.t.Helper()
	b.section(TypeMapList, "map_list", 1)
	items := append([]MapItem{{Type: TypeHeaderItem, Size: 1, Offset: 0}}, b.maps...)
	b.u32(uint32(len(items)))
	for _, mi := range items {
		b.u16(mi.Type, mi.Unused)
		b.u32(mi.Size, mi.Offset)
	}

	for _, f := range b.fixups {
		target, ok := b.labels[f.label]
		if !ok {
			b.t.Fatalf("unresolved label %q", f.label)
		}
		binary.LittleEndian.PutUint32(b.buf[f.at:], target)
	}

	h := b.buf
	copy(h[0:8], fmt.Sprintf("dex\n%s\x00", b.version))
	put := func(at int, v uint32) { binary.LittleEndian.PutUint32(h[at:], v) }
	put(32, b.off())
	put(36, sizeofHeaderItem)
	put(40, 0x12345678)
	put(52, b.labels["map_list"])
	for i, typ := range []uint16{TypeStringIdItem, TypeTypeIdItem, TypeProtoIdItem, TypeFieldIdItem, TypeMethodIdItem, TypeClassDefItem} {
		mi := b.mapItem(typ)
		put(56+8*i, mi.Size)
		put(60+8*i, mi.Offset)
	}
	if data, ok := b.labels["data"]; ok {
		put(104, b.off()-data)
		put(108, data)
	}
	if err := UpdateChecksums(b.buf); err != nil {
		b.t.Fatal(err)
	}
	return b.buf
}

// Instruction units of the first code item. The comments give the unit
// offset of each instruction.
var code0 = []uint16{
	0x001A, 0x0007, // 0: const-string v0, string@7
	0x001B, 0x0006, 0x0000, // 2: const-string/jumbo v0, string@6
	0x0022, 0x0001, // 5: new-instance v0, type@1
	0x0052, 0x0000, // 7: iget v0, v0, field@0
	0x1070, 0x0001, 0x0000, // 9: invoke-direct {v0}, meth@1
	0x0038, 0x0006, // 12: if-eqz v0, +6
	0x0128,                 // 14: goto +1
	0x002A, 0x0003, 0x0000, // 15: goto/32 +3
	0x002B, 0x0004, 0x0000, // 18: packed-switch v0, +4
	0x000E, // 21: return-void
	// 22: packed-switch-payload. first_key decodes as const-string if the
	// payload is mistaken for instructions.
	0x0100, 0x0001, 0x001A, 0x0000, 0x0003, 0x0000,
}

// Unit offsets inside code0.
const (
	code0PackedSwitch = 18
	code0Payload      = 22
)

var code1 = []uint16{
	0x0060, 0x0000, // 0: sget v0, field@0
	0x000E, // 2: return-void
}

var testStrings = []string{"Foo.java", "I", "LFoo;", "Ljava/lang/Object;", "V", "VI", "bar", "foo"}

// newTestDex builds an image exercising every reference type.
func newTestDex(t *testing.T) *dexBuilder {
	b := newDexBuilder(t)

	b.section(TypeStringIdItem, "string_ids", uint32(len(testStrings)))
	for i := range testStrings {
		b.ref32(fmt.Sprintf("str%d", i))
	}

	b.section(TypeTypeIdItem, "type_ids", 4)
	b.u32(1, 2, 3, 4) // I, LFoo;, Ljava/lang/Object;, V

	b.section(TypeProtoIdItem, "proto_ids", 2)
	b.u32(4, 3, 0) // ()V
	b.u32(5, 3)    // (I)V
	b.ref32("tl0")

	b.section(TypeFieldIdItem, "field_ids", 1)
	b.u16(1, 0)
	b.u32(6) // LFoo;->bar:I

	b.section(TypeMethodIdItem, "method_ids", 2)
	b.u16(1, 0)
	b.u32(7) // LFoo;->foo()V
	b.u16(1, 1)
	b.u32(6) // LFoo;->bar(I)V

	b.section(TypeClassDefItem, "class_defs", 2)
	b.u32(1, 1, 2)
	b.ref32("tl1")
	b.u32(0)
	b.ref32("ad0")
	b.ref32("cd0")
	b.ref32("ea0")
	// No superclass, source file, or data.
	b.u32(2, 1, SentinelIndex, 0, SentinelIndex, 0, 0, 0)

	b.section(TypeTypeList, "data", 2)
	b.label("tl0")
	b.u32(1)
	b.u16(0)
	b.align(4)
	b.label("tl1")
	b.u32(2)
	b.u16(2, 0)

	b.section(TypeAnnotationSetRefList, "arl0", 1)
	b.u32(1)
	b.ref32("as0")

	b.section(TypeAnnotationSetItem, "as0", 2)
	b.u32(1)
	b.ref32("ann0")
	b.label("as1")
	b.u32(2)
	b.ref32("ann0")
	b.ref32("ann1")

	b.section(TypeCodeItem, "ci0", 2)
	b.u16(1, 0, 1, 1)
	b.u32(0, uint32(len(code0)))
	b.u16(code0...)
	b.u32(0)
	b.u16(12, 1)
	b.label("ci0_handlers")
	b.u8(0x01, 0x7F, 0x01, 0x15, 0x15)
	b.align(4)
	b.label("ci1")
	b.u16(1, 0, 0, 1)
	b.u32(0, uint32(len(code1)))
	b.u16(code1...)
	b.u16(0) // padding
	b.u32(0)
	b.u16(2, 1)
	b.u8(0x01, 0x01, 0x00, 0x02)

	b.section(TypeStringDataItem, "string_data", uint32(len(testStrings)))
	for i, s := range testStrings {
		b.stringData(fmt.Sprintf("str%d", i), s)
	}

	b.section(TypeAnnotationItem, "ann0", 2)
	b.u8(1)
	b.uleb(1)
	b.uleb(0)
	b.label("ann1")
	b.u8(1)
	b.uleb(2)
	b.uleb(0)

	b.section(TypeClassDataItem, "cd0", 1)
	b.u8(0, 0, 0, 0)

	b.section(TypeEncodedArrayItem, "ea0", 1)
	b.u8(0x01, 0x04, 0x2A)

	b.section(TypeAnnotationsDirectoryItem, "ad0", 1)
	b.ref32("as1")
	b.u32(1, 1, 1)
	b.u32(0)
	b.ref32("as0")
	b.u32(0)
	b.ref32("as0")
	b.u32(1)
	b.ref32("arl0")

	return b
}

// newMinimalDex builds an image holding a single string and empty required
// sections.
func newMinimalDex(t *testing.T) *dexBuilder {
	b := newDexBuilder(t)
	b.section(TypeStringIdItem, "string_ids", 1)
	b.ref32("str0")
	for _, typ := range []uint16{TypeTypeIdItem, TypeProtoIdItem, TypeFieldIdItem, TypeMethodIdItem, TypeClassDefItem, TypeTypeList, TypeCodeItem} {
		b.section(typ, MapItemTypeName(typ), 0)
	}
	b.section(TypeStringDataItem, "data", 1)
	b.stringData("str0", "a")
	return b
}

func mustParse(t *testing.T, image []byte) *Disassembler {
	t.Helper()
	d, err := Parse(image)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return d
}
