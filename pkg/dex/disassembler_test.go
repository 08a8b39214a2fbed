package dex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestQuickDetect(t *testing.T) {
	valid := newMinimalDex(t).finish()

	tests := []struct {
		name   string
		mutate func(b []byte) []byte
		want   bool
	}{
		{"Valid", func(b []byte) []byte { return b }, true},
		{"Version037", func(b []byte) []byte { copy(b[4:7], "037"); return b }, true},
		{"Version038", func(b []byte) []byte { copy(b[4:7], "038"); return b }, false},
		{"Version036", func(b []byte) []byte { copy(b[4:7], "036"); return b }, false},
		{"NonDigitVersion", func(b []byte) []byte { copy(b[4:7], "03a"); return b }, false},
		{"BadMagic", func(b []byte) []byte { b[0] = 'D'; return b }, false},
		{"Odex", func(b []byte) []byte { copy(b[0:4], "dey\n"); return b }, false},
		{"NoTerminator", func(b []byte) []byte { b[7] = '1'; return b }, false},
		{"Truncated", func(b []byte) []byte { return b[:sizeofHeaderItem-1] }, false},
		{"FileSizeTooLarge", func(b []byte) []byte { put32(b, 32, uint32(len(b))+1); return b }, false},
		{"FileSizeTooSmall", func(b []byte) []byte { put32(b, 32, sizeofHeaderItem-1); return b }, false},
		{"MapInHeader", func(b []byte) []byte { put32(b, 52, 0x20); return b }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image := tt.mutate(bytes.Clone(valid))
			if got := QuickDetect(image); got != tt.want {
				t.Errorf("QuickDetect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func put32(b []byte, at, v uint32) { binary.LittleEndian.PutUint32(b[at:], v) }

// mapEntry returns the offset of the map list entry of type typ.
func mapEntry(t *testing.T, b *dexBuilder, image []byte, typ uint16) uint32 {
	t.Helper()
	base := b.labels["map_list"]
	n := binary.LittleEndian.Uint32(image[base:])
	for i := uint32(0); i < n; i++ {
		at := base + 4 + i*sizeofMapItem
		if binary.LittleEndian.Uint16(image[at:]) == typ {
			return at
		}
	}
	t.Fatalf("no map entry for %s", MapItemTypeName(typ))
	return 0
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, b *dexBuilder, image []byte) []byte
		want   error
	}{
		{
			name: "BadMagic",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				image[3] = 0
				return image
			},
			want: ErrNotDex,
		},
		{
			name: "UnsupportedVersion",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				copy(image[4:7], "039")
				return image
			},
			want: ErrUnsupportedVersion,
		},
		{
			name: "FileSizeOverrun",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				return image[:len(image)-1]
			},
			want: ErrBadHeader,
		},
		{
			name: "MapListTooLong",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				put32(image, b.labels["map_list"], MaxItemListSize+1)
				return image
			},
			want: ErrBadMapList,
		},
		{
			name: "MapListPastEnd",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				put32(image, 52, uint32(len(image))-2)
				return image
			},
			want: ErrBadMapList,
		},
		{
			name: "MapItemOffsetOverrun",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				put32(image, mapEntry(t, b, image, TypeStringDataItem)+8, uint32(len(image)))
				return image
			},
			want: ErrBadMapItem,
		},
		{
			name: "MapItemSizeOverrun",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				put32(image, mapEntry(t, b, image, TypeCodeItem)+4, 0xFFFFFFF0)
				return image
			},
			want: ErrBadMapItem,
		},
		{
			name: "PoolStrideOverrun",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				// Fits as a byte count but not as class_def_items.
				put32(image, mapEntry(t, b, image, TypeClassDefItem)+4, 0x100)
				return image
			},
			want: ErrBadMapItem,
		},
		{
			name: "DuplicateType",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				at := mapEntry(t, b, image, TypeEncodedArrayItem)
				binary.LittleEndian.PutUint16(image[at:], TypeClassDataItem)
				return image
			},
			want: ErrDuplicateMapItem,
		},
		{
			name: "MissingCode",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				at := mapEntry(t, b, image, TypeCodeItem)
				binary.LittleEndian.PutUint16(image[at:], TypeDebugInfoItem)
				return image
			},
			want: ErrMissingMapItem,
		},
		{
			name: "TypeListOverrun",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				put32(image, b.labels["tl1"], 0x10000000)
				return image
			},
			want: ErrBadItemList,
		},
		{
			name: "AnnotationsDirectoryOverrun",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				put32(image, b.labels["ad0"]+12, 0x10000000)
				return image
			},
			want: ErrBadItemList,
		},
		{
			name: "InstructionsOverrun",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				put32(image, b.labels["ci1"]+12, 0x10000000)
				return image
			},
			want: ErrBadCodeItem,
		},
		{
			name: "HandlerLeb128TooLong",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				at := b.labels["ci0_handlers"]
				copy(image[at:], []byte{0x80, 0x80, 0x80, 0x80, 0x80})
				return image
			},
			want: ErrBadCodeItem,
		},
		{
			name: "TooManyHandlers",
			mutate: func(t *testing.T, b *dexBuilder, image []byte) []byte {
				at := b.labels["ci0_handlers"]
				copy(image[at:], []byte{0xFF, 0xFF, 0xFF, 0x7F})
				return image
			},
			want: ErrBadCodeItem,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestDex(t)
			image := tt.mutate(t, b, b.finish())
			d, err := Parse(image)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.want)
			}
			if d != nil {
				t.Errorf("Parse() returned a Disassembler on failure")
			}
		})
	}
}

func TestParse(t *testing.T) {
	b := newTestDex(t)
	image := b.finish()
	d := mustParse(t, image)

	if got, want := d.ExeTypeString(), "DEX (version 35)"; got != want {
		t.Errorf("ExeTypeString() = %q, want %q", got, want)
	}
	if d.Size() != uint32(len(image)) {
		t.Errorf("Size() = %#x, want %#x", d.Size(), len(image))
	}
	if got := len(d.MapItems()); got != 17 {
		t.Errorf("len(MapItems()) = %d, want 17", got)
	}
	want := ItemCounts{
		CodeItems:            2,
		TypeItems:            3,
		AnnotationSetRefs:    1,
		AnnotationOffs:       3,
		AnnotationsDirs:      1,
		FieldAnnotations:     1,
		MethodAnnotations:    1,
		ParameterAnnotations: 1,
	}
	if diff := cmp.Diff(want, d.ItemCounts()); diff != "" {
		t.Errorf("ItemCounts() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{b.labels["ci0"], b.labels["ci1"]}, d.CodeItemOffsets()); diff != "" {
		t.Errorf("CodeItemOffsets() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseVersion037(t *testing.T) {
	b := newMinimalDex(t)
	b.version = "037"
	d := mustParse(t, b.finish())
	if d.Version() != 37 {
		t.Errorf("Version() = %d, want 37", d.Version())
	}
}

func TestParseIgnoresTrailingData(t *testing.T) {
	image := newMinimalDex(t).finish()
	size := len(image)
	image = append(image, make([]byte, 64)...)
	d := mustParse(t, image)
	if d.Size() != uint32(size) {
		t.Errorf("Size() = %#x, want %#x", d.Size(), size)
	}
}

func TestStringIdToStringDataEndToEnd(t *testing.T) {
	b := newMinimalDex(t)
	image := b.finish()
	d := mustParse(t, image)

	loc, x := b.labels["string_ids"], b.labels["str0"]
	got := Collect(d.MakeReadStringIdToStringData(0, d.Size()))
	if diff := cmp.Diff([]Reference{{Location: loc, Target: x}}, got); diff != "" {
		t.Fatalf("references mismatch (-want +got):\n%s", diff)
	}

	orig := bytes.Clone(image)
	const y = 0x00C0FFEE
	if err := d.MakeWriteAbs32(image).PutNext(Reference{Location: loc, Target: y}); err != nil {
		t.Fatalf("PutNext() error = %v", err)
	}
	for i := range image {
		inside := uint32(i) >= loc && uint32(i) < loc+4
		if !inside && image[i] != orig[i] {
			t.Errorf("byte %#x changed from %#02x to %#02x", i, orig[i], image[i])
		}
	}
	if v := binary.LittleEndian.Uint32(image[loc:]); v != y {
		t.Errorf("stored target = %#x, want %#x", v, y)
	}
}

// expectedReferences lists every reference in newTestDex.
func expectedReferences(l map[string]uint32) map[ReferenceType][]Reference {
	S, T, P := l["string_ids"], l["type_ids"], l["proto_ids"]
	F, M, C := l["field_ids"], l["method_ids"], l["class_defs"]
	c0, c1, ad := l["ci0"]+sizeofCodeItem, l["ci1"]+sizeofCodeItem, l["ad0"]
	r := func(loc, target uint32) Reference { return Reference{Location: loc, Target: target} }

	var stringData []Reference
	for i := range testStrings {
		stringData = append(stringData, r(S+4*uint32(i), l["str"+string(rune('0'+i))]))
	}

	return map[ReferenceType][]Reference{
		TypeIdToDescriptorStringId:   {r(T, S+4), r(T+4, S+8), r(T+8, S+12), r(T+12, S+16)},
		ProtoIdToShortyStringId:      {r(P, S+16), r(P+12, S+20)},
		FieldIdToNameStringId:        {r(F+4, S+24)},
		MethodIdToNameStringId:       {r(M+4, S+28), r(M+12, S+24)},
		ClassDefToSourceFileStringId: {r(C+16, S)},
		CodeToStringId16:             {r(c0+2, S+28)},
		CodeToStringId32:             {r(c0+6, S+24)},

		ProtoIdToReturnTypeId:      {r(P+4, T+12), r(P+16, T+12)},
		FieldIdToClassTypeId:       {r(F, T+4)},
		FieldIdToTypeId:            {r(F+2, T)},
		MethodIdToClassTypeId:      {r(M, T+4), r(M+8, T+4)},
		ClassDefToClassTypeId:      {r(C, T+4), r(C+32, T+8)},
		ClassDefToSuperClassTypeId: {r(C+8, T+8)},
		TypeListToTypeId:           {r(l["tl0"]+4, T), r(l["tl1"]+4, T+8), r(l["tl1"]+6, T)},
		CodeToTypeId:               {r(c0+12, T+4)},

		MethodIdToProtoId: {r(M+2, P), r(M+10, P+12)},

		CodeToFieldId:                 {r(c0+16, F), r(c1+2, F)},
		AnnotationsDirectoryToFieldId: {r(ad+16, F)},

		CodeToMethodId:                          {r(c0+20, M+8)},
		AnnotationsDirectoryToMethodId:          {r(ad+24, M)},
		AnnotationsDirectoryToParameterMethodId: {r(ad+32, M+8)},

		ProtoIdToParametersTypeList:  {r(P+20, l["tl0"])},
		ClassDefToInterfacesTypeList: {r(C+12, l["tl1"])},

		AnnotationsDirectoryToParameterAnnotationSetRef: {r(ad+36, l["arl0"])},

		AnnotationSetRefListToAnnotationSet:       {r(l["arl0"]+4, l["as0"])},
		AnnotationsDirectoryToClassAnnotationSet:  {r(ad, l["as1"])},
		AnnotationsDirectoryToFieldAnnotationSet:  {r(ad+20, l["as0"])},
		AnnotationsDirectoryToMethodAnnotationSet: {r(ad+28, l["as0"])},

		ClassDefToClassData: {r(C+24, l["cd0"])},

		CodeToRelCode8:  {r(c0+29, c0+30)},
		CodeToRelCode16: {r(c0+26, c0+36)},
		CodeToRelCode32: {r(c0+32, c0+36), r(c0+38, c0+44)},

		StringIdToStringData: stringData,

		AnnotationSetToAnnotation: {r(l["as0"]+4, l["ann0"]), r(l["as1"]+4, l["ann0"]), r(l["as1"]+8, l["ann1"])},

		ClassDefToStaticValuesEncodedArray: {r(C+28, l["ea0"])},

		ClassDefToAnnotationDirectory: {r(C+20, ad)},
	}
}

func TestReferences(t *testing.T) {
	b := newTestDex(t)
	d := mustParse(t, b.finish())
	want := expectedReferences(b.labels)

	for _, g := range d.ReferenceGroups() {
		t.Run(g.Type.String(), func(t *testing.T) {
			got := Collect(g.MakeReader(0, d.Size()))
			if diff := cmp.Diff(want[g.Type], got); diff != "" {
				t.Errorf("references mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReferenceRoundTrip(t *testing.T) {
	b := newTestDex(t)
	image := b.finish()
	d := mustParse(t, image)

	for _, g := range d.ReferenceGroups() {
		t.Run(g.Type.String(), func(t *testing.T) {
			refs := Collect(g.MakeReader(0, d.Size()))
			if len(refs) == 0 {
				t.Fatal("no references to round-trip")
			}
			out := bytes.Clone(image)
			// Scramble the fields first so that a no-op writer fails.
			for _, ref := range refs {
				for i := uint32(0); i < g.Width; i++ {
					out[ref.Location+i] ^= 0xFF
				}
			}
			w := g.MakeWriter(out)
			for _, ref := range refs {
				if err := w.PutNext(ref); err != nil {
					t.Fatalf("PutNext(%v) error = %v", ref, err)
				}
			}
			if !bytes.Equal(image, out) {
				t.Error("rewriting unchanged targets changed the image")
			}
		})
	}
}

func TestReferenceWindows(t *testing.T) {
	b := newTestDex(t)
	d := mustParse(t, b.finish())

	for _, g := range d.ReferenceGroups() {
		t.Run(g.Type.String(), func(t *testing.T) {
			all := Collect(g.MakeReader(0, d.Size()))

			// Cut at every reference boundary, which never splits one.
			cuts := []uint32{0}
			for _, ref := range all {
				cuts = append(cuts, ref.Location, ref.Location+g.Width)
			}
			cuts = append(cuts, d.Size())

			var got []Reference
			for i := 1; i < len(cuts); i++ {
				got = append(got, Collect(g.MakeReader(cuts[i-1], cuts[i]))...)
			}
			if diff := cmp.Diff(all, got); diff != "" {
				t.Errorf("windowed references mismatch (-whole +windowed):\n%s", diff)
			}

			// Each reference alone in its own window.
			for _, ref := range all {
				one := Collect(g.MakeReader(ref.Location, ref.Location+g.Width))
				if diff := cmp.Diff([]Reference{ref}, one); diff != "" {
					t.Errorf("window at %#x mismatch (-want +got):\n%s", ref.Location, diff)
				}
			}
		})
	}
}

func TestReferencesAscending(t *testing.T) {
	d := mustParse(t, newTestDex(t).finish())
	for _, g := range d.ReferenceGroups() {
		refs := Collect(g.MakeReader(0, d.Size()))
		for i := 1; i < len(refs); i++ {
			if refs[i].Location <= refs[i-1].Location {
				t.Errorf("%s: location %#x follows %#x", g.Type, refs[i].Location, refs[i-1].Location)
			}
		}
	}
}

func TestSentinelsExcluded(t *testing.T) {
	d := mustParse(t, newTestDex(t).finish())
	for _, g := range d.ReferenceGroups() {
		for ref := range All(g.MakeReader(0, d.Size())) {
			if ref.Target == SentinelOffset || ref.Target == SentinelIndex {
				t.Errorf("%s: sentinel target at %#x", g.Type, ref.Location)
			}
		}
	}
}

func TestReferenceGroupPools(t *testing.T) {
	wantPools := map[ReferencePool][]ReferenceType{
		PoolStringId:             {TypeIdToDescriptorStringId, ProtoIdToShortyStringId, FieldIdToNameStringId, MethodIdToNameStringId, ClassDefToSourceFileStringId, CodeToStringId16, CodeToStringId32},
		PoolTypeId:               {ProtoIdToReturnTypeId, FieldIdToClassTypeId, FieldIdToTypeId, MethodIdToClassTypeId, ClassDefToClassTypeId, ClassDefToSuperClassTypeId, TypeListToTypeId, CodeToTypeId},
		PoolProtoId:              {MethodIdToProtoId},
		PoolFieldId:              {CodeToFieldId, AnnotationsDirectoryToFieldId},
		PoolMethodId:             {CodeToMethodId, AnnotationsDirectoryToMethodId, AnnotationsDirectoryToParameterMethodId},
		PoolTypeList:             {ProtoIdToParametersTypeList, ClassDefToInterfacesTypeList},
		PoolAnnotationSetRefList: {AnnotationsDirectoryToParameterAnnotationSetRef},
		PoolAnnotationSet:        {AnnotationSetRefListToAnnotationSet, AnnotationsDirectoryToClassAnnotationSet, AnnotationsDirectoryToFieldAnnotationSet, AnnotationsDirectoryToMethodAnnotationSet},
		PoolClassData:            {ClassDefToClassData},
		PoolCode:                 {CodeToRelCode8, CodeToRelCode16, CodeToRelCode32},
		PoolStringData:           {StringIdToStringData},
		PoolAnnotation:           {AnnotationSetToAnnotation},
		PoolEncodedArray:         {ClassDefToStaticValuesEncodedArray},
		PoolAnnotationsDirectory: {ClassDefToAnnotationDirectory},
	}

	d := mustParse(t, newMinimalDex(t).finish())
	groups := d.ReferenceGroups()
	if len(groups) != int(NumTypes) {
		t.Fatalf("len(ReferenceGroups()) = %d, want %d", len(groups), NumTypes)
	}

	got := make(map[ReferencePool][]ReferenceType)
	for i, g := range groups {
		if g.Type != ReferenceType(i) {
			t.Errorf("group %d has type %s", i, g.Type)
		}
		if g.MakeReader == nil || g.MakeWriter == nil {
			t.Errorf("%s: missing factory", g.Type)
		}
		if i > 0 && g.Pool < groups[i-1].Pool {
			t.Errorf("%s: pool %s out of order", g.Type, g.Pool)
		}
		got[g.Pool] = append(got[g.Pool], g.Type)
	}
	if diff := cmp.Diff(wantPools, got); diff != "" {
		t.Errorf("pool membership mismatch (-want +got):\n%s", diff)
	}
	if len(got) != int(NumPools) {
		t.Errorf("%d pools used, want %d", len(got), NumPools)
	}
}

func TestGroup(t *testing.T) {
	d := mustParse(t, newMinimalDex(t).finish())
	g, ok := d.Group(CodeToRelCode8)
	if !ok || g.Type != CodeToRelCode8 || g.Width != 1 {
		t.Errorf("Group(CodeToRelCode8) = %+v, %v", g.Traits, ok)
	}
	for _, typ := range []ReferenceType{NumTypes, 0xFF} {
		if _, ok := d.Group(typ); ok {
			t.Errorf("Group(%d) reported ok", typ)
		}
	}
}

func TestUnknownOpcodeStopsCodeItem(t *testing.T) {
	b := newTestDex(t)
	image := b.finish()
	// Replace new-instance at unit 5 of the first code item.
	image[b.labels["ci0"]+sizeofCodeItem+5*2] = 0x3E
	d := mustParse(t, image)

	// Only the first code item is abandoned.
	got := Collect(d.MakeReadCodeToFieldId16(0, d.Size()))
	want := []Reference{{Location: b.labels["ci1"] + sizeofCodeItem + 2, Target: b.labels["field_ids"]}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
	if got := Collect(d.MakeReadCodeToStringId32(0, d.Size())); len(got) != 1 {
		t.Errorf("got %d string references before the bad opcode, want 1", len(got))
	}
}

func TestInvalidIndexStopsReader(t *testing.T) {
	b := newTestDex(t)
	image := b.finish()
	// Second type_id points past the 8 strings.
	put32(image, b.labels["type_ids"]+4, 100)
	d := mustParse(t, image)

	got := Collect(d.MakeReadTypeIdToDescriptorStringId32(0, d.Size()))
	want := []Reference{{Location: b.labels["type_ids"], Target: b.labels["string_ids"] + 4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestSentinelOperandStopsReader(t *testing.T) {
	b := newTestDex(t)
	image := b.finish()
	// const-string/jumbo in ci0 gets NO_INDEX, and ci1 starts with a valid one.
	put32(image, b.labels["ci0"]+sizeofCodeItem+3*2, SentinelIndex)
	ci1 := b.labels["ci1"] + sizeofCodeItem
	copy(image[ci1:], []byte{0x1B, 0x00, 0x06, 0x00, 0x00, 0x00})
	d := mustParse(t, image)

	r := d.MakeReadCodeToStringId32(0, d.Size())
	if ref, ok := r.GetNext(); ok {
		t.Fatalf("GetNext() = %v, want reader exhausted at the sentinel operand", ref)
	}
	if ref, ok := r.GetNext(); ok {
		t.Errorf("GetNext() after exhaustion = %v", ref)
	}

	// A window starting in ci1 is unaffected.
	got := Collect(d.MakeReadCodeToStringId32(b.labels["ci1"], d.Size()))
	want := []Reference{{Location: ci1 + 2, Target: b.labels["string_ids"] + 6*4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidOffsetStopsCachedReader(t *testing.T) {
	b := newTestDex(t)
	image := b.finish()
	put32(image, b.labels["as1"]+4, uint32(len(image)))
	d := mustParse(t, image)

	got := Collect(d.MakeReadAnnotationSetToAnnotation(0, d.Size()))
	want := []Reference{{Location: b.labels["as0"] + 4, Target: b.labels["ann0"]}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestWriterErrors(t *testing.T) {
	b := newTestDex(t)
	image := b.finish()
	d := mustParse(t, image)
	S, c0 := b.labels["string_ids"], b.labels["ci0"]+sizeofCodeItem

	tests := []struct {
		name string
		w    Writer
		ref  Reference
	}{
		{"IndexMisaligned", d.MakeWriteStringId32(image), Reference{Location: b.labels["type_ids"], Target: S + 1}},
		{"IndexBeforePool", d.MakeWriteStringId32(image), Reference{Location: b.labels["type_ids"], Target: S - 4}},
		{"IndexPastPool", d.MakeWriteStringId32(image), Reference{Location: b.labels["type_ids"], Target: S + 4*uint32(len(testStrings))}},
		{"ProtoPastPool", d.MakeWriteProtoId16(image), Reference{Location: b.labels["method_ids"] + 2, Target: b.labels["proto_ids"] + 24}},
		{"AbsOutOfImage", d.MakeWriteAbs32(image), Reference{Location: uint32(len(image)) - 2, Target: 0x100}},
		{"RelCode8TooFar", d.MakeWriteRelCode8(image), Reference{Location: c0 + 29, Target: c0 + 28 + 2*200}},
		{"RelCodeOddTarget", d.MakeWriteRelCode16(image), Reference{Location: c0 + 26, Target: c0 + 37}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := bytes.Clone(image)
			if err := tt.w.PutNext(tt.ref); !errors.Is(err, ErrBadTarget) {
				t.Errorf("PutNext() error = %v, want %v", err, ErrBadTarget)
			}
			if !bytes.Equal(before, image) {
				t.Error("failed PutNext() modified the image")
			}
		})
	}
}

func TestRelCodeRetarget(t *testing.T) {
	b := newTestDex(t)
	image := b.finish()
	d := mustParse(t, image)
	c0 := b.labels["ci0"] + sizeofCodeItem

	// Point goto +1 back at the first instruction.
	if err := d.MakeWriteRelCode8(image).PutNext(Reference{Location: c0 + 29, Target: c0}); err != nil {
		t.Fatalf("PutNext() error = %v", err)
	}
	if got := int8(image[c0+29]); got != -14 {
		t.Errorf("delta = %d, want -14", got)
	}
	d = mustParse(t, image)
	got := Collect(d.MakeReadCodeToRelCode8(0, d.Size()))
	if diff := cmp.Diff([]Reference{{Location: c0 + 29, Target: c0}}, got); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestReferenceTypeFromString(t *testing.T) {
	for ty := ReferenceType(0); ty < NumTypes; ty++ {
		got, err := ReferenceTypeFromString(ty.String())
		if err != nil || got != ty {
			t.Errorf("ReferenceTypeFromString(%q) = %v, %v", ty.String(), got, err)
		}
	}
	if got, err := ReferenceTypeFromString("codetorelcode8"); err != nil || got != CodeToRelCode8 {
		t.Errorf("ReferenceTypeFromString() is case sensitive: %v, %v", got, err)
	}
	if _, err := ReferenceTypeFromString("CodeToCallSite"); err == nil {
		t.Error("ReferenceTypeFromString() accepted an unknown name")
	}
}
