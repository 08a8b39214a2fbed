package dex

import (
	"bytes"
	"cmp"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/apex/log"
	"github.com/aymanbagabas/go-udiff"
	"github.com/kiwibrowser/android-sub011/internal/utils"
	"github.com/kiwibrowser/android-sub011/pkg/dex"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Edit retargets the reference of one type encoded at Location.
type Edit struct {
	Type     string `yaml:"type" json:"type"`
	Location uint32 `yaml:"location" json:"location"`
	Target   uint32 `yaml:"target" json:"target"`
}

// EditFile is the on-disk form of a list of edits:
//
//	edits:
//	  - type: CodeToStringId16
//	    location: 0x2f6
//	    target: 0x8c
type EditFile struct {
	Edits []Edit `yaml:"edits" json:"edits"`
}

// ReadEdits loads an EditFile from path.
func ReadEdits(path string) (*EditFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read edits file %s", path)
	}
	var ef EditFile
	if err := yaml.Unmarshal(data, &ef); err != nil {
		return nil, errors.Wrapf(err, "failed to decode edits file %s", path)
	}
	return &ef, nil
}

// ApplyEdits rewrites image in place. Each edit must name a reference that d
// actually finds at its location. All edits are looked up before any is
// written, since d reads the image it was parsed from. The edits are written
// to a copy first, so on error image is left untouched. The old targets are
// returned so callers can report or undo the change. When fixChecksum is set
// the header signature and checksum are recomputed after all edits.
func ApplyEdits(image []byte, d *dex.Disassembler, edits []Edit, fixChecksum bool) ([]Edit, error) {
	groups := d.ReferenceGroups()
	types := make([]dex.ReferenceType, len(edits))
	old := make([]Edit, len(edits))

	for i, e := range edits {
		t, err := dex.ReferenceTypeFromString(e.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "edit %d", i)
		}
		g := groups[t]
		ref, ok := g.MakeReader(e.Location, e.Location+g.Width).GetNext()
		if !ok || ref.Location != e.Location {
			return nil, fmt.Errorf("edit %d: no %s reference at %#x", i, t, e.Location)
		}
		types[i] = t
		old[i] = Edit{Type: t.String(), Location: e.Location, Target: ref.Target}
	}

	scratch := bytes.Clone(image)
	writers := make(map[dex.ReferenceType]dex.Writer)
	for i, e := range edits {
		t := types[i]
		w, ok := writers[t]
		if !ok {
			w = groups[t].MakeWriter(scratch)
			writers[t] = w
		}
		if err := w.PutNext(dex.Reference{Location: e.Location, Target: e.Target}); err != nil {
			return nil, errors.Wrapf(err, "edit %d: failed to retarget %s at %#x", i, t, e.Location)
		}
		log.WithFields(log.Fields{
			"type":     t,
			"location": fmt.Sprintf("%#x", e.Location),
			"old":      fmt.Sprintf("%#x", old[i].Target),
			"new":      fmt.Sprintf("%#x", e.Target),
		}).Debug("retargeted reference")
	}

	if fixChecksum {
		if err := dex.UpdateChecksums(scratch); err != nil {
			return nil, errors.Wrap(err, "failed to update checksums")
		}
	}
	copy(image, scratch)
	return old, nil
}

// DiffEdits returns a unified diff of hex dumps of the lines of orig and
// patched touched by edits.
func DiffEdits(orig, patched []byte, edits []Edit) string {
	type span struct{ lo, hi uint32 }
	var spans []span
	size := min(len(orig), len(patched))
	for _, e := range edits {
		lo := int(e.Location) &^ 15
		hi := min((int(e.Location)+4+15)&^15, size)
		if lo >= hi {
			continue
		}
		spans = append(spans, span{uint32(lo), uint32(hi)})
	}
	slices.SortFunc(spans, func(a, b span) int { return cmp.Compare(a.lo, b.lo) })

	var before, after strings.Builder
	var end uint32
	for _, s := range spans {
		lo := max(s.lo, end)
		if lo >= s.hi {
			continue
		}
		before.WriteString(utils.HexDumpPlain(orig[lo:s.hi], lo))
		after.WriteString(utils.HexDumpPlain(patched[lo:s.hi], lo))
		end = s.hi
	}
	return udiff.Unified("original", "patched", before.String(), after.String())
}
