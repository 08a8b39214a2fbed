package dex

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/apex/log"
	"github.com/kiwibrowser/android-sub011/pkg/dex"
	"golang.org/x/sync/errgroup"
)

// DefaultVerifyWindow is the window size Verify cuts the image into when
// none is configured. It is odd so that window edges fall inside items.
const DefaultVerifyWindow = 29

// TypeCheck is the verify result for one reference type.
type TypeCheck struct {
	Type     string   `json:"type" yaml:"type"`
	Count    int      `json:"count" yaml:"count"`
	Failures []string `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// OK reports whether every check passed.
func (c TypeCheck) OK() bool { return len(c.Failures) == 0 }

// VerifyReport is the result of Verify.
type VerifyReport struct {
	Checksum string      `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	Types    []TypeCheck `json:"types" yaml:"types"`
}

// OK reports whether the checksums and every type check passed.
func (r *VerifyReport) OK() bool {
	if r.Checksum != "" {
		return false
	}
	for _, c := range r.Types {
		if !c.OK() {
			return false
		}
	}
	return true
}

// Verify checks, for every reference type, that references come out in
// ascending non-overlapping order with in-bounds targets, that windowed
// enumeration matches a single pass, and that rewriting every reference to
// its own target leaves the image unchanged.
func Verify(ctx context.Context, image []byte, d *dex.Disassembler, window uint32, workers int) (*VerifyReport, error) {
	if window == 0 {
		window = DefaultVerifyWindow
	}
	report := &VerifyReport{Types: make([]TypeCheck, dex.NumTypes)}
	if err := dex.VerifyChecksum(image); err != nil {
		report.Checksum = err.Error()
	}

	eg, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for i, g := range d.ReferenceGroups() {
		eg.Go(func() error {
			c, err := checkGroup(ctx, image, d.Size(), g, window)
			if err != nil {
				return err
			}
			report.Types[i] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func checkGroup(ctx context.Context, image []byte, size uint32, g dex.ReferenceGroup, window uint32) (TypeCheck, error) {
	c := TypeCheck{Type: g.Type.String()}
	fail := func(format string, args ...any) {
		c.Failures = append(c.Failures, fmt.Sprintf(format, args...))
	}

	all := dex.Collect(g.MakeReader(0, size))
	c.Count = len(all)
	for i, r := range all {
		if uint64(r.Location)+uint64(g.Width) > uint64(size) {
			fail("reference at %#x overruns the image", r.Location)
		}
		if r.Target >= size {
			fail("reference at %#x targets %#x past the image", r.Location, r.Target)
		}
		if i > 0 && all[i-1].Location+g.Width > r.Location {
			fail("reference at %#x overlaps or precedes the one at %#x", r.Location, all[i-1].Location)
		}
	}

	windowed, err := readWindowed(ctx, g, 0, size, window)
	if err != nil {
		return c, err
	}
	if !slices.Equal(all, windowed) {
		fail("windowed enumeration found %d references, a single pass found %d", len(windowed), len(all))
	}

	// Writers need their own copy of the image.
	scratch := bytes.Clone(image[:size])
	w := g.MakeWriter(scratch)
	for _, r := range all {
		if err := w.PutNext(r); err != nil {
			fail("rewriting reference at %#x: %v", r.Location, err)
		}
	}
	if !bytes.Equal(scratch, image[:size]) {
		fail("rewriting references with their own targets changed the image")
	}

	if !c.OK() {
		log.WithField("type", g.Type).Debugf("%d checks failed", len(c.Failures))
	}
	return c, nil
}
