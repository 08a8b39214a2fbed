package dex

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/kiwibrowser/android-sub011/internal/utils"
	"github.com/kiwibrowser/android-sub011/pkg/dex"
	"golang.org/x/sync/errgroup"
)

// RefsOptions selects what CollectReferences enumerates.
type RefsOptions struct {
	// Types lists the reference types to read. Empty means all of them.
	Types []dex.ReferenceType
	// Lo and Hi bound the window; Hi == 0 means the end of the image.
	Lo, Hi uint32
	// Window splits [Lo, Hi) into chunks of this many bytes. 0 reads the range
	// in one pass.
	Window uint32
	// Workers limits how many types are read concurrently.
	Workers int
}

// TypeRefs holds the references of one type.
type TypeRefs struct {
	Type       string          `json:"type" yaml:"type"`
	Pool       string          `json:"pool" yaml:"pool"`
	Width      uint32          `json:"width" yaml:"width"`
	References []dex.Reference `json:"references" yaml:"references"`
}

func (o *RefsOptions) bounds(d *dex.Disassembler) (uint32, uint32, error) {
	lo, hi := o.Lo, o.Hi
	if hi == 0 || hi > d.Size() {
		hi = d.Size()
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("window start %#x is past its end %#x", lo, hi)
	}
	return lo, hi, nil
}

func (o *RefsOptions) types() []dex.ReferenceType {
	if len(o.Types) > 0 {
		return o.Types
	}
	all := make([]dex.ReferenceType, dex.NumTypes)
	for i := range all {
		all[i] = dex.ReferenceType(i)
	}
	return all
}

// readWindowed enumerates g over [lo, hi) in windows of size bytes. A reader
// yields exactly the references whose location lies inside its window, so the
// concatenated windows hold every reference once.
func readWindowed(ctx context.Context, g dex.ReferenceGroup, lo, hi, size uint32) ([]dex.Reference, error) {
	var refs []dex.Reference
	for _, w := range utils.Windows(lo, hi, size) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		refs = append(refs, dex.Collect(g.MakeReader(w[0], w[1]))...)
	}
	return refs, nil
}

// CollectReferences reads the references selected by opts, one goroutine per
// type. Results are in the order of opts.Types.
func CollectReferences(ctx context.Context, d *dex.Disassembler, opts RefsOptions) ([]TypeRefs, error) {
	lo, hi, err := opts.bounds(d)
	if err != nil {
		return nil, err
	}
	types := opts.types()
	for _, t := range types {
		if t >= dex.NumTypes {
			return nil, fmt.Errorf("invalid reference type %d", t)
		}
	}
	groups := d.ReferenceGroups()
	out := make([]TypeRefs, len(types))

	eg, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		eg.SetLimit(opts.Workers)
	}
	for i, t := range types {
		eg.Go(func() error {
			g := groups[t]
			refs, err := readWindowed(ctx, g, lo, hi, opts.Window)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"type":  t,
				"count": len(refs),
			}).Debug("read references")
			out[i] = TypeRefs{
				Type:       t.String(),
				Pool:       g.Pool.String(),
				Width:      g.Width,
				References: refs,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Spans returns the byte ranges covered by the encoded references in refs,
// for highlighting in a hex dump.
func Spans(refs []TypeRefs) []utils.Span {
	var spans []utils.Span
	for _, tr := range refs {
		for _, r := range tr.References {
			spans = append(spans, utils.Span{Offset: r.Location, Width: tr.Width})
		}
	}
	return spans
}
