package dex

import (
	"errors"
	"fmt"

	"github.com/kiwibrowser/android-sub011/internal/buffer"
)

// ErrBadTarget is returned by a Writer when a target cannot be encoded in
// the field it is written to.
var ErrBadTarget = errors.New("dex: target cannot be encoded")

// Writer stores References into a mutable image. PutNext writes
// ref.Target, encoded for its type, at ref.Location.
type Writer interface {
	PutNext(ref Reference) error
}

type writeFunc func(ref Reference, image buffer.MutableView) error

// writerAdaptor binds a writeFunc to the image it writes into.
type writerAdaptor struct {
	image buffer.MutableView
	write writeFunc
}

func (w *writerAdaptor) PutNext(ref Reference) error {
	return w.write(ref, w.image)
}

// indexWriter stores the index of the item of the fixed-stride pool mi that
// starts at ref.Target, as an unsigned integer of width bytes.
func indexWriter(width uint32, mi MapItem, stride uint32) writeFunc {
	return func(ref Reference, image buffer.MutableView) error {
		if ref.Target < mi.Offset {
			return fmt.Errorf("%w: %#x precedes %s at %#x", ErrBadTarget, ref.Target, MapItemTypeName(mi.Type), mi.Offset)
		}
		rel := ref.Target - mi.Offset
		if rel%stride != 0 {
			return fmt.Errorf("%w: %#x is not the start of a %s", ErrBadTarget, ref.Target, MapItemTypeName(mi.Type))
		}
		idx := rel / stride
		if idx >= mi.Size {
			return fmt.Errorf("%w: index %d out of %d %s", ErrBadTarget, idx, mi.Size, MapItemTypeName(mi.Type))
		}
		if err := image.PutUint(ref.Location, width, uint64(idx)); err != nil {
			return fmt.Errorf("%w: index %d at %#x: %v", ErrBadTarget, idx, ref.Location, err)
		}
		return nil
	}
}

func absWriter(ref Reference, image buffer.MutableView) error {
	if err := image.PutUint(ref.Location, 4, uint64(ref.Target)); err != nil {
		return fmt.Errorf("%w: offset %#x at %#x: %v", ErrBadTarget, ref.Target, ref.Location, err)
	}
	return nil
}

// relCodeWriter stores the displacement from the owning instruction, which
// starts operand bytes before ref.Location, to ref.Target in code units.
func relCodeWriter(width, operand uint32) writeFunc {
	return func(ref Reference, image buffer.MutableView) error {
		if ref.Location < operand {
			return fmt.Errorf("%w: no instruction before %#x", ErrBadTarget, ref.Location)
		}
		diff := int64(ref.Target) - int64(ref.Location-operand)
		if diff%instrUnitSize != 0 {
			return fmt.Errorf("%w: branch %#x -> %#x is not unit aligned", ErrBadTarget, ref.Location, ref.Target)
		}
		delta := diff / instrUnitSize
		if err := image.PutInt(ref.Location, width, delta); err != nil {
			return fmt.Errorf("%w: branch delta %d at %#x: %v", ErrBadTarget, delta, ref.Location, err)
		}
		return nil
	}
}
