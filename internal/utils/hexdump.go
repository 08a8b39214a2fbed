package utils

import (
	"encoding/hex"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/kiwibrowser/android-sub011/internal/colors"
)

// CREDIT: https://pkg.go.dev/encoding/hex (edited to add offsets, color and highlighted spans)

var (
	colorFaint     = colors.FaintHiBlue().SprintFunc()
	colorHighlight = colors.BoldOnHiYellow().SprintFunc()
	zerosMatch     = regexp.MustCompile(`\s(00\s)+|\.`)
)

// Span is a run of bytes to highlight in a dump, given by absolute offset.
type Span struct {
	Offset uint32
	Width  uint32
}

func colorZeros(dump string) string {
	if len(dump) > 0 {
		dump = zerosMatch.ReplaceAllStringFunc(dump, func(s string) string {
			return colorFaint(s)
		})
	}
	return dump
}

// HexDump returns a string that contains a hex dump of the given data. The format
// of the hex dump matches the output of `hexdump -C` on the command line.
func HexDump(data []byte, offset uint32) string {
	if len(data) == 0 {
		return ""
	}
	var buf strings.Builder
	// 79 bytes per complete 16 byte chunk, at least 64 for the rest.
	buf.Grow((1 + ((len(data) - 1) / 16)) * 79)

	dumper := Dumper(&buf, offset)
	dumper.Write(data)
	dumper.Close()
	return colorZeros(buf.String())
}

// HexDumpPlain is HexDump without any color, for output that is compared or
// diffed.
func HexDumpPlain(data []byte, offset uint32) string {
	var buf strings.Builder
	d := &dumper{w: &buf, n: offset, plain: true}
	d.Write(data)
	d.Close()
	return buf.String()
}

// HexDumpSpans is HexDump with the bytes covered by spans highlighted. Runs of
// zeros are left uncolored so that highlighted references stay readable.
func HexDumpSpans(data []byte, offset uint32, spans []Span) string {
	if len(data) == 0 {
		return ""
	}
	sorted := append([]Span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	var buf strings.Builder
	buf.Grow((1 + ((len(data) - 1) / 16)) * 79)

	d := &dumper{w: &buf, n: offset, highlight: func(off uint32) bool {
		i := sort.Search(len(sorted), func(i int) bool {
			return sorted[i].Offset+sorted[i].Width > off
		})
		return i < len(sorted) && sorted[i].Offset <= off
	}}
	d.Write(data)
	d.Close()
	return buf.String()
}

// Dumper returns a WriteCloser that writes a hex dump of all written data to
// w. The format of the dump matches the output of `hexdump -C` on the command
// line.
func Dumper(w io.Writer, offset uint32) io.WriteCloser {
	return &dumper{w: w, n: offset}
}

type dumper struct {
	w          io.Writer
	rightChars [18]byte
	buf        [14]byte
	used       int    // number of bytes in the current line
	n          uint32 // offset of the next byte
	closed     bool
	plain      bool
	highlight  func(off uint32) bool
}

func toChar(b byte) byte {
	if b < 32 || b > 126 {
		return '.'
	}
	return b
}

func (h *dumper) writeByte(b byte, sep string) error {
	hex.Encode(h.buf[:2], []byte{b})
	cell := string(h.buf[:2])
	if h.highlight != nil && h.highlight(h.n) {
		cell = colorHighlight(cell)
	}
	_, err := io.WriteString(h.w, cell+sep)
	return err
}

func (h *dumper) Write(data []byte) (n int, err error) {
	if h.closed {
		return 0, errors.New("hexdump: dumper closed")
	}

	// Output lines look like:
	// 00000010  2e 2f 30 31 32 33 34 35  36 37 38 39 3a 3b 3c 3d  |./0123456789:;<=|
	// ^ offset                          ^ extra space              ^ ASCII of line.
	for i := range data {
		if h.used == 0 {
			h.buf[0] = byte(h.n >> 24)
			h.buf[1] = byte(h.n >> 16)
			h.buf[2] = byte(h.n >> 8)
			h.buf[3] = byte(h.n)
			hex.Encode(h.buf[4:], h.buf[:4])
			if h.plain {
				io.WriteString(h.w, string(h.buf[4:12])+":")
			} else {
				colors.ItalicFaint().Fprint(h.w, string(h.buf[4:12])+":")
			}
			if _, err = io.WriteString(h.w, "  "); err != nil {
				return
			}
		}
		sep := " "
		switch h.used {
		case 7:
			// There's an additional space after the 8th byte.
			sep = "  "
		case 15:
			// At the end of the line there's an extra space and
			// the bar for the right column.
			sep = "  |"
		}
		if err = h.writeByte(data[i], sep); err != nil {
			return
		}
		n++
		h.rightChars[h.used] = toChar(data[i])
		h.used++
		h.n++
		if h.used == 16 {
			h.rightChars[16] = '|'
			h.rightChars[17] = '\n'
			if _, err = h.w.Write(h.rightChars[:]); err != nil {
				return
			}
			h.used = 0
		}
	}
	return
}

func (h *dumper) Close() (err error) {
	if h.closed {
		return
	}
	h.closed = true
	if h.used == 0 {
		return
	}
	nBytes := h.used
	for h.used < 16 {
		pad := "   "
		switch h.used {
		case 7:
			pad = "    "
		case 15:
			pad = "    |"
		}
		if _, err = io.WriteString(h.w, pad); err != nil {
			return
		}
		h.used++
	}
	h.rightChars[nBytes] = '|'
	h.rightChars[nBytes+1] = '\n'
	_, err = h.w.Write(h.rightChars[:nBytes+2])
	return
}
