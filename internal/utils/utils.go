package utils

import (
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
)

var normalPadding = cli.Default.Padding

// ConvertStrToInt converts an input string to uint64
func ConvertStrToInt(intStr string) (uint64, error) {
	intStr = strings.ToLower(intStr)

	if strings.ContainsAny(intStr, "xabcdef") {
		intStr = strings.Replace(intStr, "0x", "", -1)
		intStr = strings.Replace(intStr, "x", "", -1)
		if out, err := strconv.ParseUint(intStr, 16, 64); err == nil {
			return out, err
		}
		log.Warn("assuming given integer is in decimal")
	}
	return strconv.ParseUint(intStr, 10, 64)
}

// ConvertStrToUint32 is ConvertStrToInt limited to offsets that fit a dex image.
func ConvertStrToUint32(intStr string) (uint32, error) {
	v, err := ConvertStrToInt(intStr)
	if err != nil {
		return 0, err
	}
	if v > 0xFFFFFFFF {
		return 0, strconv.ErrRange
	}
	return uint32(v), nil
}

// Indent indents apex log line to supplied level
func Indent(f func(s string), level int) func(string) {
	return func(s string) {
		cli.Default.Padding = normalPadding * level
		f(s)
		cli.Default.Padding = normalPadding
	}
}

// Pad creates left padding for printf members
func Pad(length int) string {
	if length > 0 {
		return strings.Repeat(" ", length)
	}
	return " "
}

// Windows splits [lo, hi) into consecutive windows of at most size bytes.
// A size of zero yields the whole range as a single window.
func Windows(lo, hi, size uint32) [][2]uint32 {
	if lo >= hi {
		return nil
	}
	if size == 0 {
		return [][2]uint32{{lo, hi}}
	}
	var out [][2]uint32
	for w := lo; w < hi; {
		end := hi
		if hi-w > size {
			end = w + size
		}
		out = append(out, [2]uint32{w, end})
		w = end
	}
	return out
}
