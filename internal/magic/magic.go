package magic

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

var (
	MagicDex  = []byte("dex\n")
	MagicOdex = []byte("dey\n")
	MagicCdex = []byte("cdex")
	// MagicVdex prefixes the vdex containers that ship dex files on newer
	// Android releases.
	MagicVdex = []byte("vdex")
)

// IsDex reports whether the file at filePath starts with the dex magic.
// Other members of the dex family are detected and returned as errors that
// say what was found.
func IsDex(filePath string) (bool, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return false, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer f.Close()
	return IsDexReader(f)
}

// IsDexReader is IsDex over an already opened reader.
func IsDexReader(r io.Reader) (bool, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return false, fmt.Errorf("failed to read magic: %w", err)
	}

	switch {
	case bytes.Equal(magic[:], MagicDex):
		return true, nil
	case bytes.Equal(magic[:], MagicOdex):
		return false, fmt.Errorf("odex file detected (deodex it first)")
	case bytes.Equal(magic[:], MagicCdex):
		return false, fmt.Errorf("compact dex file detected (convert it with `compact_dex_converter`)")
	case bytes.Equal(magic[:], MagicVdex):
		return false, fmt.Errorf("vdex file detected (extract the dex files it contains)")
	default:
		return false, fmt.Errorf("not a dex file")
	}
}
