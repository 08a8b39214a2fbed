package dex

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/kiwibrowser/android-sub011/internal/buffer"
)

// Supported DEX format versions. 038 and later add call sites and method
// handles, which are not modeled.
var supportedVersions = map[int]bool{
	35: true,
	37: true,
}

// readHeader validates the header at the start of image and returns it with
// the decoded format version. It runs on every QuickDetect, so it only looks
// at the first sizeofHeaderItem bytes.
func readHeader(image buffer.View) (*HeaderItem, int, error) {
	if image.Size() < sizeofHeaderItem {
		return nil, 0, ErrNotDex
	}

	var hdr HeaderItem
	if err := binary.Read(bytes.NewReader(image.Bytes()[:sizeofHeaderItem]), binary.LittleEndian, &hdr); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNotDex, err)
	}

	m := hdr.Magic
	if m[0] != 'd' || m[1] != 'e' || m[2] != 'x' || m[3] != '\n' || m[7] != 0 {
		return nil, 0, ErrNotDex
	}

	version := 0
	for _, c := range m[4:7] {
		if c < '0' || c > '9' {
			return nil, 0, ErrNotDex
		}
		version = version*10 + int(c-'0')
	}
	if !supportedVersions[version] {
		return nil, 0, fmt.Errorf("%w: %03d", ErrUnsupportedVersion, version)
	}

	switch {
	case hdr.FileSize > image.Size():
		return nil, 0, fmt.Errorf("%w: file_size %#x exceeds image size %#x", ErrBadHeader, hdr.FileSize, image.Size())
	case hdr.FileSize < sizeofHeaderItem:
		return nil, 0, fmt.Errorf("%w: file_size %#x smaller than header", ErrBadHeader, hdr.FileSize)
	case hdr.MapOff < sizeofHeaderItem:
		return nil, 0, fmt.Errorf("%w: map_off %#x inside header", ErrBadHeader, hdr.MapOff)
	}

	return &hdr, version, nil
}

// QuickDetect applies cheap header checks to decide whether image may be a
// supported DEX file.
func QuickDetect(image []byte) bool {
	_, _, err := readHeader(buffer.NewView(image))
	return err == nil
}
