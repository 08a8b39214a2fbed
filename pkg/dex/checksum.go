package dex

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/adler32"
)

const (
	offChecksum  = 8
	offSignature = 12
	endSignature = offSignature + sha1.Size
)

var (
	ErrBadChecksum  = errors.New("dex: adler32 checksum mismatch")
	ErrBadSignature = errors.New("dex: sha1 signature mismatch")
)

// checksummed returns the part of image covered by the header checksums:
// everything up to file_size, or the whole image if file_size is bogus.
func checksummed(image []byte) ([]byte, error) {
	if len(image) < sizeofHeaderItem {
		return nil, fmt.Errorf("%w: image is %d bytes", ErrNotDex, len(image))
	}
	size := binary.LittleEndian.Uint32(image[32:])
	if size >= sizeofHeaderItem && uint64(size) <= uint64(len(image)) {
		image = image[:size]
	}
	return image, nil
}

// UpdateChecksums recomputes the header signature and checksum of image
// in place. Rewriting references invalidates both.
func UpdateChecksums(image []byte) error {
	data, err := checksummed(image)
	if err != nil {
		return err
	}
	// The signature covers everything after itself and the checksum covers
	// the signature, so the signature goes first.
	sig := sha1.Sum(data[endSignature:])
	copy(data[offSignature:endSignature], sig[:])
	binary.LittleEndian.PutUint32(data[offChecksum:], adler32.Checksum(data[offSignature:]))
	return nil
}

// VerifyChecksum reports whether the header signature and checksum match
// the contents of image.
func VerifyChecksum(image []byte) error {
	data, err := checksummed(image)
	if err != nil {
		return err
	}
	sig := sha1.Sum(data[endSignature:])
	if !bytes.Equal(sig[:], data[offSignature:endSignature]) {
		return fmt.Errorf("%w: header has %x, computed %x", ErrBadSignature, data[offSignature:endSignature], sig)
	}
	if got, want := binary.LittleEndian.Uint32(data[offChecksum:]), adler32.Checksum(data[offSignature:]); got != want {
		return fmt.Errorf("%w: header has %#08x, computed %#08x", ErrBadChecksum, got, want)
	}
	return nil
}
