// Package dex implements the dexrefs subcommands on top of pkg/dex.
package dex

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/kiwibrowser/android-sub011/internal/magic"
	"github.com/kiwibrowser/android-sub011/pkg/dex"
	"github.com/pkg/errors"
)

// Open reads and parses the dex file at path. The returned image is the
// caller's to patch.
func Open(path string) ([]byte, *dex.Disassembler, error) {
	if ok, err := magic.IsDex(path); !ok {
		return nil, nil, errors.Wrapf(err, "failed to open %s", path)
	}
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read %s", path)
	}
	d, err := dex.Parse(image)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	log.WithFields(log.Fields{
		"path": path,
		"size": d.Size(),
	}).Debugf("parsed %s", d.ExeTypeString())
	return image, d, nil
}

// Section is one map list entry.
type Section struct {
	Type   string `json:"type" yaml:"type"`
	Code   uint16 `json:"code" yaml:"code"`
	Offset uint32 `json:"offset" yaml:"offset"`
	Count  uint32 `json:"count" yaml:"count"`
}

// Info summarizes a parsed dex file.
type Info struct {
	Format     string         `json:"format" yaml:"format"`
	Version    int            `json:"version" yaml:"version"`
	FileSize   uint32         `json:"file_size" yaml:"file_size"`
	Checksum   uint32         `json:"checksum" yaml:"checksum"`
	Signature  string         `json:"signature" yaml:"signature"`
	ChecksumOK bool           `json:"checksum_ok" yaml:"checksum_ok"`
	Sections   []Section      `json:"sections" yaml:"sections"`
	Counts     dex.ItemCounts `json:"counts" yaml:"counts"`
}

// GetInfo collects the header, map list and prescan counts of d.
func GetInfo(image []byte, d *dex.Disassembler) *Info {
	hdr := d.Header()
	info := &Info{
		Format:     d.ExeTypeString(),
		Version:    d.Version(),
		FileSize:   hdr.FileSize,
		Checksum:   hdr.Checksum,
		Signature:  fmt.Sprintf("%x", hdr.Signature),
		ChecksumOK: dex.VerifyChecksum(image) == nil,
		Counts:     d.ItemCounts(),
	}
	for _, mi := range d.MapItems() {
		info.Sections = append(info.Sections, Section{
			Type:   dex.MapItemTypeName(mi.Type),
			Code:   mi.Type,
			Offset: mi.Offset,
			Count:  mi.Size,
		})
	}
	return info
}
