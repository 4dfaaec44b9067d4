package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/tiff"
)

// The stdlib-adjacent tiff decoder only ever reads the first image file
// directory, so multi-page support is built on the container layout: the
// header points at the first IFD and each IFD ends with the offset of the
// next one (zero terminates the chain).

const tiffIFDEntrySize = 12

// tiffHeader validates the 8-byte TIFF header and returns the byte order and
// the offset of the first IFD.
func tiffHeader(data []byte) (binary.ByteOrder, uint32, error) {
	if len(data) < 8 {
		return nil, 0, errors.New("file too short for a tiff header")
	}
	var bo binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		bo = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		bo = binary.BigEndian
	default:
		return nil, 0, errors.New("missing tiff byte-order mark")
	}
	if bo.Uint16(data[2:4]) != 42 {
		return nil, 0, errors.New("bad tiff magic number")
	}
	return bo, bo.Uint32(data[4:8]), nil
}

// tiffIFDOffsets walks the IFD chain and returns the offset of every page.
// A header pointing at no IFD at all yields an empty slice.
func tiffIFDOffsets(data []byte) ([]uint32, error) {
	bo, offset, err := tiffHeader(data)
	if err != nil {
		return nil, err
	}

	var offsets []uint32
	seen := make(map[uint32]bool)
	for offset != 0 {
		if seen[offset] {
			return nil, errors.New("cyclic tiff ifd chain")
		}
		seen[offset] = true

		if int64(offset)+2 > int64(len(data)) {
			return nil, errors.New("tiff ifd offset past end of file")
		}
		offsets = append(offsets, offset)

		entries := int64(bo.Uint16(data[offset : offset+2]))
		next := int64(offset) + 2 + entries*tiffIFDEntrySize
		if next+4 > int64(len(data)) {
			return nil, errors.New("tiff ifd table past end of file")
		}
		offset = bo.Uint32(data[next : next+4])
	}

	return offsets, nil
}

// tiffDecodePage decodes the zero-based page by repointing the header's
// first-IFD offset at that page before handing the bytes to the decoder.
func tiffDecodePage(data []byte, page int) (image.Image, error) {
	offsets, err := tiffIFDOffsets(data)
	if err != nil {
		return nil, err
	}
	if page < 0 || page >= len(offsets) {
		return nil, fmt.Errorf("page %d out of range (%d pages)", page, len(offsets))
	}

	if page == 0 {
		return tiff.Decode(bytes.NewReader(data))
	}

	bo, _, err := tiffHeader(data)
	if err != nil {
		return nil, err
	}
	patched := make([]byte, len(data))
	copy(patched, data)
	bo.PutUint32(patched[4:8], offsets[page])
	return tiff.Decode(bytes.NewReader(patched))
}
