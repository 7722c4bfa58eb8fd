package extract

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/lzw"
	"io"

	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz"

	"github.com/coget/coget/pkg/logging"
)

const peekSize = 8

var (
	gzipMagic = []byte{0x1F, 0x8B}
	bzipMagic = []byte{0x42, 0x5A}
	xzMagic   = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	lzwMagic  = []byte{0x1F, 0x9D}
	// The lz4 frame magic 0x184D2204, as its little-endian wire form.
	lz4Magic = []byte{0x04, 0x22, 0x4D, 0x18}
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}
)

var _ decompressor = gzipDecompressor{}
var _ decompressor = bzip2Decompressor{}
var _ decompressor = xzDecompressor{}
var _ decompressor = lzwDecompressor{}
var _ decompressor = lz4Decompressor{}

// decompressor represents different compression formats.
type decompressor interface {
	decompress(r io.Reader) (io.Reader, error)
}

func isZip(header []byte) bool {
	return bytes.HasPrefix(header, zipMagic)
}

// detectFormat returns the decompressor matching the magic number, or nil
// for uncompressed input.
func detectFormat(header []byte) decompressor {
	log := logging.GetLogger()

	if len(header) < 2 {
		return nil
	}
	if len(header) < peekSize {
		header = append(header, make([]byte, peekSize-len(header))...)
	}

	switch {
	case bytes.HasPrefix(header, gzipMagic):
		log.Debug().Str("type", "gzip").Msg("Compression Format")
		return gzipDecompressor{}
	case bytes.HasPrefix(header, bzipMagic):
		log.Debug().Str("type", "bzip2").Msg("Compression Format")
		return bzip2Decompressor{}
	case bytes.HasPrefix(header, lzwMagic):
		// The high order 3 bits of byte[2] encode litWidth-9; the low
		// order 5 bits are only meaningful to non-unix implementations
		// and are ignored here.
		litWidth := int(header[2]>>5) + 9
		log.Debug().Str("type", "lzw").Int("litWidth", litWidth).Msg("Compression Format")
		return lzwDecompressor{order: lzw.MSB, litWidth: litWidth}
	case bytes.HasPrefix(header, lz4Magic):
		log.Debug().Str("type", "lz4").Msg("Compression Format")
		return lz4Decompressor{}
	case bytes.HasPrefix(header, xzMagic):
		log.Debug().Str("type", "xz").Msg("Compression Format")
		return xzDecompressor{}
	default:
		log.Debug().Str("type", "none").Msg("Compression Format")
		return nil
	}
}

type gzipDecompressor struct{}

func (d gzipDecompressor) decompress(r io.Reader) (io.Reader, error) {
	return gzip.NewReader(r)
}

type bzip2Decompressor struct{}

func (d bzip2Decompressor) decompress(r io.Reader) (io.Reader, error) {
	return bzip2.NewReader(r), nil
}

type xzDecompressor struct{}

func (d xzDecompressor) decompress(r io.Reader) (io.Reader, error) {
	return xz.NewReader(r)
}

type lzwDecompressor struct {
	litWidth int
	order    lzw.Order
}

func (d lzwDecompressor) decompress(r io.Reader) (io.Reader, error) {
	return lzw.NewReader(r, d.order, d.litWidth), nil
}

type lz4Decompressor struct{}

func (d lz4Decompressor) decompress(r io.Reader) (io.Reader, error) {
	return lz4.NewReader(r), nil
}
