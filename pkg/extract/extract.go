// Package extract unpacks a downloaded archive next to the download. It
// understands zip archives and tar archives, the latter optionally wrapped
// in gzip, bzip2, xz, lzw or lz4 compression, detected by magic bytes.
package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/coget/coget/pkg/logging"
)

var (
	ErrEscapingArchive = errors.New("archive contains entry outside of target directory")
	ErrEmptyEntryName  = errors.New("archive contains entry with empty name")
)

// ExtractFile unpacks the archive at archivePath into destDir, creating it
// if needed. The archive itself is left in place. With overwrite set,
// existing files in destDir are replaced instead of failing the extraction.
func ExtractFile(archivePath, destDir string, overwrite bool) error {
	logger := logging.GetLogger()

	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer file.Close()

	header, err := sniffHeader(file)
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", archivePath, err)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory %s: %w", destDir, err)
	}

	if isZip(header) {
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("failed to stat archive %s: %w", archivePath, err)
		}
		logger.Debug().Str("path", archivePath).Str("format", "zip").Msg("Extract")
		return unzip(file, info.Size(), destDir, overwrite)
	}

	var reader io.Reader = file
	if d := detectFormat(header); d != nil {
		if reader, err = d.decompress(file); err != nil {
			return fmt.Errorf("failed to decompress %s: %w", archivePath, err)
		}
	}
	logger.Debug().Str("path", archivePath).Str("format", "tar").Msg("Extract")
	return untar(reader, destDir, overwrite)
}

// sniffHeader reads the first peekSize bytes of the file and rewinds, so
// format detection costs no bytes of the actual read.
func sniffHeader(file *os.File) ([]byte, error) {
	header := make([]byte, peekSize)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return header[:n], nil
}

// safeTarget joins an archive entry name into destDir and rejects entries
// that would land outside of it.
func safeTarget(name, destDir string) (string, error) {
	if name == "" {
		return "", ErrEmptyEntryName
	}
	target, err := filepath.Abs(filepath.Join(destDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	destAbs, err := filepath.Abs(destDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", destDir, err)
	}
	if target != destAbs && !strings.HasPrefix(target, destAbs+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q outside of %q", ErrEscapingArchive, name, destAbs)
	}
	return target, nil
}

func cleanFileMode(mode os.FileMode) os.FileMode {
	mask := os.ModeSticky | os.ModeSetuid | os.ModeSetgid
	return mode &^ mask
}
