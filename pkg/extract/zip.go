package extract

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/coget/coget/pkg/logging"
)

// unzip unpacks a zip archive into destDir. Only directories and regular
// files are supported, which covers what zip tooling produces in practice.
func unzip(reader io.ReaderAt, size int64, destDir string, overwrite bool) error {
	logger := logging.GetLogger()

	zipReader, err := zip.NewReader(reader, size)
	if err != nil {
		return fmt.Errorf("failed to open zip archive: %w", err)
	}
	for _, entry := range zipReader.File {
		target, err := safeTarget(entry.Name, destDir)
		if err != nil {
			return err
		}
		info := entry.FileInfo()
		switch {
		case info.IsDir():
			logger.Debug().Str("target", target).Msg("Zip: Directory")
			if err := os.MkdirAll(target, cleanFileMode(info.Mode().Perm())); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			logger.Debug().Str("target", target).Msg("Zip: File")
			if err := unzipEntry(entry, target, overwrite); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported file type (not dir or regular): %s (%s)", entry.Name, info.Mode().Type())
		}
	}
	return nil
}

func unzipEntry(entry *zip.File, target string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	in, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s in archive: %w", entry.Name, err)
	}
	defer in.Close()
	return writeEntry(in, target, cleanFileMode(entry.Mode().Perm()), overwrite)
}
