package extract

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/coget/coget/pkg/logging"
)

type link struct {
	linkType byte
	oldName  string
	newName  string
}

// untar unpacks a tar stream into destDir. Links are collected and created
// after all regular entries so a link never dangles because its target
// appears later in the stream.
func untar(reader io.Reader, destDir string, overwrite bool) error {
	logger := logging.GetLogger()

	var links []*link
	tarReader := tar.NewReader(reader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		target, err := safeTarget(header.Name, destDir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			logger.Debug().Str("target", target).Str("perms", fmt.Sprintf("%o", header.Mode)).Msg("Tar: Directory")
			if err := os.MkdirAll(target, cleanFileMode(os.FileMode(header.Mode))); err != nil {
				return err
			}
		case tar.TypeReg:
			logger.Debug().Str("target", target).Str("perms", fmt.Sprintf("%o", header.Mode)).Msg("Tar: File")
			if err := writeEntry(tarReader, target, cleanFileMode(os.FileMode(header.Mode)), overwrite); err != nil {
				return err
			}
		case tar.TypeSymlink, tar.TypeLink:
			// Deferred, see above.
			logger.Debug().
				Str("link_type", string(header.Typeflag)).
				Str("old_name", header.Linkname).
				Str("new_name", target).
				Msg("Tar: (Defer) Link")
			links = append(links, &link{linkType: header.Typeflag, oldName: header.Linkname, newName: target})
		default:
			return fmt.Errorf("unsupported file type for %s, typeflag %s", header.Name, string(header.Typeflag))
		}
	}

	if err := createLinks(links, destDir, overwrite); err != nil {
		return fmt.Errorf("failed to create links: %w", err)
	}
	return nil
}

func writeEntry(reader io.Reader, target string, mode os.FileMode, overwrite bool) error {
	openFlags := os.O_CREATE | os.O_WRONLY | os.O_EXCL
	if overwrite {
		openFlags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	file, err := os.OpenFile(target, openFlags, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", target, err)
	}
	return nil
}

func createLinks(links []*link, destDir string, overwrite bool) error {
	logger := logging.GetLogger()
	for _, link := range links {
		if err := os.MkdirAll(filepath.Dir(link.newName), 0755); err != nil {
			return err
		}
		switch link.linkType {
		case tar.TypeLink:
			oldPath := filepath.Join(destDir, link.oldName)
			logger.Debug().Str("old_path", oldPath).Str("new_path", link.newName).Msg("Tar: creating hard link")
			if err := createHardLink(oldPath, link.newName, overwrite); err != nil {
				return fmt.Errorf("failed to create hard link from %s to %s: %w", oldPath, link.newName, err)
			}
		case tar.TypeSymlink:
			logger.Debug().Str("old_path", link.oldName).Str("new_path", link.newName).Msg("Tar: creating symlink")
			if err := createSymlink(link.oldName, link.newName, overwrite); err != nil {
				return fmt.Errorf("failed to create symlink from %s to %s: %w", link.oldName, link.newName, err)
			}
		default:
			return fmt.Errorf("unsupported link type %s", string(link.linkType))
		}
	}
	return nil
}

func createHardLink(oldName, newName string, overwrite bool) error {
	if overwrite {
		if err := os.Remove(newName); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove existing file: %w", err)
		}
	}
	return os.Link(oldName, newName)
}

func createSymlink(oldName, newName string, overwrite bool) error {
	if overwrite {
		if err := os.Remove(newName); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove existing symlink/file: %w", err)
		}
	}
	return os.Symlink(oldName, newName)
}
