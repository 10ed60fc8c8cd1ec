// Package archive relocates fully-published run folders into the archive
// root, compresses them, and sweeps expired archives.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// suffixLayout stamps destination names when the archive root already holds
// an entry with the folder's name.
const suffixLayout = "20060102150405"

// ZipError means the folder was moved into the archive root but could not be
// compressed. The uncompressed data is preserved at Dir; it needs manual
// intervention but nothing was lost.
type ZipError struct {
	Dir string
	Err error
}

func (e *ZipError) Error() string {
	return fmt.Sprintf("compress %s: %v (uncompressed data preserved)", e.Dir, e.Err)
}

func (e *ZipError) Unwrap() error { return e.Err }

// CleanupError means the folder was moved and zipped, but the uncompressed
// copy could not be removed afterwards. The archive is complete; only the
// leftover directory at Dir needs manual removal.
type CleanupError struct {
	Dir string
	Err error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("remove %s: %v (archive zip written, uncompressed copy remains)", e.Dir, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

// Store archives one run folder: rename into root, zip the moved folder to
// <name>.zip beside it, then delete the uncompressed copy. The move comes
// first and the delete only follows a confirmed zip close, so the original
// data survives a crash at any point.
func Store(dir, root string, now time.Time) (string, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("create archive root: %w", err)
	}

	dest := uniquePath(filepath.Join(root, filepath.Base(dir)), now)
	if err := os.Rename(dir, dest); err != nil {
		return "", fmt.Errorf("move %s: %w", dir, err)
	}

	zipPath := uniquePath(dest+".zip", now)
	if err := zipDir(dest, zipPath); err != nil {
		os.Remove(zipPath)
		return "", &ZipError{Dir: dest, Err: err}
	}

	if err := os.RemoveAll(dest); err != nil {
		return "", &CleanupError{Dir: dest, Err: err}
	}
	return zipPath, nil
}

// uniquePath returns path, or path with a timestamp suffix when an entry with
// that name already exists. ".zip" keeps its extension after the suffix.
func uniquePath(path string, now time.Time) string {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	if ext != ".zip" {
		ext = ""
	}
	base := path[:len(path)-len(ext)]
	return base + "_" + now.Format(suffixLayout) + ext
}

// zipDir compresses dir into zipPath. Entries are rooted at the folder name
// so extraction reproduces the run folder.
func zipDir(dir, zipPath string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	prefix := filepath.Base(dir)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header := &zip.FileHeader{
			Name:     filepath.ToSlash(filepath.Join(prefix, rel)),
			Method:   zip.Deflate,
			Modified: info.ModTime(),
		}
		entry, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(entry, src)
		return err
	})
	if err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Close()
}
