// SPDX-License-Identifier: MPL-2.0

package stage

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CreateArchive writes a gzip-compressed tarball of srcDir to dst.
// Entries are stored with paths relative to srcDir so the archive unpacks
// into the directory it was taken from. Sockets are skipped; absolute
// symlinks are rejected because they would escape the unpack directory.
//
// The file is fsync'd before close so the archive is fully on disk when
// this function returns. The engine build that follows reads it
// immediately, so buffered but unwritten bytes would truncate the image's
// copy of the archive.
func CreateArchive(dst, srcDir string) (err error) {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", dst, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close archive %s: %w", dst, closeErr)
		}
	}()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if path == srcDir {
			return nil
		}
		return addEntry(tw, srcDir, path)
	})
	if walkErr != nil {
		return fmt.Errorf("failed to archive %s: %w", srcDir, walkErr)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finalize tar stream: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to finalize gzip stream: %w", err)
	}

	// Flush to disk before the build reads the archive.
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync archive %s: %w", dst, err)
	}

	return nil
}

// addEntry writes a single filesystem entry into the tar stream.
func addEntry(tw *tar.Writer, root, path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return err
	}

	mode := fi.Mode()
	if mode&os.ModeSocket != 0 {
		return nil
	}

	var header *tar.Header
	if mode&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		if filepath.IsAbs(target) {
			return fmt.Errorf("symlink %s points outside the archive (absolute target %s)", path, target)
		}
		header, err = tar.FileInfoHeader(fi, target)
		if err != nil {
			return err
		}
	} else {
		header, err = tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(rel)
	if fi.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if mode.IsRegular() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("writing file %q: %w", path, err)
		}
	}

	return nil
}
