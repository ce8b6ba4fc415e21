// Package romfile loads ROM and boot ROM images from disk, unpacking the
// common archive formats ROMs are distributed in.
package romfile

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/ulikunitz/xz"
)

var ErrEmptyArchive = errors.New("romfile: archive holds no files")

// archiveFile is the common view of zip and 7z members.
type archiveFile struct {
	name string
	open func() (io.ReadCloser, error)
}

// Load reads path, transparently decompressing .gz, .xz, .zip and .7z.
// Other extensions are returned as is.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	out, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return out, nil
}

// Decode unpacks data according to the file extension ext.
func Decode(ext string, data []byte) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".gz":
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case ".xz":
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	case ".zip":
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, err
		}
		files := make([]archiveFile, 0, len(zr.File))
		for _, f := range zr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			files = append(files, archiveFile{name: f.Name, open: f.Open})
		}
		return readArchive(files)
	case ".7z":
		sr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, err
		}
		files := make([]archiveFile, 0, len(sr.File))
		for _, f := range sr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			files = append(files, archiveFile{name: f.Name, open: f.Open})
		}
		return readArchive(files)
	}
	return data, nil
}

// readArchive extracts the first .gb/.gbc member, or the first member if
// none has a ROM extension.
func readArchive(files []archiveFile) ([]byte, error) {
	if len(files) == 0 {
		return nil, ErrEmptyArchive
	}

	pick := files[0]
	for _, f := range files {
		if isROMName(f.name) {
			pick = f
			break
		}
	}

	rc, err := pick.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func isROMName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gb", ".gbc", ".cgb":
		return true
	}
	return false
}
