// Package savestate implements the positional, version-gated save state
// format: one version byte followed by fixed-width sections in a fixed order.
package savestate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Version is the format written by this build.
const Version uint8 = 9

var (
	// ErrTruncated is returned when the input ends inside a section.
	ErrTruncated = errors.New("savestate: truncated state")
	// ErrUnsupportedVersion is returned for states written by a newer build.
	ErrUnsupportedVersion = errors.New("savestate: unsupported version")
)

// Section is one positional block of the state. A section is present in
// states whose version lies in [MinVersion, MaxVersion]; MaxVersion 0 means
// there is no upper bound.
type Section struct {
	Name       string
	MinVersion uint8
	MaxVersion uint8
	Save       func(w *Writer)
	Load       func(r *Reader, version uint8)
}

func (s Section) present(version uint8) bool {
	if version < s.MinVersion {
		return false
	}
	return s.MaxVersion == 0 || version <= s.MaxVersion
}

// Encode writes the version byte and every section present at Version.
func Encode(w io.Writer, sections []Section) error {
	sw := NewWriter(w)
	sw.Byte(Version)
	for _, s := range sections {
		if !s.present(Version) || s.Save == nil {
			continue
		}
		s.Save(sw)
		if sw.err != nil {
			return fmt.Errorf("saving section %s: %w", s.Name, sw.err)
		}
	}
	return sw.err
}

// Decode reads the version byte and applies the sections present in that
// version, in order. Sections newer than the state are skipped.
func Decode(r io.Reader, sections []Section) (uint8, error) {
	sr := NewReader(r)
	version := sr.Byte()
	if sr.err != nil {
		return 0, sr.err
	}
	if version > Version {
		return version, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	for _, s := range sections {
		if !s.present(version) {
			slog.Debug("skipping state section", "section", s.Name, "version", version)
			continue
		}
		s.Load(sr, version)
		if sr.err != nil {
			return version, fmt.Errorf("loading section %s: %w", s.Name, sr.err)
		}
	}
	return version, nil
}

// Writer encodes little-endian values and keeps the first error.
type Writer struct {
	w   io.Writer
	err error
	buf [8]byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Bytes(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

func (w *Writer) Byte(v byte) {
	w.buf[0] = v
	w.Bytes(w.buf[:1])
}

func (w *Writer) Bool(v bool) {
	if v {
		w.Byte(1)
		return
	}
	w.Byte(0)
}

func (w *Writer) Uint16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	w.Bytes(w.buf[:2])
}

func (w *Writer) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.Bytes(w.buf[:4])
}

func (w *Writer) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	w.Bytes(w.buf[:8])
}

// Err returns the first error encountered.
func (w *Writer) Err() error { return w.err }

// Reader decodes little-endian values. After the first error every read
// returns zero values and the error is kept.
type Reader struct {
	r   io.Reader
	err error
	buf [8]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Bytes fills dst completely.
func (r *Reader) Bytes(dst []byte) {
	if r.err != nil {
		return
	}
	if _, err := io.ReadFull(r.r, dst); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			r.err = ErrTruncated
		} else {
			r.err = err
		}
		clear(dst)
	}
}

func (r *Reader) Byte() byte {
	r.Bytes(r.buf[:1])
	return r.buf[0]
}

func (r *Reader) Bool() bool {
	return r.Byte() != 0
}

func (r *Reader) Uint16() uint16 {
	r.Bytes(r.buf[:2])
	return binary.LittleEndian.Uint16(r.buf[:2])
}

func (r *Reader) Uint32() uint32 {
	r.Bytes(r.buf[:4])
	return binary.LittleEndian.Uint32(r.buf[:4])
}

func (r *Reader) Uint64() uint64 {
	r.Bytes(r.buf[:8])
	return binary.LittleEndian.Uint64(r.buf[:8])
}

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }
