package qmf

import (
	"errors"
	"io"
	"os"
)

// Writer builds a QMF file section by section. Space for the header is
// reserved up-front and patched during Finalize.
type Writer struct {
	f        *os.File
	sections []Section
	seen     map[SectionType]struct{}
	closed   bool
	flags    uint64
}

// NewWriter truncates f and prepares it for section writes.
func NewWriter(f *os.File) (*Writer, error) {
	if f == nil {
		return nil, errors.New("qmf: nil file")
	}
	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	w := &Writer{f: f, seen: make(map[SectionType]struct{})}
	if err := w.pad(headerSize); err != nil {
		return nil, err
	}
	return w, nil
}

// WriteSection appends a section payload and records it in the section
// directory. Each section type may be written once; sections start
// 8-aligned so readers can cast mapped payloads safely.
func (w *Writer) WriteSection(typ SectionType, version uint32, data []byte) error {
	if w.closed {
		return errors.New("qmf: writer already finalized")
	}
	if _, ok := w.seen[typ]; ok {
		return errors.New("qmf: duplicate section type")
	}
	if err := w.alignUp(); err != nil {
		return err
	}
	offset, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := w.f.Write(data); err != nil {
			return err
		}
	}
	w.sections = append(w.sections, Section{
		Type:    typ,
		Version: version,
		Offset:  uint64(offset),
		Size:    uint64(len(data)),
	})
	w.seen[typ] = struct{}{}
	return nil
}

// Finalize writes the section directory, patches the header, and
// leaves the file complete on disk. The writer cannot be reused.
func (w *Writer) Finalize() error {
	if w.closed {
		return errors.New("qmf: writer already finalized")
	}
	if len(w.sections) == 0 {
		return errors.New("qmf: no sections written")
	}
	if err := w.alignUp(); err != nil {
		return err
	}
	dirOffset, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	for _, s := range w.sections {
		if _, err := w.f.Write(encodeSection(s)); err != nil {
			return err
		}
	}
	end, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	hdr := Header{
		Major:            CurrentMajor,
		Minor:            CurrentMinor,
		SectionCount:     uint32(len(w.sections)),
		SectionDirOffset: uint64(dirOffset),
		FileSize:         uint64(end),
		Flags:            w.flags,
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.f.Write(encodeHeader(hdr)); err != nil {
		return err
	}
	if err := w.f.Sync(); err != nil {
		return err
	}
	w.closed = true
	return nil
}

func (w *Writer) alignUp() error {
	pos, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if rem := pos % align; rem != 0 {
		return w.pad(int(align - rem))
	}
	return nil
}

func (w *Writer) pad(n int) error {
	_, err := w.f.Write(make([]byte, n))
	return err
}
