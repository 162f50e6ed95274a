package qmf

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// File is an opened QMF container. Section payloads are zero-copy
// slices into the underlying mapping.
type File struct {
	Data     []byte
	Header   Header
	Sections []Section
	mmapped  bool
}

// Open maps a QMF file read-only and validates its structure. If mmap
// is unavailable it falls back to reading the whole file. The returned
// file must be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < headerSize || size64 > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		qf, parseErr := parse(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return qf, nil
	}

	data = make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, err
	}
	return parse(data, false)
}

// Close releases the mapping, if any.
func (f *File) Close() error {
	if f.mmapped && f.Data != nil {
		data := f.Data
		f.Data = nil
		return unix.Munmap(data)
	}
	f.Data = nil
	return nil
}

// Section returns the payload of the first section of the given type.
func (f *File) Section(typ SectionType) ([]byte, error) {
	for _, s := range f.Sections {
		if s.Type == typ {
			return f.Data[s.Offset:s.End()], nil
		}
	}
	return nil, fmt.Errorf("%w: 0x%04x", ErrMissingSection, uint32(typ))
}

func parse(data []byte, mmapped bool) (*File, error) {
	hdr, ok := decodeHeader(data[:headerSize])
	if !ok {
		return nil, ErrInvalidMagic
	}
	if hdr.Major != CurrentMajor {
		return nil, ErrUnsupportedMajor
	}
	if hdr.FileSize != uint64(len(data)) {
		return nil, ErrCorruptFile
	}
	if hdr.SectionCount == 0 {
		return nil, ErrCorruptFile
	}
	// Offsets and sizes are untrusted; compare operands separately so
	// an oversized value cannot wrap a sum past the bounds check.
	if hdr.SectionDirOffset < headerSize || hdr.SectionDirOffset > uint64(len(data)) {
		return nil, ErrCorruptFile
	}
	if uint64(hdr.SectionCount)*sectionSize > uint64(len(data))-hdr.SectionDirOffset {
		return nil, ErrCorruptFile
	}

	sections := make([]Section, 0, hdr.SectionCount)
	for i := uint32(0); i < hdr.SectionCount; i++ {
		off := hdr.SectionDirOffset + uint64(i)*sectionSize
		s := decodeSection(data[off : off+sectionSize])
		if s.Offset < headerSize || s.Offset > uint64(len(data)) || s.Size > uint64(len(data))-s.Offset {
			return nil, ErrCorruptFile
		}
		sections = append(sections, s)
	}
	return &File{Data: data, Header: hdr, Sections: sections, mmapped: mmapped}, nil
}
