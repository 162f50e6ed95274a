// Package qmf implements the Quantized Model File format.
//
// QMF is a single-file, memory-mappable container for quantized models
// on their way to a device converter: a JSON model-info section
// describing the quantized graph and its target capabilities, a binary
// tensor index, and a raw tensor data section.
package qmf

import "encoding/binary"

const (
	// Magic is the file magic for all QMF containers, encoded "QMF\0".
	Magic = "QMF\x00"

	// CurrentMajor changes only on breaking format changes.
	CurrentMajor uint16 = 1

	// CurrentMinor may add optional sections or fields.
	CurrentMinor uint16 = 0

	headerSize  = 40
	sectionSize = 24
	align       = 8
)

type SectionType uint32

const (
	SectionModelInfo   SectionType = 0x0001
	SectionTensorIndex SectionType = 0x0002
	SectionTensorData  SectionType = 0x0003
)

type Header struct {
	Major            uint16
	Minor            uint16
	SectionCount     uint32
	SectionDirOffset uint64
	FileSize         uint64
	Flags            uint64
}

type Section struct {
	Type    SectionType
	Version uint32
	Offset  uint64
	Size    uint64
}

// End returns the first byte past the section payload.
func (s Section) End() uint64 { return s.Offset + s.Size }

func encodeHeader(h Header) []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Major)
	binary.LittleEndian.PutUint16(buf[6:8], h.Minor)
	binary.LittleEndian.PutUint32(buf[8:12], h.SectionCount)
	binary.LittleEndian.PutUint64(buf[16:24], h.SectionDirOffset)
	binary.LittleEndian.PutUint64(buf[24:32], h.FileSize)
	binary.LittleEndian.PutUint64(buf[32:40], h.Flags)
	return buf
}

func decodeHeader(buf []byte) (Header, bool) {
	if len(buf) < headerSize {
		return Header{}, false
	}
	if string(buf[0:4]) != Magic {
		return Header{}, false
	}
	return Header{
		Major:            binary.LittleEndian.Uint16(buf[4:6]),
		Minor:            binary.LittleEndian.Uint16(buf[6:8]),
		SectionCount:     binary.LittleEndian.Uint32(buf[8:12]),
		SectionDirOffset: binary.LittleEndian.Uint64(buf[16:24]),
		FileSize:         binary.LittleEndian.Uint64(buf[24:32]),
		Flags:            binary.LittleEndian.Uint64(buf[32:40]),
	}, true
}

func encodeSection(s Section) []byte {
	buf := make([]byte, sectionSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(s.Type))
	binary.LittleEndian.PutUint32(buf[4:8], s.Version)
	binary.LittleEndian.PutUint64(buf[8:16], s.Offset)
	binary.LittleEndian.PutUint64(buf[16:24], s.Size)
	return buf
}

func decodeSection(buf []byte) Section {
	return Section{
		Type:    SectionType(binary.LittleEndian.Uint32(buf[0:4])),
		Version: binary.LittleEndian.Uint32(buf[4:8]),
		Offset:  binary.LittleEndian.Uint64(buf[8:16]),
		Size:    binary.LittleEndian.Uint64(buf[16:24]),
	}
}
