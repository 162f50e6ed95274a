package qmf

import "errors"

var (
	ErrInvalidMagic     = errors.New("qmf: invalid magic")
	ErrUnsupportedMajor = errors.New("qmf: unsupported major version")
	ErrCorruptFile      = errors.New("qmf: corrupt file")
	ErrMissingSection   = errors.New("qmf: missing section")
)
