package tpc

import "errors"

var (
	ErrUnknownDeviceType  = errors.New("tpc: unknown device type")
	ErrUnknownVersion     = errors.New("tpc: unknown tpc version")
	ErrBackendUnavailable = errors.New("tpc: backend unavailable")
)
