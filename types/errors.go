package types

import "errors"

// Error kinds surfaced by the scanner and the transfer client.
// Callers classify with errors.Is; every failure wraps exactly one of these.
var (
	// ErrDeviceNotFound: the subnet sweep finished without finding a device.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrCommunication: a request to the device failed or its response
	// could not be parsed.
	ErrCommunication = errors.New("communication error")

	// ErrNotFound: an identifier did not resolve to any listed book.
	ErrNotFound = errors.New("book not found")

	// ErrFilesystem: a local file could not be read or written.
	ErrFilesystem = errors.New("filesystem error")
)
