package types

import "fmt"

// BookEntry is one item reported by the device's listing endpoint.
// Index is 1-based and only stable within the listing response it came from.
type BookEntry struct {
	Index int
	Name  string
	Size  string // human-readable size string as reported by the firmware
}

// DeviceAddress is the resolved network location of the book-transfer service.
type DeviceAddress struct {
	Host string
	Port int
}

// HostPort returns the address in host:port form.
func (a DeviceAddress) HostPort() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// UploadResult reports the outcome of one file in a multi-file upload.
// Err is nil when the file was accepted by the device.
type UploadResult struct {
	Path string
	Name string
	Err  error
}
