package transfer

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pablogventura/likebook-wifi-book-uploader/types"
)

// buildListURL builds the listing endpoint URL. The millisecond timestamp
// query defeats the firmware's response cache.
func buildListURL(addr types.DeviceAddress) string {
	return fmt.Sprintf("http://%s/files?%d", addr.HostPort(), time.Now().UnixMilli())
}

// buildFileURL builds the per-file endpoint URL used for both download and
// delete. The firmware expects the name fully escaped, slashes included.
func buildFileURL(addr types.DeviceAddress, name string) string {
	return fmt.Sprintf("http://%s/files/%s", addr.HostPort(), url.PathEscape(name))
}

// buildUploadURL builds the upload endpoint URL.
func buildUploadURL(addr types.DeviceAddress) string {
	return fmt.Sprintf("http://%s/files", addr.HostPort())
}
