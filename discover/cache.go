package discover

import (
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/pablogventura/likebook-wifi-book-uploader/types"
)

// DefaultCacheTTL keeps a discovered address around long enough for a
// follow-up command in the same session without risking a stale lease.
const DefaultCacheTTL = 300 * time.Second

const lastDeviceKey = "last-device"

// deviceCache remembers the most recently discovered device so repeated
// scans within one process skip the subnet sweep.
type deviceCache struct {
	cache *ttlworker.Cache[string, types.DeviceAddress]
}

func newDeviceCache(ttl time.Duration) *deviceCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &deviceCache{cache: ttlworker.NewCache[string, types.DeviceAddress](ttl)}
}

func (d *deviceCache) get() (types.DeviceAddress, bool) {
	addr := d.cache.Get(lastDeviceKey)
	return addr, addr.Host != ""
}

func (d *deviceCache) set(addr types.DeviceAddress) {
	d.cache.Set(lastDeviceKey, addr)
}
