// Package discover locates a WiFi Book Transfer device on the local
// network by sweeping the machine's IPv4 subnets for a host that answers
// the listing endpoint on the service's well-known port.
package discover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	probing "github.com/prometheus-community/pro-bing"
	"golang.org/x/time/rate"

	"github.com/pablogventura/likebook-wifi-book-uploader/listing"
	"github.com/pablogventura/likebook-wifi-book-uploader/tool"
	"github.com/pablogventura/likebook-wifi-book-uploader/types"
)

const (
	// DefaultPort is the fixed port the firmware's HTTP service listens on.
	DefaultPort = 8080

	// DefaultScanTimeout bounds the whole sweep.
	DefaultScanTimeout = 30 * time.Second

	// DefaultConcurrency bounds in-flight probes.
	DefaultConcurrency = 32

	// maxIdentifyBody caps how much of a listing response the identify
	// probe reads from an unknown host.
	maxIdentifyBody = 1 << 20
)

// Config carries every knob of a Scanner. Zero values fall back to the
// documented defaults.
type Config struct {
	Port          int
	ProbeTimeout  time.Duration // per-host budget
	ScanTimeout   time.Duration // whole-sweep budget
	Concurrency   int
	RateLimitPPS  int    // probes per second, 0 = unlimited
	InterfaceName string // restrict the sweep to one interface, "" = all
	UseICMP       bool   // ping hosts before the HTTP identify request
	CacheTTL      time.Duration
	Parser        listing.Parser // identify check, defaults to JSONParser
	HTTPClient    *http.Client
	Logger        *log.Logger
}

// DefaultConfig returns the scanner defaults for the stock firmware.
func DefaultConfig() Config {
	return Config{
		Port:         DefaultPort,
		ProbeTimeout: tool.DefaultProbeTimeout,
		ScanTimeout:  DefaultScanTimeout,
		Concurrency:  DefaultConcurrency,
		CacheTTL:     DefaultCacheTTL,
	}
}

// Scanner probes the local subnets for the book-transfer service.
type Scanner struct {
	cfg   Config
	cache *deviceCache
}

// NewScanner builds a Scanner, filling unset Config fields with defaults.
func NewScanner(cfg Config) *Scanner {
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = tool.DefaultProbeTimeout
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = DefaultScanTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Parser == nil {
		cfg.Parser = listing.JSONParser{}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = tool.NewProbeHTTPClient(cfg.ProbeTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Scanner{cfg: cfg, cache: newDeviceCache(cfg.CacheTTL)}
}

// Scan finds a reachable device on the local subnets. A device discovered
// earlier in this process is reused while its cache entry is fresh.
func (s *Scanner) Scan(ctx context.Context) (types.DeviceAddress, error) {
	if addr, ok := s.cache.get(); ok {
		s.cfg.Logger.Debugf("Reusing cached device at %s", addr.HostPort())
		return addr, nil
	}

	hosts, err := candidateHosts(s.cfg.InterfaceName)
	if err != nil {
		return types.DeviceAddress{}, fmt.Errorf("%w: failed to read local network configuration: %w", types.ErrDeviceNotFound, err)
	}
	if len(hosts) == 0 {
		return types.DeviceAddress{}, fmt.Errorf("%w: no usable local IPv4 networks", types.ErrDeviceNotFound)
	}

	addr, err := s.ScanHosts(ctx, hosts)
	if err != nil {
		return types.DeviceAddress{}, err
	}
	s.cache.set(addr)
	return addr, nil
}

// ScanHosts sweeps an explicit candidate list with bounded concurrency and
// returns the first host that identifies as a book-transfer device. With
// parallel probes the winner is the fastest responder, not necessarily the
// lowest address.
func (s *Scanner) ScanHosts(ctx context.Context, hosts []string) (types.DeviceAddress, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()

	var limiter *rate.Limiter
	if s.cfg.RateLimitPPS > 0 {
		burst := s.cfg.RateLimitPPS
		if burst < 10 {
			burst = 10
		}
		limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimitPPS), burst)
	}

	s.cfg.Logger.Debugf("Scanning %d hosts on port %d (concurrency=%d)", len(hosts), s.cfg.Port, s.cfg.Concurrency)

	found := make(chan types.DeviceAddress, 1)
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, host := range hosts {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}
			if !s.probeHost(ctx, host) {
				return
			}
			select {
			case found <- types.DeviceAddress{Host: host, Port: s.cfg.Port}:
				cancel() // first success wins, stop the rest of the sweep
			default:
			}
		}(host)
	}

	go func() {
		wg.Wait()
		close(found)
	}()

	addr, ok := <-found
	if !ok {
		return types.DeviceAddress{}, fmt.Errorf("%w: no host on port %d answered within %s", types.ErrDeviceNotFound, s.cfg.Port, s.cfg.ScanTimeout)
	}
	s.cfg.Logger.Infof("Discovered device at %s", addr.HostPort())
	return addr, nil
}

// probeHost checks whether host runs the book-transfer service: optional
// ICMP reachability first, then a listing fetch that must parse.
func (s *Scanner) probeHost(ctx context.Context, host string) bool {
	if s.cfg.UseICMP && !quickPing(host, s.cfg.ProbeTimeout) {
		return false
	}

	url := fmt.Sprintf("http://%s:%d/files?%d", host, s.cfg.Port, time.Now().UnixMilli())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.cfg.Logger.Debugf("Failed to close probe response body: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	if _, err := s.cfg.Parser.Parse(io.LimitReader(resp.Body, maxIdentifyBody)); err != nil {
		s.cfg.Logger.Debugf("Host %s answered on port %d but is not a book-transfer device: %v", host, s.cfg.Port, err)
		return false
	}
	return true
}

// quickPing sends a single unprivileged ICMP echo to weed out dead hosts
// before spending an HTTP probe on them.
func quickPing(host string, timeout time.Duration) bool {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(false)
	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
