package tool

import (
	"net"
	"net/http"
	"time"
)

var (
	// DefaultTransferTimeout bounds a whole list/download/upload exchange.
	DefaultTransferTimeout = 120 * time.Second

	// DefaultProbeTimeout bounds a single discovery probe against one host.
	DefaultProbeTimeout = 1500 * time.Millisecond
)

// NewTransferHTTPClient creates the client used for book transfers.
// Keep-alives stay enabled so a multi-operation invocation reuses the
// connection to the device.
func NewTransferHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTransferTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		},
	}
}

// NewProbeHTTPClient creates the short-timeout client used while sweeping
// the subnet. Unreachable hosts must fail fast, so both the dial and the
// whole exchange are capped at the probe timeout.
func NewProbeHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:       dialer.DialContext,
			DisableKeepAlives: true,
		},
	}
}
