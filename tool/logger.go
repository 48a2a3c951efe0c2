package tool

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// NewLogger builds a logger for the given mode: dev (debug), prod (info)
// or none (fatal only). Unknown modes fall back to prod.
func NewLogger(mode string) *log.Logger {
	logger := log.New(os.Stderr)
	logger.SetTimeFormat("2006-01-02 15:04:05")

	switch strings.ToLower(mode) {
	case "dev":
		logger.SetLevel(log.DebugLevel)
		logger.SetReportCaller(true)
	case "", "prod":
		logger.SetLevel(log.InfoLevel)
	case "none":
		logger.SetLevel(log.FatalLevel)
	default:
		logger.SetLevel(log.InfoLevel)
		logger.Warnf("Unknown log mode %q, using info level", mode)
	}
	return logger
}
