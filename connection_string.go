package minidb

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/RichardKnop/minidb/internal/minidb"
)

// ConnectionConfig holds parsed connection string parameters
type ConnectionConfig struct {
	FilePath       string // Database file path
	LogLevel       string // Log level: debug, info, warn, error (default: warn)
	LogFile        string // Optional rotated log file, empty logs to stderr only
	MaxCachedPages int    // Maximum number of pages to cache (default: 1000, 0 = never trim)
	MaxPages       uint32 // Maximum number of pages in the file (default: 100)
}

// DefaultConnectionConfig returns default configuration
func DefaultConnectionConfig(filePath string) *ConnectionConfig {
	return &ConnectionConfig{
		FilePath:       filePath,
		LogLevel:       "warn",
		MaxCachedPages: minidb.PageCacheSize,
		MaxPages:       minidb.MaxPages,
	}
}

// ParseConnectionString parses a connection string with optional query parameters.
//
// Format: /path/to/database.db?param1=value1&param2=value2
//
// Supported parameters:
//   - log_level=debug|info|warn|error : Set logging level (default: warn)
//   - log_file=/path/to/file.log      : Also write logs to a rotated file
//   - max_cached_pages=N              : Pages kept in memory between statements
//   - max_pages=N                     : Table size limit in pages
//
// Examples:
//   - "./my.db"                                  : Default settings
//   - "./my.db?log_level=debug"                  : Enable debug logging
//   - "./my.db?max_cached_pages=50&max_pages=20" : Small cache and table
func ParseConnectionString(connStr string) (*ConnectionConfig, error) {
	// Split on first '?' to separate path from query params
	parts := strings.SplitN(connStr, "?", 2)

	if parts[0] == "" {
		return nil, fmt.Errorf("invalid connection string: empty file path")
	}

	config := DefaultConnectionConfig(parts[0])

	// No query parameters
	if len(parts) == 1 {
		return config, nil
	}

	// Parse query parameters
	queryParams, err := url.ParseQuery(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid connection string query parameters: %w", err)
	}

	// Parse log_level parameter
	if logLevel := queryParams.Get("log_level"); logLevel != "" {
		logLevel = strings.ToLower(logLevel)
		switch logLevel {
		case "debug", "info", "warn", "error":
			config.LogLevel = logLevel
		default:
			return nil, fmt.Errorf("invalid log_level parameter: must be 'debug', 'info', 'warn', or 'error', got %q", logLevel)
		}
	}

	config.LogFile = queryParams.Get("log_file")

	// Parse max_cached_pages parameter
	if cachedStr := queryParams.Get("max_cached_pages"); cachedStr != "" {
		maxCached, err := strconv.Atoi(cachedStr)
		if err != nil {
			return nil, fmt.Errorf("invalid max_cached_pages parameter: must be a positive integer, got %q", cachedStr)
		}
		if maxCached < 0 {
			return nil, fmt.Errorf("invalid max_cached_pages parameter: must be non-negative, got %d", maxCached)
		}
		config.MaxCachedPages = maxCached
	}

	// Parse max_pages parameter
	if maxPagesStr := queryParams.Get("max_pages"); maxPagesStr != "" {
		maxPages, err := strconv.ParseUint(maxPagesStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid max_pages parameter: must be a positive integer, got %q", maxPagesStr)
		}
		if maxPages == 0 {
			return nil, fmt.Errorf("invalid max_pages parameter: must be at least 1")
		}
		config.MaxPages = uint32(maxPages)
	}

	return config, nil
}
