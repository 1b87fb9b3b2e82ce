// config.go: configuration load/validate/watch for rscache
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package rscache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agilira/argus"
	"github.com/agilira/rscache/client"
)

// Config holds the knobs a caller can set for a Connection's local cache.
type Config struct {
	CacheLocalMB          int64  `json:"cache_local_mb"`
	CacheLocalObjectMax   int    `json:"cache_local_object_max"`
	CacheLocalCompression string `json:"cache_local_compression"` // "none" | "zlib"
	CacheLocalDir         string `json:"cache_local_dir"`
	CacheLocalDirCount    int    `json:"cache_local_dir_count"`
	CacheLocalDirCompress bool   `json:"cache_local_dir_compress"`
}

func (c Config) compressionCodec() client.Compression {
	if strings.EqualFold(c.CacheLocalCompression, "zlib") {
		return client.CompressionZlib
	}
	return client.CompressionNone
}

// Global configuration state for power users who want to bypass the
// JSON/defaults chain entirely.
var (
	globalConfig *Config
	configMutex  sync.RWMutex
)

// SetGlobalConfig sets the process-wide configuration for power users.
// Call from an init() in an rscache_config.go file, before the first New.
func SetGlobalConfig(cfg Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = &cfg
}

// GetGlobalConfig returns the current global configuration, or nil if
// SetGlobalConfig has never been called.
func GetGlobalConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// loadConfig loads configuration with priority: Go config > JSON file >
// defaults.
func loadConfig() Config {
	if cfg := GetGlobalConfig(); cfg != nil {
		return *cfg
	}
	if cfg, err := loadJSONConfig(); err == nil {
		return cfg
	}
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		CacheLocalMB:          64,
		CacheLocalObjectMax:   1 << 20, // 1 MiB
		CacheLocalCompression: "none",
		CacheLocalDir:         "",
		CacheLocalDirCount:    1,
		CacheLocalDirCompress: false,
	}
}

func loadJSONConfig() (Config, error) {
	path := findConfigFile()
	if path == "" {
		return Config{}, fmt.Errorf("rscache.json not found")
	}
	if filepath.Base(path) != "rscache.json" || strings.Contains(path, "..") {
		return Config{}, fmt.Errorf("invalid config file path: %s", path)
	}
	// nosec G304 - path is validated above to prevent path traversal
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, "rscache.json")
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Watcher uses argus to watch rscache.json for changes and hands each
// newly parsed Config to a caller-supplied callback — a capability static
// loadConfig does not have. The Watcher itself changes nothing on a
// running Connection.
type Watcher struct {
	watcher *argus.Watcher
	apply   func(Config)
}

// WatchConfig starts watching path (typically the rscache.json resolved by
// findConfigFile) and invokes apply with the newly parsed Config each time
// the file changes. LocalClient has no setter for its budget or
// compression codec, so no field of a running Connection is changed by
// a reload.
func WatchConfig(path string, apply func(Config)) (*Watcher, error) {
	w := argus.New(argus.Config{})
	err := w.Watch(path, func(event argus.ChangeEvent) {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return
		}
		cfg := defaultConfig()
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil {
			return
		}
		apply(cfg)
	})
	if err != nil {
		return nil, err
	}
	if startErr := w.Start(); startErr != nil {
		return nil, startErr
	}
	return &Watcher{watcher: w, apply: apply}, nil
}

// Close stops the underlying file watch.
func (w *Watcher) Close() error {
	return w.watcher.Stop()
}
