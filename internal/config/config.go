package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Overlay window settings
	Overlay OverlayConfig `json:"overlay"`

	// Desktop-mode input handling
	Input InputConfig `json:"input"`

	// Desktop attachment retry and watchdog
	Placement PlacementConfig `json:"placement"`

	Log LogConfig `json:"log"`
}

// OverlayConfig holds overlay window settings
type OverlayConfig struct {
	Title       string `json:"title"`
	URL         string `json:"url"` // empty shows the bundled page
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	DesktopMode bool   `json:"desktop_mode"` // attach to the desktop on startup
}

// InputConfig holds settings for the leave filter and mouse forwarding
type InputConfig struct {
	FilterDLL       string `json:"filter_dll"` // relative paths resolve next to the executable
	ClassCacheSize  int    `json:"class_cache_size"`
	ClassCacheTTLMs int    `json:"class_cache_ttl_ms"`
}

// PlacementConfig holds desktop attachment retry settings
type PlacementConfig struct {
	Attempts           int `json:"attempts"`
	BaseDelayMs        int `json:"base_delay_ms"`
	MaxDelayMs         int `json:"max_delay_ms"`
	WatchdogIntervalMs int `json:"watchdog_interval_ms"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// BaseDelay returns the first retry delay.
func (p PlacementConfig) BaseDelay() time.Duration {
	return time.Duration(p.BaseDelayMs) * time.Millisecond
}

// MaxDelay returns the retry delay ceiling.
func (p PlacementConfig) MaxDelay() time.Duration {
	return time.Duration(p.MaxDelayMs) * time.Millisecond
}

// WatchdogInterval returns how often an attached overlay is re-verified.
func (p PlacementConfig) WatchdogInterval() time.Duration {
	return time.Duration(p.WatchdogIntervalMs) * time.Millisecond
}

// ClassCacheTTL returns how long a window classification is trusted.
func (i InputConfig) ClassCacheTTL() time.Duration {
	return time.Duration(i.ClassCacheTTLMs) * time.Millisecond
}

// Service manages configuration persistence. The Wails bindings, the
// watchdog and shutdown all reach it from different goroutines.
type Service struct {
	mu       sync.RWMutex
	config   *Config
	filePath string
}

// New creates a new config service
func New() (*Service, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".deskweb")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	return NewAt(filepath.Join(configDir, "config.json"))
}

// NewAt creates a config service backed by the file at configPath
func NewAt(configPath string) (*Service, error) {
	service := &Service{
		filePath: configPath,
		config:   getDefaultConfig(),
	}

	// Load existing config if it exists, otherwise create a default config file
	if _, err := os.Stat(configPath); err == nil {
		if err := service.Load(); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		if err := service.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	return service, nil
}

// getDefaultConfig returns the default configuration
func getDefaultConfig() *Config {
	return &Config{
		Overlay: OverlayConfig{
			Title:       "DeskWeb Overlay",
			X:           100,
			Y:           100,
			Width:       800,
			Height:      600,
			DesktopMode: true,
		},
		Input: InputConfig{
			FilterDLL:       "leavefilter.dll",
			ClassCacheSize:  256,
			ClassCacheTTLMs: 2000,
		},
		Placement: PlacementConfig{
			Attempts:           5,
			BaseDelayMs:        250,
			MaxDelayMs:         4000,
			WatchdogIntervalMs: 5000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Get returns a copy of the current configuration. Changes to it take
// effect through Set or the Update methods.
func (s *Service) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := *s.config
	return &c
}

// Set updates the configuration
func (s *Service) Set(config *Config) {
	c := *config
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = &c
}

// Load loads configuration from file
func (s *Service) Load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Fields missing from the file keep their current values
	c := *s.config
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	s.config = &c
	return nil
}

// Save saves configuration to file. Writers are serialized so the file
// always holds one complete snapshot.
func (s *Service) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.filePath, data, 0644)
}

// Path returns the full path to the configuration file
func (s *Service) Path() string {
	return s.filePath
}

// UpdateOverlay updates overlay configuration
func (s *Service) UpdateOverlay(overlay OverlayConfig) error {
	s.mu.Lock()
	s.config.Overlay = overlay
	s.mu.Unlock()
	return s.Save()
}

// UpdateInput updates input handling configuration
func (s *Service) UpdateInput(input InputConfig) error {
	s.mu.Lock()
	s.config.Input = input
	s.mu.Unlock()
	return s.Save()
}

// FilterDLLPath resolves the leave filter library against the directory of
// the running executable.
func (s *Service) FilterDLLPath() (string, error) {
	s.mu.RLock()
	p := s.config.Input.FilterDLL
	s.mu.RUnlock()
	if filepath.IsAbs(p) {
		return p, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), p), nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c.Overlay.Width <= 0 || c.Overlay.Height <= 0 {
		return errors.New("overlay width and height must be positive")
	}
	if strings.TrimSpace(c.Overlay.Title) == "" {
		return errors.New("overlay.title must not be empty")
	}
	if strings.TrimSpace(c.Input.FilterDLL) == "" {
		return errors.New("input.filter_dll must not be empty")
	}
	if c.Input.ClassCacheSize < 0 || c.Input.ClassCacheTTLMs < 0 {
		return errors.New("input class cache limits must not be negative")
	}
	if c.Placement.Attempts <= 0 {
		return errors.New("placement.attempts must be positive")
	}
	if c.Placement.BaseDelayMs <= 0 || c.Placement.MaxDelayMs < c.Placement.BaseDelayMs {
		return errors.New("placement delays must be positive and max_delay_ms >= base_delay_ms")
	}
	if c.Placement.WatchdogIntervalMs < 0 {
		return errors.New("placement.watchdog_interval_ms must not be negative")
	}
	if _, err := NormalizeLogLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Log.Format); err != nil {
		return err
	}
	return nil
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "text", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
