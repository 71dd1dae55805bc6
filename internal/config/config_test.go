package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLoadConfig_Default(t *testing.T) {
	// Use temp directory
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	// Create a service with the temp path
	service := &Service{
		filePath: configPath,
		config:   getDefaultConfig(),
	}

	// Save default config
	if err := service.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load it back
	if err := service.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := service.Get()
	if cfg.Input.FilterDLL != "leavefilter.dll" {
		t.Errorf("Default filter DLL = %s; want leavefilter.dll", cfg.Input.FilterDLL)
	}

	if !cfg.Overlay.DesktopMode {
		t.Error("Desktop mode should be on by default")
	}
}

func TestConfig_Save(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	cfg := getDefaultConfig()
	cfg.Overlay.URL = "https://example.com/widget"
	cfg.Placement.Attempts = 9

	service := &Service{
		filePath: configPath,
		config:   cfg,
	}

	err := service.Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	// Verify we can load it back into a fresh service
	service2 := &Service{
		filePath: configPath,
		config:   getDefaultConfig(),
	}
	if err := service2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	loaded := service2.Get()
	if loaded.Overlay.URL != "https://example.com/widget" {
		t.Errorf("Expected URL 'https://example.com/widget', got %s", loaded.Overlay.URL)
	}
	if loaded.Placement.Attempts != 9 {
		t.Errorf("Expected Attempts 9, got %d", loaded.Placement.Attempts)
	}
}

func TestConfig_LoadPartialKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	data := []byte(`{"log": {"level": "debug"}}`)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	service := &Service{
		filePath: configPath,
		config:   getDefaultConfig(),
	}
	if err := service.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := service.Get()
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected level debug, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Expected default format text, got %s", cfg.Log.Format)
	}
	if cfg.Placement.WatchdogInterval() != 5*time.Second {
		t.Errorf("Expected default watchdog 5s, got %v", cfg.Placement.WatchdogInterval())
	}
}

func TestConfig_LoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero attempts", `{"placement": {"attempts": 0}}`},
		{"max below base", `{"placement": {"base_delay_ms": 500, "max_delay_ms": 100}}`},
		{"bad level", `{"log": {"level": "verbose"}}`},
		{"bad format", `{"log": {"format": "xml"}}`},
		{"empty dll", `{"input": {"filter_dll": " "}}`},
		{"zero width", `{"overlay": {"width": 0}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(configPath, []byte(tc.data), 0644); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			service := &Service{
				filePath: configPath,
				config:   getDefaultConfig(),
			}
			if err := service.Load(); err == nil {
				t.Error("Load accepted an invalid config")
			}
		})
	}
}

func TestConfig_UpdateOverlay(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	service := &Service{
		filePath: configPath,
		config:   getDefaultConfig(),
	}

	overlayCfg := OverlayConfig{
		Title:       "Clock",
		X:           200,
		Y:           300,
		Width:       400,
		Height:      200,
		DesktopMode: false,
	}

	if err := service.UpdateOverlay(overlayCfg); err != nil {
		t.Fatalf("UpdateOverlay failed: %v", err)
	}

	cfg := service.Get()
	if cfg.Overlay.X != 200 {
		t.Errorf("Expected X 200, got %d", cfg.Overlay.X)
	}
	if cfg.Overlay.DesktopMode {
		t.Error("Expected desktop mode off")
	}
}

func TestConfig_UpdateInput(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	service := &Service{
		filePath: configPath,
		config:   getDefaultConfig(),
	}

	inputCfg := InputConfig{
		FilterDLL:       `C:\deskweb\leavefilter.dll`,
		ClassCacheSize:  64,
		ClassCacheTTLMs: 500,
	}

	if err := service.UpdateInput(inputCfg); err != nil {
		t.Fatalf("UpdateInput failed: %v", err)
	}

	cfg := service.Get()
	if cfg.Input.ClassCacheSize != 64 {
		t.Errorf("Expected ClassCacheSize 64, got %d", cfg.Input.ClassCacheSize)
	}
	if cfg.Input.ClassCacheTTL() != 500*time.Millisecond {
		t.Errorf("Expected TTL 500ms, got %v", cfg.Input.ClassCacheTTL())
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := getDefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config is invalid: %v", err)
	}

	if cfg.Placement.BaseDelay() != 250*time.Millisecond {
		t.Errorf("Expected base delay 250ms, got %v", cfg.Placement.BaseDelay())
	}

	if cfg.Placement.MaxDelay() != 4*time.Second {
		t.Errorf("Expected max delay 4s, got %v", cfg.Placement.MaxDelay())
	}

	if cfg.Overlay.X != 100 {
		t.Errorf("Expected default overlay X 100, got %d", cfg.Overlay.X)
	}
}

func TestNewAt_CreatesDefaultFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")

	service, err := NewAt(configPath)
	if err != nil {
		t.Fatalf("NewAt failed: %v", err)
	}
	if service.Path() != configPath {
		t.Errorf("Path = %s; want %s", service.Path(), configPath)
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("Default config file was not written: %v", err)
	}

	// A second service picks up the saved file
	cfg := service.Get()
	cfg.Overlay.Title = "Weather"
	service.Set(cfg)
	if err := service.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	again, err := NewAt(configPath)
	if err != nil {
		t.Fatalf("NewAt failed: %v", err)
	}
	if again.Get().Overlay.Title != "Weather" {
		t.Errorf("Title = %s; want Weather", again.Get().Overlay.Title)
	}
}

func TestFilterDLLPath_Absolute(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "leavefilter.dll")
	service := &Service{config: getDefaultConfig()}
	service.config.Input.FilterDLL = abs

	got, err := service.FilterDLLPath()
	if err != nil {
		t.Fatalf("FilterDLLPath failed: %v", err)
	}
	if got != abs {
		t.Errorf("FilterDLLPath = %s; want %s", got, abs)
	}
}

func TestNormalizeLogLevel(t *testing.T) {
	tests := map[string]string{
		"":        "info",
		" DEBUG ": "debug",
		"warning": "warn",
		"error":   "error",
	}
	for in, want := range tests {
		got, err := NormalizeLogLevel(in)
		if err != nil || got != want {
			t.Errorf("NormalizeLogLevel(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NormalizeLogLevel("trace"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestService_GetReturnsCopy(t *testing.T) {
	service := &Service{config: getDefaultConfig()}

	cfg := service.Get()
	cfg.Placement.Attempts = 42
	if got := service.Get().Placement.Attempts; got != 5 {
		t.Errorf("Attempts = %d; want 5 until Set", got)
	}

	service.Set(cfg)
	cfg.Placement.Attempts = 7
	if got := service.Get().Placement.Attempts; got != 42 {
		t.Errorf("Attempts = %d; want 42", got)
	}
}

func TestService_ConcurrentAccess(t *testing.T) {
	service, err := NewAt(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("NewAt failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(on bool) {
			defer wg.Done()
			overlay := service.Get().Overlay
			overlay.DesktopMode = on
			if err := service.UpdateOverlay(overlay); err != nil {
				t.Errorf("UpdateOverlay failed: %v", err)
			}
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			_ = service.Get().Placement.WatchdogInterval()
			if err := service.Save(); err != nil {
				t.Errorf("Save failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if err := service.Load(); err != nil {
		t.Fatalf("Load after concurrent writes failed: %v", err)
	}
}
