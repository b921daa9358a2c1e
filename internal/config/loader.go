package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading and reloading.
type Loader struct {
	path     string
	mu       sync.RWMutex
	config   *Config
	lastMod  time.Time
	onChange func(*Config)
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewLoader creates a new configuration loader.
func NewLoader(path string) *Loader {
	return &Loader{
		path:     path,
		stopChan: make(chan struct{}),
	}
}

// Load reads the configuration from the file.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("stat config %s: %w", l.path, err)
	}

	content, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}

	content = substituteEnvVars(content)
	config, err := Parse(content)
	if err != nil {
		return nil, err
	}

	l.config = config
	l.lastMod = info.ModTime()

	return config, nil
}

// Reload forces a reload of the configuration.
func (l *Loader) Reload() (*Config, error) {
	config, err := l.Load()
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	onChange := l.onChange
	l.mu.RUnlock()

	if onChange != nil {
		onChange(config)
	}

	return config, nil
}

// Get returns the current configuration.
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// SetOnChange sets a callback to be called when configuration changes.
func (l *Loader) SetOnChange(fn func(*Config)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// StartWatcher starts checking for file changes.
func (l *Loader) StartWatcher(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-l.stopChan:
				return
			case <-ticker.C:
				l.checkFileChange()
			}
		}
	}()
}

// StopWatcher stops the file watcher.
func (l *Loader) StopWatcher() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
}

func (l *Loader) checkFileChange() {
	info, err := os.Stat(l.path)
	if err != nil {
		return
	}

	l.mu.RLock()
	lastMod := l.lastMod
	l.mu.RUnlock()

	if info.ModTime().After(lastMod) {
		if _, err := l.Reload(); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	}
}

// LoadFromEnv loads configuration using path from environment variable or default.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("FINBRIDGE_CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	loader := NewLoader(path)
	return loader.Load()
}

// MustLoad loads configuration or panics on error.
func MustLoad(path string) *Config {
	loader := NewLoader(path)
	config, err := loader.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return config
}

// Parse parses configuration from a byte slice, applying defaults.
func Parse(data []byte) (*Config, error) {
	var config Config

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with all defaults applied and no
// provider credentials set, which routes every adapter to fallback mode.
func Default() *Config {
	var config Config
	config.ApplyDefaults()
	return &config
}

func substituteEnvVars(content []byte) []byte {
	return []byte(os.ExpandEnv(string(content)))
}
