package config

import (
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	qderrors "github.com/quotadeck/quotadeck/internal/errors"
)

// Loader handles configuration loading and reloading.
type Loader struct {
	mu       sync.RWMutex
	path     string
	config   *Config
	onChange func(*Config)
	lastMod  time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewLoader creates a configuration loader for the given path.
func NewLoader(path string) *Loader {
	return &Loader{path: path, stopChan: make(chan struct{})}
}

// Load reads and parses the configuration file.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return nil, &qderrors.ErrConfigNotFound{Path: l.path}
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, &qderrors.ErrFileRead{Path: l.path, Err: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(l.path); err == nil {
		l.lastMod = info.ModTime()
	}
	l.config = cfg
	return cfg, nil
}

// Reload re-reads the configuration file and notifies the change
// callback when parsing succeeds.
func (l *Loader) Reload() error {
	cfg, err := l.Load()
	if err != nil {
		return err
	}

	l.mu.RLock()
	cb := l.onChange
	l.mu.RUnlock()

	if cb != nil {
		cb(cfg)
	}
	return nil
}

// Get returns the currently loaded configuration.
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// SetOnChange registers a callback invoked after successful reloads.
func (l *Loader) SetOnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// StartWatcher polls the file's modification time and reloads when it
// changes.
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
		_ = l.Reload()
	}
}

// Parse parses YAML configuration data, substituting environment
// variables and applying defaults before validation.
func Parse(data []byte) (*Config, error) {
	expanded := substituteEnvVars(data)

	cfg := Default()
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, &qderrors.ErrConfigParse{Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &qderrors.ErrConfigValidation{Err: err}
	}
	return cfg, nil
}

// Default returns a configuration with baseline defaults. Validate
// fills the remaining zero values.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: 8417,
		},
		Poll: PollConfig{
			Enabled: true,
		},
		Providers: ProvidersConfig{
			Antigravity: AntigravityConfig{
				DefaultProjectID: "windsurf-proxy-prod",
			},
		},
	}
}

// substituteEnvVars replaces ${VAR} and $VAR references in the raw
// configuration with values from the environment.
func substituteEnvVars(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
