package config

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/victoralfred/gowritter/safepath"
)

// Loader loads and manages configuration from YAML files.
type Loader struct {
	path       string
	safePath   *safepath.SafePath
	config     *Config
	mu         sync.RWMutex
	lastHash   []byte
	lastLoad   time.Time
	validators []Validator
	onChange   []func(*Config)
	watchStop  chan struct{}
}

// Validator validates a loaded configuration.
type Validator interface {
	Validate(config *Config) error
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithValidator adds a configuration validator.
func WithValidator(v Validator) LoaderOption {
	return func(l *Loader) {
		l.validators = append(l.validators, v)
	}
}

// WithOnChange adds a callback for configuration changes.
func WithOnChange(fn func(*Config)) LoaderOption {
	return func(l *Loader) {
		l.onChange = append(l.onChange, fn)
	}
}

// NewLoader creates a new configuration loader. basePath is the
// directory containing the file; configFile is the name relative to it.
func NewLoader(basePath, configFile string, opts ...LoaderOption) (*Loader, error) {
	sp, err := safepath.New(basePath)
	if err != nil {
		return nil, fmt.Errorf("creating safe path: %w", err)
	}

	l := &Loader{
		path:       configFile,
		safePath:   sp,
		validators: make([]Validator, 0),
		onChange:   make([]func(*Config), 0),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Load loads the configuration from the file. Unset fields take their
// defaults from DefaultConfig.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Read file using gowritter
	data, err := l.safePath.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Check if file changed
	hash := sha256.Sum256(data)
	if l.config != nil && string(hash[:]) == string(l.lastHash) {
		return l.config, nil
	}

	// Decode over the defaults
	config, err := parse(data)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	for _, v := range l.validators {
		if err := v.Validate(&config); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	l.config = &config
	l.lastHash = hash[:]
	l.lastLoad = time.Now()

	// Notify listeners
	for _, fn := range l.onChange {
		fn(&config)
	}

	return &config, nil
}

// Get returns the current configuration without reloading.
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// Reload reloads the configuration from the file.
func (l *Loader) Reload(ctx context.Context) error {
	_, err := l.Load(ctx)
	return err
}

// Watch polls the file for changes until the context is canceled or
// StopWatch is called. Change callbacks registered with WithOnChange
// fire on every reload that sees new content.
func (l *Loader) Watch(ctx context.Context, interval time.Duration) {
	l.watchStop = make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.watchStop:
				return
			case <-ticker.C:
				if _, err := l.Load(ctx); err != nil {
					// Keep watching; a half-written file will parse
					// on a later tick.
					continue
				}
			}
		}
	}()
}

// StopWatch stops watching for changes.
func (l *Loader) StopWatch() {
	if l.watchStop != nil {
		close(l.watchStop)
		l.watchStop = nil
	}
}
