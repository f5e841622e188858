package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tenebris-tech/doctoc/docx2toc"
	"github.com/tenebris-tech/doctoc/toc"
)

// EnvPrefix is the prefix of environment overrides (DOCX2TOC_TITLE, ...)
const EnvPrefix = "DOCX2TOC"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
// An empty cfgFile searches ./config.yaml and ~/.docx2toc/config.yaml; a
// missing file is not an error.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	cm.v.SetDefault("title", defaults.Title)
	cm.v.SetDefault("title_style", defaults.TitleStyle)
	cm.v.SetDefault("entry_style", defaults.EntryStyle)
	cm.v.SetDefault("indent_points", defaults.IndentPoints)
	cm.v.SetDefault("link_mode", defaults.LinkMode)
	cm.v.SetDefault("anchor_prefix", defaults.AnchorPrefix)
	cm.v.SetDefault("cleanup_anchors", defaults.CleanupAnchors)
	cm.v.SetDefault("host_timeout", defaults.HostTimeout)
	cm.v.SetDefault("commit_attempts", defaults.CommitAttempts)
	cm.v.SetDefault("output_suffix", defaults.OutputSuffix)

	cm.v.SetEnvPrefix(EnvPrefix)
	cm.v.AutomaticEnv()

	if cfgFile != "" {
		cm.v.SetConfigFile(cfgFile)
	} else {
		cm.v.SetConfigName("config")
		cm.v.SetConfigType("yaml")
		cm.v.AddConfigPath(".")
		cm.v.AddConfigPath("$HOME/.docx2toc")
	}

	if err := cm.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file the configuration was read from, if any
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. Invalid edits are
// logged and the previous configuration stays in effect.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			slog.Warn("ignoring config change", "file", e.Name, "error", err)
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	if _, err := toc.ParseLinkMode(c.LinkMode); err != nil {
		return err
	}
	if toc.NormalizeText(c.Title) == "" {
		return errors.New("title must not be empty")
	}
	if strings.TrimSpace(c.EntryStyle) == "" {
		return errors.New("entry_style must not be empty")
	}
	if _, isHeading := toc.ClassifyStyle(c.EntryStyle); isHeading {
		return fmt.Errorf("entry_style must not be a heading style, got %q", c.EntryStyle)
	}
	if c.IndentPoints < 0 {
		return fmt.Errorf("indent_points must not be negative, got %v", c.IndentPoints)
	}
	if c.CommitAttempts < 1 {
		return fmt.Errorf("commit_attempts must be at least 1, got %d", c.CommitAttempts)
	}
	return nil
}

// TOCOptions converts the config to generator options
func (c *Config) TOCOptions() []toc.Option {
	mode, _ := toc.ParseLinkMode(c.LinkMode)
	return []toc.Option{
		toc.WithTitle(c.Title),
		toc.WithTitleStyle(c.TitleStyle),
		toc.WithEntryStyle(c.EntryStyle),
		toc.WithLinkMode(mode),
		toc.WithAnchorPrefix(c.AnchorPrefix),
		toc.WithCleanupAnchors(c.CleanupAnchors),
		toc.WithHostTimeout(c.HostTimeout),
		toc.WithCommitAttempts(uint(c.CommitAttempts)),
	}
}

// ConverterOptions converts the config to docx2toc options
func (c *Config) ConverterOptions() []docx2toc.Option {
	return []docx2toc.Option{
		docx2toc.WithTOCOptions(c.TOCOptions()...),
		docx2toc.WithIndentPoints(c.IndentPoints),
		docx2toc.WithOutputSuffix(c.OutputSuffix),
	}
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# docx2toc configuration
# Every key can be overridden with a DOCX2TOC_ environment variable,
# for example DOCX2TOC_TITLE="Contents"

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
