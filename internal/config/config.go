package config

import (
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const (
	EnvClassifierURL = "WINISORTS_CLASSIFIER_URL"
	EnvLibraryURL    = "WINISORTS_LIBRARY_URL"
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

type Source struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type ClassifierConfig struct {
	URL       string  `yaml:"url" validate:"required,url"`
	Timeout   string  `yaml:"timeout"`
	Threshold float64 `yaml:"threshold" validate:"gte=0,lte=1"`
}

type LibraryConfig struct {
	Mode     string `yaml:"mode" validate:"oneof=local remote"`
	URL      string `yaml:"url" validate:"omitempty,url"`
	PageSize int    `yaml:"page_size" validate:"gte=0,lte=500"`
}

type ServerConfig struct {
	Listen           string `yaml:"listen" validate:"required,hostname_port"`
	ClassifierListen string `yaml:"classifier_listen" validate:"required,hostname_port"`
}

type Config struct {
	AppID      string           `yaml:"app_id" validate:"required,excludesall=/"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Library    LibraryConfig    `yaml:"library"`
	Debounce   string           `yaml:"debounce"`
	Retention  string           `yaml:"retention"`
	LogLevel   string           `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Server     ServerConfig     `yaml:"server"`
	Sources    []Source         `yaml:"sources"`
}

func (c *Config) ClassifierTimeout() time.Duration {
	d, err := time.ParseDuration(c.Classifier.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func (c *Config) DebounceInterval() time.Duration {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil || d < 0 {
		return 200 * time.Millisecond
	}
	return d
}

// PageSize is how many of the newest records the library mirrors.
func (c *Config) PageSize() int {
	if c.Library.PageSize <= 0 {
		return 50
	}
	return c.Library.PageSize
}

func (c *Config) Remote() bool {
	return c.Library.Mode == ModeRemote
}

func (c *Config) RetentionDuration() time.Duration {
	if c.Retention == "" {
		return 365 * 24 * time.Hour
	}
	// Support "Nd" day syntax
	if len(c.Retention) > 1 && c.Retention[len(c.Retention)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(c.Retention, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	d, err := time.ParseDuration(c.Retention)
	if err != nil {
		return 365 * 24 * time.Hour
	}
	return d
}

func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) SourceNames() []string {
	var names []string
	for _, s := range c.EnabledSources() {
		names = append(names, s.Name)
	}
	return names
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "winisorts", "config.yaml")
}

// StorePath is the sqlite library used in local mode and by `serve`.
func StorePath() string {
	return filepath.Join(xdg.DataHome, "winisorts", "winisorts.db")
}

// SessionPath holds the anonymous user id.
func SessionPath() string {
	return filepath.Join(xdg.StateHome, "winisorts", "user_id")
}

// LogPath is where the terminal client logs, since it owns the screen.
func LogPath() string {
	return filepath.Join(xdg.StateHome, "winisorts", "winisorts.log")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the user config at path on top of the embedded defaults and
// applies environment overrides. A missing file is created from the defaults.
func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Non-fatal: the embedded defaults still apply.
		_ = writeDefaults(path)
		applyEnv(defaults)
		if err := validate(defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}

	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}
	cfg.Sources = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	mergeDefaultSources(cfg, defaults)
	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvClassifierURL)); v != "" {
		cfg.Classifier.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLibraryURL)); v != "" {
		cfg.Library.URL = v
	}
}

// mergeDefaultSources keeps the user's sources first, refreshes the type and
// URL of sources that share a name with a default, and appends defaults the
// user does not know about yet.
func mergeDefaultSources(cfg, defaults *Config) {
	index := make(map[string]int, len(cfg.Sources))
	for i, s := range cfg.Sources {
		index[s.Name] = i
	}
	for _, d := range defaults.Sources {
		if i, ok := index[d.Name]; ok {
			cfg.Sources[i].URL = d.URL
			cfg.Sources[i].Type = d.Type
			continue
		}
		cfg.Sources = append(cfg.Sources, d)
	}
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: invalid value %q (rule %s)", fe.Namespace(), fmt.Sprint(fe.Value()), fe.Tag())
		}
		return err
	}
	if cfg.Remote() && cfg.Library.URL == "" {
		return fmt.Errorf("library.url is required in %s mode", ModeRemote)
	}

	validTypes := map[string]bool{"rss": true, "atom": true}
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if s.URL == "" {
			return fmt.Errorf("source %q: url is required", s.Name)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("source %q: invalid url: %w", s.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source %q: url scheme must be http or https, got %q", s.Name, u.Scheme)
		}
		if !validTypes[s.Type] {
			return fmt.Errorf("source %q: unknown type %q (valid: rss, atom)", s.Name, s.Type)
		}
	}
	return nil
}
