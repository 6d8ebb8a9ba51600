package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	BasePath  string          `toml:"base_path"`
	Server    ServerConfig    `toml:"server"`
	Content   ContentConfig   `toml:"content"`
	Storage   StorageConfig   `toml:"storage"`
	Log       LogConfig       `toml:"log"`
	Window    WindowConfig    `toml:"window"`
	Toasts    ToastConfig     `toml:"toasts"`
	Transport TransportConfig `toml:"transport"`
	Path      string          `toml:"-"`
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	PublicDir string `toml:"public_dir"`
}

// ContentConfig selects the content source. A non-empty BaseURL fetches
// documents over HTTP instead of reading Dir.
type ContentConfig struct {
	Dir       string `toml:"dir"`
	BaseURL   string `toml:"base_url"`
	TimeoutMS int    `toml:"timeout_ms"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path"`
	Key    string `toml:"key"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type WindowConfig struct {
	DefaultWidth  int `toml:"default_width"`
	DefaultHeight int `toml:"default_height"`
	MinWidth      int `toml:"min_width"`
	MinHeight     int `toml:"min_height"`
	OffsetStep    int `toml:"offset_step"`
	InitialX      int `toml:"initial_x"`
	InitialY      int `toml:"initial_y"`
	InitialZ      int `toml:"initial_z"`
}

type ToastConfig struct {
	Max   int `toml:"max"`
	TTLMS int `toml:"ttl_ms"`
}

type TransportConfig struct {
	Buffer int `toml:"buffer"`
}

func Default() Config {
	return Config{
		BasePath: "/ndi",
		Server: ServerConfig{
			Addr:      "127.0.0.1:3000",
			PublicDir: "public",
		},
		Content: ContentConfig{
			Dir:       "assets/dialogs",
			TimeoutMS: 10000,
		},
		Storage: StorageConfig{
			DBPath: "data/ndi.db",
			Key:    "ndi-progress",
		},
		Log: LogConfig{Level: "info"},
		Window: WindowConfig{
			DefaultWidth:  800,
			DefaultHeight: 500,
			MinWidth:      300,
			MinHeight:     200,
			OffsetStep:    30,
			InitialX:      100,
			InitialY:      80,
			InitialZ:      1000,
		},
		Toasts:    ToastConfig{Max: 4, TTLMS: 5000},
		Transport: TransportConfig{Buffer: 64},
	}
}

// Load reads a TOML file over Default(). An empty path means
// ~/.ndi/config.toml, which may be absent; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	resolved := path
	if resolved == "" {
		resolved = defaultConfigPath()
	}
	if strings.HasPrefix(resolved, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed := strings.TrimPrefix(resolved, "~")
		trimmed = strings.TrimPrefix(trimmed, "\\")
		trimmed = strings.TrimPrefix(trimmed, "/")
		resolved = filepath.Join(home, trimmed)
	}
	resolved = filepath.Clean(resolved)

	cfg := Default()
	bytes, err := os.ReadFile(resolved)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config file %s: %w", resolved, err)
	}

	if _, err := toml.Decode(string(bytes), &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file: %w", err)
	}
	cfg.Path = resolved
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("base_path %q must start with /", c.BasePath)
	}
	if c.Storage.Key == "" {
		return errors.New("storage.key must not be empty")
	}
	if c.Toasts.Max < 0 || c.Toasts.TTLMS < 0 || c.Transport.Buffer < 0 {
		return errors.New("toasts and transport sizes must not be negative")
	}
	return nil
}

// NormalizedBasePath maps "/" to the empty prefix and drops a trailing slash.
func (c Config) NormalizedBasePath() string {
	return NormalizeBasePath(c.BasePath)
}

func NormalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "/" {
		return ""
	}
	return strings.TrimSuffix(p, "/")
}

func (c Config) ContentTimeout() time.Duration {
	return time.Duration(c.Content.TimeoutMS) * time.Millisecond
}

func (c Config) ToastTTL() time.Duration {
	return time.Duration(c.Toasts.TTLMS) * time.Millisecond
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ndi/config.toml"
	}
	return filepath.Join(home, ".ndi", "config.toml")
}
