package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	AppName               = "tasktracker"
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "tasks.db"
	DefaultAPIURL         = "http://localhost:5000"
	DefaultLogFile        = "todo.log"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "TASKTRACKER_CONFIG"
)

type Keymap struct {
	Quit           string `toml:"quit"`
	Add            string `toml:"add"`
	Up             string `toml:"up"`
	Down           string `toml:"down"`
	Confirm        string `toml:"confirm"`
	Cancel         string `toml:"cancel"`
	NextField      string `toml:"next_field"`
	PrevField      string `toml:"prev_field"`
	CycleStatus    string `toml:"cycle_status"`
	CyclePriority  string `toml:"cycle_priority"`
	FilterStatus   string `toml:"filter_status"`
	FilterPriority string `toml:"filter_priority"`
	Sort           string `toml:"sort"`
	Refresh        string `toml:"refresh"`
}

type Server struct {
	Addr               string `toml:"addr"`
	DBPath             string `toml:"db_path"`
	RedisURL           string `toml:"redis_url"`
	InsightsTTLSeconds int    `toml:"insights_ttl_seconds"`
	DueSoonDays        int    `toml:"due_soon_days"`
}

type Config struct {
	APIURL                string `toml:"api_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	DateLayout            string `toml:"date_layout"`
	LogFile               string `toml:"log_file"`
	LogLevel              string `toml:"log_level"`
	Server                Server `toml:"server"`
	Keys                  Keymap `toml:"keys"`
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (s Server) InsightsTTL() time.Duration {
	return time.Duration(s.InsightsTTLSeconds) * time.Second
}

// ResolveConfigPath returns the config file location: $TASKTRACKER_CONFIG,
// else $XDG_CONFIG_HOME/tasktracker/config.toml, else ~/.config/tasktracker.
func ResolveConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName, DefaultConfigFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(home, ".config", AppName, DefaultConfigFileName)
}

// LoadOrCreate reads path, writing the defaults there first if it does not
// exist. Missing keys keep their default values.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail much later.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url %q must be an http(s) URL", c.APIURL)
	}
	if c.RequestTimeoutSeconds < 0 {
		return errors.New("request_timeout_seconds must not be negative")
	}
	if c.Server.InsightsTTLSeconds < 0 {
		return errors.New("server.insights_ttl_seconds must not be negative")
	}
	if c.Server.DueSoonDays < 0 {
		return errors.New("server.due_soon_days must not be negative")
	}
	return nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.APIURL == "" {
		c.APIURL = def.APIURL
	}
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = def.RequestTimeoutSeconds
	}
	if c.LogFile == "" {
		c.LogFile = def.LogFile
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = def.Server.DBPath
	}
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration written on first launch.
func Default() Config {
	return Config{
		APIURL:                DefaultAPIURL,
		RequestTimeoutSeconds: 10,
		LogFile:               DefaultLogFile,
		LogLevel:              "info",
		Server: Server{
			Addr:               ":5000",
			DBPath:             DefaultDBName,
			InsightsTTLSeconds: 60,
			DueSoonDays:        3,
		},
		Keys: Keymap{
			Quit:           "q",
			Add:            "a",
			Up:             "k",
			Down:           "j",
			Confirm:        "enter",
			Cancel:         "esc",
			NextField:      "tab",
			PrevField:      "shift+tab",
			CycleStatus:    " ",
			CyclePriority:  "p",
			FilterStatus:   "s",
			FilterPriority: "f",
			Sort:           "o",
			Refresh:        "r",
		},
	}
}
