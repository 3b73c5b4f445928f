package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything the client needs to reach the game API and
// keep its local state.
type Config struct {
	APIBase   string
	Token     string
	PollEvery time.Duration
	StateDir  string
	LogFile   string
	LogLevel  string
	Theme     string
	SessionID string
}

const (
	defaultConfigPath = "~/.config/duelist/config.toml"
	defaultAPIBase    = "http://127.0.0.1:8000/api"
	defaultStateDir   = "~/.local/state/duelist"
	defaultLogLevel   = "info"
	defaultTheme      = "Nightfox"
	defaultPoll       = 2 * time.Second
	dotEnvFile        = ".env"
	envPrefix         = "DUELIST_"
)

// Load locates and parses the config, falling back to defaults when missing.
// Values from a .env file in the working directory and from DUELIST_*
// environment variables override the file.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIBase:   defaultAPIBase,
		PollEvery: defaultPoll,
		StateDir:  defaultStateDir,
		LogLevel:  defaultLogLevel,
		Theme:     defaultTheme,
	}

	if err := cfg.readFile(resolved); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", dotEnvFile, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	cfg.StateDir = mustExpand(cfg.StateDir)
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.StateDir, "duelist.log")
	}
	cfg.LogFile = mustExpand(cfg.LogFile)
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBase     string `toml:"api_base"`
		Token       string `toml:"token"`
		PollSeconds int    `toml:"poll_seconds"`
		StateDir    string `toml:"state_dir"`
		LogFile     string `toml:"log_file"`
		LogLevel    string `toml:"log_level"`
		Theme       string `toml:"theme"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&c.APIBase, raw.APIBase)
	setString(&c.Token, raw.Token)
	setString(&c.StateDir, raw.StateDir)
	setString(&c.LogFile, raw.LogFile)
	setString(&c.LogLevel, raw.LogLevel)
	setString(&c.Theme, raw.Theme)
	if raw.PollSeconds > 0 {
		c.PollEvery = time.Duration(raw.PollSeconds) * time.Second
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.APIBase, os.Getenv(envPrefix+"API_BASE"))
	setString(&c.Token, os.Getenv(envPrefix+"TOKEN"))
	setString(&c.StateDir, os.Getenv(envPrefix+"STATE_DIR"))
	setString(&c.LogFile, os.Getenv(envPrefix+"LOG_FILE"))
	setString(&c.LogLevel, os.Getenv(envPrefix+"LOG_LEVEL"))
	setString(&c.Theme, os.Getenv(envPrefix+"THEME"))
	setString(&c.SessionID, os.Getenv(envPrefix+"SESSION"))

	if raw := strings.TrimSpace(os.Getenv(envPrefix + "POLL_SECONDS")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return fmt.Errorf("%sPOLL_SECONDS must be a positive integer, got %q", envPrefix, raw)
		}
		c.PollEvery = time.Duration(secs) * time.Second
	}
	return nil
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
