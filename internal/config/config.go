package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Synthesis Synthesis `yaml:"synthesis"`
	Reports   Reports   `yaml:"reports"`
	Schedule  Schedule  `yaml:"schedule"`
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

type Synthesis struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	OllamaURL      string `yaml:"ollama_url"`
	OpenAIModel    string `yaml:"openai_model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Reports struct {
	MinDailyEpisodes int        `yaml:"min_daily_episodes"`
	Prominence       Prominence `yaml:"prominence"`
}

// Prominence maps theme trajectories to scores. The defaults are a fixed
// heuristic, kept configurable rather than hard-coded.
type Prominence struct {
	Rising  float64 `yaml:"rising"`
	Stable  float64 `yaml:"stable"`
	Falling float64 `yaml:"falling"`
}

// Schedule holds cron expressions for the auto rollup triggers.
type Schedule struct {
	Daily     string `yaml:"daily"`
	Weekly    string `yaml:"weekly"`
	Monthly   string `yaml:"monthly"`
	Quarterly string `yaml:"quarterly"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for finreports.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "finreports")
}

// DataDir returns the XDG data directory for finreports.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "finreports")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/finreports/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'finreports init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Synthesis: Synthesis{
			Provider:       "ollama",
			Model:          "qwen2.5:7b",
			OllamaURL:      "http://localhost:11434",
			OpenAIModel:    "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			MaxTokens:      4096,
			TimeoutSeconds: 120,
		},
		Reports: Reports{
			MinDailyEpisodes: 2,
			Prominence:       Prominence{Rising: 0.8, Stable: 0.5, Falling: 0.3},
		},
		Schedule: Schedule{
			Daily:     "0 6 * * *",
			Weekly:    "30 6 * * 1",
			Monthly:   "0 7 1 * *",
			Quarterly: "30 7 1 1,4,7,10 *",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// Timeout returns the synthesis provider timeout as a duration.
func (s Synthesis) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
