package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"murmur/internal/ratelimit"
)

// Config is the daemon's full configuration. Every field has a usable
// default; a config file only overrides what it mentions.
type Config struct {
	Audio        AudioConfig        `yaml:"audio"`
	Memory       MemoryConfig       `yaml:"memory"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	RateLimit    ratelimit.Config   `yaml:"rate_limit"`
	Bus          BusConfig          `yaml:"bus"`
	Proxy        ProxyConfig        `yaml:"proxy"`
	Integrations IntegrationsConfig `yaml:"integrations"`
	Whisper      WhisperConfig      `yaml:"whisper"`
}

type AudioConfig struct {
	PreferredDevice string `yaml:"preferred_device"`
	SettleDelayMs   int    `yaml:"settle_delay_ms"`
	MinSamples      int    `yaml:"min_samples"`
	Cues            bool   `yaml:"cues"`
}

type MemoryConfig struct {
	DBPath       string `yaml:"db_path"`
	ShortTermCap int    `yaml:"short_term_cap"`
	FactCap      int    `yaml:"fact_cap"`
}

type OpenAIConfig struct {
	ChatModel       string `yaml:"chat_model"`
	TranscribeModel string `yaml:"transcribe_model"`
}

type BusConfig struct {
	Addr string `yaml:"addr"`
}

type ProxyConfig struct {
	SocksAddr string `yaml:"socks_addr"`
}

type IntegrationsConfig struct {
	Disabled []string `yaml:"disabled"`
}

type WhisperConfig struct {
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
}

func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Audio: AudioConfig{
			SettleDelayMs: 150,
			MinSamples:    1600,
			Cues:          true,
		},
		Memory: MemoryConfig{
			DBPath:       filepath.Join(home, ".local", "share", "murmur", "murmur.db"),
			ShortTermCap: 10,
			FactCap:      50,
		},
		OpenAI: OpenAIConfig{},
		Bus: BusConfig{
			Addr: "127.0.0.1:8765",
		},
		Whisper: WhisperConfig{
			Language: "auto",
		},
	}
}

// Load reads a YAML file over the defaults. A missing path just returns
// defaults; a present but broken file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
