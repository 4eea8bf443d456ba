package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default exam lengths when the config does not name the test type.
const (
	DefaultTopicDuration      = 40 * time.Minute
	DefaultFullLengthDuration = 180 * time.Minute
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Provider struct {
		BaseURL string `yaml:"baseUrl"`
		Timeout string `yaml:"timeout"`
	} `yaml:"provider"`
	Exam struct {
		Durations       map[string]string `yaml:"durations"`
		DefaultDuration string            `yaml:"defaultDuration"`
		PaperTTL        string            `yaml:"paperTtl"`
		ResultTTL       string            `yaml:"resultTtl"`
	} `yaml:"exam"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// ExamDurations resolves the countdown length for every configured test type.
// Keys are lower-cased. The two built-in test types are always present.
func (c Config) ExamDurations() (map[string]time.Duration, time.Duration) {
	out := map[string]time.Duration{
		"topic-wise":  DefaultTopicDuration,
		"full-length": DefaultFullLengthDuration,
	}
	for testType, raw := range c.Exam.Durations {
		if d := TTLDuration(raw, 0); d > 0 {
			out[strings.ToLower(testType)] = d
		}
	}
	return out, TTLDuration(c.Exam.DefaultDuration, DefaultTopicDuration)
}
