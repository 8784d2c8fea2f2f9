package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Commerce   CommerceConfig   `yaml:"commerce"`
	Carrier    CarrierConfig    `yaml:"carrier"`
	Translate  TranslateConfig  `yaml:"translate"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	OrderTrack OrderTrackConfig `yaml:"ordertrack"`
}

type CommerceConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	APIVersion string `yaml:"api_version"`
}

type CarrierConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	// Poll schedule after a fresh registration, in seconds. Defaults to
	// 1, 2, 2 when empty.
	PollDelaysSeconds []int `yaml:"poll_delays_seconds"`

	// Settle pause after a language change, seconds.
	SettleSeconds int `yaml:"settle_seconds"`

	// Rejection codes treated as "already registered" (idempotent success).
	AlreadyRegisteredCodes []int `yaml:"already_registered_codes"`

	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

type TranslateConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	TrackingUpdatedTopicName string `yaml:"tracking_updated_topic_name"`
}

type OrderTrackConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	TrackCacheTTLSeconds int `yaml:"track_cache_ttl_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
