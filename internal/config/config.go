package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultRegion             = "us-west-2"
	DefaultBucket             = "amplify-amplifyvitereactt-amplifyteamdrivebucket28-2j1zgywqwfjv"
	DefaultPresignExpiry      = time.Hour
	DefaultGenerationEndpoint = "https://qkhr2j5d52.execute-api.us-west-2.amazonaws.com/filequery"
	DefaultPrompt             = "Generate study questions based on this content. Make them thought-provoking and focused on understanding key concepts."
	DefaultFilename           = "something.txt"
	DefaultCacheTTLSeconds    = 600
	DefaultSigningService     = "es"

	BackendHTTP    = "http"
	BackendBedrock = "bedrock"
)

// Config is the explicit configuration record shared by every function in
// this repo. Values come from the environment (and an optional yaml file),
// falling back to the defaults above.
type Config struct {
	Region        string        `mapstructure:"aws_region"`
	Bucket        string        `mapstructure:"storage_bucket"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`

	GenerationBackend       string `mapstructure:"generation_backend"`
	GenerationEndpoint      string `mapstructure:"generation_endpoint"`
	GenerationEndpointParam string `mapstructure:"generation_endpoint_param"`
	Prompt                  string `mapstructure:"generation_prompt"`
	Filename                string `mapstructure:"generation_filename"`
	BedrockModelID          string `mapstructure:"bedrock_model_id"`

	CacheTable      string `mapstructure:"question_cache_table"`
	CacheTTLSeconds int64  `mapstructure:"question_cache_ttl_seconds"`
	TopicArn        string `mapstructure:"question_topic_arn"`

	SearchEndpoint       string `mapstructure:"search_endpoint"`
	SearchEndpointParam  string `mapstructure:"search_endpoint_param"`
	SearchSigningService string `mapstructure:"search_signing_service"`

	LogLevel string `mapstructure:"log_level"`
}

var keys = []string{
	"aws_region",
	"storage_bucket",
	"presign_expiry",
	"generation_backend",
	"generation_endpoint",
	"generation_endpoint_param",
	"generation_prompt",
	"generation_filename",
	"bedrock_model_id",
	"question_cache_table",
	"question_cache_ttl_seconds",
	"question_topic_arn",
	"search_endpoint",
	"search_endpoint_param",
	"search_signing_service",
	"log_level",
}

// Load reads configuration from the environment. If CONFIG_FILE is set, that
// yaml file is read first and environment variables override it. Function
// specific requirements are checked by the builders in internal/app.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	if err := v.BindEnv("config_file", "CONFIG_FILE"); err != nil {
		return nil, fmt.Errorf("bind env config_file: %w", err)
	}
	if file := strings.TrimSpace(v.GetString("config_file")); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws_region", DefaultRegion)
	v.SetDefault("storage_bucket", DefaultBucket)
	v.SetDefault("presign_expiry", DefaultPresignExpiry)
	v.SetDefault("generation_backend", BackendHTTP)
	v.SetDefault("generation_endpoint", DefaultGenerationEndpoint)
	v.SetDefault("generation_endpoint_param", "")
	v.SetDefault("generation_prompt", DefaultPrompt)
	v.SetDefault("generation_filename", DefaultFilename)
	v.SetDefault("bedrock_model_id", "")
	v.SetDefault("question_cache_table", "")
	v.SetDefault("question_cache_ttl_seconds", DefaultCacheTTLSeconds)
	v.SetDefault("question_topic_arn", "")
	v.SetDefault("search_endpoint", "")
	v.SetDefault("search_endpoint_param", "")
	v.SetDefault("search_signing_service", DefaultSigningService)
	v.SetDefault("log_level", "info")
}

func (c *Config) normalize() {
	c.Region = strings.TrimSpace(c.Region)
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	c.Bucket = strings.TrimSpace(c.Bucket)
	c.GenerationBackend = strings.ToLower(strings.TrimSpace(c.GenerationBackend))
	c.GenerationEndpoint = strings.TrimSpace(c.GenerationEndpoint)
	c.GenerationEndpointParam = strings.TrimSpace(c.GenerationEndpointParam)
	c.BedrockModelID = strings.TrimSpace(c.BedrockModelID)
	c.CacheTable = strings.TrimSpace(c.CacheTable)
	c.TopicArn = strings.TrimSpace(c.TopicArn)
	c.SearchEndpoint = strings.TrimRight(strings.TrimSpace(c.SearchEndpoint), "/")
	c.SearchEndpointParam = strings.TrimSpace(c.SearchEndpointParam)
	c.SearchSigningService = strings.TrimSpace(c.SearchSigningService)
	if c.SearchSigningService == "" {
		c.SearchSigningService = DefaultSigningService
	}
	if c.PresignExpiry <= 0 {
		c.PresignExpiry = DefaultPresignExpiry
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = DefaultCacheTTLSeconds
	}
}

// ValidateQuestions checks the settings get-questions needs. Load does not call
// it, so search-movies starts regardless of the generation backend.
func (c *Config) ValidateQuestions() error {
	if c.Bucket == "" {
		return errors.New("storage_bucket is required")
	}
	switch c.GenerationBackend {
	case BackendHTTP:
		if c.GenerationEndpoint == "" && c.GenerationEndpointParam == "" {
			return errors.New("generation_endpoint is required for the http backend")
		}
	case BackendBedrock:
		if c.BedrockModelID == "" {
			return errors.New("bedrock_model_id is required for the bedrock backend")
		}
	default:
		return fmt.Errorf("unknown generation_backend %q", c.GenerationBackend)
	}
	return nil
}

// CacheEnabled reports whether generated questions should be cached.
func (c *Config) CacheEnabled() bool { return c.CacheTable != "" }

// NotifyEnabled reports whether invocation outcomes should be published.
func (c *Config) NotifyEnabled() bool { return c.TopicArn != "" }
