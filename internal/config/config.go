package config

import (
	"fmt"
	"log"
	"regexp"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LogLevel string         `mapstructure:"log_level"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	Dir           string `mapstructure:"dir"`
	CleanKeepDays int    `mapstructure:"clean_keep_days"`
	CleanSchedule string `mapstructure:"clean_schedule"`
}

type BatchConfig struct {
	MaxConcurrentTasks      int           `mapstructure:"max_concurrent_tasks"`
	ConversionTimeout       time.Duration `mapstructure:"conversion_timeout"`
	SkipTempFiles           bool          `mapstructure:"skip_temp_files"`
	LibreOfficePath         string        `mapstructure:"libreoffice_path"`
	LibreOfficeDefaultPaths []string      `mapstructure:"libreoffice_default_paths"`
}

type PipelineConfig struct {
	MinParagraphLen          int      `mapstructure:"min_paragraph_len"`
	SimhashDistanceThreshold int      `mapstructure:"simhash_distance_threshold"`
	EnableNearDuplicate      bool     `mapstructure:"enable_near_duplicate"`
	EnableCrossDocDedup      bool     `mapstructure:"enable_cross_doc_dedup"`
	CustomNoisePatterns      []string `mapstructure:"custom_noise_patterns"`
}

type RedisConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	DB             int    `mapstructure:"db"`
	Password       string `mapstructure:"password"`
	DocHashKey     string `mapstructure:"doc_hash_key"`
	ParaHashKey    string `mapstructure:"para_hash_key"`
	ParaSimhashKey string `mapstructure:"para_simhash_key"`
}

func Load(configPath string) (*Config, error) {
	config := &Config{}

	viper.SetConfigName("docbatch")
	viper.SetConfigType("toml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.docbatch")
		viper.AddConfigPath("/etc/docbatch")
	}

	setDefaults()
	bindEnvVars()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Batch.MaxConcurrentTasks <= 0 {
		config.Batch.MaxConcurrentTasks = runtime.NumCPU()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)

	viper.SetDefault("storage.dir", "./storage")
	viper.SetDefault("storage.clean_keep_days", 7)
	viper.SetDefault("storage.clean_schedule", "@daily")

	viper.SetDefault("batch.max_concurrent_tasks", 0)
	viper.SetDefault("batch.conversion_timeout", "60s")
	viper.SetDefault("batch.skip_temp_files", true)
	viper.SetDefault("batch.libreoffice_path", "")
	viper.SetDefault("batch.libreoffice_default_paths", []string{
		"/usr/bin/soffice",
		"/usr/local/bin/soffice",
		"/opt/libreoffice/program/soffice",
		"/Applications/LibreOffice.app/Contents/MacOS/soffice",
		"C:\\Program Files\\LibreOffice\\program\\soffice.exe",
	})

	viper.SetDefault("pipeline.min_paragraph_len", 10)
	viper.SetDefault("pipeline.simhash_distance_threshold", 3)
	viper.SetDefault("pipeline.enable_near_duplicate", true)
	viper.SetDefault("pipeline.enable_cross_doc_dedup", true)
	viper.SetDefault("pipeline.custom_noise_patterns", []string{})

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.doc_hash_key", "docbatch:doc:hashes")
	viper.SetDefault("redis.para_hash_key", "docbatch:para:hashes")
	viper.SetDefault("redis.para_simhash_key", "docbatch:para:simhash")

	viper.SetDefault("log_level", "info")
}

func bindEnvVars() {
	viper.SetEnvPrefix("DOCBATCH")
	viper.AutomaticEnv()

	bindings := map[string]string{
		"server.host":                         "DOCBATCH_SERVER_HOST",
		"server.port":                         "DOCBATCH_SERVER_PORT",
		"storage.dir":                         "DOCBATCH_STORAGE_DIR",
		"storage.clean_keep_days":             "DOCBATCH_CLEAN_KEEP_DAYS",
		"storage.clean_schedule":              "DOCBATCH_CLEAN_SCHEDULE",
		"batch.max_concurrent_tasks":          "DOCBATCH_MAX_CONCURRENT_TASKS",
		"batch.conversion_timeout":            "DOCBATCH_CONVERSION_TIMEOUT",
		"batch.skip_temp_files":               "DOCBATCH_SKIP_TEMP_FILES",
		"batch.libreoffice_path":              "DOCBATCH_LIBREOFFICE_PATH",
		"pipeline.min_paragraph_len":          "DOCBATCH_MIN_PARAGRAPH_LEN",
		"pipeline.simhash_distance_threshold": "DOCBATCH_SIMHASH_DISTANCE_THRESHOLD",
		"pipeline.enable_near_duplicate":      "DOCBATCH_ENABLE_NEAR_DUPLICATE",
		"pipeline.enable_cross_doc_dedup":     "DOCBATCH_ENABLE_CROSS_DOC_DEDUP",
		"redis.enabled":                       "DOCBATCH_REDIS_ENABLED",
		"redis.host":                          "DOCBATCH_REDIS_HOST",
		"redis.port":                          "DOCBATCH_REDIS_PORT",
		"redis.db":                            "DOCBATCH_REDIS_DB",
		"redis.password":                      "DOCBATCH_REDIS_PASSWORD",
		"log_level":                           "DOCBATCH_LOG_LEVEL",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Printf("Warning: failed to bind %s env var: %v", key, err)
		}
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if c.Storage.Dir == "" {
		return fmt.Errorf("storage dir cannot be empty")
	}

	if c.Storage.CleanKeepDays < 0 {
		return fmt.Errorf("clean_keep_days must be non-negative: %d", c.Storage.CleanKeepDays)
	}

	if c.Batch.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("max_concurrent_tasks must be positive: %d", c.Batch.MaxConcurrentTasks)
	}

	if c.Batch.ConversionTimeout <= 0 {
		return fmt.Errorf("conversion_timeout must be positive: %s", c.Batch.ConversionTimeout)
	}

	if c.Pipeline.MinParagraphLen < 0 {
		return fmt.Errorf("min_paragraph_len must be non-negative: %d", c.Pipeline.MinParagraphLen)
	}

	if c.Pipeline.SimhashDistanceThreshold < 0 || c.Pipeline.SimhashDistanceThreshold > 64 {
		return fmt.Errorf("simhash_distance_threshold must be within [0, 64]: %d", c.Pipeline.SimhashDistanceThreshold)
	}

	for _, pattern := range c.Pipeline.CustomNoisePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid noise pattern %q: %w", pattern, err)
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Host == "" {
			return fmt.Errorf("redis host cannot be empty when redis is enabled")
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			return fmt.Errorf("invalid redis port: %d", c.Redis.Port)
		}
	}

	return nil
}
