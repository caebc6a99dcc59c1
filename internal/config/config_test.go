package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8000,
		},
		Storage: StorageConfig{
			Dir:           "./storage",
			CleanKeepDays: 7,
			CleanSchedule: "@daily",
		},
		Batch: BatchConfig{
			MaxConcurrentTasks: 4,
			ConversionTimeout:  60 * time.Second,
			SkipTempFiles:      true,
		},
		Pipeline: PipelineConfig{
			MinParagraphLen:          10,
			SimhashDistanceThreshold: 3,
			EnableNearDuplicate:      true,
			EnableCrossDocDedup:      true,
		},
		Redis: RedisConfig{
			Enabled:        false,
			Host:           "localhost",
			Port:           6379,
			DocHashKey:     "docbatch:doc:hashes",
			ParaHashKey:    "docbatch:para:hashes",
			ParaSimhashKey: "docbatch:para:simhash",
		},
		LogLevel: "info",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid port - too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port - too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "empty storage dir",
			mutate:  func(c *Config) { c.Storage.Dir = "" },
			wantErr: true,
		},
		{
			name:    "negative keep days",
			mutate:  func(c *Config) { c.Storage.CleanKeepDays = -1 },
			wantErr: true,
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Batch.MaxConcurrentTasks = 0 },
			wantErr: true,
		},
		{
			name:    "zero conversion timeout",
			mutate:  func(c *Config) { c.Batch.ConversionTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "min paragraph length zero is accepted",
			mutate:  func(c *Config) { c.Pipeline.MinParagraphLen = 0 },
			wantErr: false,
		},
		{
			name:    "negative min paragraph length",
			mutate:  func(c *Config) { c.Pipeline.MinParagraphLen = -1 },
			wantErr: true,
		},
		{
			name:    "simhash threshold zero is accepted",
			mutate:  func(c *Config) { c.Pipeline.SimhashDistanceThreshold = 0 },
			wantErr: false,
		},
		{
			name:    "simhash threshold above 64",
			mutate:  func(c *Config) { c.Pipeline.SimhashDistanceThreshold = 65 },
			wantErr: true,
		},
		{
			name:    "bad custom noise pattern",
			mutate:  func(c *Config) { c.Pipeline.CustomNoisePatterns = []string{"[unclosed"} },
			wantErr: true,
		},
		{
			name: "redis enabled without host",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Host = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
