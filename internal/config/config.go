// Package config holds the balancer configuration: defaults, the YAML or
// JSON config file and the flag form of the initial server list.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"kvbalancer/internal/balancer"
	"kvbalancer/internal/hashing"
	"kvbalancer/internal/node"
	"kvbalancer/internal/queue"
	"kvbalancer/internal/storage"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Write policy names accepted in config files and flags.
const (
	PolicyWriteAllocate = "write-allocate"
	PolicyWriteAround   = "write-around"
)

// ServerSpec is a server created before the command script runs.
type ServerSpec struct {
	ID            uint32 `yaml:"id" json:"id"`
	CacheCapacity int    `yaml:"cache_capacity" json:"cache_capacity"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Config holds the balancer configuration.
type Config struct {
	EnableVNodes  bool         `yaml:"enable_vnodes" json:"enable_vnodes"`
	QueueCapacity int          `yaml:"queue_capacity" json:"queue_capacity"`
	StoreBuckets  int          `yaml:"store_buckets" json:"store_buckets"`
	KeyHash       string       `yaml:"key_hash" json:"key_hash"`
	WritePolicy   string       `yaml:"write_policy" json:"write_policy"`
	Servers       []ServerSpec `yaml:"servers" json:"servers"`
	Log           LogConfig    `yaml:"log" json:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		QueueCapacity: queue.DefaultCapacity,
		StoreBuckets:  storage.DefaultBuckets,
		KeyHash:       hashing.NameDJB2,
		WritePolicy:   PolicyWriteAllocate,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFile reads a YAML or JSON config, chosen by file extension. Fields
// missing from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &cfg, nil
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("%w: queue_capacity must be positive", ErrInvalid)
	}
	if c.StoreBuckets <= 0 {
		return fmt.Errorf("%w: store_buckets must be positive", ErrInvalid)
	}
	if _, err := hashing.KeyHasherByName(c.KeyHash); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := ParseWritePolicy(c.WritePolicy); err != nil {
		return err
	}

	seen := make(map[uint32]bool, len(c.Servers))
	for _, s := range c.Servers {
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate server id %d", ErrInvalid, s.ID)
		}
		seen[s.ID] = true
		if s.CacheCapacity <= 0 {
			return fmt.Errorf("%w: server %d: cache_capacity must be positive", ErrInvalid, s.ID)
		}
		if c.EnableVNodes && s.ID >= balancer.VirtualIDStride {
			return fmt.Errorf("%w: server id %d must be below %d with virtual nodes", ErrInvalid, s.ID, balancer.VirtualIDStride)
		}
	}
	return nil
}

// BalancerOptions converts the config into balancer options.
func (c *Config) BalancerOptions(logger *zerolog.Logger) (balancer.Options, error) {
	hasher, err := hashing.KeyHasherByName(c.KeyHash)
	if err != nil {
		return balancer.Options{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	policy, err := ParseWritePolicy(c.WritePolicy)
	if err != nil {
		return balancer.Options{}, err
	}

	return balancer.Options{
		EnableVNodes:  c.EnableVNodes,
		QueueCapacity: c.QueueCapacity,
		StoreBuckets:  c.StoreBuckets,
		KeyHasher:     hasher,
		IDHasher:      hashing.Mix32{},
		WritePolicy:   policy,
		Logger:        logger,
	}, nil
}

// ParseWritePolicy maps a policy name to a node.WritePolicy. An empty
// name selects write-allocate.
func ParseWritePolicy(name string) (node.WritePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyWriteAllocate:
		return node.WriteAllocate, nil
	case PolicyWriteAround:
		return node.WriteAround, nil
	default:
		return 0, fmt.Errorf("%w: unknown write policy %q", ErrInvalid, name)
	}
}

// ParseServers parses a comma-separated list of servers in the format:
// "id1:cache1,id2:cache2"
func ParseServers(s string) ([]ServerSpec, error) {
	if s == "" {
		return []ServerSpec{}, nil
	}

	parts := strings.Split(s, ",")
	servers := make([]ServerSpec, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid server format: %s (expected id:cache)", part)
		}

		id, err := strconv.ParseUint(strings.TrimSpace(kv[0]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid server id in %s: %w", part, err)
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid cache capacity in %s: %w", part, err)
		}

		servers = append(servers, ServerSpec{
			ID:            uint32(id),
			CacheCapacity: capacity,
		})
	}

	return servers, nil
}
