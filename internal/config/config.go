// Package config holds the scheduler tunables and helpers for parsing
// static destination lists.
package config

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultReplicaBase is the number of virtual nodes placed per unit of
	// destination weight. Higher values smooth the distribution at the
	// cost of ring memory and rebuild time.
	DefaultReplicaBase = 160

	// DefaultMaxRingNodes caps the total virtual nodes a single binding
	// may hold. A rebuild that would exceed it fails with a resource
	// error instead of consuming unbounded memory.
	DefaultMaxRingNodes = 1 << 20
)

// Config holds the tunables for one service binding.
type Config struct {
	ReplicaBase  int
	MaxRingNodes int
	Hasher       string // "xxhash" (default) or "siphash"
}

// Default returns the configuration matching the classic scheduler:
// 160 replicas per weight unit.
func Default() Config {
	return Config{
		ReplicaBase:  DefaultReplicaBase,
		MaxRingNodes: DefaultMaxRingNodes,
		Hasher:       "xxhash",
	}
}

// Validate checks the tunables for usable values.
func (c Config) Validate() error {
	if c.ReplicaBase <= 0 {
		return fmt.Errorf("replica base must be positive, got %d", c.ReplicaBase)
	}
	if c.MaxRingNodes < c.ReplicaBase {
		return fmt.Errorf("max ring nodes %d is below replica base %d", c.MaxRingNodes, c.ReplicaBase)
	}
	return nil
}

// DestSpec is one parsed destination entry.
type DestSpec struct {
	Addr   string
	Port   uint16
	Weight int32
}

// ParseDestinations parses a comma-separated destination list in the
// format "addr:port=weight,addr:port=weight", e.g.
// "10.0.0.1:80=1,10.0.0.2:80=3".
func ParseDestinations(s string) ([]DestSpec, error) {
	if s == "" {
		return []DestSpec{}, nil
	}

	parts := strings.Split(s, ",")
	specs := make([]DestSpec, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid destination format: %s (expected addr:port=weight)", part)
		}

		host, portStr, found := strings.Cut(strings.TrimSpace(kv[0]), ":")
		if !found || host == "" {
			return nil, fmt.Errorf("invalid destination address: %s (expected addr:port)", kv[0])
		}
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid destination port %q: %w", portStr, err)
		}

		weight, err := strconv.ParseInt(strings.TrimSpace(kv[1]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid destination weight %q: %w", kv[1], err)
		}
		if weight < 0 {
			return nil, fmt.Errorf("destination weight cannot be negative: %d", weight)
		}

		specs = append(specs, DestSpec{
			Addr:   host,
			Port:   uint16(port),
			Weight: int32(weight),
		})
	}

	return specs, nil
}
