// Package config loads and validates streaming settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Planet configures the cube-sphere regime.
type Planet struct {
	Radius        float64    `yaml:"radius"`
	ChunksPerFace int        `yaml:"chunks_per_face"`
	Origin        [3]float64 `yaml:"origin"`
}

// Settings is the full streaming configuration. All values have working
// defaults; a YAML file overrides them field by field.
type Settings struct {
	ChunkSize    float64 `yaml:"chunk_size"`    // world units per flat chunk edge
	ViewDistance float64 `yaml:"view_distance"` // world units
	HeightRes    int     `yaml:"height_res"`    // per-chunk height lattice resolution
	Seed         int64   `yaml:"seed"`

	FrameBudgetMillis  int `yaml:"frame_budget_millis"`
	MaxLoadsPerFrame   int `yaml:"max_loads_per_frame"`
	MaxUnloadsPerFrame int `yaml:"max_unloads_per_frame"`
	LoadQueueCap       int `yaml:"load_queue_cap"`

	CacheBudgetBytes int64 `yaml:"cache_budget_bytes"`
	TextureSize      int   `yaml:"texture_size"`
	TextureLODs      int   `yaml:"texture_lods"`

	StagingTTLSeconds    float64 `yaml:"staging_ttl_seconds"`
	SweepIntervalSeconds float64 `yaml:"sweep_interval_seconds"`

	SeaLevel float64 `yaml:"sea_level"`

	Planet Planet `yaml:"planet"`
}

// Default returns the reference settings.
func Default() Settings {
	return Settings{
		ChunkSize:            64,
		ViewDistance:         64 * 20,
		HeightRes:            64,
		Seed:                 1337,
		FrameBudgetMillis:    8,
		MaxLoadsPerFrame:     3,
		MaxUnloadsPerFrame:   4,
		LoadQueueCap:         4096,
		CacheBudgetBytes:     256 * 1024 * 1024,
		TextureSize:          256,
		TextureLODs:          4,
		StagingTTLSeconds:    30,
		SweepIntervalSeconds: 5,
		SeaLevel:             12,
		Planet: Planet{
			Radius:        4096,
			ChunksPerFace: 16,
		},
	}
}

// Load reads settings from a YAML file over the defaults and clamps them to
// sane ranges.
func Load(path string) (Settings, error) {
	s := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("config: parse %s: %w", path, err)
	}
	s.Clamp()
	return s, nil
}

// Clamp forces out-of-range values back to workable ones.
func (s *Settings) Clamp() {
	if s.ChunkSize < 1 {
		s.ChunkSize = 1
	}
	if s.ViewDistance < s.ChunkSize {
		s.ViewDistance = s.ChunkSize
	}
	if s.HeightRes < 4 {
		s.HeightRes = 4
	}
	if s.HeightRes > 256 {
		s.HeightRes = 256
	}
	if s.FrameBudgetMillis < 1 {
		s.FrameBudgetMillis = 1
	}
	if s.MaxLoadsPerFrame < 1 {
		s.MaxLoadsPerFrame = 1
	}
	if s.MaxUnloadsPerFrame < 1 {
		s.MaxUnloadsPerFrame = 1
	}
	if s.LoadQueueCap < 16 {
		s.LoadQueueCap = 16
	}
	if s.CacheBudgetBytes < 1024*1024 {
		s.CacheBudgetBytes = 1024 * 1024
	}
	if s.TextureSize < 16 {
		s.TextureSize = 16
	}
	if s.TextureSize > 2048 {
		s.TextureSize = 2048
	}
	if s.TextureLODs < 1 {
		s.TextureLODs = 1
	}
	if s.TextureLODs > 7 {
		s.TextureLODs = 7
	}
	if s.StagingTTLSeconds < 1 {
		s.StagingTTLSeconds = 1
	}
	if s.SweepIntervalSeconds < 1 {
		s.SweepIntervalSeconds = 1
	}
	if s.Planet.Radius < 1 {
		s.Planet.Radius = 1
	}
	if s.Planet.ChunksPerFace < 1 {
		s.Planet.ChunksPerFace = 1
	}
}
