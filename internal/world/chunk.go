package world

import (
	"github.com/go-gl/mathgl/mgl64"
)

// FeatureKind tags a placed surface feature inside a chunk.
type FeatureKind uint8

const (
	FeatureTree FeatureKind = iota
	FeatureRock
	FeatureWater
)

// Feature is a point of interest placed on the chunk surface. Features are
// part of the provider snapshot; the streaming subsystem only carries them
// through to the mesh builder.
type Feature struct {
	Kind FeatureKind
	Pos  mgl64.Vec3
}

// ChunkData is the per-partition snapshot supplied by a provider. The
// streaming subsystem treats it as read-only within one update pass.
type ChunkData struct {
	Key  PartitionKey
	Size float64 // world units along one chunk edge

	// LODHint is the provider's detail ceiling for this chunk, or -1 when
	// the provider imposes none.
	LODHint int

	// Heights holds (HeightRes+1)² row-major surface samples covering the
	// chunk. May be nil while terrain generation has not produced them yet;
	// the mesh builder treats that as a transient failure.
	Heights   []float32
	HeightRes int

	Features []Feature
}

// HeightAt returns the sampled height at lattice position (i, j), clamped
// to the sample lattice bounds.
func (c *ChunkData) HeightAt(i, j int) float32 {
	n := c.HeightRes + 1
	if len(c.Heights) < n*n {
		return 0
	}
	if i < 0 {
		i = 0
	} else if i >= n {
		i = n - 1
	}
	if j < 0 {
		j = 0
	} else if j >= n {
		j = n - 1
	}
	return c.Heights[j*n+i]
}
