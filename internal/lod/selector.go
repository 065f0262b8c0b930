// Package lod maps camera distance to discrete detail levels under the flat
// and cube-sphere coordinate regimes.
package lod

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"terrastream/internal/world"
)

// MaxLOD is the coarsest selectable detail level. Level 0 is the finest.
// Every consumer table indexed by LOD must have exactly MaxLOD+1 entries.
const MaxLOD = 6

// DefaultMultipliers scale the chunk edge length into per-LOD maximum
// distances. The table is scanned ascending; the first bound that covers
// the actual distance yields the level.
var DefaultMultipliers = [MaxLOD + 1]float64{1.5, 2.5, 4, 6, 9, 13, 20}

// Selector is a pure distance-to-LOD mapping. It allocates nothing per call:
// it runs for every resident chunk every frame.
type Selector struct {
	flatBounds   [MaxLOD + 1]float64
	sphereBounds [MaxLOD + 1]float64
	planet       world.PlanetGeometry
	chunkSize    float64
}

// NewSelector builds a selector for a flat chunk size and, when planet has a
// positive radius, the spherical regime as well.
func NewSelector(chunkSize float64, planet world.PlanetGeometry) *Selector {
	return NewSelectorWithMultipliers(chunkSize, planet, DefaultMultipliers)
}

// NewSelectorWithMultipliers builds a selector from explicit distance-table
// multipliers. Flat bounds scale by the chunk edge length, spherical bounds
// by the projected chunk world size.
func NewSelectorWithMultipliers(chunkSize float64, planet world.PlanetGeometry, mult [MaxLOD + 1]float64) *Selector {
	s := &Selector{planet: planet, chunkSize: chunkSize}
	sphereSize := planet.ChunkWorldSize()
	for i, m := range mult {
		s.flatBounds[i] = m * chunkSize
		s.sphereBounds[i] = m * sphereSize
	}
	return s
}

// Select maps a chunk and camera position to a detail level, clamped to
// [0, MaxLOD]. A zone other than ZoneNone further clamps the result into
// that altitude zone's [min,max] range.
func (s *Selector) Select(k world.PartitionKey, camera mgl64.Vec3, zone Zone) int {
	var dist float64
	var bounds *[MaxLOD + 1]float64

	if k.Regime == world.RegimeSpherical {
		center := s.planet.SphereCenter(k)
		dist = camera.Sub(center).Len()
		bounds = &s.sphereBounds
	} else {
		center := world.FlatCenter(k, s.chunkSize)
		dx := camera.X() - center.X()
		dz := camera.Z() - center.Z()
		dist = math.Sqrt(dx*dx + dz*dz)
		bounds = &s.flatBounds
	}

	level := MaxLOD
	for i := 0; i <= MaxLOD; i++ {
		if dist <= bounds[i] {
			level = i
			break
		}
	}

	level = Clamp(level)
	if zone != ZoneNone {
		min, max := zone.Range()
		if level < min {
			level = min
		} else if level > max {
			level = max
		}
	}
	return level
}

// DistanceSq returns the squared regime-appropriate distance used for load
// prioritization: planar for flat keys, full 3-D for spherical ones.
func (s *Selector) DistanceSq(k world.PartitionKey, camera mgl64.Vec3) float64 {
	if k.Regime == world.RegimeSpherical {
		d := camera.Sub(s.planet.SphereCenter(k))
		return d.Dot(d)
	}
	center := world.FlatCenter(k, s.chunkSize)
	dx := camera.X() - center.X()
	dz := camera.Z() - center.Z()
	return dx*dx + dz*dz
}

// Clamp forces a level into [0, MaxLOD]. Out-of-range input is a caller bug
// but must never reach a consumer table.
func Clamp(level int) int {
	if level < 0 {
		return 0
	}
	if level > MaxLOD {
		return MaxLOD
	}
	return level
}
