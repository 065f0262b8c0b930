package world

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// SphereProvider is the authoritative partition set for the cube-sphere
// regime: six faces of chunksPerFace² chunks each, projected onto the
// planet surface. Visibility is a full 3-D distance test against the chunk
// centers, so the set naturally shrinks to the near hemisphere as the
// camera descends.
type SphereProvider struct {
	geom         PlanetGeometry
	viewDistance float64
	heightRes    int
	heightAmp    float64
	seed         int64

	mu    sync.RWMutex
	cache map[PartitionKey]*ChunkData
	keys  []PartitionKey
}

// NewSphereProvider creates a cube-sphere provider.
func NewSphereProvider(geom PlanetGeometry, viewDistance float64, heightRes int, seed int64) *SphereProvider {
	return &SphereProvider{
		geom:         geom,
		viewDistance: viewDistance,
		heightRes:    heightRes,
		heightAmp:    geom.ChunkWorldSize() * 0.5,
		seed:         seed,
		cache:        make(map[PartitionKey]*ChunkData),
	}
}

// Geometry returns the planet parameterization.
func (s *SphereProvider) Geometry() PlanetGeometry { return s.geom }

// Refresh recomputes the visible key set for this frame and prunes cached
// chunk data that has fallen far outside the view distance.
func (s *SphereProvider) Refresh(camera mgl64.Vec3) {
	maxDistSq := s.viewDistance * s.viewDistance

	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys = s.keys[:0]
	n := int32(s.geom.ChunksPerFace)
	for face := uint8(0); face < NumFaces; face++ {
		for y := int32(0); y < n; y++ {
			for x := int32(0); x < n; x++ {
				k := SphereKey(face, x, y)
				d := camera.Sub(s.geom.SphereCenter(k))
				if d.Dot(d) <= maxDistSq {
					s.keys = append(s.keys, k)
				}
			}
		}
	}

	pruneDistSq := maxDistSq * 4
	for k := range s.cache {
		d := camera.Sub(s.geom.SphereCenter(k))
		if d.Dot(d) > pruneDistSq {
			delete(s.cache, k)
		}
	}
}

// Keys returns the visible key set computed by the last Refresh.
func (s *SphereProvider) Keys() []PartitionKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys
}

// Get returns the chunk data snapshot for a key, generating it on first use.
func (s *SphereProvider) Get(k PartitionKey) (*ChunkData, bool) {
	if k.Regime != RegimeSpherical || k.Face >= NumFaces {
		return nil, false
	}
	s.mu.RLock()
	data, ok := s.cache[k]
	s.mu.RUnlock()
	if ok {
		return data, true
	}

	data = s.generate(k)
	s.mu.Lock()
	if existing, ok := s.cache[k]; ok {
		data = existing
	} else {
		s.cache[k] = data
	}
	s.mu.Unlock()
	return data, true
}

// Center returns the chunk's projected world-space center.
func (s *SphereProvider) Center(k PartitionKey) mgl64.Vec3 {
	return s.geom.SphereCenter(k)
}

func (s *SphereProvider) generate(k PartitionKey) *ChunkData {
	n := s.heightRes + 1
	heights := make([]float32, n*n)

	// Sample noise in face-local UV space; the per-face seed offset keeps
	// faces from repeating each other.
	faceSeed := s.seed + int64(k.Face)*7919
	scale := float64(s.geom.ChunksPerFace) / 4
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			u := (float64(k.X) + float64(i)/float64(s.heightRes)) / float64(s.geom.ChunksPerFace)
			v := (float64(k.Y) + float64(j)/float64(s.heightRes)) / float64(s.geom.ChunksPerFace)
			h := octaveNoise2D(u*scale, v*scale, faceSeed, 5, 0.55, 2.0)
			heights[j*n+i] = float32(h * s.heightAmp)
		}
	}

	return &ChunkData{
		Key:       k,
		Size:      s.geom.ChunkWorldSize(),
		LODHint:   -1,
		Heights:   heights,
		HeightRes: s.heightRes,
	}
}
