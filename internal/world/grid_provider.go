package world

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// GridProvider is the authoritative partition set for the flat regime. Each
// Refresh recomputes the visible key set from the camera position (planar
// distance, optionally narrowed by a frustum); chunk data snapshots are
// generated lazily from value noise and cached per key.
type GridProvider struct {
	chunkSize    float64
	viewDistance float64
	heightRes    int
	heightAmp    float64
	noiseScale   float64
	seed         int64

	mu    sync.RWMutex
	cache map[PartitionKey]*ChunkData
	keys  []PartitionKey
}

// NewGridProvider creates a flat-grid provider. viewDistance is in world
// units; heightRes is the per-chunk height lattice resolution.
func NewGridProvider(chunkSize, viewDistance float64, heightRes int, seed int64) *GridProvider {
	return &GridProvider{
		chunkSize:    chunkSize,
		viewDistance: viewDistance,
		heightRes:    heightRes,
		heightAmp:    chunkSize * 0.75,
		noiseScale:   1.0 / (chunkSize * 8),
		seed:         seed,
		cache:        make(map[PartitionKey]*ChunkData),
	}
}

// ChunkSize returns the chunk edge length in world units.
func (g *GridProvider) ChunkSize() float64 { return g.chunkSize }

// Refresh recomputes the visible key set for this frame. When clip is
// non-nil, chunks outside the view frustum are excluded as well. Cached
// chunk data far outside the view distance is pruned.
func (g *GridProvider) Refresh(camera mgl64.Vec3, clip *mgl64.Mat4) {
	radius := int(math.Ceil(g.viewDistance/g.chunkSize)) + 1
	cx := int32(math.Floor(camera.X() / g.chunkSize))
	cy := int32(math.Floor(camera.Z() / g.chunkSize))

	var planes [6]Plane
	if clip != nil {
		planes = ExtractFrustumPlanes(*clip)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.keys = g.keys[:0]
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			k := FlatKey(cx+int32(dx), cy+int32(dy))
			center := FlatCenter(k, g.chunkSize)
			ddx := camera.X() - center.X()
			ddz := camera.Z() - center.Z()
			if ddx*ddx+ddz*ddz > g.viewDistance*g.viewDistance {
				continue
			}
			if clip != nil {
				half := g.chunkSize / 2
				min := mgl64.Vec3{center.X() - half, -g.heightAmp, center.Z() - half}
				max := mgl64.Vec3{center.X() + half, g.heightAmp, center.Z() + half}
				if !AABBInFrustum(min, max, planes) {
					continue
				}
			}
			g.keys = append(g.keys, k)
		}
	}

	// Prune cached data well outside the view distance
	pruneDist := g.viewDistance * 2
	for k := range g.cache {
		center := FlatCenter(k, g.chunkSize)
		ddx := camera.X() - center.X()
		ddz := camera.Z() - center.Z()
		if ddx*ddx+ddz*ddz > pruneDist*pruneDist {
			delete(g.cache, k)
		}
	}
}

// Keys returns the visible key set computed by the last Refresh. The slice
// is owned by the provider and stable until the next Refresh.
func (g *GridProvider) Keys() []PartitionKey {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.keys
}

// Get returns the chunk data snapshot for a key, generating it on first use.
func (g *GridProvider) Get(k PartitionKey) (*ChunkData, bool) {
	if k.Regime != RegimeFlat {
		return nil, false
	}
	g.mu.RLock()
	data, ok := g.cache[k]
	g.mu.RUnlock()
	if ok {
		return data, true
	}

	data = g.generate(k)
	g.mu.Lock()
	if existing, ok := g.cache[k]; ok {
		data = existing
	} else {
		g.cache[k] = data
	}
	g.mu.Unlock()
	return data, true
}

// Center returns the world-space center used for distance tests.
func (g *GridProvider) Center(k PartitionKey) mgl64.Vec3 {
	return FlatCenter(k, g.chunkSize)
}

func (g *GridProvider) generate(k PartitionKey) *ChunkData {
	n := g.heightRes + 1
	heights := make([]float32, n*n)
	baseX := float64(k.X) * g.chunkSize
	baseY := float64(k.Y) * g.chunkSize
	step := g.chunkSize / float64(g.heightRes)

	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			wx := (baseX + float64(i)*step) * g.noiseScale
			wy := (baseY + float64(j)*step) * g.noiseScale
			h := octaveNoise2D(wx, wy, g.seed, 4, 0.5, 2.0)
			heights[j*n+i] = float32(h * g.heightAmp)
		}
	}

	data := &ChunkData{
		Key:       k,
		Size:      g.chunkSize,
		LODHint:   -1,
		Heights:   heights,
		HeightRes: g.heightRes,
	}

	// Sparse tree placement on high ground
	centerH := data.HeightAt(g.heightRes/2, g.heightRes/2)
	if float64(centerH) > g.heightAmp*0.6 {
		data.Features = append(data.Features, Feature{
			Kind: FeatureTree,
			Pos:  mgl64.Vec3{baseX + g.chunkSize/2, float64(centerH), baseY + g.chunkSize/2},
		})
	}
	return data
}
