// Package meshgen builds renderable terrain meshes from chunk height
// fields at a requested level of detail.
package meshgen

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"terrastream/internal/lod"
	"terrastream/internal/world"
)

// gridQuads maps each LOD to the per-edge quad count of the generated mesh.
// The table has exactly lod.MaxLOD+1 entries; indexing it with an unclamped
// level is a bug, so every entry point clamps first.
var gridQuads = [lod.MaxLOD + 1]int{64, 48, 32, 24, 16, 8, 4}

// vertexFloats is the interleaved vertex layout: position, normal, uv.
const vertexFloats = 8

// Entry is one built mesh. It is owned by the Builder that produced it and
// must be released through Dispose.
type Entry struct {
	Key world.PartitionKey
	LOD int

	// Vertices is interleaved x,y,z,nx,ny,nz,u,v in chunk-local space.
	Vertices    []float32
	Indices     []uint32
	VertexCount int
	IndexCount  int

	Min, Max mgl64.Vec3
	HasWater bool

	disposed bool
}

// Builder constructs terrain meshes and recycles their buffers.
type Builder struct {
	vertexPool sync.Pool
	indexPool  sync.Pool

	built  atomic.Uint64
	failed atomic.Uint64
}

// NewBuilder creates a mesh builder.
func NewBuilder() *Builder {
	return &Builder{
		vertexPool: sync.Pool{New: func() any {
			s := make([]float32, 0, 8192)
			return &s
		}},
		indexPool: sync.Pool{New: func() any {
			s := make([]uint32, 0, 8192)
			return &s
		}},
	}
}

// Build constructs a mesh for the chunk at the given detail level. It
// returns nil when the chunk data cannot produce geometry yet (no height
// samples); callers treat that as a transient, retryable failure.
func (b *Builder) Build(data *world.ChunkData, lodLevel int, env world.EnvState) *Entry {
	if data == nil || len(data.Heights) == 0 || data.HeightRes < 1 {
		b.failed.Add(1)
		return nil
	}

	lodLevel = lod.Clamp(lodLevel)
	quads := gridQuads[lodLevel]
	if quads > data.HeightRes {
		quads = data.HeightRes
	}
	n := quads + 1

	vp := b.vertexPool.Get().(*[]float32)
	verts := (*vp)[:0]
	ip := b.indexPool.Get().(*[]uint32)
	indices := (*ip)[:0]

	step := float32(data.Size) / float32(quads)
	sample := float32(data.HeightRes) / float32(quads)

	minH := float32(0)
	maxH := float32(0)
	first := true
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			si := int(float32(i) * sample)
			sj := int(float32(j) * sample)
			h := data.HeightAt(si, sj)
			if first || h < minH {
				minH = h
			}
			if first || h > maxH {
				maxH = h
			}
			first = false

			// central-difference normal
			hl := data.HeightAt(si-1, sj)
			hr := data.HeightAt(si+1, sj)
			hd := data.HeightAt(si, sj-1)
			hu := data.HeightAt(si, sj+1)
			nx := hl - hr
			nz := hd - hu
			ny := 2 * step
			il := invLen(nx, ny, nz)

			verts = append(verts,
				float32(i)*step, h, float32(j)*step,
				nx*il, ny*il, nz*il,
				float32(i)/float32(quads), float32(j)/float32(quads),
			)
		}
	}

	for j := 0; j < quads; j++ {
		for i := 0; i < quads; i++ {
			a := uint32(j*n + i)
			bIdx := a + 1
			c := a + uint32(n)
			d := c + 1
			indices = append(indices, a, c, bIdx, bIdx, c, d)
		}
	}

	hasWater := env.SeaLevel > float64(minH)
	if !hasWater {
		for _, f := range data.Features {
			if f.Kind == world.FeatureWater {
				hasWater = true
				break
			}
		}
	}

	b.built.Add(1)
	return &Entry{
		Key:         data.Key,
		LOD:         lodLevel,
		Vertices:    verts,
		Indices:     indices,
		VertexCount: n * n,
		IndexCount:  len(indices),
		Min:         mgl64.Vec3{0, float64(minH), 0},
		Max:         mgl64.Vec3{data.Size, float64(maxH), data.Size},
		HasWater:    hasWater,
	}
}

// Dispose returns the entry's buffers to the pool. Disposing twice or
// disposing nil is a no-op.
func (b *Builder) Dispose(e *Entry) {
	if e == nil || e.disposed {
		return
	}
	e.disposed = true
	v := e.Vertices
	e.Vertices = nil
	b.vertexPool.Put(&v)
	i := e.Indices
	e.Indices = nil
	b.indexPool.Put(&i)
}

// Built returns how many meshes this builder produced.
func (b *Builder) Built() uint64 { return b.built.Load() }

// Failed returns how many build attempts produced no mesh.
func (b *Builder) Failed() uint64 { return b.failed.Load() }

// BuildMesh adapts Build to the streaming manager's mesh-builder interface.
func (b *Builder) BuildMesh(data *world.ChunkData, lodLevel int, env world.EnvState) any {
	if e := b.Build(data, lodLevel, env); e != nil {
		return e
	}
	return nil
}

// DisposeMesh adapts Dispose to the streaming manager's interface.
func (b *Builder) DisposeMesh(m any) {
	if e, ok := m.(*Entry); ok {
		b.Dispose(e)
	}
}

func invLen(x, y, z float32) float32 {
	l := float32(math.Sqrt(float64(x*x + y*y + z*z)))
	if l == 0 {
		return 0
	}
	return 1 / l
}
