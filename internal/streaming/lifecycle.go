package streaming

import (
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"terrastream/internal/lod"
	"terrastream/internal/profiling"
	"terrastream/internal/texcache"
	"terrastream/internal/world"
)

// PartitionSet is the authoritative visible partition set for one frame,
// supplied by a world provider. Identity must be stable within one Update.
type PartitionSet interface {
	Keys() []world.PartitionKey
	Get(k world.PartitionKey) (*world.ChunkData, bool)
	Center(k world.PartitionKey) mgl64.Vec3
}

// TextureSource produces and serves per-chunk texture dependencies. Has and
// Request are the readiness poll and the non-blocking production trigger;
// Drain installs completed work at frame start.
type TextureSource interface {
	Has(owner world.PartitionKey, typ texcache.TextureType) bool
	Request(owner world.PartitionKey, typ texcache.TextureType) bool
	AtLOD(owner world.PartitionKey, typ texcache.TextureType, lodLevel int) (texcache.Resource, bool)
	TextureLODs() int
	Drain() int
}

// MeshEntry is an opaque handle produced and owned by the mesh builder.
type MeshEntry = any

// MeshBuilder turns chunk data into renderable geometry. BuildMesh returns
// nil on transient failure; the chunk is retried when it is next seen as
// visible-but-absent.
type MeshBuilder interface {
	BuildMesh(data *world.ChunkData, lodLevel int, env world.EnvState) MeshEntry
	DisposeMesh(m MeshEntry)
}

// requiredTextures are the per-chunk dependencies that gate a load.
var requiredTextures = [...]texcache.TextureType{texcache.TextureHeight, texcache.TextureSurface}

// ChunkRecord is the lifecycle state of one resident chunk.
type ChunkRecord struct {
	Key  world.PartitionKey
	Data *world.ChunkData
	LOD  int
	Mesh MeshEntry

	pinned []texcache.Key
}

// Options tune the lifecycle manager. Zero values select the defaults.
type Options struct {
	FrameBudget         time.Duration // wall-clock budget per Update, default 8ms
	MaxLoadsPerFrame    int           // default 3
	MaxUnloadsPerFrame  int           // default 4
	MaxLODSwapsPerFrame int           // default 2
	StagingTTL          time.Duration // default 30s
	SweepInterval       time.Duration // default 5s
	LoadQueueCap        int           // default 4096
	Env                 world.EnvState
}

func (o *Options) setDefaults() {
	if o.FrameBudget <= 0 {
		o.FrameBudget = 8 * time.Millisecond
	}
	if o.MaxLoadsPerFrame <= 0 {
		o.MaxLoadsPerFrame = 3
	}
	if o.MaxUnloadsPerFrame <= 0 {
		o.MaxUnloadsPerFrame = 4
	}
	if o.MaxLODSwapsPerFrame <= 0 {
		o.MaxLODSwapsPerFrame = 2
	}
	if o.StagingTTL <= 0 {
		o.StagingTTL = 30 * time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 5 * time.Second
	}
	if o.LoadQueueCap <= 0 {
		o.LoadQueueCap = 4096
	}
}

// Manager drives the chunk lifecycle: Unloaded → PendingLoad → Loaded →
// PendingUnload → Unloaded, with PendingLoad looping on itself while a
// texture dependency is still being produced. All methods run on the frame
// thread.
type Manager struct {
	opts       Options
	sel        *lod.Selector
	textures   TextureSource
	cache      *texcache.Cache
	meshes     MeshBuilder
	classifier lod.Classifier // optional

	sched     *Scheduler
	residents map[world.PartitionKey]*ChunkRecord
	staging   map[world.PartitionKey]*stagingEntry

	visScratch map[world.PartitionKey]struct{}
	sweepTimer float64
	now        func() time.Time
	buildFails uint64
}

// NewManager wires the lifecycle manager to its collaborators. classifier
// may be nil when no altitude override applies.
func NewManager(sel *lod.Selector, textures TextureSource, cache *texcache.Cache, meshes MeshBuilder, classifier lod.Classifier, opts Options) *Manager {
	opts.setDefaults()
	return &Manager{
		opts:       opts,
		sel:        sel,
		textures:   textures,
		cache:      cache,
		meshes:     meshes,
		classifier: classifier,
		sched:      NewScheduler(opts.LoadQueueCap),
		residents:  make(map[world.PartitionKey]*ChunkRecord),
		staging:    make(map[world.PartitionKey]*stagingEntry),
		visScratch: make(map[world.PartitionKey]struct{}),
		now:        time.Now,
	}
}

// Update runs one frame of streaming work: drain completed textures, diff
// visibility into the queues, then apply unloads before loads under the
// shared wall-clock budget. The budget is checked after each operation, so
// at least one operation proceeds per frame even under load.
func (m *Manager) Update(camera mgl64.Vec3, set PartitionSet, dt float64) {
	defer profiling.Track("streaming.Update")()

	start := m.now()
	m.textures.Drain()

	zone := lod.ZoneNone
	if m.classifier != nil {
		zone = m.classifier.Classify(camera)
	}

	// Visibility diff: queue loads for visible-but-absent keys, unloads for
	// resident-but-invisible ones.
	keys := set.Keys()
	clear(m.visScratch)
	for _, k := range keys {
		m.visScratch[k] = struct{}{}
		if _, ok := m.residents[k]; ok {
			continue
		}
		d := camera.Sub(set.Center(k))
		m.sched.QueueLoad(k, PriorityFor(d.Dot(d)))
	}
	for k := range m.residents {
		if _, ok := m.visScratch[k]; !ok {
			m.sched.QueueUnload(k)
		}
	}
	m.sched.SortByPriority()

	// Unloads first: memory and cache slots freed this frame are available
	// to the loads attempted in the same frame.
	over := false
	for i := 0; i < m.opts.MaxUnloadsPerFrame && !over; i++ {
		ks := m.sched.NextUnloads(1)
		if len(ks) == 0 {
			break
		}
		m.Unload(ks[0])
		over = m.now().Sub(start) > m.opts.FrameBudget
	}
	for i := 0; i < m.opts.MaxLoadsPerFrame && !over; i++ {
		ks := m.sched.NextLoads(1)
		if len(ks) == 0 {
			break
		}
		m.tryLoad(ks[0], camera, set, zone)
		over = m.now().Sub(start) > m.opts.FrameBudget
	}

	// Detect LOD transitions on resident chunks, bounded per frame.
	if !over {
		swaps := 0
		for _, rec := range m.residents {
			want := m.sel.Select(rec.Key, camera, zone)
			want = m.clampToCapability(rec.Data, want)
			if want == rec.LOD {
				continue
			}
			m.swapLOD(rec, want)
			swaps++
			if swaps >= m.opts.MaxLODSwapsPerFrame || m.now().Sub(start) > m.opts.FrameBudget {
				break
			}
		}
	}

	m.sweepTimer += dt
	if m.sweepTimer >= m.opts.SweepInterval.Seconds() {
		m.sweepTimer = 0
		m.sweepStaging(m.opts.StagingTTL)
	}
}

// tryLoad attempts to make a key resident. A missing texture dependency is
// not an error: the load is staged and implicitly retried while the key
// stays visible.
func (m *Manager) tryLoad(key world.PartitionKey, camera mgl64.Vec3, set PartitionSet, zone lod.Zone) {
	data, ok := set.Get(key)
	if !ok {
		// key vanished from the authoritative set between queue and drain
		delete(m.staging, key)
		return
	}

	ready := true
	for _, typ := range requiredTextures {
		if !m.textures.Has(key, typ) {
			m.textures.Request(key, typ)
			ready = false
		}
	}
	if !ready {
		m.stage(key, data, camera)
		return
	}

	level := m.sel.Select(key, camera, zone)
	level = m.clampToCapability(data, level)

	mesh := m.meshes.BuildMesh(data, level, m.opts.Env)
	if mesh == nil {
		m.buildFails++
		log.Printf("streaming: mesh build failed for %v at lod %d", key, level)
		return
	}

	rec := &ChunkRecord{Key: key, Data: data, LOD: level, Mesh: mesh}
	rec.pinned = m.pinTextures(key)
	m.residents[key] = rec
	m.sched.NoteLoaded(key)
	delete(m.staging, key)
}

// clampToCapability caps a selected level at the texture producer's LOD
// ceiling and the provider's per-chunk hint. The result stays in
// [0, lod.MaxLOD] by construction.
func (m *Manager) clampToCapability(data *world.ChunkData, level int) int {
	if ceil := m.textures.TextureLODs() - 1; level > ceil {
		level = ceil
	}
	if data != nil && data.LODHint >= 0 && level < data.LODHint {
		level = data.LODHint
	}
	return lod.Clamp(level)
}

// swapLOD rebuilds a resident chunk's mesh at a new level. The old mesh is
// kept when the rebuild fails.
func (m *Manager) swapLOD(rec *ChunkRecord, level int) {
	mesh := m.meshes.BuildMesh(rec.Data, level, m.opts.Env)
	if mesh == nil {
		m.buildFails++
		return
	}
	m.meshes.DisposeMesh(rec.Mesh)
	rec.Mesh = mesh
	rec.LOD = level
}

// pinTextures pins every cached texture variant belonging to a key so LRU
// pressure cannot evict what a resident chunk samples.
func (m *Manager) pinTextures(key world.PartitionKey) []texcache.Key {
	pinned := make([]texcache.Key, 0, len(requiredTextures)*m.textures.TextureLODs())
	for _, typ := range requiredTextures {
		for l := 0; l < m.textures.TextureLODs(); l++ {
			ck := texcache.Key{Owner: key, Type: typ, LOD: int8(l)}
			if m.cache.Has(ck) {
				m.cache.Pin(ck)
				pinned = append(pinned, ck)
			}
		}
	}
	return pinned
}

// Unload tears a chunk down: dispose the mesh, release texture pins, and
// free the chunk's cache entries. Idempotent; unloading an absent key is a
// no-op.
func (m *Manager) Unload(key world.PartitionKey) {
	rec, ok := m.residents[key]
	if !ok {
		return
	}
	m.meshes.DisposeMesh(rec.Mesh)
	rec.Mesh = nil
	for _, ck := range rec.pinned {
		m.cache.Unpin(ck)
	}
	rec.pinned = nil
	m.cache.RemoveOwner(key)
	delete(m.residents, key)
	m.sched.NoteUnloaded(key)
}

// IsResident reports whether a key currently holds a ChunkRecord.
func (m *Manager) IsResident(key world.PartitionKey) bool {
	_, ok := m.residents[key]
	return ok
}

// Resident returns the record for a key, or nil.
func (m *Manager) Resident(key world.PartitionKey) *ChunkRecord {
	return m.residents[key]
}

// ForEachResident visits every resident chunk. The renderer iterates this
// to draw; callers must not unload from inside the callback.
func (m *Manager) ForEachResident(fn func(rec *ChunkRecord)) {
	for _, rec := range m.residents {
		fn(rec)
	}
}

// Stats is a point-in-time snapshot of streaming state.
type Stats struct {
	Residents      int
	Staged         int
	PendingLoads   int
	PendingUnloads int
	DroppedLoads   uint64
	BuildFailures  uint64
}

// Stats returns current counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Residents:      len(m.residents),
		Staged:         len(m.staging),
		PendingLoads:   m.sched.PendingLoads(),
		PendingUnloads: m.sched.PendingUnloads(),
		DroppedLoads:   m.sched.Dropped(),
		BuildFailures:  m.buildFails,
	}
}

// CleanupAll disposes every resident chunk and clears queues, staging and
// the texture cache. Used on scene teardown.
func (m *Manager) CleanupAll() {
	for key := range m.residents {
		m.Unload(key)
	}
	clear(m.staging)
	m.sched.Clear()
	m.cache.Clear()
}
