// Package texgen produces procedural per-chunk textures on a background
// worker pool. The frame thread requests textures, polls readiness through
// the cache, and drains completed results at frame start; it never blocks
// on a worker.
package texgen

import (
	"image"
	"log"
	"runtime"
	"sync"

	"terrastream/internal/texcache"
	"terrastream/internal/world"
)

// Uploader turns CPU pixels into a cacheable resource. GPU-backed uploaders
// must only be driven from the thread that owns the graphics context, which
// holds because uploads happen inside Drain on the frame thread.
type Uploader interface {
	Upload(img *image.RGBA) (texcache.Resource, int64, error)
}

// PixelResource is a CPU-resident texture for headless runs and tests.
type PixelResource struct {
	Img *image.RGBA
}

// Dispose drops the pixel buffer.
func (r *PixelResource) Dispose() { r.Img = nil }

// CPUUploader wraps images in PixelResources without touching a GPU.
type CPUUploader struct{}

func (CPUUploader) Upload(img *image.RGBA) (texcache.Resource, int64, error) {
	return &PixelResource{Img: img}, int64(len(img.Pix)), nil
}

type request struct {
	owner world.PartitionKey
	typ   texcache.TextureType
}

type lodImage struct {
	lod int
	img *image.RGBA
}

type result struct {
	req    request
	images []lodImage
}

// Producer generates textures asynchronously and installs them into the
// cache when drained.
type Producer struct {
	cache *texcache.Cache
	up    Uploader

	jobs    chan request
	results chan result

	pending    map[request]struct{}
	pendingMu  sync.Mutex
	maxPending int

	texSize int
	texLODs int
	seed    int64

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewProducer starts NumCPU generation workers. texSize is the base (LOD 0)
// texture edge in pixels; texLODs is how many LOD variants are produced and
// therefore the detail ceiling producers impose on chunk loads.
func NewProducer(cache *texcache.Cache, up Uploader, texSize, texLODs int, seed int64) *Producer {
	if texLODs < 1 {
		texLODs = 1
	}
	p := &Producer{
		cache:      cache,
		up:         up,
		jobs:       make(chan request, 1024),
		results:    make(chan result, 1024),
		pending:    make(map[request]struct{}),
		maxPending: 4096,
		texSize:    texSize,
		texLODs:    texLODs,
		seed:       seed,
	}

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Close stops the background workers. Pending results are discarded.
func (p *Producer) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
		p.wg.Wait()
	})
}

func (p *Producer) worker() {
	defer p.wg.Done()
	for req := range p.jobs {
		res := result{req: req, images: p.generate(req)}
		select {
		case p.results <- res:
		default:
			// Result queue full: drop and clear pending so the request
			// can be retried by a later frame.
			p.pendingMu.Lock()
			delete(p.pending, req)
			p.pendingMu.Unlock()
		}
	}
}

// Request queues asynchronous production of a texture. Duplicate requests
// for work already in flight are dropped, as are requests beyond the
// pending cap. Returns true if the request was enqueued.
func (p *Producer) Request(owner world.PartitionKey, typ texcache.TextureType) bool {
	req := request{owner: owner, typ: typ}

	p.pendingMu.Lock()
	if _, ok := p.pending[req]; ok {
		p.pendingMu.Unlock()
		return false
	}
	if len(p.pending) >= p.maxPending {
		p.pendingMu.Unlock()
		return false
	}
	p.pending[req] = struct{}{}
	p.pendingMu.Unlock()

	select {
	case p.jobs <- req:
		return true
	default:
		// queue full: rollback
		p.pendingMu.Lock()
		delete(p.pending, req)
		p.pendingMu.Unlock()
		return false
	}
}

// Drain uploads completed textures into the cache without blocking and
// returns how many requests completed. Call once per frame before the
// scheduling pass.
func (p *Producer) Drain() int {
	count := 0
	for {
		select {
		case res := <-p.results:
			for _, li := range res.images {
				r, size, err := p.up.Upload(li.img)
				if err != nil {
					log.Printf("texgen: upload failed for %v/%s lod %d: %v",
						res.req.owner, res.req.typ, li.lod, err)
					continue
				}
				p.cache.Set(texcache.Key{
					Owner: res.req.owner,
					Type:  res.req.typ,
					LOD:   int8(li.lod),
				}, r, size)
			}
			p.pendingMu.Lock()
			delete(p.pending, res.req)
			p.pendingMu.Unlock()
			count++
		default:
			return count
		}
	}
}

// Has reports whether any LOD of a texture is resident in the cache.
func (p *Producer) Has(owner world.PartitionKey, typ texcache.TextureType) bool {
	return p.cache.HasType(owner, typ)
}

// AtLOD fetches a texture at the requested LOD, falling back to the nearest
// coarser variant and then the nearest finer one when the exact level is
// absent.
func (p *Producer) AtLOD(owner world.PartitionKey, typ texcache.TextureType, lodLevel int) (texcache.Resource, bool) {
	if lodLevel < 0 {
		lodLevel = 0
	}
	if lodLevel >= p.texLODs {
		lodLevel = p.texLODs - 1
	}
	for l := lodLevel; l < p.texLODs; l++ {
		if r, ok := p.cache.Get(texcache.Key{Owner: owner, Type: typ, LOD: int8(l)}); ok {
			return r, true
		}
	}
	for l := lodLevel - 1; l >= 0; l-- {
		if r, ok := p.cache.Get(texcache.Key{Owner: owner, Type: typ, LOD: int8(l)}); ok {
			return r, true
		}
	}
	return nil, false
}

// TextureLODs returns how many LOD variants the producer generates.
func (p *Producer) TextureLODs() int { return p.texLODs }

// Pending returns the number of requests currently in flight.
func (p *Producer) Pending() int {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return len(p.pending)
}
