package texgen

import (
	"testing"
	"time"

	"terrastream/internal/texcache"
	"terrastream/internal/world"
)

func newTestProducer(t *testing.T, texSize, texLODs int) (*Producer, *texcache.Cache) {
	t.Helper()
	cache := texcache.NewCache(1 << 30)
	p := NewProducer(cache, CPUUploader{}, texSize, texLODs, 1337)
	t.Cleanup(p.Close)
	return p, cache
}

// drainUntil polls Drain until n requests have completed or the deadline
// passes.
func drainUntil(t *testing.T, p *Producer, n int) {
	t.Helper()
	done := 0
	deadline := time.Now().Add(5 * time.Second)
	for done < n {
		if time.Now().After(deadline) {
			t.Fatalf("drained %d of %d requests before timeout", done, n)
		}
		done += p.Drain()
		time.Sleep(time.Millisecond)
	}
}

func TestRequestProducesAllLODVariants(t *testing.T) {
	p, cache := newTestProducer(t, 32, 3)
	owner := world.FlatKey(2, -1)

	if !p.Request(owner, texcache.TextureHeight) {
		t.Fatal("Request rejected")
	}
	drainUntil(t, p, 1)

	if !p.Has(owner, texcache.TextureHeight) {
		t.Fatal("texture not in cache after drain")
	}
	wantSizes := []int{32, 16, 8}
	for lod, want := range wantSizes {
		r, ok := p.AtLOD(owner, texcache.TextureHeight, lod)
		if !ok {
			t.Fatalf("lod %d missing", lod)
		}
		img := r.(*PixelResource).Img
		if img.Bounds().Dx() != want || img.Bounds().Dy() != want {
			t.Errorf("lod %d is %dx%d, want %dx%d",
				lod, img.Bounds().Dx(), img.Bounds().Dy(), want, want)
		}
	}
	if cache.Len() != 3 {
		t.Errorf("cache holds %d entries, want 3", cache.Len())
	}
}

func TestRequestDedupesInFlightWork(t *testing.T) {
	p, _ := newTestProducer(t, 16, 1)
	owner := world.FlatKey(0, 0)

	if !p.Request(owner, texcache.TextureSurface) {
		t.Fatal("first request rejected")
	}
	// pending until drained, so the duplicate is dropped even if the worker
	// already finished
	if p.Request(owner, texcache.TextureSurface) {
		t.Error("duplicate request accepted while in flight")
	}
	if p.Pending() != 1 {
		t.Errorf("pending %d, want 1", p.Pending())
	}

	drainUntil(t, p, 1)
	if p.Pending() != 0 {
		t.Errorf("pending %d after drain, want 0", p.Pending())
	}
	// completed work may be requested again (regeneration after eviction)
	if !p.Request(owner, texcache.TextureSurface) {
		t.Error("re-request after completion rejected")
	}
}

func TestAtLODFallsBackCoarserThenFiner(t *testing.T) {
	cache := texcache.NewCache(1 << 30)
	p := NewProducer(cache, CPUUploader{}, 16, 4, 0)
	defer p.Close()
	owner := world.FlatKey(1, 1)

	// seed the cache directly with only LODs 1 and 3 present
	cache.Set(texcache.Key{Owner: owner, Type: texcache.TextureHeight, LOD: 1},
		&PixelResource{}, 10)
	cache.Set(texcache.Key{Owner: owner, Type: texcache.TextureHeight, LOD: 3},
		&PixelResource{}, 10)

	cases := []struct {
		ask  int
		want int8
	}{
		{0, 1},  // exact missing, coarser hit
		{1, 1},  // exact hit
		{2, 3},  // coarser preferred over finer
		{3, 3},  // exact hit
		{9, 3},  // clamped to the top LOD
		{-2, 1}, // clamped to 0, then coarser
	}
	for _, c := range cases {
		r, ok := p.AtLOD(owner, texcache.TextureHeight, c.ask)
		if !ok {
			t.Fatalf("ask %d: no texture", c.ask)
		}
		got, found := findLOD(cache, owner, r)
		if !found || got != c.want {
			t.Errorf("ask %d: got lod %d, want %d", c.ask, got, c.want)
		}
	}

	// only a finer variant present: the finer fallback kicks in
	fine := world.FlatKey(2, 2)
	cache.Set(texcache.Key{Owner: fine, Type: texcache.TextureHeight, LOD: 0},
		&PixelResource{}, 10)
	r, ok := p.AtLOD(fine, texcache.TextureHeight, 3)
	if !ok {
		t.Fatal("finer fallback missed")
	}
	if got, found := findLOD(cache, fine, r); !found || got != 0 {
		t.Errorf("finer fallback returned lod %d, want 0", got)
	}

	if _, ok := p.AtLOD(world.FlatKey(9, 9), texcache.TextureHeight, 0); ok {
		t.Error("AtLOD hit for an owner with no textures")
	}
}

func findLOD(c *texcache.Cache, owner world.PartitionKey, r texcache.Resource) (int8, bool) {
	for l := int8(0); l < 8; l++ {
		k := texcache.Key{Owner: owner, Type: texcache.TextureHeight, LOD: l}
		if got, ok := c.Get(k); ok && got == r {
			return l, true
		}
	}
	return 0, false
}

func TestDistinctTypesAndOwnersDiffer(t *testing.T) {
	p, _ := newTestProducer(t, 16, 1)
	a := world.FlatKey(0, 0)
	b := world.FlatKey(5, 3)

	p.Request(a, texcache.TextureHeight)
	p.Request(a, texcache.TextureSurface)
	p.Request(b, texcache.TextureHeight)
	drainUntil(t, p, 3)

	imgOf := func(owner world.PartitionKey, typ texcache.TextureType) []uint8 {
		r, ok := p.AtLOD(owner, typ, 0)
		if !ok {
			t.Fatalf("missing texture %v/%v", owner, typ)
		}
		return r.(*PixelResource).Img.Pix
	}

	if equalPix(imgOf(a, texcache.TextureHeight), imgOf(a, texcache.TextureSurface)) {
		t.Error("height and surface textures identical")
	}
	if equalPix(imgOf(a, texcache.TextureHeight), imgOf(b, texcache.TextureHeight)) {
		t.Error("textures of distinct chunks identical")
	}
}

func equalPix(a, b []uint8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGenerationIsDeterministic(t *testing.T) {
	p1, _ := newTestProducer(t, 16, 2)
	p2, _ := newTestProducer(t, 16, 2)
	owner := world.SphereKey(3, 1, 2)

	p1.Request(owner, texcache.TextureNormal)
	p2.Request(owner, texcache.TextureNormal)
	drainUntil(t, p1, 1)
	drainUntil(t, p2, 1)

	r1, _ := p1.AtLOD(owner, texcache.TextureNormal, 0)
	r2, _ := p2.AtLOD(owner, texcache.TextureNormal, 0)
	if !equalPix(r1.(*PixelResource).Img.Pix, r2.(*PixelResource).Img.Pix) {
		t.Error("same seed produced different textures")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p, _ := newTestProducer(t, 8, 1)
	p.Close()
	p.Close()
}
