package texcache

import (
	"testing"
	"time"

	"terrastream/internal/world"
)

type fakeResource struct {
	disposed int
}

func (r *fakeResource) Dispose() { r.disposed++ }

func heightKey(x int32, lod int8) Key {
	return Key{Owner: world.FlatKey(x, 0), Type: TextureHeight, LOD: lod}
}

// ticker replaces the cache clock so every operation gets a distinct,
// strictly increasing timestamp.
func ticker(c *Cache) {
	t := time.Unix(0, 0)
	c.now = func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func TestEvictsLeastRecentlyAccessed(t *testing.T) {
	c := NewCache(1000)
	ticker(c)

	r := [3]*fakeResource{{}, {}, {}}
	c.Set(heightKey(0, 0), r[0], 400)
	c.Set(heightKey(1, 0), r[1], 400)
	// budget exceeded at 1200; the oldest entry goes, leaving 800
	c.Set(heightKey(2, 0), r[2], 400)

	if c.SizeBytes() != 800 {
		t.Fatalf("size %d, want 800", c.SizeBytes())
	}
	if r[0].disposed != 1 {
		t.Error("oldest entry not disposed")
	}
	if c.Has(heightKey(0, 0)) {
		t.Error("evicted entry still present")
	}
	if !c.Has(heightKey(1, 0)) || !c.Has(heightKey(2, 0)) {
		t.Error("recent entries evicted")
	}
	if c.Evicted() != 1 {
		t.Errorf("eviction counter %d, want 1", c.Evicted())
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c := NewCache(1000)
	ticker(c)

	r := [3]*fakeResource{{}, {}, {}}
	c.Set(heightKey(0, 0), r[0], 400)
	c.Set(heightKey(1, 0), r[1], 400)
	// touch the older entry so the other one becomes the LRU victim
	if _, ok := c.Get(heightKey(0, 0)); !ok {
		t.Fatal("Get missed")
	}
	c.Set(heightKey(2, 0), r[2], 400)

	if !c.Has(heightKey(0, 0)) {
		t.Error("recently read entry evicted")
	}
	if c.Has(heightKey(1, 0)) {
		t.Error("least recently used entry survived")
	}
}

func TestReplaceDisposesOldResource(t *testing.T) {
	c := NewCache(1000)
	old, repl := &fakeResource{}, &fakeResource{}
	k := heightKey(0, 0)

	c.Set(k, old, 300)
	c.Set(k, repl, 500)

	if old.disposed != 1 {
		t.Errorf("replaced resource disposed %d times, want 1", old.disposed)
	}
	if repl.disposed != 0 {
		t.Error("new resource disposed on insert")
	}
	if c.SizeBytes() != 500 {
		t.Errorf("size %d, want 500", c.SizeBytes())
	}
	if c.Len() != 1 {
		t.Errorf("len %d, want 1", c.Len())
	}
}

func TestPinnedEntriesSurviveEviction(t *testing.T) {
	c := NewCache(1000)
	ticker(c)

	pinned := &fakeResource{}
	c.Set(heightKey(0, 0), pinned, 400)
	c.Pin(heightKey(0, 0))

	c.Set(heightKey(1, 0), &fakeResource{}, 400)
	c.Set(heightKey(2, 0), &fakeResource{}, 400)

	if !c.Has(heightKey(0, 0)) {
		t.Fatal("pinned entry evicted")
	}
	if pinned.disposed != 0 {
		t.Fatal("pinned resource disposed")
	}
	// eviction skipped the pin and took the next-oldest instead
	if c.Has(heightKey(1, 0)) {
		t.Error("unpinned LRU entry survived")
	}

	c.Unpin(heightKey(0, 0))
	c.Set(heightKey(3, 0), &fakeResource{}, 400)
	if c.Has(heightKey(0, 0)) {
		t.Error("unpinned entry no longer evictable")
	}
}

func TestPinsNest(t *testing.T) {
	c := NewCache(1000)
	ticker(c)
	k := heightKey(0, 0)
	c.Set(k, &fakeResource{}, 400)
	c.Pin(k)
	c.Pin(k)
	c.Unpin(k)

	c.Set(heightKey(1, 0), &fakeResource{}, 400)
	c.Set(heightKey(2, 0), &fakeResource{}, 400)
	if !c.Has(k) {
		t.Error("entry with one remaining pin was evicted")
	}
}

func TestRemoveOwnerIgnoresPins(t *testing.T) {
	c := NewCache(10000)
	owner := world.FlatKey(7, 7)
	other := world.FlatKey(1, 1)
	res := [3]*fakeResource{{}, {}, {}}

	c.Set(Key{Owner: owner, Type: TextureHeight, LOD: 0}, res[0], 100)
	c.Set(Key{Owner: owner, Type: TextureSurface, LOD: 2}, res[1], 100)
	c.Set(Key{Owner: other, Type: TextureHeight, LOD: 0}, res[2], 100)
	c.Pin(Key{Owner: owner, Type: TextureHeight, LOD: 0})

	if removed := c.RemoveOwner(owner); removed != 2 {
		t.Fatalf("removed %d, want 2", removed)
	}
	if res[0].disposed != 1 || res[1].disposed != 1 {
		t.Error("owner's resources not disposed")
	}
	if res[2].disposed != 0 || !c.Has(Key{Owner: other, Type: TextureHeight, LOD: 0}) {
		t.Error("unrelated owner's entry touched")
	}
	if c.SizeBytes() != 100 {
		t.Errorf("size %d, want 100", c.SizeBytes())
	}
}

func TestHasType(t *testing.T) {
	c := NewCache(10000)
	owner := world.FlatKey(0, 0)
	c.Set(Key{Owner: owner, Type: TextureSurface, LOD: 3}, &fakeResource{}, 10)

	if !c.HasType(owner, TextureSurface) {
		t.Error("HasType missed an entry at a nonzero LOD")
	}
	if c.HasType(owner, TextureHeight) {
		t.Error("HasType matched the wrong type")
	}
	if c.HasType(world.FlatKey(5, 5), TextureSurface) {
		t.Error("HasType matched the wrong owner")
	}
}

func TestClearDisposesEverything(t *testing.T) {
	c := NewCache(10000)
	res := [2]*fakeResource{{}, {}}
	c.Set(heightKey(0, 0), res[0], 100)
	c.Set(heightKey(1, 0), res[1], 100)

	c.Clear()
	if c.Len() != 0 || c.SizeBytes() != 0 {
		t.Fatalf("len=%d size=%d after Clear", c.Len(), c.SizeBytes())
	}
	for i, r := range res {
		if r.disposed != 1 {
			t.Errorf("resource %d disposed %d times", i, r.disposed)
		}
	}
}

func TestPinnedBytesRetainedUnderPressure(t *testing.T) {
	c := NewCache(300)
	ticker(c)
	pinned, extra := &fakeResource{}, &fakeResource{}

	c.Set(heightKey(0, 0), pinned, 280)
	c.Pin(heightKey(0, 0))
	// the insert that breaks the budget is the only evictable entry, so it
	// is sacrificed and the pinned bytes stay resident
	c.Set(heightKey(1, 0), extra, 100)

	if !c.Has(heightKey(0, 0)) || pinned.disposed != 0 {
		t.Fatal("pinned entry evicted under pressure")
	}
	if c.Has(heightKey(1, 0)) {
		t.Error("unpinned newcomer survived with no other victims available")
	}
	if c.SizeBytes() != 280 {
		t.Errorf("size %d, want 280", c.SizeBytes())
	}
}
