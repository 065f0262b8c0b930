package world

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestSphereCenterOnSurface(t *testing.T) {
	geom := PlanetGeometry{Radius: 1000, ChunksPerFace: 8}
	for face := uint8(0); face < NumFaces; face++ {
		c := geom.SphereCenter(SphereKey(face, 3, 5))
		if d := math.Abs(c.Len() - geom.Radius); d > 1e-9 {
			t.Errorf("face %d center off surface by %g", face, d)
		}
	}
}

func TestSphereCenterFaceCenter(t *testing.T) {
	// the middle chunk of an odd-sized +X face projects onto the +X axis
	geom := PlanetGeometry{Radius: 100, ChunksPerFace: 1}
	c := geom.SphereCenter(SphereKey(0, 0, 0))
	want := mgl64.Vec3{100, 0, 0}
	if c.Sub(want).Len() > 1e-9 {
		t.Errorf("got %v, want %v", c, want)
	}
}

func TestGridProviderVisibleSet(t *testing.T) {
	g := NewGridProvider(64, 200, 16, 42)
	g.Refresh(mgl64.Vec3{0, 0, 0}, nil)

	keys := g.Keys()
	if len(keys) == 0 {
		t.Fatal("no visible keys at origin")
	}
	for _, k := range keys {
		c := FlatCenter(k, 64)
		dx, dz := c.X(), c.Z()
		if math.Sqrt(dx*dx+dz*dz) > 200 {
			t.Errorf("key %v outside view distance", k)
		}
	}
}

func TestGridProviderDeterministicData(t *testing.T) {
	g1 := NewGridProvider(64, 200, 16, 7)
	g2 := NewGridProvider(64, 200, 16, 7)

	k := FlatKey(3, -2)
	d1, ok1 := g1.Get(k)
	d2, ok2 := g2.Get(k)
	if !ok1 || !ok2 {
		t.Fatal("Get failed")
	}
	if len(d1.Heights) != len(d2.Heights) {
		t.Fatalf("height lattice size mismatch")
	}
	for i := range d1.Heights {
		if d1.Heights[i] != d2.Heights[i] {
			t.Fatalf("heights differ at %d: %v != %v", i, d1.Heights[i], d2.Heights[i])
		}
	}
}

func TestGridProviderRejectsForeignKey(t *testing.T) {
	g := NewGridProvider(64, 200, 16, 7)
	if _, ok := g.Get(SphereKey(1, 0, 0)); ok {
		t.Error("flat provider served a spherical key")
	}
}

func TestSphereProviderVisibleSet(t *testing.T) {
	geom := PlanetGeometry{Radius: 1000, ChunksPerFace: 4}
	s := NewSphereProvider(geom, 1500, 16, 9)

	// camera above +X face center sees the near hemisphere, not the far side
	s.Refresh(mgl64.Vec3{1200, 0, 0})
	keys := s.Keys()
	if len(keys) == 0 {
		t.Fatal("no visible keys")
	}
	total := NumFaces * 4 * 4
	if len(keys) >= total {
		t.Errorf("whole sphere visible (%d keys), expected a partial set", len(keys))
	}
	for _, k := range keys {
		if s.Center(k).Sub(mgl64.Vec3{1200, 0, 0}).Len() > 1500 {
			t.Errorf("key %v outside view distance", k)
		}
	}
}

func TestChunkDataHeightAtClamps(t *testing.T) {
	d := &ChunkData{HeightRes: 2, Heights: []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}}
	if d.HeightAt(-5, 0) != 1 {
		t.Errorf("left clamp got %v", d.HeightAt(-5, 0))
	}
	if d.HeightAt(10, 10) != 9 {
		t.Errorf("max clamp got %v", d.HeightAt(10, 10))
	}
	if d.HeightAt(1, 1) != 5 {
		t.Errorf("center got %v", d.HeightAt(1, 1))
	}
}
