package world

import (
	"github.com/go-gl/mathgl/mgl64"
)

// PlanetGeometry describes the cube-sphere parameterization shared by the
// spherical provider and the LOD selector.
type PlanetGeometry struct {
	Radius        float64
	Origin        mgl64.Vec3
	ChunksPerFace int
}

// ChunkWorldSize returns the approximate world-space edge length of one
// spherical chunk.
func (p PlanetGeometry) ChunkWorldSize() float64 {
	if p.ChunksPerFace <= 0 {
		return 0
	}
	return 2 * p.Radius / float64(p.ChunksPerFace)
}

// FlatCenter returns the world-space horizontal center of a flat chunk.
// The vertical component is zero: flat-regime distance tests are planar.
func FlatCenter(k PartitionKey, chunkSize float64) mgl64.Vec3 {
	return mgl64.Vec3{
		(float64(k.X) + 0.5) * chunkSize,
		0,
		(float64(k.Y) + 0.5) * chunkSize,
	}
}

// cubeFacePoint maps a face index and face-local UV in [-1,1]² onto the
// surface of the unit cube.
func cubeFacePoint(face uint8, u, v float64) mgl64.Vec3 {
	switch face {
	case 0: // +X
		return mgl64.Vec3{1, v, -u}
	case 1: // -X
		return mgl64.Vec3{-1, v, u}
	case 2: // +Y
		return mgl64.Vec3{u, 1, -v}
	case 3: // -Y
		return mgl64.Vec3{u, -1, v}
	case 4: // +Z
		return mgl64.Vec3{u, v, 1}
	default: // -Z
		return mgl64.Vec3{-u, v, -1}
	}
}

// SphereCenter projects the center of a spherical chunk onto the planet
// surface: face/UV center onto the unit cube, normalized to a sphere
// direction, scaled by the planet radius and offset by the planet origin.
func (p PlanetGeometry) SphereCenter(k PartitionKey) mgl64.Vec3 {
	n := float64(p.ChunksPerFace)
	u := (float64(k.X)+0.5)/n*2 - 1
	v := (float64(k.Y)+0.5)/n*2 - 1
	dir := cubeFacePoint(k.Face, u, v).Normalize()
	return p.Origin.Add(dir.Mul(p.Radius))
}

// Altitude returns the camera height above the planet surface. Negative
// values mean the camera is below the nominal surface sphere.
func (p PlanetGeometry) Altitude(camera mgl64.Vec3) float64 {
	return camera.Sub(p.Origin).Len() - p.Radius
}
