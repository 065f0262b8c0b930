package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Frustum culling margin in world units (inflates AABBs before testing).
const frustumMargin = 1.0

// Plane is one clip plane in ax+by+cz+d form.
type Plane struct {
	A, B, C, D float64
}

// ExtractFrustumPlanes builds six planes from a combined projection*view
// matrix, in order: left, right, bottom, top, near, far.
func ExtractFrustumPlanes(clip mgl64.Mat4) [6]Plane {
	// Column-major layout in mathgl
	m00, m01, m02, m03 := clip[0], clip[4], clip[8], clip[12]
	m10, m11, m12, m13 := clip[1], clip[5], clip[9], clip[13]
	m20, m21, m22, m23 := clip[2], clip[6], clip[10], clip[14]
	m30, m31, m32, m33 := clip[3], clip[7], clip[11], clip[15]

	pl := [6]Plane{}
	pl[0] = normalizePlane(Plane{m30 + m00, m31 + m01, m32 + m02, m33 + m03})
	pl[1] = normalizePlane(Plane{m30 - m00, m31 - m01, m32 - m02, m33 - m03})
	pl[2] = normalizePlane(Plane{m30 + m10, m31 + m11, m32 + m12, m33 + m13})
	pl[3] = normalizePlane(Plane{m30 - m10, m31 - m11, m32 - m12, m33 - m13})
	pl[4] = normalizePlane(Plane{m30 + m20, m31 + m21, m32 + m22, m33 + m23})
	pl[5] = normalizePlane(Plane{m30 - m20, m31 - m21, m32 - m22, m33 - m23})
	return pl
}

func normalizePlane(p Plane) Plane {
	l := math.Sqrt(p.A*p.A + p.B*p.B + p.C*p.C)
	if l == 0 {
		return p
	}
	return Plane{p.A / l, p.B / l, p.C / l, p.D / l}
}

// AABBInFrustum tests an axis-aligned box against precomputed planes using
// the positive-vertex test.
func AABBInFrustum(min, max mgl64.Vec3, planes [6]Plane) bool {
	min = mgl64.Vec3{min.X() - frustumMargin, min.Y() - frustumMargin, min.Z() - frustumMargin}
	max = mgl64.Vec3{max.X() + frustumMargin, max.Y() + frustumMargin, max.Z() + frustumMargin}

	for i := 0; i < 6; i++ {
		p := planes[i]
		px := max.X()
		if p.A < 0 {
			px = min.X()
		}
		py := max.Y()
		if p.B < 0 {
			py = min.Y()
		}
		pz := max.Z()
		if p.C < 0 {
			pz = min.Z()
		}
		if p.A*px+p.B*py+p.C*pz+p.D < 0 {
			return false
		}
	}
	return true
}
