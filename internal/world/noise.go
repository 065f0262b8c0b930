package world

import (
	"math"
)

// Deterministic 2D value noise used by the terrain providers for height
// fields. Integer lattice hashing keeps results stable across runs for the
// same seed.

func fade(t float64) float64 {
	// 6t^5 - 15t^4 + 10t^3
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func hash2(x, y int64, seed int64) uint64 {
	// SplitMix64-style mix
	v := uint64(x) + (uint64(y) << 1) + uint64(seed)*0x9E3779B97F4A7C15
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}

func latticeValue(x, y int64, seed int64) float64 {
	return float64(hash2(x, y, seed)&0xFFFFFFFF) / float64(0xFFFFFFFF)
}

func valueNoise2D(x, y float64, seed int64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)

	fx := fade(x - x0)
	fy := fade(y - y0)

	ix0 := int64(x0)
	iy0 := int64(y0)

	v00 := latticeValue(ix0, iy0, seed)
	v10 := latticeValue(ix0+1, iy0, seed)
	v01 := latticeValue(ix0, iy0+1, seed)
	v11 := latticeValue(ix0+1, iy0+1, seed)

	return lerp(lerp(v00, v10, fx), lerp(v01, v11, fx), fy) // [0,1]
}

// octaveNoise2D sums octaves of value noise, normalized to [0,1].
func octaveNoise2D(x, y float64, seed int64, octaves int, persistence, lacunarity float64) float64 {
	amplitude := 1.0
	frequency := 1.0
	sum := 0.0
	norm := 0.0
	for i := 0; i < octaves; i++ {
		sum += valueNoise2D(x*frequency, y*frequency, seed+int64(i*131)) * amplitude
		norm += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}
