package world

import (
	"fmt"
	"strconv"
	"strings"
)

// Regime selects the coordinate system a partition key lives in.
type Regime uint8

const (
	// RegimeFlat addresses chunks on an unbounded planar grid.
	RegimeFlat Regime = iota
	// RegimeSpherical addresses chunks on one of six cube-sphere faces.
	RegimeSpherical
)

// NumFaces is the number of cube-sphere faces.
const NumFaces = 6

// PartitionKey identifies one streamable chunk of the world. Flat and
// spherical keys occupy disjoint namespaces: two keys compare equal only if
// regime, face and grid coordinates all match. The struct is comparable and
// is used directly as a map key everywhere; the textual form exists only for
// external interop at the provider boundary.
type PartitionKey struct {
	Regime Regime
	Face   uint8 // 0..5 for spherical keys, always 0 for flat keys
	X, Y   int32
}

// FlatKey builds a key on the planar grid.
func FlatKey(x, y int32) PartitionKey {
	return PartitionKey{Regime: RegimeFlat, X: x, Y: y}
}

// SphereKey builds a key on a cube-sphere face. Face must be in [0,5].
func SphereKey(face uint8, x, y int32) PartitionKey {
	return PartitionKey{Regime: RegimeSpherical, Face: face, X: x, Y: y}
}

// String returns the external textual encoding: "x,y" for flat keys and
// "face:x,y" for spherical ones.
func (k PartitionKey) String() string {
	if k.Regime == RegimeSpherical {
		return fmt.Sprintf("%d:%d,%d", k.Face, k.X, k.Y)
	}
	return fmt.Sprintf("%d,%d", k.X, k.Y)
}

// ParseKey parses the textual encoding produced by String. It accepts
// "x,y" (flat) and "face:x,y" (spherical).
func ParseKey(s string) (PartitionKey, error) {
	rest := s
	spherical := false
	var face uint8
	if i := strings.IndexByte(s, ':'); i >= 0 {
		f, err := strconv.ParseUint(s[:i], 10, 8)
		if err != nil || f >= NumFaces {
			return PartitionKey{}, fmt.Errorf("world: bad face in key %q", s)
		}
		face = uint8(f)
		rest = s[i+1:]
		spherical = true
	}

	cx, cy, ok := strings.Cut(rest, ",")
	if !ok {
		return PartitionKey{}, fmt.Errorf("world: bad key %q", s)
	}
	x, err := strconv.ParseInt(cx, 10, 32)
	if err != nil {
		return PartitionKey{}, fmt.Errorf("world: bad x in key %q: %w", s, err)
	}
	y, err := strconv.ParseInt(cy, 10, 32)
	if err != nil {
		return PartitionKey{}, fmt.Errorf("world: bad y in key %q: %w", s, err)
	}

	if spherical {
		return SphereKey(face, int32(x), int32(y)), nil
	}
	return FlatKey(int32(x), int32(y)), nil
}
