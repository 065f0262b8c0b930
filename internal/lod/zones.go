package lod

import (
	"github.com/go-gl/mathgl/mgl64"

	"terrastream/internal/world"
)

// Zone is a coarse classification of camera altitude. Zones near the
// surface force finer detail, far zones force coarser detail, regardless of
// raw horizontal distance.
type Zone uint8

const (
	ZoneNone Zone = iota
	ZoneSurface
	ZoneLow
	ZoneMedium
	ZoneHigh
	ZoneOrbital
)

var zoneNames = [...]string{"none", "surface", "low", "medium", "high", "orbital"}

func (z Zone) String() string {
	if int(z) < len(zoneNames) {
		return zoneNames[z]
	}
	return "unknown"
}

// zoneRanges maps each zone to its allowed [min,max] LOD window.
var zoneRanges = [...][2]int{
	ZoneNone:    {0, MaxLOD},
	ZoneSurface: {0, 2},
	ZoneLow:     {0, 3},
	ZoneMedium:  {1, 4},
	ZoneHigh:    {2, 5},
	ZoneOrbital: {4, MaxLOD},
}

// Range returns the zone's allowed LOD window.
func (z Zone) Range() (min, max int) {
	if int(z) >= len(zoneRanges) {
		return 0, MaxLOD
	}
	r := zoneRanges[z]
	return r[0], r[1]
}

// Classifier maps a camera position to an altitude zone.
type Classifier interface {
	Classify(camera mgl64.Vec3) Zone
}

// AltitudeClassifier classifies by height above the planet surface. The
// thresholds are fractions of the planet radius.
type AltitudeClassifier struct {
	Planet world.PlanetGeometry
}

// Classify buckets the camera altitude into a zone. Altitudes at or below
// 0.2% of the radius count as surface; beyond 50% is orbital.
func (a AltitudeClassifier) Classify(camera mgl64.Vec3) Zone {
	if a.Planet.Radius <= 0 {
		return ZoneNone
	}
	frac := a.Planet.Altitude(camera) / a.Planet.Radius
	switch {
	case frac <= 0.002:
		return ZoneSurface
	case frac <= 0.02:
		return ZoneLow
	case frac <= 0.1:
		return ZoneMedium
	case frac <= 0.5:
		return ZoneHigh
	default:
		return ZoneOrbital
	}
}
