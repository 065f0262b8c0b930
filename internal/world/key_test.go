package world

import (
	"testing"
)

func TestParseKeyFlat(t *testing.T) {
	k, err := ParseKey("-3,17")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}
	if k.Regime != RegimeFlat || k.X != -3 || k.Y != 17 {
		t.Errorf("got %+v", k)
	}
	if k.String() != "-3,17" {
		t.Errorf("roundtrip got %q", k.String())
	}
}

func TestParseKeySpherical(t *testing.T) {
	k, err := ParseKey("4:12,-9")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}
	if k.Regime != RegimeSpherical || k.Face != 4 || k.X != 12 || k.Y != -9 {
		t.Errorf("got %+v", k)
	}
	if k.String() != "4:12,-9" {
		t.Errorf("roundtrip got %q", k.String())
	}
}

func TestParseKeyRejectsBadInput(t *testing.T) {
	for _, s := range []string{"", "12", "a,b", "9:1,2", "1:2", "1,2,3x"} {
		if _, err := ParseKey(s); err == nil {
			t.Errorf("ParseKey(%q) did not fail", s)
		}
	}
}

func TestKeyNamespacesAreDisjoint(t *testing.T) {
	flat := FlatKey(1, 2)
	sph := SphereKey(0, 1, 2)
	if flat == sph {
		t.Fatal("flat and spherical keys with same coordinates compare equal")
	}

	m := map[PartitionKey]int{flat: 1, sph: 2}
	if len(m) != 2 {
		t.Fatalf("expected 2 distinct map entries, got %d", len(m))
	}
}
