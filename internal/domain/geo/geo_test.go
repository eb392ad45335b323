package geo

import (
	"math"
	"testing"
)

func almost(a, b, eps float64) bool {
	if a > b {
		return a-b < eps
	}
	return b-a < eps
}

func TestHaversine_SamePoint(t *testing.T) {
	d := Haversine(10.7769, 106.7009, 10.7769, 106.7009)
	if d != 0 {
		t.Fatalf("want 0, got %f", d)
	}
}

func TestHaversine_HoChiMinh_Hanoi(t *testing.T) {
	// Ben Thanh market to Hoan Kiem lake: ~1,140 km
	d := Haversine(10.7725, 106.6980, 21.0285, 105.8542)
	expected := 1_140_000.0
	if !almost(d, expected, 20_000) {
		t.Fatalf("want ~%.0fm, got %.0fm", expected, d)
	}
}

func TestHaversine_ShortHop(t *testing.T) {
	// 0.01 degree of latitude is ~1112m everywhere.
	d := Haversine(10.77, 106.70, 10.78, 106.70)
	if !almost(d, 1112, 5) {
		t.Fatalf("want ~1112m, got %.1fm", d)
	}
}

func TestHaversine_Antipodal(t *testing.T) {
	d := Haversine(0, 0, 0, 180)
	expected := math.Pi * EarthRadiusMeters
	if !almost(d, expected, 1) {
		t.Fatalf("want ~%.0fm, got %.0fm", expected, d)
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{10.77, 106.70, true},
		{90, 180, true},
		{-90, -180, true},
		{91, 0, false},
		{0, 181, false},
		{math.NaN(), 0, false},
	}
	for _, tc := range tests {
		if got := ValidateCoordinates(tc.lat, tc.lon); got != tc.want {
			t.Errorf("ValidateCoordinates(%v, %v) = %v, want %v", tc.lat, tc.lon, got, tc.want)
		}
	}
}
