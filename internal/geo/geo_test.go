package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_KnownPair(t *testing.T) {
	// Jakarta to Bandung is roughly 115-120 km.
	d := Distance(-6.2, 106.816, -6.9175, 107.6191)
	assert.InDelta(t, 118000, d, 5000)
}

func TestDistance_IdenticalPointsIsZero(t *testing.T) {
	points := [][2]float64{{0, 0}, {12.9716, 77.5946}, {-89.9, 179.9}, {90, -180}}
	for _, p := range points {
		assert.Equal(t, 0.0, Distance(p[0], p[1], p[0], p[1]))
	}
}

func TestDistance_NonNegativeAndSymmetric(t *testing.T) {
	coords := []float64{-90, -45.5, -1, 0, 0.0001, 33.3, 89.99, 90}
	lngs := []float64{-180, -120, -0.5, 0, 45, 179.99, 180}
	for _, lat1 := range coords {
		for _, lng1 := range lngs {
			lat2, lng2 := -lat1/2, lng1/3
			d1 := Distance(lat1, lng1, lat2, lng2)
			d2 := Distance(lat2, lng2, lat1, lng1)
			assert.GreaterOrEqual(t, d1, 0.0)
			assert.False(t, math.IsNaN(d1))
			assert.InDelta(t, d1, d2, 1e-6)
		}
	}
}

func TestDistance_OneDegreeLatitude(t *testing.T) {
	d := Distance(0, 0, 1, 0)
	assert.InDelta(t, EarthRadiusM*math.Pi/180, d, 1e-6)
}

func TestHeadingDelta(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		h1, h2 float64
		want   float64
	}{
		{name: "wraps through north", h1: 350, h2: 10, want: 20},
		{name: "wraps the other way", h1: 10, h2: 350, want: 20},
		{name: "identical", h1: 90, h2: 90, want: 0},
		{name: "opposite", h1: 0, h2: 180, want: 180},
		{name: "plain", h1: 45, h2: 120, want: 75},
		{name: "just past half turn", h1: 0, h2: 181, want: 179},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, HeadingDelta(tc.h1, tc.h2), 1e-9)
		})
	}
}

func TestHeadingDelta_AlwaysInRange(t *testing.T) {
	for h1 := 0.0; h1 < 360; h1 += 7.5 {
		for h2 := 0.0; h2 < 360; h2 += 11.25 {
			d := HeadingDelta(h1, h2)
			if d < 0 || d > 180 {
				t.Fatalf("HeadingDelta(%v, %v) = %v out of range", h1, h2, d)
			}
		}
	}
}

func TestCoordinateRanges(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidLatitude(90))
	assert.True(t, ValidLatitude(-90))
	assert.False(t, ValidLatitude(90.0001))
	assert.False(t, ValidLatitude(math.NaN()))
	assert.True(t, ValidLongitude(-180))
	assert.False(t, ValidLongitude(180.5))
	assert.False(t, ValidLongitude(math.NaN()))
}
