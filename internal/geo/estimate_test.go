package geo

import (
	"math/rand"
	"testing"

	"collection-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKnownDistance(t *testing.T) {
	paris := domain.Coordinates{Lat: 48.8566, Lon: 2.3522}
	london := domain.Coordinates{Lat: 51.5074, Lon: -0.1278}

	d := Haversine(paris, london)
	assert.Greater(t, d, 340_000.0)
	assert.Less(t, d, 346_000.0)

	assert.Equal(t, 0.0, Haversine(paris, paris))
}

func TestEstimateIsSymmetricAndNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		a := domain.Coordinates{Lat: rng.Float64()*180 - 90, Lon: rng.Float64()*360 - 180}
		b := domain.Coordinates{Lat: rng.Float64()*180 - 90, Lon: rng.Float64()*360 - 180}

		dab, tab := Estimate(a, b)
		dba, tba := Estimate(b, a)

		assert.GreaterOrEqual(t, dab, 0.0)
		assert.GreaterOrEqual(t, tab, 0.0)
		assert.InDelta(t, dab, dba, 1e-6)
		assert.InDelta(t, tab, tba, 1e-6)
	}
}

func TestEstimateDurationUsesUrbanSpeed(t *testing.T) {
	a := domain.Coordinates{Lat: 48.8566, Lon: 2.3522}
	b := domain.Coordinates{Lat: 48.8606, Lon: 2.3376}

	d, s := Estimate(a, b)
	assert.InDelta(t, d/8.33*1.2, s, 1e-9)
}
