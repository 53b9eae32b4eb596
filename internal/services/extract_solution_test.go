package services

import (
	"testing"

	"collection-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSolutionLegsAndTotals(t *testing.T) {
	m := domain.NewDistanceMatrix(4)
	m.SetSymmetric(0, 1, 1000, 100)
	m.SetSymmetric(0, 2, 2000, 200)
	m.SetSymmetric(0, 3, 1500, 150)
	m.SetSymmetric(1, 2, 800, 80)
	m.SetSymmetric(1, 3, 700, 70)
	m.SetSymmetric(2, 3, 900, 90)

	stops := []domain.Stop{
		{StopID: "a", Demand: 10},
		{StopID: "b", Demand: 20},
		{StopID: "c", Demand: 5},
	}
	vehicles := domain.NewFleet(3, 25)

	sol := ExtractSolution(ExtractInput{
		Depot:    paris,
		Stops:    stops,
		Vehicles: vehicles,
		Matrix:   m,
		Routes:   [][]int{{1, 2}, {}, {3}},
	})

	require.Len(t, sol.Routes, 2)
	assert.Equal(t, 2, sol.VehicleCount)
	assert.Equal(t, 3, sol.StopCount)

	r := sol.Routes[0]
	assert.Equal(t, "truck-1", r.VehicleID)
	assert.Equal(t, 30.0, r.Load)
	assert.Equal(t, 1000.0+800+2000, r.DistanceMeters)
	assert.Equal(t, 100.0+80+200, r.DurationSeconds)

	require.Len(t, r.Stops, 2)
	assert.Equal(t, 0, r.Stops[0].Position)
	assert.Equal(t, 10.0, r.Stops[0].CumulativeLoad)
	assert.Equal(t, 100.0, r.Stops[0].ArrivalSeconds)
	require.NotNil(t, r.Stops[0].DistanceToNext)
	assert.Equal(t, 800.0, *r.Stops[0].DistanceToNext)
	assert.Equal(t, 80.0, *r.Stops[0].DurationToNext)
	assert.Equal(t, 30.0, r.Stops[1].CumulativeLoad)
	assert.Equal(t, 180.0, r.Stops[1].ArrivalSeconds)
	assert.Nil(t, r.Stops[1].DistanceToNext)

	assert.Equal(t, "truck-3", sol.Routes[1].VehicleID)
	assert.Equal(t, 3800.0+3000, sol.TotalDistanceMeters)
	assert.Equal(t, 380.0, sol.MakespanSeconds)

	assert.False(t, sol.Feasible)
	assert.Equal(t, []string{"truck-1: load 30 exceeds capacity 25"}, sol.Violations)
}

func TestExtractSolutionDurationCapAndCoverage(t *testing.T) {
	m := domain.NewDistanceMatrix(3)
	m.SetSymmetric(0, 1, 1000, 3600)
	m.SetSymmetric(0, 2, 1000, 60)
	m.SetSymmetric(1, 2, 1000, 60)

	sol := ExtractSolution(ExtractInput{
		Stops:            []domain.Stop{{StopID: "far", Demand: 1}, {StopID: "lost", Demand: 1}},
		Vehicles:         domain.NewFleet(1, 10),
		Matrix:           m,
		Routes:           [][]int{{1}},
		MaxRouteDuration: 3600,
	})

	assert.False(t, sol.Feasible)
	assert.Equal(t, []string{
		"truck-1: duration 2h0m0s exceeds cap 1h0m0s",
		"stop lost is not routed",
	}, sol.Violations)
}
