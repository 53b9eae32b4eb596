package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DepotIndex is the matrix node index of the depot. Stops follow at 1..n.
const DepotIndex = 0

// DistanceMatrix is a dense (n+1)x(n+1) arena of travel costs between the
// depot and every stop. Diagonal entries are always zero. Off-diagonal
// entries start unset (NaN) and must all be populated before optimization.
type DistanceMatrix struct {
	distance *mat.Dense
	duration *mat.Dense
}

func NewDistanceMatrix(size int) *DistanceMatrix {
	if size < 1 {
		size = 1
	}

	unset := make([]float64, size*size)
	for i := range unset {
		unset[i] = math.NaN()
	}
	m := &DistanceMatrix{
		distance: mat.NewDense(size, size, unset),
		duration: mat.NewDense(size, size, append([]float64(nil), unset...)),
	}
	for i := 0; i < size; i++ {
		m.distance.Set(i, i, 0)
		m.duration.Set(i, i, 0)
	}
	return m
}

// Size returns the number of nodes, depot included.
func (m *DistanceMatrix) Size() int {
	r, _ := m.distance.Dims()
	return r
}

// Set stores the directional cost from -> to. Diagonal writes are ignored.
func (m *DistanceMatrix) Set(from, to int, distanceMeters, durationSeconds float64) {
	if from == to {
		return
	}
	m.distance.Set(from, to, distanceMeters)
	m.duration.Set(from, to, durationSeconds)
}

// SetSymmetric stores the same cost in both directions.
func (m *DistanceMatrix) SetSymmetric(a, b int, distanceMeters, durationSeconds float64) {
	m.Set(a, b, distanceMeters, durationSeconds)
	m.Set(b, a, distanceMeters, durationSeconds)
}

func (m *DistanceMatrix) Distance(from, to int) float64 { return m.distance.At(from, to) }

func (m *DistanceMatrix) Duration(from, to int) float64 { return m.duration.At(from, to) }

// IsSet reports whether the directional entry has been populated.
func (m *DistanceMatrix) IsSet(from, to int) bool {
	return !math.IsNaN(m.distance.At(from, to)) && !math.IsNaN(m.duration.At(from, to))
}

// Complete returns an error naming the first unset or negative entry.
func (m *DistanceMatrix) Complete() error {
	n := m.Size()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if !m.IsSet(i, j) {
				return fmt.Errorf("distance matrix: entry %d -> %d is not populated", i, j)
			}
			if m.Distance(i, j) < 0 || m.Duration(i, j) < 0 {
				return fmt.Errorf("distance matrix: entry %d -> %d is negative", i, j)
			}
		}
	}
	return nil
}
