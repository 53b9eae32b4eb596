package services

import (
	"errors"
	"fmt"
	"math"

	"collection-route-service/internal/domain"
)

// Problem is a capacitated routing instance over matrix node indices.
// Node 0 is the depot; Demands[i] is the weight collected at node i.
type Problem struct {
	Matrix   *domain.DistanceMatrix
	Demands  []float64
	Vehicles []domain.Vehicle
	// MaxRouteDuration caps each route in seconds; 0 means no cap.
	MaxRouteDuration float64
}

// Validate checks the instance is well formed and the matrix complete.
func (p Problem) Validate() error {
	if p.Matrix == nil {
		return errors.New("problem: matrix is nil")
	}
	if p.Matrix.Size() != len(p.Demands) {
		return fmt.Errorf("problem: matrix has %d nodes but %d demands", p.Matrix.Size(), len(p.Demands))
	}
	if len(p.Vehicles) == 0 {
		return errors.New("problem: no vehicles")
	}
	for _, v := range p.Vehicles {
		if !(v.Capacity > 0) || math.IsInf(v.Capacity, 0) {
			return fmt.Errorf("problem: vehicle %s has invalid capacity %v", v.VehicleID, v.Capacity)
		}
	}
	for i, d := range p.Demands {
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("problem: node %d has invalid demand %v", i, d)
		}
	}
	if p.MaxRouteDuration < 0 {
		return fmt.Errorf("problem: negative max route duration %v", p.MaxRouteDuration)
	}
	return p.Matrix.Complete()
}

// StopCount returns the number of non-depot nodes.
func (p Problem) StopCount() int { return len(p.Demands) - 1 }
