package domain

import "fmt"

// Collection vehicle with a weight capacity.
type Vehicle struct {
	VehicleID string
	Capacity  float64
}

// NewFleet builds count identical vehicles named truck-1..truck-N.
func NewFleet(count int, capacity float64) []Vehicle {
	fleet := make([]Vehicle, 0, count)
	for i := 0; i < count; i++ {
		fleet = append(fleet, Vehicle{
			VehicleID: fmt.Sprintf("truck-%d", i+1),
			Capacity:  capacity,
		})
	}
	return fleet
}

// Headroom returns how much more weight fits on top of load.
// A negative value means the vehicle is already overloaded.
func (v Vehicle) Headroom(load float64) float64 {
	return v.Capacity - load
}

// CanCarry reports whether demand fits on top of load.
func (v Vehicle) CanCarry(load, demand float64) bool {
	return load+demand <= v.Capacity+capacityEpsilon
}

// capacityEpsilon absorbs float accumulation noise in load sums.
const capacityEpsilon = 1e-9
