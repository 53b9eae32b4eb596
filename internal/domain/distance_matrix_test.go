package domain

import "testing"

func TestDistanceMatrixDiagonalIsZero(t *testing.T) {
	m := NewDistanceMatrix(4)

	for i := 0; i < m.Size(); i++ {
		if !m.IsSet(i, i) || m.Distance(i, i) != 0 || m.Duration(i, i) != 0 {
			t.Fatalf("diagonal entry %d is not (0,0)", i)
		}
	}

	m.Set(2, 2, 10, 10)
	if m.Distance(2, 2) != 0 {
		t.Fatalf("diagonal write must be ignored")
	}
}

func TestDistanceMatrixComplete(t *testing.T) {
	m := NewDistanceMatrix(3)
	if err := m.Complete(); err == nil {
		t.Fatalf("fresh matrix must be incomplete")
	}

	m.SetSymmetric(0, 1, 100, 12)
	m.SetSymmetric(0, 2, 200, 24)
	m.Set(1, 2, 150, 18)
	if err := m.Complete(); err == nil {
		t.Fatalf("matrix missing 2 -> 1 must be incomplete")
	}

	m.Set(2, 1, 170, 20)
	if err := m.Complete(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Distance(1, 2) != 150 || m.Distance(2, 1) != 170 {
		t.Fatalf("asymmetric entries not preserved: %v / %v", m.Distance(1, 2), m.Distance(2, 1))
	}
}

func TestDistanceMatrixRejectsNegative(t *testing.T) {
	m := NewDistanceMatrix(2)
	m.Set(0, 1, -1, 5)
	m.Set(1, 0, 1, 5)

	if err := m.Complete(); err == nil {
		t.Fatalf("negative entry must fail completeness")
	}
}

func TestCoordinatesKeyAndValidate(t *testing.T) {
	c := Coordinates{Lat: 48.8566, Lon: 2.3522}
	if got := c.Key(); got != "48.856600,2.352200" {
		t.Fatalf("key = %q", got)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Coordinates{Lat: 91}).Validate(); err == nil {
		t.Fatalf("latitude 91 must be rejected")
	}
	if err := (Coordinates{Lon: -181}).Validate(); err == nil {
		t.Fatalf("longitude -181 must be rejected")
	}
}
