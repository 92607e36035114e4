package viz

import "testing"

func TestTrailRingBuffer(t *testing.T) {
	tr := NewTrail(3)

	tr.Append(1, 1)
	tr.Append(2, 2)
	if tr.Len() != 2 {
		t.Fatalf("expected 2 points, got %d", tr.Len())
	}

	tr.Append(3, 3)
	tr.Append(4, 4) // evicts the oldest

	pts := tr.Points()
	if len(pts) != 3 {
		t.Fatalf("expected capacity-bounded length 3, got %d", len(pts))
	}
	if pts[0].X != 2 || pts[2].X != 4 {
		t.Errorf("expected oldest-first order [2 3 4], got %v", pts)
	}

	tr.Reset()
	if tr.Len() != 0 {
		t.Errorf("expected empty trail after reset, got %d", tr.Len())
	}
}

func TestTrailDefaultCapacity(t *testing.T) {
	tr := NewTrail(0)

	for i := 0; i < DefaultTrailCapacity+50; i++ {
		tr.Append(float64(i), 0)
	}
	if tr.Len() != DefaultTrailCapacity {
		t.Errorf("expected %d points, got %d", DefaultTrailCapacity, tr.Len())
	}
}
