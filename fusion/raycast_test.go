package fusion

import "testing"

func TestRaycastSamePointYieldsOneBlock(t *testing.T) {
	a := BlockId{3, -2, 7}
	got := Raycast(a, a)
	if len(got) != 1 || got[0] != a {
		t.Errorf("Raycast(a,a) = %v, want [%v]", got, a)
	}
}

func TestRaycastIncludesBothEndpoints(t *testing.T) {
	a := BlockId{0, 0, 0}
	b := BlockId{4, 0, 0}
	got := Raycast(a, b)
	if got[0] != a {
		t.Errorf("first id = %v, want %v", got[0], a)
	}
	if got[len(got)-1] != b {
		t.Errorf("last id = %v, want %v", got[len(got)-1], b)
	}
	if len(got) != 5 {
		t.Errorf("len(got) = %d, want 5", len(got))
	}
}

func TestRaycastSingleAxisStepsByOne(t *testing.T) {
	a := BlockId{0, 0, 0}
	b := BlockId{0, 0, -3}
	got := Raycast(a, b)
	want := []BlockId{{0, 0, 0}, {0, 0, -1}, {0, 0, -2}, {0, 0, -3}}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRaycastDiagonalStaysContiguous(t *testing.T) {
	a := BlockId{0, 0, 0}
	b := BlockId{5, 3, -2}
	got := Raycast(a, b)
	for i := 1; i < len(got); i++ {
		d := Index3(got[i]).Sub(Index3(got[i-1]))
		if abs32(d.X) > 1 || abs32(d.Y) > 1 || abs32(d.Z) > 1 {
			t.Fatalf("non-contiguous step %v -> %v", got[i-1], got[i])
		}
	}
	if got[0] != a || got[len(got)-1] != b {
		t.Errorf("endpoints not both present: got[0]=%v got[last]=%v", got[0], got[len(got)-1])
	}
}

func TestRaycastAllocatorMergesAcrossWorkers(t *testing.T) {
	segments := make([][2]BlockId, 0, 50)
	for i := int32(0); i < 50; i++ {
		segments = append(segments, [2]BlockId{{0, 0, i}, {0, 0, i}})
	}
	ids := RaycastAllocator(segments)
	if len(ids) != 50 {
		t.Errorf("len(ids) = %d, want 50", len(ids))
	}
}

func TestRaycastAllocatorEmpty(t *testing.T) {
	if ids := RaycastAllocator(nil); ids != nil {
		t.Errorf("expected nil for no segments, got %v", ids)
	}
}
