package random

import "testing"

func TestSeededSourceIsDeterministic(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Intn(1000), b.Intn(1000); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("float draw %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestScriptedWrapsAndReduces(t *testing.T) {
	s := &Scripted{Floats: []float64{0.1, 0.9}, Ints: []int{7, 3}}
	if got := s.Float64(); got != 0.1 {
		t.Fatalf("expected 0.1, got %v", got)
	}
	if got := s.Float64(); got != 0.9 {
		t.Fatalf("expected 0.9, got %v", got)
	}
	if got := s.Float64(); got != 0.1 {
		t.Fatalf("expected wrap to 0.1, got %v", got)
	}
	if got := s.Intn(5); got != 2 {
		t.Fatalf("expected 7 mod 5 = 2, got %d", got)
	}
	if got := s.Intn(5); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestNewSeed(t *testing.T) {
	if _, err := New(); err != nil {
		t.Fatalf("New() error = %v", err)
	}
}
