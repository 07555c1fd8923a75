package scope

import "testing"

func TestDeclareAndLookup(t *testing.T) {
	s := New()
	s.Push(0)
	if err := s.Declare("a", Slot{Kind: Scalar, Pos: 0, Footprint: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slot, ok := s.Lookup("a")
	if !ok {
		t.Fatalf("expected to find %q", "a")
	}
	if slot.Kind != Scalar || slot.Pos != 0 {
		t.Fatalf("unexpected slot: %+v", slot)
	}
}

func TestDuplicateDeclarationErrors(t *testing.T) {
	s := New()
	s.Push(0)
	if err := s.Declare("a", Slot{Kind: Scalar, Pos: 0, Footprint: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Declare("a", Slot{Kind: Scalar, Pos: 1, Footprint: 1}); err == nil {
		t.Fatalf("expected a duplicate-declaration error")
	}
}

func TestLookupIsInnermostFirst(t *testing.T) {
	s := New()
	s.Push(0)
	if err := s.Declare("a", Slot{Kind: Scalar, Pos: 0, Footprint: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Push(1)
	if err := s.Declare("a", Slot{Kind: Scalar, Pos: 1, Footprint: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slot, ok := s.Lookup("a")
	if !ok || slot.Pos != 1 {
		t.Fatalf("expected innermost declaration at pos 1, got %+v (ok=%v)", slot, ok)
	}

	dp0 := s.Pop()
	if dp0 != 1 {
		t.Fatalf("expected Pop to return the dp recorded at Push, got %d", dp0)
	}
	slot, ok = s.Lookup("a")
	if !ok || slot.Pos != 0 {
		t.Fatalf("expected outer declaration at pos 0 after inner scope closed, got %+v (ok=%v)", slot, ok)
	}
}

func TestLookupMissingNameFails(t *testing.T) {
	s := New()
	s.Push(0)
	if _, ok := s.Lookup("nope"); ok {
		t.Fatalf("expected lookup of an undeclared name to fail")
	}
}

func TestDepthTracksOpenScopes(t *testing.T) {
	s := New()
	if s.Depth() != 0 {
		t.Fatalf("expected depth 0 on a fresh stack, got %d", s.Depth())
	}
	s.Push(0)
	s.Push(3)
	if s.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", s.Depth())
	}
	s.Pop()
	if s.Depth() != 1 {
		t.Fatalf("expected depth 1 after one pop, got %d", s.Depth())
	}
}

func TestArraySlotRoundTrips(t *testing.T) {
	s := New()
	s.Push(0)
	want := Slot{Kind: Array, Pos: 2, Shape: []int{3, 4}, Footprint: 20}
	if err := s.Declare("grid", want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := s.Lookup("grid")
	if !ok {
		t.Fatalf("expected to find %q", "grid")
	}
	if got.Kind != Array || got.Footprint != 20 || len(got.Shape) != 2 {
		t.Fatalf("unexpected slot: %+v", got)
	}
}
