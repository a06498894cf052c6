package game

import (
	"math/rand"
	"testing"
)

func TestCollapseCount(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 4: 1, 5: 1, 9: 1, 10: 2, 35: 7, 64: 12, 100: 20}
	for safe, want := range cases {
		if got := collapseCount(safe, 0.2); got != want {
			t.Fatalf("collapseCount(%d) = %d, want %d", safe, got, want)
		}
	}
}

func TestSpawnOrder(t *testing.T) {
	s := &Session{Width: 4, Height: 4, Grid: newGrid(4, 4)}
	want := []Coord{{0, 0}, {3, 0}, {0, 3}, {3, 3}, {1, 0}, {2, 0}, {0, 1}}
	for i, w := range want {
		c, ok := s.spawnCell()
		if !ok {
			t.Fatalf("spawn %d: no free cell", i)
		}
		if c != w {
			t.Fatalf("spawn %d: got %+v, want %+v", i, c, w)
		}
		s.Participants = append(s.Participants, Participant{ID: string(rune('a' + i)), X: c.X, Y: c.Y, Alive: true})
	}
}

func TestSpawnSkipsCollapsed(t *testing.T) {
	s := &Session{Width: 4, Height: 4, Grid: newGrid(4, 4)}
	s.Grid[s.index(0, 0)] = CellCollapsed
	s.Grid[s.index(1, 0)] = CellCollapsed
	c, _ := s.spawnCell()
	if c != (Coord{3, 0}) {
		t.Fatalf("expected second corner, got %+v", c)
	}
}

func TestSpawnDisjoint(t *testing.T) {
	s := &Session{Width: 4, Height: 4, Grid: newGrid(4, 4)}
	seen := map[Coord]bool{}
	for i := 0; i < 16; i++ {
		c, ok := s.spawnCell()
		if !ok {
			t.Fatalf("spawn %d: grid reported full early", i)
		}
		if seen[c] {
			t.Fatalf("spawn %d reused cell %+v", i, c)
		}
		seen[c] = true
		s.Participants = append(s.Participants, Participant{X: c.X, Y: c.Y, Alive: true})
	}
	if _, ok := s.spawnCell(); ok {
		t.Fatalf("full grid must have no spawn cell")
	}
}

func TestCollapseRoundSizing(t *testing.T) {
	svc := NewService(Deps{Rand: rand.New(rand.NewSource(1))}, defaultTestConfig())
	s := &Session{Width: 8, Height: 8, Grid: newGrid(8, 8)}

	for round := 0; round < 40; round++ {
		before := len(s.safeCells())
		svc.collapseRound(s)
		after := len(s.safeCells())
		if got, want := before-after, collapseCount(before, 0.2); got != want {
			t.Fatalf("round %d: collapsed %d cells from %d safe, want %d", round, got, before, want)
		}
	}
	if len(s.safeCells()) != 0 {
		t.Fatalf("expected grid to be fully collapsed after 40 rounds")
	}
	roundBefore := s.CollapseRound
	if collapsed, _ := svc.collapseRound(s); collapsed != nil || s.CollapseRound != roundBefore {
		t.Fatalf("collapse on an empty grid must be a no-op")
	}
}

func TestCollapseEliminates(t *testing.T) {
	s := &Session{Width: 4, Height: 4, Grid: newGrid(4, 4), Participants: []Participant{
		{ID: "a", X: 0, Y: 0, Alive: true},
		{ID: "b", X: 3, Y: 3, Alive: true},
	}}
	collapsed, eliminated := s.collapse([]int{s.index(3, 3), s.index(3, 3)})
	if len(collapsed) != 1 {
		t.Fatalf("expected one newly collapsed cell, got %v", collapsed)
	}
	if len(eliminated) != 1 || eliminated[0] != "b" {
		t.Fatalf("expected b eliminated, got %v", eliminated)
	}
	if !s.Participants[0].Alive || s.Participants[1].Alive {
		t.Fatalf("unexpected alive flags: %+v", s.Participants)
	}
}
