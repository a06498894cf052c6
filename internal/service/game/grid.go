package game

import "math"

func newGrid(width, height int) []Cell {
	grid := make([]Cell, width*height)
	for i := range grid {
		grid[i] = CellSafe
	}
	return grid
}

func (s *Session) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.Width && y < s.Height
}

func (s *Session) index(x, y int) int {
	return y*s.Width + x
}

func (s *Session) coord(idx int) Coord {
	return Coord{X: idx % s.Width, Y: idx / s.Width}
}

func (s *Session) participant(id string) (int, bool) {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *Session) participantIDs() []string {
	ids := make([]string, len(s.Participants))
	for i, p := range s.Participants {
		ids[i] = p.ID
	}
	return ids
}

func (s *Session) alive() []string {
	var ids []string
	for _, p := range s.Participants {
		if p.Alive {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// spawnCell returns the first free safe corner in fixed order, then the first free safe cell in
// row-major order. ok is false when the grid has no free cell.
func (s *Session) spawnCell() (Coord, bool) {
	occupied := make(map[int]struct{}, len(s.Participants))
	for _, p := range s.Participants {
		occupied[s.index(p.X, p.Y)] = struct{}{}
	}
	free := func(x, y int) bool {
		idx := s.index(x, y)
		_, taken := occupied[idx]
		return !taken && s.Grid[idx] == CellSafe
	}

	corners := []Coord{
		{0, 0},
		{s.Width - 1, 0},
		{0, s.Height - 1},
		{s.Width - 1, s.Height - 1},
	}
	for _, c := range corners {
		if free(c.X, c.Y) {
			return c, true
		}
	}
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			if free(x, y) {
				return Coord{X: x, Y: y}, true
			}
		}
	}
	return Coord{}, false
}

func (s *Session) safeCells() []int {
	var cells []int
	for i, c := range s.Grid {
		if c == CellSafe {
			cells = append(cells, i)
		}
	}
	return cells
}

// collapseCount is max(1, floor(safe*fraction)), or 0 when nothing is safe.
func collapseCount(safe int, fraction float64) int {
	if safe <= 0 {
		return 0
	}
	n := int(math.Floor(float64(safe)*fraction + 1e-9))
	if n < 1 {
		n = 1
	}
	if n > safe {
		n = safe
	}
	return n
}

// collapse marks cells as collapsed and eliminates every alive participant standing on one.
func (s *Session) collapse(cells []int) (collapsed []Coord, eliminated []string) {
	for _, idx := range cells {
		if s.Grid[idx] == CellCollapsed {
			continue
		}
		s.Grid[idx] = CellCollapsed
		collapsed = append(collapsed, s.coord(idx))
	}
	for i := range s.Participants {
		p := &s.Participants[i]
		if p.Alive && s.Grid[s.index(p.X, p.Y)] == CellCollapsed {
			p.Alive = false
			eliminated = append(eliminated, p.ID)
		}
	}
	return collapsed, eliminated
}
