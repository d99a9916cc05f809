package models

// Cell kinds as stored in a Grid. The executor and sanitizer only care about
// walls; start/end markers are passed separately.
const (
	CellEmpty = 0
	CellWall  = 1
	CellStart = 2
	CellEnd   = 3
)

// Point is a {y, x} grid coordinate. Row-first matches the candidate code
// contract and serialises as a two-element array.
type Point [2]int

// Y returns the row coordinate.
func (p Point) Y() int { return p[0] }

// X returns the column coordinate.
func (p Point) X() int { return p[1] }

// Grid is an immutable snapshot of the board: grid[y][x] holds a cell kind.
// Rows are assumed rectangular; the caller enforces exactly one start and one
// end cell before execution.
type Grid [][]int

// Height returns the number of rows.
func (g Grid) Height() int { return len(g) }

// Width returns the number of columns, 0 for an empty grid.
func (g Grid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// InBounds reports whether p addresses a cell of the grid.
func (g Grid) InBounds(p Point) bool {
	return p.Y() >= 0 && p.Y() < g.Height() && p.X() >= 0 && p.X() < g.Width()
}

// IsWall reports whether p is an in-bounds wall cell.
func (g Grid) IsWall(p Point) bool {
	return g.InBounds(p) && g[p.Y()][p.X()] == CellWall
}

// ExecutionResult is the sanitized outcome of running a candidate against a
// grid. Warnings carry non-fatal quality signals, e.g. when sanitization had
// to drop a large share of reported coordinates.
type ExecutionResult struct {
	Path     []Point  `json:"path"`
	Visited  []Point  `json:"visited"`
	Found    bool     `json:"found"`
	Warnings []string `json:"warnings,omitempty"`
}
