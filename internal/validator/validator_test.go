package validator

import (
	"strings"
	"testing"

	"github.com/example/pathforge/internal/models"
)

// goodCandidate is a complete BFS implementation that satisfies every check.
const goodCandidate = `package main

// visited records the expansion order of the last FindPath call.
var visited [][2]int

// FindPath runs breadth-first search over grid using {y, x} coordinates.
func FindPath(grid [][]int, start, end [2]int) [][2]int {
	visited = nil
	height := len(grid)
	width := len(grid[0])
	seen := make(map[[2]int]bool)
	parent := make(map[[2]int][2]int)
	queue := [][2]int{start}
	seen[start] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visited = append(visited, cur)
		if cur == end {
			path := [][2]int{cur}
			for cur != start {
				cur = parent[cur]
				path = append([][2]int{cur}, path...)
			}
			return path
		}
		for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			ny, nx := cur[0]+d[0], cur[1]+d[1]
			if ny < 0 || ny >= height || nx < 0 || nx >= width {
				continue
			}
			if grid[ny][nx] == 1 {
				continue
			}
			n := [2]int{ny, nx}
			if seen[n] {
				continue
			}
			seen[n] = true
			parent[n] = cur
			queue = append(queue, n)
		}
	}
	return nil
}

// VisitedOrder returns the cells expanded by the last FindPath call.
func VisitedOrder() [][2]int {
	return visited
}
`

func hasFinding(r models.ValidationReport, level models.Level, substr string) bool {
	for _, f := range r.Findings {
		if f.Level == level && strings.Contains(f.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidCandidatePasses(t *testing.T) {
	r := Validate(goodCandidate)
	if !r.IsValid {
		t.Fatalf("expected valid report, findings: %+v", r.Findings)
	}
	if r.ErrorCount() != 0 {
		t.Fatalf("expected zero errors, got %d", r.ErrorCount())
	}
	if r.Score != 100 {
		t.Fatalf("expected full score, got %d (findings: %+v)", r.Score, r.Findings)
	}
}

func TestParseErrorIsFatal(t *testing.T) {
	r := Validate("package main\n\nfunc FindPath( {")
	if r.IsValid {
		t.Fatal("unparseable source must not be valid")
	}
	if r.Score != 0 {
		t.Fatalf("expected score 0 for parse failure, got %d", r.Score)
	}
	if !hasFinding(r, models.LevelError, "does not parse") {
		t.Fatalf("expected a parse error finding, got %+v", r.Findings)
	}
}

func TestMissingEntryPoints(t *testing.T) {
	r := Validate("package main\n\nfunc helper() {}\n")
	if r.IsValid {
		t.Fatal("expected invalid report")
	}
	if !hasFinding(r, models.LevelError, "FindPath") {
		t.Fatalf("expected structural finding for FindPath, got %+v", r.Findings)
	}
	if !hasFinding(r, models.LevelError, "VisitedOrder") {
		t.Fatalf("expected structural finding for VisitedOrder, got %+v", r.Findings)
	}
	if r.Score >= 100 {
		t.Fatalf("structural errors must lower the score, got %d", r.Score)
	}
}

func TestWrongSignatureIsStructuralError(t *testing.T) {
	src := `package main

func FindPath(grid [][]int, start [2]int) [][2]int { _ = grid; return nil }

func VisitedOrder() [][2]int { return nil }
`
	r := Validate(src)
	if r.IsValid {
		t.Fatal("expected invalid report")
	}
	if !hasFinding(r, models.LevelError, "wrong signature") {
		t.Fatalf("expected signature finding, got %+v", r.Findings)
	}
	if r.Score >= 100 {
		t.Fatalf("expected score below 100, got %d", r.Score)
	}
}

// Walking through walls is a correctness violation, so a missing wall check
// must be error-level, never merely a warning.
func TestMissingWallCheckIsError(t *testing.T) {
	src := `package main

var visited [][2]int

// FindPath walks straight down ignoring cell contents.
func FindPath(grid [][]int, start, end [2]int) [][2]int {
	path := [][2]int{}
	for y := 0; y < len(grid); y++ {
		_ = grid[y][0]
		path = append(path, [2]int{y, 0})
	}
	if len(path) == 0 {
		return nil
	}
	return path
}

// VisitedOrder returns the recorded order.
func VisitedOrder() [][2]int { return visited }
`
	r := Validate(src)
	if r.IsValid {
		t.Fatal("expected invalid report")
	}
	if !hasFinding(r, models.LevelError, "wall check") {
		t.Fatalf("expected error-level wall-check finding, got %+v", r.Findings)
	}
	if hasFinding(r, models.LevelWarning, "wall check") {
		t.Fatal("wall check must not be downgraded to a warning")
	}
}

func TestMissingBoundsCheckIsError(t *testing.T) {
	src := `package main

var visited [][2]int

// FindPath checks walls but never guards coordinates.
func FindPath(grid [][]int, start, end [2]int) [][2]int {
	if grid[start[0]][start[1]] == 1 {
		return nil
	}
	return [][2]int{start, end}
}

// VisitedOrder returns the recorded order.
func VisitedOrder() [][2]int { return visited }
`
	r := Validate(src)
	if r.IsValid {
		t.Fatal("expected invalid report")
	}
	if !hasFinding(r, models.LevelError, "bounds check") {
		t.Fatalf("expected bounds-check finding, got %+v", r.Findings)
	}
}

func TestUnusedGridIsError(t *testing.T) {
	src := `package main

var visited [][2]int

// FindPath fabricates a path without consulting the grid.
func FindPath(grid [][]int, start, end [2]int) [][2]int {
	return [][2]int{start, end}
}

// VisitedOrder returns the recorded order.
func VisitedOrder() [][2]int { return visited }
`
	r := Validate(src)
	if !hasFinding(r, models.LevelError, "never reads the grid") {
		t.Fatalf("expected grid-unused finding, got %+v", r.Findings)
	}
}

func TestUnboundedLoopIsWarningOnly(t *testing.T) {
	src := `package main

var visited [][2]int

// FindPath spins without a visited set.
func FindPath(grid [][]int, start, end [2]int) [][2]int {
	cur := start
	for {
		if cur[0] < 0 || cur[0] >= len(grid) {
			return nil
		}
		if grid[cur[0]][cur[1]] == 1 {
			return nil
		}
		cur[0]++
	}
}

// VisitedOrder returns the recorded order.
func VisitedOrder() [][2]int { return visited }
`
	r := Validate(src)
	if !hasFinding(r, models.LevelWarning, "unconditional loop") {
		t.Fatalf("expected loop warning, got %+v", r.Findings)
	}
	// The loop alone must not invalidate the candidate; termination cannot
	// be proven statically either way.
	if hasFinding(r, models.LevelError, "unconditional loop") {
		t.Fatal("loop finding must stay warning-level")
	}
}

func TestSuggestionsDoNotAffectValidity(t *testing.T) {
	// goodCandidate with the doc comments stripped: suggestions appear but
	// is_valid stays true.
	src := strings.ReplaceAll(goodCandidate,
		"// FindPath runs breadth-first search over grid using {y, x} coordinates.\n", "")
	src = strings.ReplaceAll(src,
		"// VisitedOrder returns the cells expanded by the last FindPath call.\n", "")

	r := Validate(src)
	if !r.IsValid {
		t.Fatalf("suggestions must not invalidate, findings: %+v", r.Findings)
	}
	if !hasFinding(r, models.LevelSuggestion, "doc comment") {
		t.Fatalf("expected doc comment suggestions, got %+v", r.Findings)
	}
	if r.Score >= 100 {
		t.Fatalf("suggestions still cost score, got %d", r.Score)
	}
}

func TestScoreFloorsAtZero(t *testing.T) {
	r := Validate("package other\n\nfunc x() {}\n")
	if r.Score < 0 {
		t.Fatalf("score must floor at 0, got %d", r.Score)
	}
}

func TestDimensionAliasCountsAsBoundsCheck(t *testing.T) {
	// Bounds expressed through height/width locals assigned from len(grid)
	// must satisfy the bounds check, as in goodCandidate.
	r := Validate(goodCandidate)
	if hasFinding(r, models.LevelError, "bounds check") {
		t.Fatalf("len-derived dimension guards should count, got %+v", r.Findings)
	}
}
