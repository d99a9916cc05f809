package sandbox

import (
	"github.com/example/pathforge/internal/models"
)

// Sanitize filters a coordinate sequence reported by untrusted code against
// the grid it claims to have traversed. Out-of-range coordinates and wall
// cells are dropped; surviving coordinates keep their relative order. Static
// validation cannot prove a candidate never steps on a wall at runtime, so
// this filter is the last gate before a path reaches a visualization.
//
// Sanitizing an already-sanitized sequence returns it unchanged.
func Sanitize(pts []models.Point, grid models.Grid) (kept []models.Point, dropped int) {
	if len(pts) == 0 {
		return pts, 0
	}
	kept = make([]models.Point, 0, len(pts))
	for _, p := range pts {
		if !grid.InBounds(p) || grid.IsWall(p) {
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	return kept, dropped
}
