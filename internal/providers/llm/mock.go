package llm

import (
	"context"
)

// MockClient is used when no real provider is configured. It always returns
// the same breadth-first search candidate, which keeps local development and
// the end-to-end tests independent of any model.
type MockClient struct{}

const mockCandidate = "```go\n" + `package main

var visited [][2]int

// FindPath runs breadth-first search over grid using {y, x} coordinates.
func FindPath(grid [][]int, start, end [2]int) [][2]int {
	visited = nil
	height := len(grid)
	if height == 0 {
		return nil
	}
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
` + "```"

func (m *MockClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return mockCandidate, nil
}

func (m *MockClient) Repair(ctx context.Context, req RepairRequest) (string, error) {
	return mockCandidate, nil
}
