package llm

import (
	"fmt"
	"strings"
)

// contract is included in every prompt so each provider emits code the
// sandbox can load directly.
const contract = `Write a single Go file that starts with "package main" and defines
exactly these two functions:

    func FindPath(grid [][]int, start, end [2]int) [][2]int
    func VisitedOrder() [][2]int

Rules:
- Coordinates are {y, x}: grid[y][x]. 0 is walkable, 1 is a wall.
- FindPath returns the path from start to end inclusive, or nil when no
  path exists. Never step on a wall or outside the grid.
- VisitedOrder returns every cell FindPath expanded, in expansion order.
- Use only the language itself: no imports of any kind.
- Add a doc comment to each exported function.
- Reply with Go code only, no explanations.`

// BuildGenerationPrompt renders the prompt for a fresh candidate.
func BuildGenerationPrompt(description string) string {
	var b strings.Builder
	b.WriteString("You are an expert Go programmer implementing grid pathfinding algorithms.\n\n")
	fmt.Fprintf(&b, "Implement the following algorithm: %s\n\n", strings.TrimSpace(description))
	b.WriteString(contract)
	return b.String()
}

// BuildRepairPrompt renders the prompt for one fix iteration. The strategy
// escalates: early iterations ask for targeted edits, the midpoint asks for
// structural changes, and the final attempt asks for a rewrite.
func BuildRepairPrompt(req RepairRequest) string {
	var b strings.Builder
	b.WriteString("You are an expert Go programmer fixing a grid pathfinding implementation.\n\n")
	fmt.Fprintf(&b, "Attempt %d of %d. %s\n\n", req.Iteration, req.MaxIterations, repairStrategy(req.Iteration, req.MaxIterations))
	b.WriteString("Validation found these problems:\n")
	for _, f := range req.Report.Findings {
		if f.Line > 0 {
			fmt.Fprintf(&b, "- [%s] line %d: %s\n", f.Level, f.Line, f.Message)
		} else {
			fmt.Fprintf(&b, "- [%s] %s\n", f.Level, f.Message)
		}
		if f.Suggestion != "" {
			fmt.Fprintf(&b, "  hint: %s\n", f.Suggestion)
		}
	}
	b.WriteString("\nCurrent code:\n```go\n")
	b.WriteString(req.Source)
	b.WriteString("\n```\n\n")
	b.WriteString(contract)
	return b.String()
}

func repairStrategy(iteration, max int) string {
	switch {
	case iteration >= max:
		return "Previous attempts failed. Discard the current structure and rewrite the algorithm from scratch."
	case iteration > max/2:
		return "Targeted edits have not been enough. Restructure the code where needed, not just the flagged lines."
	default:
		return "Fix every error listed below with the smallest change that resolves it. Keep correct code untouched."
	}
}

// CleanCode strips markdown fences and any prose around the code block.
// Models routinely wrap answers in ``` fences despite instructions not to.
func CleanCode(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		// drop a language tag on the fence line
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			first := strings.TrimSpace(s[:nl])
			if first == "go" || first == "golang" || first == "" {
				s = s[nl+1:]
			}
		}
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	// drop prose before the package clause
	if i := strings.Index(s, "package "); i > 0 {
		s = s[i:]
	}
	return strings.TrimSpace(s)
}
