package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/example/pathforge/internal/models"
)

func TestCleanCodeStripsFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"bare", "package main\n\nfunc FindPath() {}"},
		{"fenced", "```go\npackage main\n\nfunc FindPath() {}\n```"},
		{"fenced no tag", "```\npackage main\n\nfunc FindPath() {}\n```"},
		{"prose before", "Here is the code:\n```go\npackage main\n\nfunc FindPath() {}\n```\nHope this helps!"},
		{"prose no fence", "Sure! Here you go:\npackage main\n\nfunc FindPath() {}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanCode(tc.in)
			if !strings.HasPrefix(got, "package main") {
				t.Fatalf("cleaned code does not start with package clause:\n%s", got)
			}
			if strings.Contains(got, "```") {
				t.Fatalf("fence survived cleaning:\n%s", got)
			}
		})
	}
}

func TestCleanCodeIsIdempotent(t *testing.T) {
	in := "```go\npackage main\n\nfunc FindPath() {}\n```"
	once := CleanCode(in)
	if twice := CleanCode(once); twice != once {
		t.Fatalf("second pass changed output:\n%s\nvs\n%s", once, twice)
	}
}

func TestRepairPromptIncludesFindings(t *testing.T) {
	req := RepairRequest{
		Source: "package main",
		Report: models.ValidationReport{
			Findings: []models.Finding{
				{Level: models.LevelError, Message: "missing FindPath", Line: 0},
				{Level: models.LevelWarning, Message: "loop without exit", Line: 7, Suggestion: "track visited cells"},
			},
		},
		Iteration:     1,
		MaxIterations: 5,
	}
	p := BuildRepairPrompt(req)
	for _, want := range []string{"missing FindPath", "loop without exit", "track visited cells", "package main"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestRepairPromptStrategyEscalates(t *testing.T) {
	base := RepairRequest{Report: models.ValidationReport{}, MaxIterations: 5}

	first := base
	first.Iteration = 1
	mid := base
	mid.Iteration = 4
	last := base
	last.Iteration = 5

	pFirst, pMid, pLast := BuildRepairPrompt(first), BuildRepairPrompt(mid), BuildRepairPrompt(last)
	if !strings.Contains(pFirst, "smallest change") {
		t.Error("first iteration should ask for targeted fixes")
	}
	if !strings.Contains(pMid, "Restructure") {
		t.Error("later iterations should ask for restructuring")
	}
	if !strings.Contains(pLast, "rewrite") {
		t.Error("final iteration should ask for a rewrite")
	}
}

func TestMockClientProducesLoadableCandidate(t *testing.T) {
	raw, err := (&MockClient{}).Generate(context.Background(), GenerateRequest{Description: "breadth-first search"})
	if err != nil {
		t.Fatal(err)
	}
	code := CleanCode(raw)
	if !strings.HasPrefix(code, "package main") {
		t.Fatalf("mock candidate not cleanable:\n%s", code)
	}
	for _, want := range []string{"func FindPath(grid [][]int, start, end [2]int) [][2]int", "func VisitedOrder() [][2]int"} {
		if !strings.Contains(code, want) {
			t.Fatalf("mock candidate missing %q", want)
		}
	}
}
