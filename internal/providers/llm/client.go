package llm

import (
	"context"

	"github.com/example/pathforge/internal/models"
)

// Client is the minimal surface the generator and fixer need from a
// language-model provider. Any provider implementation should satisfy this.
type Client interface {
	// Generate produces candidate pathfinding source from a natural-language
	// description. The returned string is raw model output; callers run it
	// through CleanCode before validating.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	// Repair asks the model to fix a candidate given its validation findings.
	Repair(ctx context.Context, req RepairRequest) (string, error)
}

// GenerateRequest describes the algorithm the model should write.
type GenerateRequest struct {
	Description string
}

// RepairRequest carries the broken source plus the findings to address.
// Iteration is 1-based so the prompt can escalate its strategy.
type RepairRequest struct {
	Source        string
	Report        models.ValidationReport
	Iteration     int
	MaxIterations int
}
