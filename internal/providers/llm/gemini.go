package llm

import (
	"context"
	"errors"
	"sync"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	APIKey string
	Model  string

	once  sync.Once
	model *genai.GenerativeModel
	err   error
}

func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return c.complete(ctx, BuildGenerationPrompt(req.Description))
}

func (c *GeminiClient) Repair(ctx context.Context, req RepairRequest) (string, error) {
	return c.complete(ctx, BuildRepairPrompt(req))
}

func (c *GeminiClient) complete(ctx context.Context, prompt string) (string, error) {
	c.once.Do(func() {
		client, err := genai.NewClient(ctx, option.WithAPIKey(c.APIKey))
		if err != nil {
			c.err = err
			return
		}
		c.model = client.GenerativeModel(c.Model)
	})
	if c.err != nil {
		return "", c.err
	}
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if txt := firstText(resp); txt != "" {
		return txt, nil
	}
	return "", errors.New("no candidates")
}

func firstText(r *genai.GenerateContentResponse) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
