package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaClient talks to a local Ollama daemon. Useful for running the
// pipeline without any cloud credentials.
type OllamaClient struct {
	Host  string
	Model string
}

func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return c.complete(ctx, BuildGenerationPrompt(req.Description))
}

func (c *OllamaClient) Repair(ctx context.Context, req RepairRequest) (string, error) {
	return c.complete(ctx, BuildRepairPrompt(req))
}

func (c *OllamaClient) complete(ctx context.Context, prompt string) (string, error) {
	client, err := c.apiClient()
	if err != nil {
		return "", err
	}
	stream := false
	var out strings.Builder
	err = client.Generate(ctx, &api.GenerateRequest{
		Model:  c.Model,
		Prompt: prompt,
		Stream: &stream,
	}, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

func (c *OllamaClient) apiClient() (*api.Client, error) {
	if c.Host == "" {
		return api.ClientFromEnvironment()
	}
	base, err := url.Parse(c.Host)
	if err != nil {
		return nil, err
	}
	return api.NewClient(base, http.DefaultClient), nil
}
