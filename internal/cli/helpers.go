package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/solvix/draftgate/internal/config"
	"github.com/solvix/draftgate/internal/guardrail"
	"github.com/solvix/draftgate/internal/llm"
	"github.com/solvix/draftgate/internal/model"
)

// loadContext reads a case context YAML file.
func loadContext(path string) (*model.CaseContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context: %w", err)
	}
	var cc model.CaseContext
	if err := yaml.Unmarshal(data, &cc); err != nil {
		return nil, fmt.Errorf("parse context: %w", err)
	}
	return &cc, nil
}

// loadExtracted reads an extracted-data YAML file, nil when path is empty.
func loadExtracted(path string) (*model.ExtractedData, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read extracted data: %w", err)
	}
	var e model.ExtractedData
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse extracted data: %w", err)
	}
	return &e, nil
}

// readInput reads a file, or stdin when path is "-" or empty.
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// providerClient builds an LLM client from config. Errors when no provider
// endpoint is configured; commands that can run deterministically should
// not call this.
func providerClient(cfg *config.Config) (llm.Client, error) {
	if cfg.Provider.APIURL == "" {
		return nil, fmt.Errorf("no LLM provider configured: set provider.api_url in the config file")
	}
	return llm.New(llm.Config{
		APIURL:    cfg.Provider.APIURL,
		APIKey:    cfg.Provider.APIKey(),
		Model:     cfg.Provider.Model,
		MaxTokens: cfg.Provider.MaxTokens,
		Timeout:   cfg.Provider.Timeout.Std(),
	}), nil
}

// buildPipeline assembles the guardrail pipeline per config. The entity
// adjudicator is wired only when adjudication is enabled and a provider
// is configured; otherwise the entity check runs deterministically.
func buildPipeline(cfg *config.Config) *guardrail.Pipeline {
	var adj guardrail.Adjudicator
	if cfg.Guardrails.EntityAdjudication && cfg.Provider.APIURL != "" {
		client, err := providerClient(cfg)
		if err == nil {
			adj = llm.NewEntityAdjudicator(client)
		}
	}
	p := guardrail.NewPipeline(guardrail.DefaultGuardrails(adj)...)
	p.FailFast = cfg.Guardrails.FailFast
	if cfg.Guardrails.RetryThreshold > 0 {
		p.RetryThreshold = cfg.Guardrails.RetryThreshold
	}
	return p
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
