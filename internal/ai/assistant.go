// Package ai defines the text-generation capability the pipeline stages depend on.
package ai

import "context"

// Generator produces a JSON document from a stage instruction and a payload.
// Implementations must be safe for concurrent use.
type Generator interface {
	GenerateJSON(ctx context.Context, instruction, payload string) (string, error)
	Model() string
}

// Provider names accepted in configuration.
const (
	ProviderGemini = "gemini"
)
