// Package mcp exposes the assistant as Model Context Protocol tools.
package mcp

import "github.com/bull/portfolio-buddy/internal/assistant"

// AskInput defines the input parameters for the ask_buddy tool.
type AskInput struct {
	// Question is asked verbatim, exactly as a recruiter would type it into the page.
	Question string `json:"question" jsonschema:"The question about the candidate, e.g. What are her main skills?"`
}

// AskOutput contains the generated answer.
type AskOutput struct {
	Answer  string             `json:"answer"`
	Sources []assistant.Source `json:"sources"`
}

// StatusInput defines the input parameters for the get_index_status tool.
type StatusInput struct{}

// StatusOutput describes the index the assistant answers from.
type StatusOutput struct {
	Source         string `json:"source"`
	Backend        string `json:"backend"`
	Chunks         int    `json:"chunks"`
	EmbeddingModel string `json:"embedding_model"`
	Dimension      int    `json:"dimension"`
	BuiltAt        string `json:"built_at"`
	Healthy        bool   `json:"healthy"`
	Error          string `json:"error,omitempty"`
}
