package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/portfolio-buddy/internal/assistant"
	"github.com/bull/portfolio-buddy/internal/indexer"
	"github.com/bull/portfolio-buddy/internal/storage"
)

// makeAskHandler creates the ask_buddy tool handler.
// Errors are returned to the client as tool errors, never as a crash.
func makeAskHandler(asker Asker) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		answer, err := asker.Ask(ctx, input.Question)
		if err != nil {
			if errors.Is(err, assistant.ErrEmptyQuestion) {
				return nil, AskOutput{}, fmt.Errorf("question must not be empty")
			}
			return nil, AskOutput{}, fmt.Errorf("buddy is unable to generate an answer right now: %w", err)
		}

		sources := answer.Sources
		if sources == nil {
			sources = []assistant.Source{} // Ensure non-nil for JSON marshaling
		}
		return nil, AskOutput{Answer: answer.Text, Sources: sources}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// An unhealthy store is reported in the output rather than as a tool error.
func makeStatusHandler(
	store storage.VectorStore,
	index *indexer.IndexResult,
) func(context.Context, *mcp.CallToolRequest, StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		stats, err := store.Stats(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("failed to read index stats: %w", err)
		}

		out := StatusOutput{
			Backend:        stats.Backend,
			Chunks:         stats.Chunks,
			EmbeddingModel: stats.EmbeddingModel,
			Dimension:      stats.Dimension,
			Healthy:        true,
		}
		if index != nil {
			out.Source = index.Source
			out.BuiltAt = index.BuiltAt.UTC().Format(time.RFC3339)
		}

		if err := store.Health(ctx); err != nil {
			out.Healthy = false
			out.Error = err.Error()
		}
		return nil, out, nil
	}
}
