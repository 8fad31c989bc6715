// Package main provides the buddy CLI: the portfolio web server, one-shot
// questions, an MCP stdio server and a chunk inspector.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/portfolio-buddy/internal/app"
	"github.com/bull/portfolio-buddy/internal/config"
	"github.com/bull/portfolio-buddy/internal/logger"
)

var (
	documentPath string
	topK         int
)

var rootCmd = &cobra.Command{
	Use:   "buddy",
	Short: "Portfolio page with an AI assistant for recruiters",
	Long: `Buddy answers recruiters' questions about one person using their biography.

On every start the biography is loaded, split into chunks, embedded and indexed;
questions are answered from the most relevant chunks by a hosted chat model.

Configuration is read from the environment and from a .env file if present.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the index and serve the portfolio page",
	Long: `Builds the index, then serves:
  GET  /          portfolio page with the question form
  POST /api/ask   JSON question API
  GET  /health    vector store health
  /mcp            MCP over streamable HTTP

Environment variables:
  PORT            HTTP port (default: 8080)
  OPENAI_API_KEY  API key for embeddings and chat (required)
  DOCUMENT_PATH   Biography file (default: bio.txt)`,
	RunE: runServe,
}

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Build the index, answer one question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Build the index and serve MCP over stdio",
	RunE:  runMCP,
}

var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "Print how the biography is split, without calling any model",
	RunE:  runChunks,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&documentPath, "document", "", "biography path (overrides DOCUMENT_PATH)")
	rootCmd.PersistentFlags().IntVar(&topK, "top-k", 0, "chunks retrieved per question (overrides RETRIEVAL_TOP_K)")

	rootCmd.AddCommand(serveCmd, askCmd, mcpCmd, chunksCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment, applies flag overrides and sets up logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cmd.Flags().Changed("document") {
		cfg.Document.Path = documentPath
	}
	if cmd.Flags().Changed("top-k") {
		cfg.Retrieval.TopK = topK
	}
	logger.New(cfg.Log)
	return cfg, nil
}

// start validates the configuration and builds the application.
func start(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return app.New(cmd.Context(), cfg, nil)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := start(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.HTTPServer().ListenAndServe(cmd.Context(), ":"+a.Config.Port)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := start(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.Assistant.Ask(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for _, s := range answer.Sources {
			label := s.HeaderPath
			if label == "" {
				label = fmt.Sprintf("chunk %d", s.Index)
			}
			fmt.Fprintf(out, "  - %s (score %.3f)\n", label, s.Score)
		}
	}
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := start(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.MCPServer().Run(cmd.Context())
}

func runChunks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDocument(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	doc, chunks, err := app.Chunks(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d chunks\n\n", doc.Source, len(chunks))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tOFFSET\tRUNES\tSECTION\tSTART")
	for _, c := range chunks {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n", c.Index, c.Offset, len([]rune(c.Content)), c.HeaderPath, preview(c.Content))
	}
	return w.Flush()
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > 48 {
		return string(runes[:48]) + "…"
	}
	return s
}
