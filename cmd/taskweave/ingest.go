package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskweave/taskweave/internal/config"
	"github.com/taskweave/taskweave/internal/retrieval"
	"github.com/taskweave/taskweave/internal/store"
	"github.com/taskweave/taskweave/pkg/models"
)

var (
	ingestProject   string
	ingestSource    string
	ingestType      string
	ingestStrategy  string
	ingestChunkSize int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|->",
	Short: "Ingest a document into the artifact store",
	Long: `Ingest a document into the artifact store for later retrieval.

The content is split into chunks, each chunk is embedded via the configured
embedding provider, and the resulting artifacts are persisted. Chunks whose
embedding fails are skipped; the rest are still stored.

Chunk strategies (--strategy):
  paragraph  Split on blank lines (default)
  sentence   Split on sentence boundaries
  fixed      Fixed-size chunks of --chunk-size characters
  whole      One chunk for the whole document

Use '-' to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestProject, "project", "default", "Project scope for the artifacts")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "Source identifier (defaults to the file name)")
	ingestCmd.Flags().StringVar(&ingestType, "type", "file", "Source type: prd, file, web_research, or user_input")
	ingestCmd.Flags().StringVar(&ingestStrategy, "strategy", "paragraph", "Chunk strategy: paragraph, sentence, fixed, or whole")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 500, "Chunk size in characters for --strategy fixed")
}

func runIngest(cmd *cobra.Command, args []string) error {
	sourceType := models.SourceType(ingestType)
	if !sourceType.Valid() {
		return fmt.Errorf("unknown source type %q", ingestType)
	}

	strategy, err := parseStrategy(ingestStrategy, ingestChunkSize)
	if err != nil {
		return err
	}

	content, sourceID, err := readIngestInput(args[0])
	if err != nil {
		return err
	}
	if ingestSource != "" {
		sourceID = ingestSource
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	service := retrieval.NewService(registry, store.NewArtifactStore(db), ingestProject)

	result, err := service.Ingest(cmd.Context(), content, sourceType, sourceID, strategy)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	fmt.Printf("%s Ingested %d artifacts from %s (%s)\n",
		color.GreenString("✓"), len(result.ArtifactIDs), sourceID, strategy)
	if result.Skipped > 0 {
		fmt.Printf("%s %d chunks skipped (embedding failed)\n", color.YellowString("⚠"), result.Skipped)
	}
	return nil
}

// readIngestInput reads the document content and derives a source ID.
func readIngestInput(arg string) (content, sourceID string, err error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", arg, err)
	}
	return string(data), filepath.Base(arg), nil
}

func parseStrategy(name string, size int) (retrieval.Strategy, error) {
	switch name {
	case "paragraph":
		return retrieval.Paragraph(), nil
	case "sentence":
		return retrieval.Sentence(), nil
	case "fixed":
		return retrieval.FixedSize(size), nil
	case "whole":
		return retrieval.WholeFile(), nil
	default:
		return retrieval.Strategy{}, fmt.Errorf("unknown chunk strategy %q", name)
	}
}
