package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskweave/taskweave/internal/config"
	"github.com/taskweave/taskweave/internal/retrieval"
	"github.com/taskweave/taskweave/internal/store"
)

var (
	retrieveProject string
	retrieveTopK    int
	retrieveMinSim  float64
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Retrieve artifacts similar to a query",
	Long: `Retrieve the ingested artifacts most similar to a query.

The query is embedded via the configured embedding provider and compared
against stored artifact embeddings by cosine similarity.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().StringVar(&retrieveProject, "project", "default", "Project scope to search")
	retrieveCmd.Flags().IntVar(&retrieveTopK, "top-k", 5, "Maximum number of results")
	retrieveCmd.Flags().Float64Var(&retrieveMinSim, "min-similarity", 0.5, "Minimum cosine similarity")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
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

	service := retrieval.NewService(registry, store.NewArtifactStore(db), retrieveProject)

	query := strings.Join(args, " ")
	results := service.Retrieve(cmd.Context(), query, retrieveTopK, retrieveMinSim)
	if len(results) == 0 {
		fmt.Println("No matching artifacts.")
		return nil
	}

	for i, scored := range results {
		fmt.Printf("%s %s (similarity %.3f, source %s)\n",
			color.CyanString(fmt.Sprintf("%d.", i+1)),
			scored.Artifact.ID, scored.Similarity, scored.Artifact.SourceID)
		fmt.Printf("   %s\n", excerpt(scored.Artifact.Content, 200))
	}
	return nil
}

// excerpt flattens and truncates content for one-line display.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
