package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"newscluster/internal/cluster"
	"newscluster/internal/usecase"
)

var (
	inspectRunID string
	inspectDate  string
	inspectLabel int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the pairwise similarity inside one cluster of a run",
	Long: `Re-embed the articles of a stored run (cached vectors are reused) and
print the cosine similarity matrix of the articles sharing --label.

Examples:
  newscluster inspect --label 2                     # Latest run of the default window
  newscluster inspect --run 3f0c... --label 5       # A specific run
  newscluster inspect --date 2024-03-01 --label 1   # Latest run of a day`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectRunID, "run", "", "run id (default is the latest run of --date)")
	inspectCmd.Flags().StringVar(&inspectDate, "date", "", "run date (YYYY-MM-DD, default is source.lookback_days before today)")
	inspectCmd.Flags().IntVarP(&inspectLabel, "label", "l", 0, "cluster label to inspect")
	_ = inspectCmd.MarkFlagRequired("label")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()

	st, err := openState(cfg, dir)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := findRun(st, inspectRunID, inspectDate, cfg.Source.LookbackDays, time.Now())
	if err != nil {
		return err
	}

	emb, err := newEmbedder(cfg, st)
	if err != nil {
		return err
	}
	if emb.ModelName() != run.EmbeddingModel {
		fmt.Printf("Warning: run was embedded with %s, inspecting with %s\n", run.EmbeddingModel, emb.ModelName())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uc := usecase.NewClusterUseCase(nil, emb, nil, cluster.Options{}, "", cfg.Embedding.BatchSize)
	vectors, err := uc.Embed(ctx, run.Articles)
	if err != nil {
		return fmt.Errorf("failed to embed run articles: %w", err)
	}

	in, err := cluster.Inspect(run.Articles, vectors, inspectLabel, cluster.CosineSimilarity{})
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (%s), cluster %d: %d articles\n\n", run.ID, run.Date, in.Label, len(in.Articles))
	for i, a := range in.Articles {
		fmt.Printf("  [%d] %s\n", i, a.Title)
		if a.URL != "" {
			fmt.Printf("      %s\n", a.URL)
		}
	}

	fmt.Printf("\nCosine similarity:\n      ")
	for j := range in.Matrix {
		fmt.Printf("%7d", j)
	}
	fmt.Println()
	for i, row := range in.Matrix {
		fmt.Printf("  %3d ", i)
		for _, v := range row {
			fmt.Printf("%7.3f", v)
		}
		fmt.Println()
	}

	fmt.Printf("\nCohesion: %.4f\n", in.Cohesion())
	return nil
}
