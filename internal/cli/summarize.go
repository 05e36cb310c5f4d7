package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"newscluster/config"
	"newscluster/internal/adapter/export"
	"newscluster/internal/domain"
	"newscluster/internal/usecase"
)

var (
	summarizeDaysAgo int
	summarizeSince   string
	summarizeInput   string
	summarizeRunID   string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize the clusters of a run with the llama.cpp server",
	Long: `Ask the configured llama.cpp server for a title and a short summary of
every kept cluster. Articles come from --input (a cluster export), from
--run, or from the latest run recorded for the day.

Examples:
  newscluster summarize                                  # Latest run for yesterday
  newscluster summarize --run 3f0c...                    # A specific run
  newscluster summarize --input output/news-clusters.csv # An exported file`,
	Args: cobra.NoArgs,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().IntVar(&summarizeDaysAgo, "days-ago", 0, "day of the run, counted back from today (default source.lookback_days)")
	summarizeCmd.Flags().StringVar(&summarizeSince, "since", "", "day of the run (YYYY-MM-DD)")
	summarizeCmd.Flags().StringVarP(&summarizeInput, "input", "i", "", "read clustered articles from this export instead of the state store")
	summarizeCmd.Flags().StringVar(&summarizeRunID, "run", "", "summarize the run with this id")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()

	daysAgo := cfg.Source.LookbackDays
	if cmd.Flags().Changed("days-ago") {
		daysAgo = summarizeDaysAgo
	}
	day, err := windowStart(time.Now(), summarizeSince, daysAgo)
	if err != nil {
		return err
	}

	articles, err := loadClustered(cfg, dir, day)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Println("No clustered articles to summarize.")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newLLM(cfg)
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("llama.cpp server not reachable at %s: %w", cfg.Summarize.APIURL, err)
	}

	uc := usecase.NewSummarizeUseCase(client, cfg.Summarize.SystemPrompt, cfg.Summarize.MaxPromptChars)
	result, err := uc.Summarize(ctx, articles)
	if err != nil {
		return fmt.Errorf("summarizing failed: %w", err)
	}

	out := filepath.Join(outputDir(cfg, dir), export.SummariesFileName(day))
	if err := export.WriteSummariesFile(out, result.Summaries); err != nil {
		return fmt.Errorf("failed to write summaries: %w", err)
	}

	stats := client.GetStats()
	fmt.Printf("\nSummaries complete:\n")
	fmt.Printf("  Clusters summarized: %d\n", len(result.Summaries))
	fmt.Printf("  Clusters skipped:    %d\n", len(result.Failed))
	fmt.Printf("  LLM calls:           %d\n", stats.TotalCalls)
	fmt.Printf("  Prompt chars:        %d\n", stats.TotalInputChars)
	fmt.Printf("\nWritten to: %s\n", out)
	return nil
}

// loadClustered returns labeled articles from --input, --run or the latest
// run recorded for day.
func loadClustered(cfg *config.Config, dir string, day time.Time) ([]domain.Article, error) {
	if summarizeInput != "" {
		articles, err := export.ReadArticlesFile(summarizeInput)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", summarizeInput, err)
		}
		return articles, nil
	}

	st, err := openState(cfg, dir)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	run, err := findRun(st, summarizeRunID, day.Format(time.DateOnly), 0, time.Now())
	if err != nil {
		return nil, err
	}
	return run.Articles, nil
}
