package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"newscluster/internal/port"
	"newscluster/internal/usecase"
)

var (
	clusterDaysAgo int
	clusterSince   string
	clusterNoSave  bool
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster the articles posted since a given day",
	Long: `Pull every article posted since the start of the given day, drop
duplicate bodies, embed the content and pick the cut threshold with the
best silhouette score. Clusters with more than one article are exported
to the output directory and recorded in .newscluster/state.db.

Examples:
  newscluster cluster                    # Articles since yesterday
  newscluster cluster --days-ago 3       # Articles from the last three days
  newscluster cluster --since 2024-03-01 # Articles since a fixed day`,
	Args: cobra.NoArgs,
	RunE: runCluster,
}

func init() {
	clusterCmd.Flags().IntVar(&clusterDaysAgo, "days-ago", 0, "start the window this many days before today (default source.lookback_days)")
	clusterCmd.Flags().StringVar(&clusterSince, "since", "", "start the window on this day (YYYY-MM-DD)")
	clusterCmd.Flags().BoolVar(&clusterNoSave, "no-save", false, "do not record the run in the state store")
	rootCmd.AddCommand(clusterCmd)
}

// windowStart resolves --since or --days-ago to local midnight.
func windowStart(now time.Time, since string, daysAgo int) (time.Time, error) {
	if since != "" {
		t, err := time.ParseInLocation(time.DateOnly, since, now.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --since %q: %w", since, err)
		}
		return t, nil
	}
	if daysAgo < 0 {
		return time.Time{}, fmt.Errorf("--days-ago must not be negative")
	}
	day := now.AddDate(0, 0, -daysAgo)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location()), nil
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()

	daysAgo := cfg.Source.LookbackDays
	if cmd.Flags().Changed("days-ago") {
		daysAgo = clusterDaysAgo
	}
	since, err := windowStart(time.Now(), clusterSince, daysAgo)
	if err != nil {
		return err
	}

	opts, err := cfg.Cluster.Options()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openState(cfg, dir)
	if err != nil {
		return err
	}
	defer st.Close()

	src, err := newSource(cfg, dir)
	if err != nil {
		return err
	}
	defer src.Close()

	emb, err := newEmbedder(cfg, st)
	if err != nil {
		return err
	}

	var runs port.RunStore
	if !clusterNoSave {
		runs = st
	}
	uc := usecase.NewClusterUseCase(src, emb, runs, opts, outputDir(cfg, dir), cfg.Embedding.BatchSize)

	fmt.Printf("Clustering articles posted since %s...\n", since.Format(time.DateOnly))

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	progress := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	result, err := uc.Cluster(ctx, since, progress)
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}

	run := result.Run
	fmt.Printf("\nClustering complete:\n")
	fmt.Printf("  Articles pulled:   %d\n", result.Pulled)
	fmt.Printf("  Unique articles:   %d\n", result.Unique)
	fmt.Printf("  Threshold:         %.2f\n", run.Threshold)
	fmt.Printf("  Silhouette score:  %.4f\n", run.Score)
	fmt.Printf("  Clusters found:    %d\n", run.NumClusters)
	fmt.Printf("  Clusters kept:     %d (%d articles)\n", run.KeptClusters, len(run.Articles))
	if !clusterNoSave {
		fmt.Printf("  Run id:            %s\n", run.ID)
	}
	if result.ExportPath != "" {
		fmt.Printf("\nExported to: %s\n", result.ExportPath)
	}
	return nil
}
