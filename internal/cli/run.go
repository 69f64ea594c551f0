// internal/cli/run.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/law-makers/crawlflow/internal/config"
	"github.com/law-makers/crawlflow/internal/dispatch"
	"github.com/law-makers/crawlflow/internal/engine/batch"
	"github.com/law-makers/crawlflow/internal/tasks"
	"github.com/law-makers/crawlflow/internal/ui"
	"github.com/law-makers/crawlflow/internal/utils/output"
)

var (
	runBatch    bool
	runURL      string
	runOutput   string
	runProgress bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <task> [task...]",
	Short: "Run one task, a batch, or a chain of tasks",
	Long: `Runs the named tasks. A single task runs its single unit, or all of its
units with --batch. Several tasks run as a chain in ascending task order: the
first stage runs once and every later stage runs as a batch built from the
results of the previous stage.`,
	Example: `  # Collect the links of a page
  crawlflow run links --url https://example.com

  # Render every linked page and save it as Markdown
  crawlflow run links article --url https://example.com --output pages.md

  # Fetch every configured URL through the proxy
  crawlflow run raw --batch --progress --output raw.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTasks,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runBatch, "batch", false, "Run all units of a single task")
	runCmd.Flags().StringVar(&runURL, "url", "", "Target URL of the first task, overriding its configuration")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "File path to save results (supports .json, .csv, .md)")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "Show batch progress")
}

// applyURLOverride points the first (lowest order) named task at url.
func applyURLOverride(cfg *config.Config, names []string, url string) {
	if url == "" || len(names) == 0 {
		return
	}
	first := names[0]
	for _, n := range names[1:] {
		if taskOrder(n) < taskOrder(first) {
			first = n
		}
	}
	switch first {
	case tasks.LinksTask:
		cfg.Tasks.Links.URLs = []string{url}
	case tasks.ArticleTask:
		cfg.Tasks.Article.URL = url
	case tasks.RawTask:
		cfg.Tasks.Raw.URLs = []string{url}
	case tasks.APITask:
		cfg.Tasks.API.URL = url
	}
}

func taskOrder(name string) int {
	switch name {
	case tasks.LinksTask, tasks.APITask:
		return 10
	case tasks.ArticleTask, tasks.RawTask:
		return 20
	}
	return 1 << 30
}

func runTasks(cmd *cobra.Command, args []string) error {
	a := GetApp()
	if a == nil {
		return fmt.Errorf("application not initialized")
	}
	ctx := cmd.Context()

	if runProgress {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("units"),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
		a.Orchestrator.OnOutcome = func(batch.Status) { _ = bar.Add(1) }
		defer func() { _ = bar.Finish() }()
	}

	var results []any
	if runBatch {
		if len(args) != 1 {
			return fmt.Errorf("--batch takes exactly one task")
		}
		report, err := a.Dispatcher.FetchBatch(ctx, args[0])
		if err != nil {
			return err
		}
		printReport(report)
		results = report.Results()
	} else {
		result, err := a.Dispatcher.FetchChain(ctx, args)
		if err != nil {
			return err
		}
		results = dispatch.Spread(result)
	}

	if runOutput != "" {
		if err := output.Save(results, runOutput); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		log.Info().Str("file", runOutput).Int("results", len(results)).Msg("Output saved")
		fmt.Fprintln(os.Stderr, ui.Success(fmt.Sprintf("✓ Saved %d results to %s", len(results), runOutput)))
		return nil
	}

	content, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Println(string(content))
	return nil
}

func printReport(r *batch.Report[any]) {
	fmt.Fprintf(os.Stderr, "%s %d ok, %d failed, %d cancelled in %s\n",
		ui.Bold("Batch "+r.BatchID+":"),
		r.Count(batch.StatusSuccess),
		r.Count(batch.StatusError),
		r.Count(batch.StatusCancelled),
		r.Elapsed.Round(time.Millisecond))
	if r.TimedOut {
		fmt.Fprintln(os.Stderr, ui.Info("  deadline reached, unfinished units were cancelled"))
	}
	for _, o := range r.Outcomes {
		if o.Status != batch.StatusSuccess {
			fmt.Fprintf(os.Stderr, "  %s %s: %v\n", ui.Status(string(o.Status)), o.URL, o.Err)
		}
	}
}
