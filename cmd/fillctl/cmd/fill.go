package cmd

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/hoverbird/ingrid-core/pkg/dupeindex"
	"github.com/hoverbird/ingrid-core/pkg/gridtemplate"
	"github.com/hoverbird/ingrid-core/pkg/solver"
	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

var (
	fillTemplate           string
	fillWordlist           string
	fillOutput             string
	fillMinScore           int
	fillMaxSharedSubstring int
	fillHistoryDB          string
	fillNoHistory          bool
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill a grid template with words",
	Long: `Fill reads a grid template and a Peter Broda-format wordlist, runs the
constraint solver, and writes the completed grid.

Examples:
  # Fill a template, writing the result to stdout
  fillctl fill --template grid.txt --wordlist words.txt

  # Fill with a higher quality floor and a looser dupe rule
  fillctl fill --template grid.txt --wordlist words.txt --min-score 70 --max-shared-substring 7`,
	RunE: runFill,
}

func init() {
	rootCmd.AddCommand(fillCmd)

	fillCmd.Flags().StringVarP(&fillTemplate, "template", "t", "", "path to the grid template file (required)")
	fillCmd.Flags().StringVarP(&fillWordlist, "wordlist", "w", "", "path to the wordlist file, Peter Broda format (required)")
	fillCmd.Flags().StringVarP(&fillOutput, "out", "o", "", "output file for the filled grid (default: stdout)")
	fillCmd.Flags().IntVar(&fillMinScore, "min-score", 50, "minimum word quality score to consider")
	fillCmd.Flags().IntVar(&fillMaxSharedSubstring, "max-shared-substring", 5, "shortest shared substring that marks two words as dupes")
	fillCmd.Flags().StringVar(&fillHistoryDB, "history-db", defaultHistoryDBPath, "local sqlite cache to append this run's outcome to")
	fillCmd.Flags().BoolVar(&fillNoHistory, "no-history", false, "skip recording this run in the history cache")
}

func runFill(cmd *cobra.Command, args []string) error {
	if fillTemplate == "" {
		return fmt.Errorf("--template flag is required")
	}
	if fillWordlist == "" {
		return fmt.Errorf("--wordlist flag is required")
	}

	logInfo("Loading wordlist from: %s", fillWordlist)
	words, err := wordlist.LoadBrodaWordlist(fillWordlist)
	if err != nil {
		return fmt.Errorf("failed to load wordlist: %w", err)
	}
	logInfo("Loaded %d words", words.Size())

	templateBytes, err := os.ReadFile(fillTemplate)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	grid, err := gridtemplate.Parse(string(templateBytes))
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	logInfo("Parsed template: %d slots", len(grid.Entries))

	dupes, err := dupeindex.Build(words, distinctLengths(grid), fillMaxSharedSubstring)
	if err != nil {
		return fmt.Errorf("failed to build dupe index: %w", err)
	}

	var abort atomic.Bool
	config, err := grid.ToConfig(words, dupes, fillMinScore, &abort)
	if err != nil {
		return fmt.Errorf("failed to build solver config: %w", err)
	}

	start := time.Now()
	success, failure := solver.FindFill(config)
	elapsed := time.Since(start)

	if failure != nil {
		recordFillOutcome(fillTemplate, false, 0, failure.Backtracks, 0, elapsed)
		return fmt.Errorf("fill failed: %w", failure)
	}

	logInfo("Filled in %s (%d states, %d backtracks, %d retries)",
		elapsed, success.Statistics.States, success.Statistics.Backtracks, success.Statistics.Retries)
	recordFillOutcome(fillTemplate, true, success.Statistics.States, success.Statistics.Backtracks, success.Statistics.Retries, elapsed)

	rendered := grid.Render(words, success.Choices)
	if fillOutput == "" {
		fmt.Println(rendered)
		return nil
	}
	if err := os.WriteFile(fillOutput, []byte(rendered+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Printf("Wrote filled grid to %s\n", fillOutput)
	return nil
}

// recordFillOutcome appends this run's outcome to the local history cache,
// unless --no-history was passed. Failures to open or write the cache are
// logged, not fatal — history is a convenience, not load-bearing.
func recordFillOutcome(templatePath string, succeeded bool, states, backtracks, retries int, elapsed time.Duration) {
	if fillNoHistory {
		return
	}

	db, err := openHistoryDB(fillHistoryDB)
	if err != nil {
		logInfo("history: %v", err)
		return
	}
	defer db.Close()

	if err := recordHistory(db, templatePath, succeeded, states, backtracks, retries, elapsed); err != nil {
		logInfo("history: failed to record run: %v", err)
	}
}

func distinctLengths(grid *gridtemplate.Grid) []int {
	seen := make(map[int]bool)
	var lengths []int
	for _, e := range grid.Entries {
		if !seen[e.Length] {
			seen[e.Length] = true
			lengths = append(lengths, e.Length)
		}
	}
	return lengths
}
