package cmd

import (
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/hoverbird/ingrid-core/pkg/dupeindex"
	"github.com/hoverbird/ingrid-core/pkg/gridtemplate"
	"github.com/hoverbird/ingrid-core/pkg/solver"
	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

var (
	benchTemplate           string
	benchWordlist           string
	benchRuns               int
	benchMinScore           int
	benchMaxSharedSubstring int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Repeatedly fill a template and report timing statistics",
	Long: `Bench runs the solver against the same template multiple times, reporting
each run's elapsed time (and, on success, its states and backtracks) as it
finishes, then the
failure count and elapsed-time min, median, P95 and max across the runs, useful for
judging how a template or wordlist change affects solver difficulty.

Example:
  fillctl bench --template grid.txt --wordlist words.txt --runs 20`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().StringVarP(&benchTemplate, "template", "t", "", "path to the grid template file (required)")
	benchCmd.Flags().StringVarP(&benchWordlist, "wordlist", "w", "", "path to the wordlist file, Peter Broda format (required)")
	benchCmd.Flags().IntVarP(&benchRuns, "runs", "n", 10, "number of times to run the solver")
	benchCmd.Flags().IntVar(&benchMinScore, "min-score", 50, "minimum word quality score to consider")
	benchCmd.Flags().IntVar(&benchMaxSharedSubstring, "max-shared-substring", 5, "shortest shared substring that marks two words as dupes")
}

type benchResult struct {
	elapsed    time.Duration
	states     int
	backtracks int
	failed     bool
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchTemplate == "" {
		return fmt.Errorf("--template flag is required")
	}
	if benchWordlist == "" {
		return fmt.Errorf("--wordlist flag is required")
	}

	words, err := wordlist.LoadBrodaWordlist(benchWordlist)
	if err != nil {
		return fmt.Errorf("failed to load wordlist: %w", err)
	}

	templateBytes, err := os.ReadFile(benchTemplate)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	grid, err := gridtemplate.Parse(string(templateBytes))
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	lengths := distinctLengths(grid)
	dupes, err := dupeindex.Build(words, lengths, benchMaxSharedSubstring)
	if err != nil {
		return fmt.Errorf("failed to build dupe index: %w", err)
	}

	results := make([]benchResult, 0, benchRuns)
	for i := 1; i <= benchRuns; i++ {
		fmt.Printf("[%d/%d] ", i, benchRuns)

		var abort atomic.Bool
		config, err := grid.ToConfig(words, dupes, benchMinScore, &abort)
		if err != nil {
			return fmt.Errorf("failed to build solver config: %w", err)
		}

		start := time.Now()
		success, failure := solver.FindFill(config)
		elapsed := time.Since(start)

		if failure != nil {
			fmt.Printf("FAILED (%s) in %s\n", failure, elapsed)
			results = append(results, benchResult{elapsed: elapsed, failed: true})
			continue
		}

		fmt.Printf("OK in %s (%d states, %d backtracks)\n", elapsed, success.Statistics.States, success.Statistics.Backtracks)
		results = append(results, benchResult{
			elapsed:    elapsed,
			states:     success.Statistics.States,
			backtracks: success.Statistics.Backtracks,
		})
	}

	printBenchSummary(results)
	return nil
}

func printBenchSummary(results []benchResult) {
	fmt.Printf("\nBench Summary\n")
	fmt.Printf("=============\n")

	failures := 0
	durations := make([]time.Duration, 0, len(results))
	for _, r := range results {
		if r.failed {
			failures++
			continue
		}
		durations = append(durations, r.elapsed)
	}

	fmt.Printf("Runs: %d (%d failed)\n", len(results), failures)
	if len(durations) == 0 {
		return
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p50 := durations[len(durations)/2]
	p95idx := int(float64(len(durations)) * 0.95)
	if p95idx >= len(durations) {
		p95idx = len(durations) - 1
	}
	p95 := durations[p95idx]

	fmt.Printf("Min:    %s\n", durations[0])
	fmt.Printf("Median: %s\n", p50)
	fmt.Printf("P95:    %s\n", p95)
	fmt.Printf("Max:    %s\n", durations[len(durations)-1])
}
