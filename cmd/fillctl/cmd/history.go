package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

var historyDB string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display statistics from the local fill-run history cache",
	Long: `History reads the local sqlite cache that "fillctl fill" appends a record
to after every run (unless --no-history was passed), and reports:
  - total runs by outcome (succeeded, failed)
  - average states/backtracks across successful runs
  - the most recently run templates

Examples:
  # Show stats for the default cache location
  fillctl history

  # Show stats for a custom cache database
  fillctl history --db /path/to/fillctl_history.db`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyDB, "db", "d", "", "path to the history cache database (default: ./fillctl_history.db)")
}

const defaultHistoryDBPath = "./fillctl_history.db"

// openHistoryDB opens (creating if needed) the local sqlite cache fillctl
// fill appends run records to.
func openHistoryDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS fill_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		template_path TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		states INTEGER NOT NULL,
		backtracks INTEGER NOT NULL,
		retries INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		ran_at DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return db, nil
}

func recordHistory(db *sql.DB, templatePath string, succeeded bool, states, backtracks, retries int, elapsed time.Duration) error {
	_, err := db.Exec(`
		INSERT INTO fill_history (template_path, succeeded, states, backtracks, retries, elapsed_ms, ran_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, templatePath, boolToInt(succeeded), states, backtracks, retries, elapsed.Milliseconds(), time.Now())
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath := historyDB
	if dbPath == "" {
		dbPath = defaultHistoryDBPath
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("history database not found at %s (run \"fillctl fill\" at least once first)", dbPath)
	}

	db, err := openHistoryDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("\nFill History\n")
	fmt.Printf("============\n")
	fmt.Printf("Database: %s\n\n", dbPath)

	if err := displayOutcomeCounts(db); err != nil {
		return err
	}
	if err := displayAverages(db); err != nil {
		return err
	}
	return displayRecentRuns(db)
}

func displayOutcomeCounts(db *sql.DB) error {
	rows, err := db.Query(`SELECT succeeded, COUNT(*) FROM fill_history GROUP BY succeeded`)
	if err != nil {
		return fmt.Errorf("failed to query outcome counts: %w", err)
	}
	defer rows.Close()

	fmt.Println("Runs by outcome:")
	hasRows := false
	for rows.Next() {
		hasRows = true
		var succeeded, count int
		if err := rows.Scan(&succeeded, &count); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		label := "failed"
		if succeeded == 1 {
			label = "succeeded"
		}
		fmt.Printf("  %-10s: %d\n", label, count)
	}
	if !hasRows {
		fmt.Println("  No runs recorded")
	}
	fmt.Println()
	return rows.Err()
}

func displayAverages(db *sql.DB) error {
	var avgStates, avgBacktracks, avgElapsed float64
	var count int
	row := db.QueryRow(`
		SELECT COUNT(*), AVG(states), AVG(backtracks), AVG(elapsed_ms)
		FROM fill_history WHERE succeeded = 1
	`)
	if err := row.Scan(&count, &avgStates, &avgBacktracks, &avgElapsed); err != nil {
		return fmt.Errorf("failed to query averages: %w", err)
	}

	fmt.Println("Averages over successful runs:")
	if count == 0 {
		fmt.Println("  No successful runs recorded")
	} else {
		fmt.Printf("  States:     %.1f\n", avgStates)
		fmt.Printf("  Backtracks: %.1f\n", avgBacktracks)
		fmt.Printf("  Elapsed:    %.1fms\n", avgElapsed)
	}
	fmt.Println()
	return nil
}

func displayRecentRuns(db *sql.DB) error {
	rows, err := db.Query(`
		SELECT template_path, succeeded, states, backtracks, ran_at
		FROM fill_history ORDER BY ran_at DESC LIMIT 10
	`)
	if err != nil {
		return fmt.Errorf("failed to query recent runs: %w", err)
	}
	defer rows.Close()

	fmt.Println("Most recent runs:")
	hasRows := false
	for rows.Next() {
		hasRows = true
		var templatePath string
		var succeeded, states, backtracks int
		var ranAt time.Time
		if err := rows.Scan(&templatePath, &succeeded, &states, &backtracks, &ranAt); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		status := "FAILED"
		if succeeded == 1 {
			status = "OK"
		}
		fmt.Printf("  [%s] %-30s %s (%d states, %d backtracks)\n",
			ranAt.Format("2006-01-02 15:04:05"), templatePath, status, states, backtracks)
	}
	if !hasRows {
		fmt.Println("  No runs recorded")
	}
	return rows.Err()
}
