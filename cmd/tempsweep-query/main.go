package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"text/tabwriter"

	"tempsweep/internal/database"
	"tempsweep/internal/exitcodes"
)

func main() {
	dbPath := flag.String("db", "/var/lib/tempsweep/history.db", "Path to run history database")
	recent := flag.Int("recent", 0, "Show N most recent passes")
	stats := flag.Bool("stats", false, "Show housekeeping statistics")
	action := flag.String("action", "", "Filter by action (PURGE, SKIP, SWEEP, ERROR)")
	dirPattern := flag.String("dir", "", "Filter by directory pattern (SQL LIKE syntax)")
	top := flag.Int("top", 0, "Show N directories with the most removals")
	prune := flag.Int("prune", 0, "Delete records older than N days, then vacuum")
	days := flag.Int("days", 30, "Number of days for statistics")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	db, err := database.NewHistoryDB(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	out := os.Stdout
	switch {
	case *stats:
		err = showStats(out, db, *days, *jsonOutput)
	case *recent > 0:
		err = showRuns(out, "", *jsonOutput)(db.GetRecentRuns(*recent))
	case *action != "":
		err = showRuns(out, "Passes with action: "+*action, *jsonOutput)(db.GetRunsByAction(*action))
	case *dirPattern != "":
		err = showRuns(out, "Passes matching directory pattern: "+*dirPattern, *jsonOutput)(db.GetRunsByDirectory(*dirPattern))
	case *top > 0:
		err = showTop(out, db, *top, *jsonOutput)
	case *prune > 0:
		err = pruneHistory(out, db, *prune)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  tempsweep-query --recent 10            # Show 10 most recent passes")
		fmt.Println("  tempsweep-query --stats --days 7       # Show statistics for the last week")
		fmt.Println("  tempsweep-query --action SKIP          # Show purges skipped for a missing sentinel")
		fmt.Println("  tempsweep-query --dir '/var/tmp/%'     # Show passes over /var/tmp")
		fmt.Println("  tempsweep-query --top 5                # Show the 5 busiest directories")
		fmt.Println("  tempsweep-query --prune 90             # Drop history older than 90 days")
		os.Exit(exitcodes.InvalidConfig)
	}

	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func showStats(w io.Writer, db *database.HistoryDB, days int, jsonOutput bool) error {
	stats, err := db.GetRunStats(days)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	if jsonOutput {
		return writeJSON(w, stats)
	}

	fmt.Fprintf(w, "Housekeeping Statistics (Last %d days)\n", days)
	fmt.Fprintf(w, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Total Passes:     %d\n", stats.TotalRuns)
	fmt.Fprintf(w, "Skipped:          %d\n", stats.TotalSkipped)
	fmt.Fprintf(w, "Errors:           %d\n", stats.TotalErrors)
	fmt.Fprintf(w, "Expired:          %d\n", stats.TotalExpired)
	fmt.Fprintf(w, "Evicted:          %d\n", stats.TotalEvicted)
	fmt.Fprintf(w, "Reclaimed:        %d\n", stats.TotalReclaimed)
	fmt.Fprintf(w, "Failed Items:     %d\n\n", stats.TotalFailed)

	if len(stats.ByAction) > 0 {
		fmt.Fprintln(w, "By Action:")
		for _, action := range sortedKeys(stats.ByAction) {
			fmt.Fprintf(w, "  %-15s %d\n", action, stats.ByAction[action])
		}
	}
	return nil
}

// showRuns adapts a query result into printed output
func showRuns(w io.Writer, title string, jsonOutput bool) func([]database.RunRecord, error) error {
	return func(records []database.RunRecord, err error) error {
		if err != nil {
			return fmt.Errorf("failed to query history: %w", err)
		}
		if jsonOutput {
			return writeJSON(w, records)
		}
		if title != "" {
			fmt.Fprintf(w, "%s\n\n", title)
		}
		printRecords(w, records)
		return nil
	}
}

func showTop(w io.Writer, db *database.HistoryDB, limit int, jsonOutput bool) error {
	top, err := db.GetTopDirectoriesByRemovals(limit)
	if err != nil {
		return fmt.Errorf("failed to get top directories: %w", err)
	}
	if jsonOutput {
		return writeJSON(w, top)
	}

	dirs := sortedKeys(top)
	sort.SliceStable(dirs, func(i, j int) bool { return top[dirs[i]] > top[dirs[j]] })

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Removed\tDirectory")
	for _, d := range dirs {
		_, _ = fmt.Fprintf(tw, "%d\t%s\n", top[d], d)
	}
	return tw.Flush()
}

func pruneHistory(w io.Writer, db *database.HistoryDB, days int) error {
	n, err := db.DeleteOldRecords(days)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	if err := db.Vacuum(); err != nil {
		return fmt.Errorf("failed to vacuum: %w", err)
	}
	fmt.Fprintf(w, "Deleted %d records older than %d days\n", n, days)
	return nil
}

func printRecords(w io.Writer, records []database.RunRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTimestamp\tAction\tRemoved\tFailed\tDirectory\tError")
	_, _ = fmt.Fprintln(tw, "--\t---------\t------\t-------\t------\t---------\t-----")

	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Action, r.Removed(), r.Failed, r.Directory, r.ErrorMessage)
	}
	_ = tw.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
