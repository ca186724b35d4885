package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/churn/pkg/churn/config"
	"github.com/jamesainslie/churn/pkg/churn/journal"
	"github.com/jamesainslie/churn/pkg/churn/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	Long: `View the history of churn runs.

The journal stores one record per run: when it ran, against which tree,
and how many of each action the workers performed.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Long:  `Display detailed information about a specific run by its ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove run records older than the retention period.`,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// openJournal returns the journal at the configured location.
func openJournal() (*journal.Journal, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	path := cfg.Journal.Path
	if path == "" {
		path = config.DefaultJournalPath()
	}

	j, err := journal.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening journal: %w", err)
	}
	return j, cfg, nil
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	j, _, err := openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	records, err := j.List(historyLimit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	if len(records) == 0 {
		printInfo("No runs recorded.")
		printInfo("Run 'churn [path]' to generate some activity.")
		return nil
	}

	fmt.Printf("\n%-36s  %-17s  %-9s  %-9s  %-10s\n", "ID", "START", "DURATION", "ACTIONS", "WRITTEN")
	fmt.Println(strings.Repeat("-", 92))

	for _, rec := range records {
		fmt.Printf("%-36s  %-17s  %-9s  %-9s  %-10s\n",
			rec.ID,
			rec.Start.Format("2006-01-02 15:04"),
			rec.Duration().Round(time.Second).String(),
			humanize.Comma(rec.Stats.Ticks),
			types.FormatSize(rec.Stats.BytesWritten),
		)
	}

	fmt.Println(strings.Repeat("-", 92))
	fmt.Printf("\nShowing %d entries. Use --limit to see more.\n", len(records))
	fmt.Println("Use 'churn history show <id>' for details on a specific run.")

	return nil
}

// runHistoryShow displays details of a specific run.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	j, _, err := openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	rec, err := j.Get(args[0])
	if err != nil {
		return fmt.Errorf("getting record: %w", err)
	}

	fmt.Println("\nRun Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:         %s\n", rec.ID)
	fmt.Printf("Start:      %s\n", rec.Start.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Duration:   %s\n", rec.Duration().Round(time.Second))
	fmt.Printf("Root:       %s\n", rec.Root)
	fmt.Printf("Workers:    %d\n", rec.Workers)

	fmt.Println("\nActions:")
	fmt.Println(strings.Repeat("-", 60))
	for a := types.ActionMkdir; a <= types.ActionRewrite; a++ {
		fmt.Printf("%-10s %s\n", a.String(), humanize.Comma(rec.Stats.Actions[a.String()]))
	}
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Ticks:      %s\n", humanize.Comma(rec.Stats.Ticks))
	fmt.Printf("Recoveries: %s\n", humanize.Comma(rec.Stats.Recoveries))
	fmt.Printf("Written:    %s\n", types.FormatSize(rec.Stats.BytesWritten))
	fmt.Printf("Freed:      %s\n", types.FormatSize(rec.Stats.BytesFreed))

	return nil
}

// runHistoryClean removes old run records.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	j, cfg, err := openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	retentionDays := cfg.Journal.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning run records older than %d days...", retentionDays)

	removed, err := j.Prune(retentionDays)
	if err != nil {
		return fmt.Errorf("cleaning history: %w", err)
	}

	printInfo("Removed %d record(s).", removed)
	return nil
}
