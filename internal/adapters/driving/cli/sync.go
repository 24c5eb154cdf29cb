package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync [kind]",
	Short: "Synchronise documents from sources",
	Long: `Runs an incremental ingestion pass. If a source kind (drive, github,
localdocs) is given, only that kind is synchronised; otherwise all kinds
run. Unchanged documents are skipped based on the sync ledger.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncRunner == nil {
		return errors.New("sync service not configured")
	}

	// Ctrl-C cancels the run; in-flight documents finish and the ledger
	// is persisted with whatever was reconciled.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) > 0 {
		kind, err := domain.ParseSourceKind(args[0])
		if err != nil {
			return err
		}

		cmd.Printf("Synchronising %s...\n", kind)
		summary, err := syncRunner.Run(ctx, kind)
		if summary != nil {
			printSummary(cmd, summary)
		}
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		return nil
	}

	cmd.Println("Synchronising all sources...")
	summaries, err := syncRunner.RunAll(ctx)

	kinds := make([]domain.SourceKind, 0, len(summaries))
	for kind := range summaries {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, kind := range kinds {
		printSummary(cmd, summaries[kind])
	}

	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

func printSummary(cmd *cobra.Command, s *driving.SyncSummary) {
	cmd.Printf("%-10s %d documents: %d new, %d changed, %d skipped, %d errored\n",
		s.Kind, s.Total(), s.New, s.Changed, s.Skipped, s.Errored)
}
