package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
)

// watchReader is the watchable source, injected via SetWatchReader.
var watchReader driven.WatchableReader

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the generated-document directory and resync on change",
	Long: `Runs an initial sync of the generated-document source, then stays
resident and re-runs the sync whenever the directory changes. Stop with
Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// SetWatchReader injects the watchable source used by the watch command.
func SetWatchReader(reader driven.WatchableReader) {
	watchReader = reader
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if syncRunner == nil {
		return errors.New("sync service not configured")
	}
	if watchReader == nil {
		return errors.New("watch source not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kind := watchReader.Kind()

	cmd.Printf("Initial sync of %s...\n", kind)
	if summary, err := syncRunner.Run(ctx, kind); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	} else {
		printSummary(cmd, summary)
	}

	signals, err := watchReader.Watch(ctx)
	if err != nil {
		return fmt.Errorf("start watch: %w", err)
	}

	cmd.Println("Watching for changes (Ctrl-C to stop)...")
	for {
		select {
		case <-ctx.Done():
			cmd.Println("Stopped.")
			return nil
		case _, ok := <-signals:
			if !ok {
				return errors.New("watcher stopped unexpectedly")
			}
			cmd.Println("Change detected, resyncing...")
			summary, err := syncRunner.Run(ctx, kind)
			if err != nil {
				// Keep watching; the next change gets another chance.
				cmd.Printf("Resync failed: %v\n", err)
				continue
			}
			printSummary(cmd, summary)
		}
	}
}
