// Package cli provides the cobra command surface for the Corpora CLI. The
// commands are thin: they parse flags, call the driving ports and print
// results. Services are injected once at startup via SetServices so the
// commands stay decoupled from concrete adapters.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpora-cli/internal/core/ports/driving"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Injected services. Nil until SetServices is called.
var (
	syncRunner driving.SyncRunner
	router     driving.Router
	retriever  driving.Retriever
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "corpora",
	Short: "Incremental knowledge-base ingestion and retrieval",
	Long: `Corpora synchronises documents from configured sources into a vector
store and answers queries against it. Ingestion is incremental: unchanged
documents are skipped and changed documents replace their old chunks.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
}

// SetServices injects the driving services used by the commands.
func SetServices(sync driving.SyncRunner, route driving.Router, retrieve driving.Retriever) {
	syncRunner = sync
	router = route
	retriever = retrieve
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
