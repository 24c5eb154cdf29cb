package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

var (
	queryCategories []string
	queryNamespace  string
	queryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Query the knowledge base",
	Long: `Routes the query to a namespace and retrieves the most relevant
chunks. An ambiguous query searches every namespace and merges the
results. Use --namespace to bypass routing entirely.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringSliceVar(&queryCategories, "category", nil, "restrict results to content categories")
	queryCmd.Flags().StringVar(&queryNamespace, "namespace", "", "skip routing and search this namespace")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if router == nil || retriever == nil {
		return errors.New("query services not configured")
	}

	query := args[0]
	ctx := cmd.Context()

	var namespace domain.Namespace
	if queryNamespace != "" {
		ns, err := domain.ParseNamespace(queryNamespace)
		if err != nil {
			return err
		}
		namespace = ns
	} else {
		decision, err := router.Classify(ctx, query)
		if err != nil {
			return fmt.Errorf("routing failed: %w", err)
		}
		namespace = decision.Namespace
		if decision.Ambiguous() {
			cmd.Println("Routing: ambiguous, searching all namespaces")
		} else {
			cmd.Printf("Routing: %s\n", namespace)
		}
	}

	result, err := retriever.Retrieve(ctx, query, namespace, queryCategories)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if result.OutOfScope {
		cmd.Println("No relevant material found; the query looks out of scope.")
		return nil
	}

	for i, chunk := range result.Chunks {
		cmd.Printf("[%d] %s (%.3f, %s)\n", i+1, chunk.DocTitle, chunk.Score, chunk.Namespace)
		if chunk.SourceURL != "" {
			cmd.Printf("    %s\n", chunk.SourceURL)
		}
		cmd.Printf("    %s\n\n", snippet(chunk.Text, 200))
	}
	return nil
}

// snippet truncates text for terminal display.
func snippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
