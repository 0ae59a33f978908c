package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/llm"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the available translation providers",
	Long: `List the LLM providers that can translate presentations.

A provider is usable once the API key in its environment variable is set.
Ollama talks to a local server and needs no key.

Examples:
  slidetranslate translate deck.pptx --provider anthropic
  slidetranslate translate deck.pptx --model gpt-5.2`,
	Run: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "PROVIDER\tDEFAULT MODEL\tENV\tSTATUS\tDESCRIPTION")
	for _, s := range llm.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.Name, s.DefaultModel, s.EnvKey, checkProviderStatus(s), s.Description)
	}
}

func checkProviderStatus(s llm.Spec) string {
	if s.KeyOptional {
		return "✓ ready"
	}
	if os.Getenv(s.EnvKey) != "" {
		return "✓ set"
	}
	return "✗ not set"
}
