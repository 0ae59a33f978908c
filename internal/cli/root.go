// Package cli implements the slidetranslate command line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/config"
)

var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "slidetranslate",
	Short: "Translate PowerPoint presentations with an LLM, keeping their layout",
	Long: `slidetranslate translates the text of .pptx presentations through an LLM
while leaving slide structure, formatting and hyperlinks intact.

Text frames, table cells, chart titles and chart labels are collected,
sent in concurrent batches and written back into a new file next to the
original, named <name>_<suffix>.pptx.

Configuration: ~/.slidetranslate/config.yaml (see "slidetranslate config").`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "slidetranslate %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.slidetranslate/config.yaml)")
	rootCmd.AddCommand(versionCmd)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newLoader returns the loader for --config or the default location.
func newLoader() (*config.Loader, error) {
	if cfgFile != "" {
		return config.NewLoaderWithPath(cfgFile), nil
	}
	return config.NewLoader()
}
