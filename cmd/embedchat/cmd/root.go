package cmd

import (
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	debug   bool
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "embedchat",
	Short: "Embeddable chat widget proxy",
	Long: `EmbedChat is the server side of an embeddable chat widget.

It forwards widget chat requests to an OpenAI-compatible completion
API, keeping the API key off the embedding page, and hosts a
WebSocket gateway for server-side widget sessions.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			charmlog.SetLevel(charmlog.DebugLevel)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.AddCommand(serveCmd)
}
