package main

import (
	"context"
	"os"

	"github.com/kikiluvv/clipseq/internal/config"
	"github.com/kikiluvv/clipseq/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	verbose  bool
	jsonLogs bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clipseq",
	Short: "clipseq - trimmed clip reading and sequence assembly",
	Long:  "Opens media files as trimmed clips, reads their packets pass after pass, lays clips out on a sequence timeline and exports them.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(logging.Options{Verbose: verbose, JSON: jsonLogs})

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./clipseq.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log as JSON lines")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(seqCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}
