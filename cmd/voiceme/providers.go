package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers in priority order",
	Long:  `List every provider in PROVIDER_PRIORITY with its model and whether an API key is set.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer logger.Sync()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PRIORITY\tPROVIDER\tMODEL\tCONFIGURED")
		for i, name := range cfg.Providers.Priority {
			pc, _ := cfg.Providers.Get(name)
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", i+1, name, pc.Model, pc.Configured())
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if len(cfg.Providers.ConfiguredNames()) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "\nno provider has an API key; /ask will return 503")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
