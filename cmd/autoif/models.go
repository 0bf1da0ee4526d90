package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models the generation backend serves",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		prov, err := newProvider(cfg.Engine)
		if err != nil {
			return err
		}
		defer prov.Close()

		models, err := prov.ListModels(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, m := range models {
			fmt.Fprintln(out, m.ID)
		}
		return nil
	},
}
