package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rhuss/autoif/pkg/cache"
	"github.com/rhuss/autoif/pkg/pipeline/stages"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect stage caches",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show in-progress stages and their cached item counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		root := cache.Root{Dir: cfg.Pipeline.CacheDir}
		steps, err := root.InProgress()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(steps) == 0 {
			fmt.Fprintf(out, "no stages in progress under %s\n", cfg.Pipeline.CacheDir)
			return nil
		}

		all := stages.All()
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STEP\tSTAGE\tCACHED\tDIR")
		for _, step := range steps {
			name := "unknown"
			if step >= 1 && step <= len(all) {
				name = all[step-1].Name()
			}
			n, err := cachedCount(root, step)
			if err != nil {
				return fmt.Errorf("stage %d: %w", step, err)
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", step, name, n, root.StageDir(step))
		}
		return w.Flush()
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
}

func cachedCount(root cache.Root, step int) (int, error) {
	c, err := root.Open(step)
	if err != nil {
		return 0, err
	}
	defer c.Close()
	return c.Len()
}
