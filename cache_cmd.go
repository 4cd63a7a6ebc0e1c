package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vishlabs/readaloud/tts"
)

var (
	clearCache bool

	cacheCmd = &cobra.Command{
		Use:     "cache",
		Short:   "Show or clear the synthesized audio cache",
		Example: paragraph("readaloud cache\nreadaloud cache --clear"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := tts.LoadConfigFromViper()
			if err != nil {
				return err //nolint:wrapcheck
			}
			if !cfg.Cache.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "The audio cache is disabled.")
				return nil
			}

			c, err := openCache(cfg.Cache)
			if err != nil {
				return err
			}
			defer c.Close() //nolint:errcheck

			if clearCache {
				if err := c.Clear(); err != nil {
					return fmt.Errorf("unable to clear cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cleared the audio cache.")
				return nil
			}

			dir, _ := cacheDir(cfg.Cache)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", keyword(dir), c.Stats())
			return nil
		},
	}
)

func init() {
	cacheCmd.Flags().BoolVar(&clearCache, "clear", false, "remove every cached clip")
}
