package main

import (
	"fmt"
	"time"

	"github.com/bastiangx/linkserve/pkg/config"
	"github.com/bastiangx/linkserve/pkg/store"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var purgeOlderThan time.Duration

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove cached lookups not accessed recently from the SQLite store",
	RunE:  runPurge,
}

func init() {
	purgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 30*24*time.Hour, "Age of the last access after which entries are removed")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.LoadConfigWithPriority(configPath)
	if err != nil {
		return err
	}
	if driver := store.DriverOf(cfg.Store.Driver); driver != store.DriverSQLite {
		return fmt.Errorf("purge needs the %s store, configured driver is %s", store.DriverSQLite, driver)
	}

	st, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := st.PurgeCache(cmd.Context(), time.Now().Add(-purgeOlderThan))
	if err != nil {
		return err
	}
	log.Print("Purged cache", "removed", removed, "path", cfg.Store.Path)
	return nil
}
