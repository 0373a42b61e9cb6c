package main

import (
	"fmt"

	"github.com/bastiangx/linkserve/internal/utils"
	"github.com/bastiangx/linkserve/pkg/config"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	rebuildConfig    bool
	setDefaultLimit  int
	setMaxLimit      int
	setMaxNameLength int
)

// configCmd edits the [server] limits. A running server picks the change up
// through its config watcher.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update the server limits in the config file",
	RunE:  runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&rebuildConfig, "rebuild", false, "Overwrite the default config file with defaults")
	configCmd.Flags().IntVar(&setDefaultLimit, "default-limit", 0, "Set server.default_limit")
	configCmd.Flags().IntVar(&setMaxLimit, "max-limit", 0, "Set server.max_limit")
	configCmd.Flags().IntVar(&setMaxNameLength, "max-name-length", 0, "Set server.max_name_length")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	if rebuildConfig {
		if err := config.RebuildConfigFile(); err != nil {
			return fmt.Errorf("rebuild config: %w", err)
		}
		log.Print("Config rebuilt", "path", config.GetActiveConfigPath(""))
		return nil
	}

	cfg, path, err := config.LoadConfigWithPriority(configPath)
	if err != nil {
		return err
	}

	var defaultLimit, maxLimit, maxNameLength *int
	if cmd.Flags().Changed("default-limit") {
		defaultLimit = &setDefaultLimit
	}
	if cmd.Flags().Changed("max-limit") {
		maxLimit = &setMaxLimit
	}
	if cmd.Flags().Changed("max-name-length") {
		maxNameLength = &setMaxNameLength
	}

	if defaultLimit != nil || maxLimit != nil || maxNameLength != nil {
		if path == "" {
			return fmt.Errorf("no config file to update")
		}
		// edit the file as written, without env overrides or resolved paths
		onDisk := config.DefaultConfig()
		if err := utils.LoadTOMLFile(path, onDisk); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if err := onDisk.UpdateServer(path, defaultLimit, maxLimit, maxNameLength); err != nil {
			return fmt.Errorf("update config: %w", err)
		}
		cfg.Server = onDisk.Server
	}

	s := cfg.Server
	log.Print("Config", "path", config.GetActiveConfigPath(path))
	log.Print("Server", "codec", s.Codec, "default_limit", s.DefaultLimit, "max_limit", s.MaxLimit,
		"default_kg", s.DefaultKG, "max_name_length", s.MaxNameLength, "workers", s.Workers)
	return nil
}
