// Copyright 2025 The LinkServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the entity candidate lookup server and its CLI [DBG] tools.

Note: This is a BETA release. APIs and functionality may rapidly change.

LinkServe takes a mention, usually a table cell, and returns ranked candidate
entities of a knowledge graph. Candidates come from bleve indexes, get type
labels from a SQLite (or in-memory) store and carry string similarity and
ambiguity features for a downstream entity linker.

# Usage

Start the IPC server with default settings:

	linkserve

Use a custom config and data directory with debug logs:

	linkserve serve --config ./linkserve.toml --data ./data -d

Look up mentions once and print the candidates as JSON:

	linkserve lookup "Barack Obama" "Paris" --limit 5 --kg wikidata

Run the interactive mode for testing:

	linkserve cli --fuzzy

The data directory holds index_mappings.yaml, which lists the bleve indexes
of every knowledge graph:

	wikidata:
	  indexes:
	    entities: wikidata/entities.bleve
	    types: wikidata/types.bleve
	  indexes_to_filter_out: [types]

# Configuration

Runtime configuration lives in a TOML file, created with defaults if missing:

	[server]
	codec = "json"
	default_limit = 100
	max_limit = 1000
	default_kg = "wikidata"

	[store]
	driver = "sqlite"
	path = "linkserve.db"

	[cache]
	enabled = true

LINKSERVE_* environment variables override the file. In server mode the
[server] section is reloaded whenever the file changes.

# IPC Protocol

The server reads requests from stdin and writes responses to stdout, as JSON
lines or msgpack depending on server.codec. See package server for the messages.
*/
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/linkserve/internal/logger"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0-beta"
	AppName = "linkserve"
	gh      = "https://github.com/bastiangx/linkserve"
)

var (
	debugMode  bool
	logLevel   string
	configPath string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   AppName,
	Short: "LinkServe - entity candidate lookup for table annotation",
	Long: `LinkServe retrieves ranked candidate entities of a knowledge graph for a mention.
Without a subcommand it starts the stdin/stdout IPC server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Setup(debugMode)
		if logLevel != "" {
			log.SetLevel(logger.ParseLevel(logLevel))
		}
	},
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current version",
	Run: func(cmd *cobra.Command, args []string) {
		showVersion()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Toggle debug mode")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides -d")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a custom config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "Directory containing index_mappings.yaml")

	rootCmd.AddCommand(serveCmd, lookupCmd, cliCmd, versionCmd)
}

// sigHandler is a simple handler for OS signals to exit normally.
// onExit runs before the process ends.
func sigHandler(onExit func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		if onExit != nil {
			onExit()
		}
		os.Exit(0)
	}()
}

func showVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ LinkServe ] Entity candidates for every cell!")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// main only manages the flow, the commands call into the packages.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
