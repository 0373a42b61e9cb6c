package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bastiangx/linkserve/internal/cli"
	"github.com/bastiangx/linkserve/pkg/config"
	"github.com/bastiangx/linkserve/pkg/lookup"
	"github.com/bastiangx/linkserve/pkg/server"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the IPC server on stdin/stdout (default)",
	RunE:  runServe,
}

var (
	lookupLimit int
	lookupKG    string
	lookupFuzzy bool
	lookupTypes []string
	lookupIDs   []string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <mention>...",
	Short: "Look up mentions once and print their candidates as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLookup,
}

var (
	cliLimit int
	cliKG    string
	cliFuzzy bool
)

var cliCmd = &cobra.Command{
	Use:   "cli",
	Short: "Run the interactive lookup mode -- useful for testing and debugging",
	RunE:  runCLI,
}

func init() {
	lookupCmd.Flags().IntVarP(&lookupLimit, "limit", "l", 0, "Number of candidates per mention (default from config)")
	lookupCmd.Flags().StringVar(&lookupKG, "kg", "", "Knowledge graph to search (default from config)")
	lookupCmd.Flags().BoolVar(&lookupFuzzy, "fuzzy", false, "Use fuzzy matching for the primary query")
	lookupCmd.Flags().StringSliceVar(&lookupTypes, "types", nil, "Type ids the candidates should have")
	lookupCmd.Flags().StringSliceVar(&lookupIDs, "ids", nil, "Entity ids to always retrieve")

	cliCmd.Flags().IntVarP(&cliLimit, "limit", "l", 0, "Number of candidates to show (default from config)")
	cliCmd.Flags().StringVar(&cliKG, "kg", "", "Knowledge graph to search (default from config)")
	cliCmd.Flags().BoolVar(&cliFuzzy, "fuzzy", false, "Start with fuzzy matching on")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	sigHandler(func() { a.Close() })

	srv, err := server.NewServer(server.Options{
		Lookup:  a.retriever,
		Graphs:  a.gateway,
		Limits:  a.config.Server,
		Version: Version,
		In:      os.Stdin,
		Out:     os.Stdout,
	})
	if err != nil {
		a.Close()
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if a.configPath != "" {
		go func() {
			if err := config.Watch(ctx, a.configPath, srv.UpdateLimits); err != nil {
				log.Warnf("Config reload disabled: %v", err)
			}
		}()
	}

	showStartupInfo(a)

	err = srv.Start(ctx)
	if cerr := a.Close(); cerr != nil {
		log.Warnf("Closing: %v", cerr)
	}
	return err
}

func runLookup(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p := lookup.Params{
		Limit: lookupLimit,
		KG:    lookupKG,
		Fuzzy: lookupFuzzy,
		Types: lookupTypes,
		IDs:   lookupIDs,
	}
	if p.Limit < 1 {
		p.Limit = a.config.Server.DefaultLimit
	}
	if p.KG == "" {
		p.KG = a.config.Server.DefaultKG
	}
	if !a.gateway.Has(p.KG) {
		return fmt.Errorf("unknown knowledge graph %q, have %v", p.KG, a.gateway.KGs())
	}

	results, err := a.retriever.LookupBatch(cmd.Context(), args, p)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func runCLI(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	sigHandler(func() { a.Close() })

	limit := a.config.CLI.DefaultLimit
	if cliLimit > 0 {
		limit = cliLimit
	}
	kg := a.config.CLI.DefaultKG
	if cliKG != "" {
		kg = cliKG
	}
	fuzzy := a.config.CLI.Fuzzy || cliFuzzy

	log.SetReportTimestamp(false)
	log.Debug("Input info:", "limit", limit, "kg", kg, "fuzzy", fuzzy)

	inputHandler := cli.NewInputHandler(a.retriever, limit, kg, fuzzy, os.Stdin, os.Stderr)
	if err := inputHandler.Start(cmd.Context()); err != nil {
		return fmt.Errorf("CLI error: %w", err)
	}
	return nil
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(a *app) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" LinkServe ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Infof("index mappings: ( %s )", a.indexFile)
	log.Infof("knowledge graphs: %v", a.gateway.KGs())
	log.Infof("store: %s ( %s )", a.config.Store.Driver, a.config.Store.Path)
	log.Infof("codec: %s", a.config.Server.Codec)
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
