package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bastiangx/linkserve/internal/utils"
	"github.com/bastiangx/linkserve/pkg/config"
	"github.com/bastiangx/linkserve/pkg/lookup"
	"github.com/bastiangx/linkserve/pkg/search"
	"github.com/bastiangx/linkserve/pkg/store"
	"github.com/charmbracelet/log"
)

// app holds the wired components every command shares.
type app struct {
	config     *config.Config
	configPath string
	indexFile  string
	gateway    *search.Gateway
	store      store.Store
	retriever  *lookup.Retriever
}

// openApp loads the config, opens the indexes and the store and builds the retriever.
func openApp() (*app, error) {
	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Print("Either env is not set or system is not supported")
		return nil, fmt.Errorf("init path resolver: %w", err)
	}

	cfg, cfgPath, err := config.LoadConfigWithPriority(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log.Debugf("Using config file: (%s)", cfgPath)

	indexFile := resolveIndexFile(pathResolver, cfg.Search.IndexMappings, dataDir)
	log.Debugf("Using index mappings at: %s", indexFile)

	mappings, err := search.LoadIndexMappings(indexFile)
	if err != nil {
		return nil, err
	}
	gateway, err := search.Open(mappings)
	if err != nil {
		return nil, err
	}

	st, err := store.New(store.Options{
		Driver:     cfg.Store.Driver,
		Path:       cfg.Store.Path,
		MaxEntries: cfg.Cache.MaxEntries,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open store: %w", err), gateway.Close())
	}

	var cache lookup.Cache
	if cfg.Cache.Enabled {
		cache = lookup.NewStoreCache(st)
	} else {
		log.Debug("Result cache disabled")
	}

	retriever := lookup.NewRetriever(lookup.Options{
		Gateway:       gateway,
		Store:         st,
		Cache:         cache,
		FallbackLimit: cfg.Search.FallbackLimit,
		IDsLimit:      cfg.Search.IDsLimit,
		Workers:       cfg.Server.Workers,
	})

	return &app{
		config:     cfg,
		configPath: cfgPath,
		indexFile:  indexFile,
		gateway:    gateway,
		store:      st,
		retriever:  retriever,
	}, nil
}

// resolveIndexFile picks the index mappings file. An explicit data dir wins,
// then the configured file, then the data dirs next to the binary and the config.
func resolveIndexFile(pr *utils.PathResolver, configured, dir string) string {
	if dir == "" && configured != "" && utils.FileExists(configured) {
		return configured
	}
	return filepath.Join(pr.GetDataDir(dir), utils.IndexMappingsFile)
}

func (a *app) Close() error {
	return errors.Join(a.gateway.Close(), a.store.Close())
}
