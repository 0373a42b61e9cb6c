/*
Package config manages TOML config for LinkServe services.

Values come from built-in defaults, then the TOML file, then LINKSERVE_*
environment variables. A malformed file is recovered section by section.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bastiangx/linkserve/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/ilyakaznacheev/cleanenv"
)

// Codecs accepted by the IPC server.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Config holds the entire config structure
type Config struct {
	Server ServerConfig `toml:"server"`
	Search SearchConfig `toml:"search"`
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
	CLI    CliConfig    `toml:"cli"`
}

// ServerConfig has the request limits of the IPC server. These apply live on reload.
type ServerConfig struct {
	Codec         string `toml:"codec" env:"LINKSERVE_CODEC"`
	DefaultLimit  int    `toml:"default_limit" env:"LINKSERVE_DEFAULT_LIMIT"`
	MaxLimit      int    `toml:"max_limit" env:"LINKSERVE_MAX_LIMIT"`
	DefaultKG     string `toml:"default_kg" env:"LINKSERVE_DEFAULT_KG"`
	MaxNameLength int    `toml:"max_name_length" env:"LINKSERVE_MAX_NAME_LENGTH"`
	Workers       int    `toml:"workers" env:"LINKSERVE_WORKERS"`
}

// SearchConfig locates the indexes and sizes the secondary queries.
type SearchConfig struct {
	IndexMappings string `toml:"index_mappings" env:"LINKSERVE_INDEX_MAPPINGS"`
	FallbackLimit int    `toml:"fallback_limit" env:"LINKSERVE_FALLBACK_LIMIT"`
	IDsLimit      int    `toml:"ids_limit" env:"LINKSERVE_IDS_LIMIT"`
}

// StoreConfig selects the backing store.
type StoreConfig struct {
	Driver string `toml:"driver" env:"LINKSERVE_STORE_DRIVER"`
	Path   string `toml:"path" env:"LINKSERVE_STORE_PATH"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	Enabled    bool `toml:"enabled" env:"LINKSERVE_CACHE_ENABLED"`
	MaxEntries int  `toml:"max_entries" env:"LINKSERVE_CACHE_MAX_ENTRIES"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int    `toml:"default_limit"`
	DefaultKG    string `toml:"default_kg"`
	Fuzzy        bool   `toml:"fuzzy"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Codec:         CodecJSON,
			DefaultLimit:  100,
			MaxLimit:      1000,
			DefaultKG:     "wikidata",
			MaxNameLength: 500,
			Workers:       4,
		},
		Search: SearchConfig{
			IndexMappings: utils.IndexMappingsFile,
			FallbackLimit: 1000,
			IDsLimit:      1000,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "linkserve.db",
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 10000,
		},
		CLI: CliConfig{
			DefaultLimit: 10,
			DefaultKG:    "wikidata",
			Fuzzy:        false,
		},
	}
}

// Validate reports values no component can run with.
func (c *Config) Validate() error {
	s := c.Server
	switch {
	case !slices.Contains([]string{CodecJSON, CodecMsgpack}, s.Codec):
		return fmt.Errorf("server.codec must be %q or %q, got %q", CodecJSON, CodecMsgpack, s.Codec)
	case s.DefaultLimit < 1:
		return fmt.Errorf("server.default_limit must be positive, got %d", s.DefaultLimit)
	case s.MaxLimit < s.DefaultLimit:
		return fmt.Errorf("server.max_limit %d is below default_limit %d", s.MaxLimit, s.DefaultLimit)
	case s.MaxNameLength < 1:
		return fmt.Errorf("server.max_name_length must be positive, got %d", s.MaxNameLength)
	case s.DefaultKG == "":
		return fmt.Errorf("server.default_kg is empty")
	}
	return nil
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/linkserve
// 2. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		primaryPath := filepath.Join(homeDir, ".config", utils.AppName)
		if utils.IsWritableDir(primaryPath) {
			return primaryPath, nil
		}
	} else {
		log.Errorf("Failed to get home directory: %v", err)
	}

	execPath, err := os.Executable()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return filepath.Dir(execPath), nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: ~/.config/linkserve/config.toml
// 3. Builtin defaults
//
// Environment overrides are applied in every case.
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		config, err := withEnv(DefaultConfig())
		return config, "", err
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		return nil, "", err
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)
	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return withEnv(DefaultConfig())
	}

	if !utils.FileExists(configPath) {
		if err := SaveConfig(DefaultConfig(), configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
		} else {
			log.Debugf("Created default config file at: %s", configPath)
		}
		return withEnv(DefaultConfig())
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file, then applies environment overrides.
// Relative search and store paths are resolved against the file's directory.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		config = tryPartialParse(configPath)
	}

	config, err := withEnv(config)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(configPath)
	config.Search.IndexMappings = utils.ResolveRelativePath(base, config.Search.IndexMappings)
	if config.Store.Path != ":memory:" {
		config.Store.Path = utils.ResolveRelativePath(base, config.Store.Path)
	}
	return config, nil
}

// withEnv applies LINKSERVE_* variables and validates the result.
func withEnv(config *Config) (*Config, error) {
	if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// tryPartialParse keeps every well-typed value of a file that did not decode as a whole.
func tryPartialParse(configPath string) *Config {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "search"); ok {
		extractSearchConfig(section, &config.Search)
	}
	if section, ok := utils.ExtractSection(tempConfig, "store"); ok {
		extractStoreConfig(section, &config.Store)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cache"); ok {
		extractCacheConfig(section, &config.Cache)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	utils.Assign(data, "codec", &server.Codec)
	utils.Assign(data, "default_limit", &server.DefaultLimit)
	utils.Assign(data, "max_limit", &server.MaxLimit)
	utils.Assign(data, "default_kg", &server.DefaultKG)
	utils.Assign(data, "max_name_length", &server.MaxNameLength)
	utils.Assign(data, "workers", &server.Workers)
}

func extractSearchConfig(data map[string]any, search *SearchConfig) {
	utils.Assign(data, "index_mappings", &search.IndexMappings)
	utils.Assign(data, "fallback_limit", &search.FallbackLimit)
	utils.Assign(data, "ids_limit", &search.IDsLimit)
}

func extractStoreConfig(data map[string]any, store *StoreConfig) {
	utils.Assign(data, "driver", &store.Driver)
	utils.Assign(data, "path", &store.Path)
}

func extractCacheConfig(data map[string]any, cache *CacheConfig) {
	utils.Assign(data, "enabled", &cache.Enabled)
	utils.Assign(data, "max_entries", &cache.MaxEntries)
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	utils.Assign(data, "default_limit", &cli.DefaultLimit)
	utils.Assign(data, "default_kg", &cli.DefaultKG)
	utils.Assign(data, "fuzzy", &cli.Fuzzy)
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return err
	}
	return SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// UpdateServer changes the live server limits and saves to file
func (c *Config) UpdateServer(configPath string, defaultLimit, maxLimit, maxNameLength *int) error {
	server := &c.Server
	if defaultLimit != nil {
		server.DefaultLimit = *defaultLimit
	}
	if maxLimit != nil {
		server.MaxLimit = *maxLimit
	}
	if maxNameLength != nil {
		server.MaxNameLength = *maxNameLength
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return SaveConfig(c, configPath)
}
