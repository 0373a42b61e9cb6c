package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// AppName names the config and data directories.
const AppName = "linkserve"

// IndexMappingsFile is the file a data directory is recognized by.
const IndexMappingsFile = "index_mappings.yaml"

// PathResolver locates the config file and the data directory of the service.
type PathResolver struct {
	executableDir string
	homeDir       string
	configDir     string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executableDir: filepath.Dir(execPath),
		homeDir:       homeDir,
		configDir:     configDirFor(homeDir),
	}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", pr.executableDir, pr.configDir)
	return pr, nil
}

// configDirFor returns the platform config directory below homeDir.
func configDirFor(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, AppName)
		}
		return filepath.Join(homeDir, ".config", AppName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", AppName)
	default:
		return filepath.Join(homeDir, ".config", AppName)
	}
}

// GetDataDir resolves the directory holding the index mappings file.
// Candidates in order: the given path as is, relative to the executable,
// then the executable and config data dirs. The first candidate is returned
// when none holds a mappings file, so errors name the path the user asked for.
func (pr *PathResolver) GetDataDir(userSpecifiedPath string) string {
	candidates := pr.dataDirCandidates(userSpecifiedPath)
	for _, path := range candidates {
		if IsDataDir(path) {
			log.Debugf("Found data directory: %s", path)
			return path
		}
		log.Debugf("Data directory candidate not valid: %s", path)
	}
	return candidates[0]
}

func (pr *PathResolver) dataDirCandidates(userSpecifiedPath string) []string {
	var candidates []string
	if userSpecifiedPath != "" {
		candidates = append(candidates, userSpecifiedPath)
		if !filepath.IsAbs(userSpecifiedPath) {
			candidates = append(candidates, filepath.Join(pr.executableDir, userSpecifiedPath))
		}
	}
	return append(candidates,
		filepath.Join(pr.executableDir, "data"),
		filepath.Join(pr.configDir, "data"),
	)
}

// IsDataDir reports whether path is a directory holding an index mappings file.
func IsDataDir(path string) bool {
	stat, err := os.Stat(path)
	if err != nil || !stat.IsDir() {
		return false
	}
	return FileExists(filepath.Join(path, IndexMappingsFile))
}

// GetConfigPath returns the full path for a config file, falling back to
// home and temp locations when the config directory is not writable.
func (pr *PathResolver) GetConfigPath(filename string) string {
	if IsWritableDir(pr.configDir) {
		return filepath.Join(pr.configDir, filename)
	}

	fallbackDirs := []string{
		filepath.Join(pr.homeDir, "."+AppName),
		filepath.Join(os.TempDir(), AppName),
		pr.executableDir,
	}
	for _, dir := range fallbackDirs {
		if IsWritableDir(dir) {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback config location: %s", path)
			return path
		}
	}

	tempPath := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary config file: %s", tempPath)
	return tempPath
}

// ResolveRelativePath resolves path against base unless it is absolute.
func ResolveRelativePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
