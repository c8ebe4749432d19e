package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ning0612/Filestate/internal/domain"
	"github.com/Ning0612/Filestate/internal/logger"
)

// DefaultDataDir holds the checksum database when no data_dir is
// configured
const DefaultDataDir = "/var/lib/filestate"

// Config represents the complete configuration for filestate
type Config struct {
	// DataDir is where the checksum database lives
	DataDir string `mapstructure:"data_dir"`

	// Log configures level, format and optional file output
	Log LogConfig `mapstructure:"log"`

	// Filebuckets define named backup repositories
	Filebuckets []Filebucket `mapstructure:"filebuckets"`

	// Resources define the managed paths and their desired attributes
	Resources []Resource `mapstructure:"resources"`
}

// LogConfig is the logging section of the configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Filebucket names a local backup repository
type Filebucket struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// Resource declares one managed path. Recurse and Backup stay untyped
// because the configuration format allows booleans, integers and
// strings for them; the resource layer normalizes. Mode is an octal
// string ("644") and must be quoted in YAML, a bare 0644 would decode
// as the decimal integer 420.
type Resource struct {
	Path       string `mapstructure:"path"`
	Ensure     string `mapstructure:"ensure"`
	Owner      string `mapstructure:"owner"`
	Group      string `mapstructure:"group"`
	Mode       string `mapstructure:"mode"`
	Source     string `mapstructure:"source"`
	Checksum   string `mapstructure:"checksum"`
	Recurse    any    `mapstructure:"recurse"`
	Backup     any    `mapstructure:"backup"`
	Filebucket string `mapstructure:"filebucket"`
	LinkMaker  bool   `mapstructure:"linkmaker"`
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	bucketNames := make(map[string]bool)
	for _, b := range c.Filebuckets {
		if b.Name == "" {
			return fmt.Errorf("%w: filebucket name cannot be empty", domain.ErrConfigInvalid)
		}
		if bucketNames[b.Name] {
			return fmt.Errorf("%w: duplicate filebucket name: %s", domain.ErrConfigInvalid, b.Name)
		}
		if b.Path == "" {
			return fmt.Errorf("%w: filebucket %s has no path", domain.ErrConfigInvalid, b.Name)
		}
		bucketNames[b.Name] = true
	}

	paths := make(map[string]bool)
	for _, r := range c.Resources {
		if r.Path == "" {
			return fmt.Errorf("%w: resource path cannot be empty", domain.ErrConfigInvalid)
		}
		if !filepath.IsAbs(r.Path) {
			return fmt.Errorf("%w: resource path must be absolute: %s", domain.ErrConfigInvalid, r.Path)
		}
		clean := filepath.Clean(r.Path)
		if paths[clean] {
			return fmt.Errorf("%w: duplicate resource path: %s", domain.ErrConfigInvalid, r.Path)
		}
		if r.Checksum != "" && !domain.CheckType(r.Checksum).IsValid() {
			return fmt.Errorf("%w: resource %s: unknown checksum type: %s",
				domain.ErrConfigInvalid, r.Path, r.Checksum)
		}
		if r.Filebucket != "" && !bucketNames[r.Filebucket] {
			return fmt.Errorf("%w: resource %s references unknown filebucket: %s",
				domain.ErrConfigInvalid, r.Path, r.Filebucket)
		}
		paths[clean] = true
	}

	return nil
}

// LoggerConfig translates the log section into the logger's own config
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:   logger.ParseLevel(c.Log.Level),
		Format:  logger.ParseFormat(c.Log.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}
	if c.Log.File != "" {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       c.Log.File,
			MaxSizeMB:  50,
			MaxAgeDays: 30,
			MaxBackups: 5,
		}
	}
	return cfg
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
