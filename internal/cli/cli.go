package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matzehuels/normalizr/pkg/buildinfo"
	"github.com/matzehuels/normalizr/pkg/cache"
	"github.com/matzehuels/normalizr/pkg/observability"
	"github.com/matzehuels/normalizr/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "normalizr"

	// envPrefix prefixes environment variables read as flag defaults.
	envPrefix = "NORMALIZR_"
)

// Cache backends selectable with --cache.
const (
	backendFile   = "file"
	backendSQLite = "sqlite"
	backendRedis  = "redis"
	backendNone   = "none"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	cacheBackend string
	redisURL     string
	metricsFile  string
	logFormat    string

	metrics *observability.Metrics
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level, formatText)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Normalizr flattens nested JSON into entity stores and back",
		Long: `Normalizr normalizes nested JSON documents into a flat store of entities keyed by
module, resource and id, driven by schema configs, and denormalizes such stores
back into nested documents.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.flushMetrics()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.cacheBackend, "cache", backendFile, "cache backend: file, sqlite, redis or none ($NORMALIZR_CACHE)")
	flags.StringVar(&c.redisURL, "redis-url", "", "Redis URL for --cache=redis ($NORMALIZR_REDIS_URL)")
	flags.StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit ($NORMALIZR_METRICS_FILE)")
	flags.StringVar(&c.logFormat, "log-format", formatText, "log format: text or json ($NORMALIZR_LOG_FORMAT)")

	root.AddCommand(c.normalizeCommand())
	root.AddCommand(c.denormalizeCommand())
	root.AddCommand(c.schemasCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// envFlags maps persistent flags to the variables that supply their
// defaults.
var envFlags = map[string]string{
	"cache":        "CACHE",
	"redis-url":    "REDIS_URL",
	"metrics-file": "METRICS_FILE",
	"log-format":   "LOG_FORMAT",
}

// setup runs before every command. Values from a .env file in the working
// directory only fill variables that are not already set, and variables only
// fill flags that were not given on the command line.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		c.Logger.Warn("ignoring .env", "error", err)
	}
	if err := applyEnv(cmd); err != nil {
		return err
	}
	if err := c.applyLogFormat(); err != nil {
		return err
	}
	if c.metricsFile != "" && c.metrics == nil {
		c.metrics = observability.NewMetrics()
		c.metrics.Install()
	}
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

func (c *CLI) applyLogFormat() error {
	switch c.logFormat {
	case formatText, "":
		c.Logger.SetFormatter(log.TextFormatter)
	case formatJSON:
		c.Logger.SetFormatter(log.JSONFormatter)
	default:
		return fmt.Errorf("invalid log format: %q (must be text or json)", c.logFormat)
	}
	return nil
}

func (c *CLI) flushMetrics() error {
	if c.metrics == nil || c.metricsFile == "" {
		return nil
	}
	if err := c.metrics.WriteTextfile(c.metricsFile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	c.Logger.Debug("wrote metrics", "path", c.metricsFile)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	backend := c.cacheBackend
	if noCache {
		backend = backendNone
	}
	cc, err := c.newCache(ctx, backend)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, nil, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, backend string) (cache.Cache, error) {
	switch backend {
	case backendNone:
		return cache.NewNullCache(), nil
	case backendRedis:
		if c.redisURL == "" {
			return nil, fmt.Errorf("--cache=redis needs --redis-url or %sREDIS_URL", envPrefix)
		}
		return cache.NewRedisCache(ctx, c.redisURL)
	}

	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	switch backend {
	case backendFile, "":
		return cache.NewFileCache(dir)
	case backendSQLite:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		return cache.NewSQLiteCache(sqlitePath(dir))
	}
	return nil, fmt.Errorf("invalid cache backend: %q (must be file, sqlite, redis or none)", backend)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/normalizr/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// sqlitePath returns the database file of the sqlite backend in dir.
func sqlitePath(dir string) string {
	return filepath.Join(dir, appName+".db")
}

func applyEnv(cmd *cobra.Command) error {
	flags := cmd.Flags()
	for name, env := range envFlags {
		if flags.Lookup(name) == nil || flags.Changed(name) {
			continue
		}
		if v, ok := os.LookupEnv(envPrefix + env); ok {
			if err := flags.Set(name, v); err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, env, err)
			}
		}
	}
	return nil
}
