package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/previewforge/previewforge/pkg/buildinfo"
	"github.com/previewforge/previewforge/pkg/cache"
	"github.com/previewforge/previewforge/pkg/dna"
	"github.com/previewforge/previewforge/pkg/pipeline"
	"github.com/previewforge/previewforge/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "previewforge"

	// apiKeyEnv is the environment variable holding the vision API key.
	apiKeyEnv = "GEMINI_API_KEY"
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
	Config Config

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Previewforge generates adaptive link-preview cards",
		Long:         `Previewforge is a CLI tool for generating social-media link-preview cards that adapt to a page's visual identity: it extracts a design profile, composes a card from it, validates readability, and re-targets the result for each platform.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: previewforge.toml, then XDG config dir)")

	// Register all subcommands
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.variantsCommand())
	root.AddCommand(c.platformsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. The extractor is only
// built when the vision API key is present; without it the pipeline runs
// on default design profiles.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	stageCache, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}

	var extractor *dna.Extractor
	if os.Getenv(apiKeyEnv) != "" {
		vision, err := dna.NewGeminiVision(ctx, "", c.Config.Model)
		if err != nil {
			return nil, err
		}
		extractor = dna.NewExtractor(vision, dna.WithLogger(c.Logger))
	} else {
		c.Logger.Warnf("%s not set, rendering with default design profiles", apiKeyEnv)
	}

	sink, err := c.newStore(ctx)
	if err != nil {
		return nil, err
	}

	return pipeline.NewRunner(stageCache, nil, extractor, sink, c.Logger), nil
}

// newCache selects the stage cache backend: Redis when configured, the
// XDG cache directory otherwise, a null cache when caching is off.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if addr := c.Config.Cache.RedisAddr; addr != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     addr,
			Password: c.Config.Cache.RedisPassword,
			DB:       c.Config.Cache.RedisDB,
		})
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newStore selects the result audit sink, nil when none is configured.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	if uri := c.Config.Store.MongoURI; uri != "" {
		db := c.Config.Store.MongoDB
		if db == "" {
			db = appName
		}
		ms, err := store.NewMongoStore(ctx, uri, db)
		if err != nil {
			return nil, err
		}
		return ms, nil
	}
	if dir := c.Config.Store.ResultsDir; dir != "" {
		fs, err := store.NewFileStore(dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
	return nil, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/previewforge/).
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
