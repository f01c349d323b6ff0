package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/transitmap/pkg/buildinfo"
	"github.com/matzehuels/transitmap/pkg/cache"
	"github.com/matzehuels/transitmap/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "transitmap"

	// envCacheURL overrides the CLI cache backend (see cache.Open).
	envCacheURL = "TRANSITMAP_CACHE_URL"

	// envLayerURL is the default layer store for layer commands.
	envLayerURL = "TRANSITMAP_LAYER_URL"
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

	// Out receives command output. Nil means os.Stdout.
	Out io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

func (c *CLI) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Transitmap turns transit networks into metro-map schematics",
		Long:         `Transitmap converts geographic transit line geometry into an orthogonal, metro-map style schematic while keeping every station, transfer and route.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.runCommand())
	root.AddCommand(c.batchCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.topologyCommand())
	root.AddCommand(c.crossingsCommand())
	root.AddCommand(c.layerCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, nil, c.Logger), nil
}

// newCache opens $TRANSITMAP_CACHE_URL, falling back to a file cache in
// cacheDir. A missing home directory disables caching.
func newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if u := os.Getenv(envCacheURL); u != "" {
		return cache.Open(ctx, u)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/transitmap/).
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

// defaultLayerURL returns $TRANSITMAP_LAYER_URL or a file store under
// XDG_DATA_HOME (~/.local/share/transitmap/layers).
func defaultLayerURL() string {
	if u := os.Getenv(envLayerURL); u != "" {
		return u
	}
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "mem://"
		}
		base = filepath.Join(home, ".local", "share")
	}
	return "file://" + filepath.Join(base, appName, "layers")
}

// =============================================================================
// Output Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatJSON}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// knownExts lists output extensions, longest first so ".routes.json" wins
// over ".json".
var knownExts = []string{".topology.svg", ".routes.json", ".geojson", ".json", ".svg", ".dot", ".png", ".pdf"}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input and adds a
// ".schematic" suffix. A known format extension on output is stripped.
func basePath(output, input string) string {
	if output == "" {
		if input == "-" || input == "" {
			return "schematic"
		}
		return strings.TrimSuffix(input, filepath.Ext(input)) + ".schematic"
	}
	for _, ext := range knownExts {
		if strings.HasSuffix(output, ext) {
			return strings.TrimSuffix(output, ext)
		}
	}
	return output
}

// outputPath returns the file an artifact is written to. A single format
// goes to output verbatim when one is given.
func outputPath(output, input, format string, single bool) string {
	if single && output != "" {
		return output
	}
	return basePath(output, input) + pipeline.FormatExt[format]
}

// writeArtifacts writes every artifact and prints the file names. An output
// of "-" streams a single artifact to stdout.
func (c *CLI) writeArtifacts(artifacts map[string][]byte, formats []string, output, input string) error {
	if output == "-" {
		if len(formats) != 1 {
			return fmt.Errorf("stdout output needs exactly one format, got %d", len(formats))
		}
		_, err := c.out().Write(artifacts[formats[0]])
		return err
	}
	for _, format := range formats {
		path := outputPath(output, input, format, len(formats) == 1)
		if err := os.WriteFile(path, artifacts[format], 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}
