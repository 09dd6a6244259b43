package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/common"
	"github.com/ternarybob/signum/internal/ingest"
	"github.com/ternarybob/signum/internal/interfaces"
	"github.com/ternarybob/signum/internal/query"
	"github.com/ternarybob/signum/internal/semantic"
	"github.com/ternarybob/signum/internal/storage/sqlite"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	dropDir      = flag.String("dir", "", "Drop directory (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: signum [flags] <command>

Commands:
  ingest            Process every document in the drop directory once
  query "<text>"    Answer one research query
  watch             Process the drop directory on the configured schedule

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Signum version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("signum.toml"); err == nil {
			configFiles = append(configFiles, "signum.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if *dropDir != "" {
		config.Ingest.DropDir = *dropDir
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "ingest":
		runIngest(ctx)
	case "query":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Error: query text is required")
			os.Exit(1)
		}
		runQuery(ctx, strings.Join(args[1:], " "))
	case "watch":
		runWatch(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", args[0])
		usage()
		os.Exit(1)
	}
}

// openStores opens the signal store and the semantic index. A signal
// store failure degrades to the unavailable manager so ingestion and
// semantic queries keep working.
func openStores() (*sqlite.Manager, interfaces.SemanticIndex) {
	store, err := sqlite.NewManager(logger, &config.Storage.SQLite)
	if err != nil {
		logger.Warn().Err(err).Msg("Signal store unavailable, continuing semantic-only")
		store = sqlite.NewUnavailableManager(logger)
	}

	index, err := semantic.NewIndex(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open semantic index")
		os.Exit(1)
	}

	return store, index
}

func runIngest(ctx context.Context) {
	store, index := openStores()
	defer store.Close()
	defer index.Close()

	service := ingest.NewService(logger, config, store, index)
	processed, err := service.ProcessDirectory(ctx, config.Ingest.DropDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("Ingest failed")
		os.Exit(1)
	}

	fmt.Printf("Processed %d document(s) from %s\n", processed, config.Ingest.DropDir)
}

func runQuery(ctx context.Context, text string) {
	store, index := openStores()
	defer store.Close()
	defer index.Close()

	dispatcher := query.NewDispatcher(logger, store, index, config.Query)
	result, err := dispatcher.Execute(ctx, text)
	if err != nil {
		logger.Fatal().Err(err).Msg("Query failed")
		os.Exit(1)
	}

	fmt.Printf("[%s %.2f]\n%s\n", result.Type, result.Confidence, result.Answer)
}

func runWatch(ctx context.Context) {
	store, index := openStores()
	defer store.Close()
	defer index.Close()

	service := ingest.NewService(logger, config, store, index)
	if err := service.Watch(ctx); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("Watch failed")
		os.Exit(1)
	}

	logger.Info().Msg("Shutting down")
}
