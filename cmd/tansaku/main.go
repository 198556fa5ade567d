// Package main is the Tansaku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/tansaku/internal/cli"
	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/metrics"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/internal/server"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/watcher"
	"github.com/hyperjump/tansaku/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tansaku/config.yaml"

// Search modes for the search subcommand.
const (
	modeAuto     = "auto"
	modeDSL      = "dsl"
	modeFullText = "fulltext"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "tansaku server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "import":
		runImport()
	case "delete":
		runDelete()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("tansaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (fallbacks, imports, watcher events)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchSvc := newWatcher(cfg, components.Indexer, logger, debugMode)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Dispatcher,
		components.Indexer,
		components.Storage,
		components.KeywordIndex,
		cfg,
		logger,
		watchSvc,
		resolvedConfigPath,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// newWatcher wires watcher events to imports: created or changed files are imported, removed
// files have their entities purged.
func newWatcher(cfg *config.Config, idx *indexer.Indexer, logger *zap.Logger, debug bool) *watcher.Watcher {
	exts := cfg.Watch.Extensions
	watchOpts := []watcher.WatcherOption{}
	if debug {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	return watcher.NewWatcher(
		cfg.Watch.Directories,
		exts,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			n, err := idx.ImportFile(context.Background(), path, exts)
			metrics.ObserveImport(n, err)
			if err != nil {
				logger.Warn("watch import file failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			if err := idx.RemoveSource(context.Background(), path); err != nil {
				logger.Warn("watch remove source failed", zap.String("path", path), zap.Error(err))
				return
			}
			metrics.ObserveSourceRemoved()
		},
		watchOpts...,
	)
}

// printSearchUsage prints search subcommand usage and query syntax hints.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: tansaku search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
DSL queries name an entity type, optionally followed by a filter and paging clauses:
  <type> [where <field:value ...>] [limit N] [offset M]
In auto mode a query that is not valid DSL is run as a full-text search instead.

Examples:
  tansaku search hive_table where owner:jane
  tansaku search "hive_table limit 5"
  tansaku search sales fact                        # not DSL, runs as full text
  tansaku search --mode fulltext --exclude-deleted sales
  tansaku search --output json --limit 20 hive_db
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "tansaku search hive_table --limit 5"
// would otherwise leave --limit unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// searchRequest holds the parsed search subcommand arguments.
type searchRequest struct {
	Mode           string
	Query          string
	Limit          int
	Offset         int
	ExcludeDeleted bool
}

// searchPath returns the API path for a search mode.
func searchPath(mode string) (string, error) {
	switch mode {
	case modeAuto:
		return "/api/discovery/search", nil
	case modeDSL:
		return "/api/discovery/search/dsl", nil
	case modeFullText:
		return "/api/discovery/search/fulltext", nil
	default:
		return "", fmt.Errorf("unknown search mode %q; use auto, dsl, or fulltext", mode)
	}
}

// searchURL builds the discovery URL for req. Unset limit and offset are left for the server to default.
func searchURL(serverURL string, req searchRequest) (string, error) {
	path, err := searchPath(req.Mode)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("query", req.Query)
	if req.Limit != models.Unset {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset != models.Unset {
		q.Set("offset", strconv.Itoa(req.Offset))
	}
	if req.Mode == modeFullText && req.ExcludeDeleted {
		q.Set("excludeDeletedEntities", "true")
	}
	return strings.TrimRight(serverURL, "/") + path + "?" + q.Encode(), nil
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	mode := fs.String("mode", modeAuto, "search mode: auto (DSL, falling back to full text), dsl, or fulltext")
	limit := fs.Int("limit", models.Unset, "maximum number of results (default from server config)")
	offset := fs.Int("offset", models.Unset, "number of results to skip")
	excludeDeleted := fs.Bool("exclude-deleted", false, "omit DELETED entities (fulltext mode only)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	req := searchRequest{
		Mode:           *mode,
		Query:          buildSearchQuery(fs.Args()),
		Limit:          *limit,
		Offset:         *offset,
		ExcludeDeleted: *excludeDeleted,
	}
	if req.Query == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var env *discovery.Envelope
	if *serverURL != "" {
		// Use HTTP API when server is running (avoids Bleve/SQLite lock conflict).
		env, err = searchViaHTTP(*serverURL, req)
	} else {
		env, err = searchDirect(*configPath, req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteEnvelope(os.Stdout, env, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchDirect(configPath string, req searchRequest) (*discovery.Envelope, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	defer components.Close()
	return runDispatch(context.Background(), components.Dispatcher, req)
}

func runDispatch(ctx context.Context, d *discovery.Dispatcher, req searchRequest) (*discovery.Envelope, error) {
	switch req.Mode {
	case modeAuto:
		return d.Search(ctx, req.Query, req.Limit, req.Offset)
	case modeDSL:
		return d.SearchDSL(ctx, req.Query, req.Limit, req.Offset)
	case modeFullText:
		return d.SearchFullText(ctx, req.Query, req.Limit, req.Offset, req.ExcludeDeleted)
	default:
		_, err := searchPath(req.Mode)
		return nil, err
	}
}

func searchViaHTTP(serverURL string, req searchRequest) (*discovery.Envelope, error) {
	u, err := searchURL(serverURL, req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Get(u)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var env discovery.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env, nil
}

// apiError turns a non-2xx response into an error, preferring the JSON error message.
func apiError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	var body struct {
		Error     string `json:"error"`
		RequestID string `json:"requestId"`
	}
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		if body.RequestID != "" {
			return fmt.Errorf("server returned %d: %s (request %s)", resp.StatusCode, body.Error, body.RequestID)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	DefaultLimit   int    `json:"default_limit,omitempty"`
	MaxLimit       int    `json:"max_limit,omitempty"`
	DatabasePath   string `json:"database_path,omitempty"`
	BleveIndexPath string `json:"bleve_index_path,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Entities         int64                 `json:"entities"`
	Types            int64                 `json:"types"`
	IndexedEntities  *uint64               `json:"indexed_entities,omitempty"`
	WatchDirectories []string              `json:"watch_directories,omitempty"`
	DiskUsageBytes   *int64                `json:"disk_usage_bytes,omitempty"`
	Config           *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status *statusResponse
	var err error
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
	} else {
		status, err = statusDirect(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "entities:           %d   # stored catalog entities\n", status.Entities)
	fmt.Fprintf(w, "types:              %d   # registered entity types\n", status.Types)
	if status.IndexedEntities != nil {
		fmt.Fprintf(w, "indexed_entities:   %d   # documents in the keyword index\n", *status.IndexedEntities)
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # storage + index on disk\n", *status.DiskUsageBytes)
	}
	for _, d := range status.WatchDirectories {
		fmt.Fprintf(w, "watching:           %s\n", d)
	}
	if status.Config != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "default_limit:      %d\n", status.Config.DefaultLimit)
		fmt.Fprintf(w, "max_limit:          %d\n", status.Config.MaxLimit)
		if status.Config.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", status.Config.DatabasePath)
		}
		if status.Config.BleveIndexPath != "" {
			fmt.Fprintf(w, "bleve_index_path:   %s\n", status.Config.BleveIndexPath)
		}
	}
}

func statusDirect(configPath string) (*statusResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	defer components.Close()

	ctx := context.Background()
	entityCount, err := components.Storage.CountEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("count entities: %w", err)
	}
	typeCount, err := components.Storage.CountTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("count types: %w", err)
	}
	status := &statusResponse{
		Entities: entityCount,
		Types:    typeCount,
		Config: &statusConfigResponse{
			DefaultLimit:   cfg.Search.DefaultLimit,
			MaxLimit:       cfg.Search.MaxLimit,
			DatabasePath:   cfg.Storage.DatabasePath,
			BleveIndexPath: cfg.Storage.BleveIndexPath,
		},
	}
	if n, err := components.KeywordIndex.DocCount(); err == nil {
		status.IndexedEntities = &n
	}
	if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: tansaku import [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n, err := components.Indexer.ImportDirectory(ctx, path, cfg.Watch.Extensions)
		if err != nil {
			fmt.Printf("Importing directory failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d file(s) from %s\n", n, path)
		return
	}
	// Single file: no extension filter
	n, err := components.Indexer.ImportFile(ctx, path, nil)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d entities from %s\n", n, path)
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: tansaku watch <add|remove|list> [path]")
		fmt.Println("  tansaku watch add <path>     Add directory to watch")
		fmt.Println("  tansaku watch remove <path>  Remove directory from watch")
		fmt.Println("  tansaku watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: tansaku watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			fmt.Printf("Add failed: %v\n", apiError(resp))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: tansaku watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			fmt.Printf("Remove failed: %v\n", apiError(resp))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			fmt.Printf("List failed: %v\n", apiError(resp))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	purge := fs.Bool("purge", false, "remove the entity instead of marking it DELETED")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: tansaku delete [flags] <guid>")
		os.Exit(1)
	}
	guid := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if *purge {
		err = components.Indexer.PurgeEntity(ctx, guid)
	} else {
		err = components.Indexer.DeleteEntity(ctx, guid)
	}
	if err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	if *purge {
		fmt.Printf("Entity purged: %s\n", guid)
		return
	}
	fmt.Printf("Entity marked deleted: %s\n", guid)
}

// requestIDOrNew returns the HTTP request ID carried by ctx, or a fresh one for CLI searches.
func requestIDOrNew(ctx context.Context) string {
	if id := server.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.New().String()
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	KeywordIndex keyword.EntityIndex
	Engine       *search.Engine
	Dispatcher   *discovery.Dispatcher
	Indexer      *indexer.Indexer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c := &Components{Storage: store, KeywordIndex: keywordIndex}

	var (
		engineOpts     []search.Option
		idxOpts        []indexer.IndexerOption
		dispatcherOpts = []discovery.Option{discovery.WithRecorder(metrics.NewRecorder())}
	)
	if debug && logger != nil {
		engineOpts = append(engineOpts, search.WithLogger(logger))
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
		dispatcherOpts = append(dispatcherOpts, discovery.WithLogger(logger))
	}
	c.Engine = search.NewEngine(store, keywordIndex, engineOpts...)
	c.Indexer = indexer.NewIndexer(store, keywordIndex, nil, idxOpts...)

	c.Dispatcher, err = discovery.NewDispatcher(cfg.Search.Discovery(), c.Engine, c.Engine, requestIDOrNew, dispatcherOpts...)
	if err != nil {
		c.Close()
		return nil, err
	}

	if err := rebuildIfEmpty(context.Background(), c, logger); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// rebuildIfEmpty re-indexes stored entities when the keyword index was deleted or recreated.
func rebuildIfEmpty(ctx context.Context, c *Components, logger *zap.Logger) error {
	docs, err := c.KeywordIndex.DocCount()
	if err != nil || docs > 0 {
		return nil
	}
	stored, err := c.Storage.CountEntities(ctx)
	if err != nil {
		return fmt.Errorf("count entities: %w", err)
	}
	if stored == 0 {
		return nil
	}
	n, err := c.Indexer.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild keyword index: %w", err)
	}
	if logger != nil {
		logger.Info("keyword index rebuilt", zap.Int("entities", n))
	}
	return nil
}

func printUsage() {
	fmt.Println(`tansaku - Metadata catalog discovery search

Usage:
  tansaku server [flags]              Start the HTTP server
  tansaku search [flags] <query>      Search the catalog (DSL, falling back to full text)
  tansaku import [flags] <path>       Import entities from a file or directory
  tansaku delete [flags] <guid>       Mark an entity deleted (or purge it)
  tansaku status [flags]              Show storage/index status
  tansaku watch <add|remove|list>     Manage watched import directories
  tansaku version                     Show version
  tansaku help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/tansaku/config.yaml)
  --debug            Enable debug logging (fallbacks, imports, watcher events)

Search Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to use direct storage when server is not running.
  --mode string      auto, dsl, or fulltext (default: auto)
  --limit int        Maximum number of results (default from config)
  --offset int       Number of results to skip
  --exclude-deleted  Omit DELETED entities (fulltext mode only)
  --output string    text, compact, or json (default: text)

Import Flags:
  --config string    Config file path

Delete Flags:
  --config string    Config file path
  --purge            Remove the entity instead of marking it DELETED

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  tansaku server
  tansaku search hive_table where owner:jane limit 10
  tansaku search --mode fulltext --exclude-deleted sales
  tansaku search --output json "hive_db"
  tansaku import ./catalog/tables.yaml
  tansaku delete --purge 3f2c9a7e-...
  tansaku status --output json
  tansaku watch add /path/to/catalog
  tansaku watch list`)
}
