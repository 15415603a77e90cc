package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lexcodex/symnav/framework"
	"github.com/lexcodex/symnav/framework/ast"
	"github.com/lexcodex/symnav/framework/source"
	"github.com/lexcodex/symnav/framework/symbols"
	"github.com/lexcodex/symnav/persistence"
	"github.com/lexcodex/symnav/server"
)

// Runtime wires the symnav CLI, Bubble Tea UI, and API server to the shared
// symbol store. It centralizes extractor registration, telemetry, and log
// management.
type Runtime struct {
	Config     Config
	Store      *persistence.SymbolStore
	Sources    *source.Cache
	Extractors *ast.Registry
	Telemetry  framework.Telemetry
	Logger     *log.Logger
	Workspace  WorkspaceConfig

	logFile       io.Closer
	telemetryFile *framework.JSONFileTelemetry
	lspSources    []*ast.LSPSource

	serverMu     sync.Mutex
	serverCancel context.CancelFunc
}

// New builds a runtime from cfg and the workspace config file.
func New(ctx context.Context, cfg Config) (*Runtime, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	var out io.Writer = logFile
	if cfg.LogToStdout {
		out = io.MultiWriter(os.Stdout, logFile)
	}
	logger := log.New(out, "symnav ", log.LstdFlags|log.Lmicroseconds)

	workspaceCfg, err := LoadWorkspaceConfig(cfg.ConfigPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Printf("workspace config load failed: %v", err)
		}
		workspaceCfg = WorkspaceConfig{}
	}
	workspaceCfg.Apply(&cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	store, err := persistence.NewSymbolStore(cfg.DBPath)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("open symbol store: %w", err)
	}

	rt := &Runtime{
		Config:    cfg,
		Store:     store,
		Sources:   source.NewCache(),
		Logger:    logger,
		Workspace: workspaceCfg,
		logFile:   logFile,
	}
	sinks := []framework.Telemetry{framework.LoggerTelemetry{Logger: logger}}
	if cfg.TelemetryPath != "" {
		jsonSink, err := framework.NewJSONFileTelemetry(cfg.TelemetryPath)
		if err != nil {
			logger.Printf("telemetry file unavailable: %v", err)
		} else {
			rt.telemetryFile = jsonSink
			sinks = append(sinks, jsonSink)
		}
	}
	rt.Telemetry = framework.MultiplexTelemetry{Sinks: sinks}
	rt.Extractors = rt.buildRegistry()
	return rt, nil
}

func (r *Runtime) buildRegistry() *ast.Registry {
	registry := ast.NewRegistry()
	root := r.Config.Workspace
	registry.Register(ast.NewGoExtractor(root))
	registry.Register(ast.NewMarkdownExtractor(root))
	registry.Register(ast.NewManifestExtractor(root, "yaml"))
	registry.Register(ast.NewManifestExtractor(root, "json"))
	for _, cfg := range r.Workspace.LSPServers {
		if cfg.Language == "" || cfg.Command == "" {
			r.Logger.Printf("skipping incomplete lsp server entry %+v", cfg)
			continue
		}
		src := ast.NewLSPSource(cfg, root)
		r.lspSources = append(r.lspSources, src)
		registry.Register(src)
		for _, ext := range cfg.Extensions {
			registry.Detector().AddExtension(ext, cfg.Language)
		}
	}
	return registry
}

// Close releases resources managed by runtime.
func (r *Runtime) Close() error {
	for _, src := range r.lspSources {
		_ = src.Close()
	}
	if r.telemetryFile != nil {
		_ = r.telemetryFile.Close()
	}
	var err error
	if r.Store != nil {
		err = r.Store.Close()
	}
	if r.logFile != nil {
		if cerr := r.logFile.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// IndexResult reports what happened to one indexed path.
type IndexResult struct {
	Path    string
	Module  string
	Symbols int
	Skipped bool
	Err     error
}

// Index extracts every target under paths and stores the listings. Modules
// whose content hash is unchanged are skipped unless force is set. A failed
// target is reported in its result and does not stop the run.
func (r *Runtime) Index(ctx context.Context, paths []string, force bool) ([]IndexResult, error) {
	if len(paths) == 0 {
		paths = []string{r.Config.Workspace}
	}
	var targets []string
	for _, p := range paths {
		found, err := r.collectTargets(p)
		if err != nil {
			return nil, err
		}
		targets = append(targets, found...)
	}
	results := make([]IndexResult, 0, len(targets))
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, r.indexOne(ctx, target, force))
	}
	return results, nil
}

func (r *Runtime) indexOne(ctx context.Context, target string, force bool) IndexResult {
	res := IndexResult{Path: target}
	start := time.Now()
	mod, err := r.Extractors.Extract(ctx, target)
	if err == nil {
		_, err = mod.Tree()
	}
	if err != nil {
		res.Err = err
		r.Logger.Printf("index %s failed: %v", target, err)
		return res
	}
	res.Module = mod.Name
	res.Symbols = len(mod.Entries)
	if !force {
		if rec, err := r.Store.Module(ctx, mod.Name); err == nil && rec.ContentHash == mod.ContentHash {
			res.Skipped = true
			return res
		}
	}
	if err := r.Store.SaveModule(ctx, mod); err != nil {
		res.Err = err
		return res
	}
	r.Sources.Forget(mod.Path)
	r.Telemetry.Emit(framework.Event{
		Type:   framework.EventIndexBuild,
		Module: mod.Name,
		Metadata: map[string]interface{}{
			"language": mod.Language,
			"symbols":  len(mod.Entries),
			"elapsed":  time.Since(start).String(),
		},
	})
	return res
}

var skipDirs = map[string]bool{
	"vendor":       true,
	"testdata":     true,
	"node_modules": true,
}

// collectTargets expands path into Go package directories and files that
// have a registered extractor.
func (r *Runtime) collectTargets(path string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{abs}, nil
	}
	detector := r.Extractors.Detector()
	var targets []string
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		excluded := false
		if rel, err := filepath.Rel(r.Config.Workspace, p); err == nil {
			excluded = r.Config.Exclude.Match(rel)
		}
		if d.IsDir() {
			if p != abs && (excluded || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || skipDirs[name]) {
				return filepath.SkipDir
			}
			if hasGoFiles(p) {
				targets = append(targets, p)
			}
			return nil
		}
		lang := detector.Detect(p)
		if excluded || lang == "go" || lang == "unknown" {
			return nil
		}
		if _, ok := r.Extractors.Get(lang); ok {
			targets = append(targets, p)
		}
		return nil
	})
	return targets, err
}

func hasGoFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") {
			return true
		}
	}
	return false
}

// ModuleTree builds the tree of every indexed module name.
func (r *Runtime) ModuleTree(ctx context.Context) (*symbols.Tree, error) {
	names, err := r.Store.ModuleNames(ctx)
	if err != nil {
		return nil, err
	}
	return symbols.BuildModuleTree(filepath.Base(r.Config.Workspace), names)
}

// LoadTree loads a module from the store and builds its tree.
func (r *Runtime) LoadTree(ctx context.Context, name string) (*ast.Module, *symbols.Tree, error) {
	mod, err := r.Store.LoadModule(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	tree, err := mod.Tree()
	if err != nil {
		return nil, nil, fmt.Errorf("build %s: %w", name, err)
	}
	return mod, tree, nil
}

// StartServer launches the HTTP API server. The returned stop function shuts
// the server down using the provided context.
func (r *Runtime) StartServer(ctx context.Context, addr string) (func(context.Context) error, error) {
	r.serverMu.Lock()
	defer r.serverMu.Unlock()
	if r.serverCancel != nil {
		return nil, errors.New("server already running")
	}
	if addr == "" {
		addr = r.Config.ServerAddr
	}
	api := r.APIServer()
	serverCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- api.ServeContext(serverCtx, addr)
	}()
	r.serverCancel = cancel
	stopFn := func(shutdownCtx context.Context) error {
		r.serverMu.Lock()
		if r.serverCancel == nil {
			r.serverMu.Unlock()
			return nil
		}
		r.serverCancel()
		r.serverCancel = nil
		r.serverMu.Unlock()
		select {
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-shutdownCtx.Done():
			return shutdownCtx.Err()
		}
	}
	return stopFn, nil
}

// APIServer returns an API server backed by the runtime's store.
func (r *Runtime) APIServer() *server.APIServer {
	return &server.APIServer{
		Store:     r.Store,
		Sources:   r.Sources,
		Telemetry: r.Telemetry,
		Logger:    r.Logger,
	}
}

// ServerRunning reports whether the HTTP server is active.
func (r *Runtime) ServerRunning() bool {
	r.serverMu.Lock()
	defer r.serverMu.Unlock()
	return r.serverCancel != nil
}

// LSPServer returns an editor-facing symbol server backed by the store.
func (r *Runtime) LSPServer() *server.LSPServer {
	return server.NewLSPServer(r.Store, r.Telemetry, r.Logger)
}
