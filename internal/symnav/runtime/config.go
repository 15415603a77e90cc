package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lexcodex/symnav/framework"
	"github.com/lexcodex/symnav/framework/ast"
	"github.com/lexcodex/symnav/framework/search"
)

// Config captures every knob shared across the symnav CLI, TUI, and server
// entry points.
type Config struct {
	Workspace     string
	DBPath        string
	LogPath       string
	ConfigPath    string
	TelemetryPath string
	ServerAddr    string
	// LogToStdout mirrors the log on stdout. The TUI leaves it off.
	LogToStdout bool
	Search      search.ControllerConfig
	// Exclude lists workspace-relative globs skipped while indexing.
	Exclude framework.GlobSet
}

// DefaultConfig infers sensible defaults based on the current working
// directory. Errors from os.Getwd are ignored so callers can override manually.
func DefaultConfig() Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Config{
		Workspace:  cwd,
		DBPath:     filepath.Join(cwd, ".symnav", "symbols.db"),
		LogPath:    filepath.Join(cwd, ".symnav", "symnav.log"),
		ConfigPath: filepath.Join(cwd, ".symnav", "config.yaml"),
		ServerAddr: ":8080",
		Search: search.ControllerConfig{
			Delay:       search.DefaultDelay,
			CancelKey:   "esc",
			InitialText: "Filter...",
		},
	}
}

// Normalize makes every path absolute and fills missing defaults.
func (c *Config) Normalize() error {
	if c.Workspace == "" {
		return fmt.Errorf("workspace path required")
	}
	absWorkspace, err := filepath.Abs(c.Workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	c.Workspace = absWorkspace
	resolve := func(path *string, def string) {
		if *path == "" {
			*path = filepath.Join(c.Workspace, ".symnav", def)
		}
		if !filepath.IsAbs(*path) {
			*path = filepath.Join(c.Workspace, *path)
		}
	}
	resolve(&c.DBPath, "symbols.db")
	resolve(&c.LogPath, "symnav.log")
	resolve(&c.ConfigPath, "config.yaml")
	if c.TelemetryPath != "" && !filepath.IsAbs(c.TelemetryPath) {
		c.TelemetryPath = filepath.Join(c.Workspace, c.TelemetryPath)
	}
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
	if c.Search.Delay <= 0 {
		c.Search.Delay = search.DefaultDelay
	}
	return nil
}

// SearchSettings overrides the quick-search behaviour.
type SearchSettings struct {
	Delay       time.Duration `yaml:"delay,omitempty"`
	CancelKey   string        `yaml:"cancel_key,omitempty"`
	IgnoreKeys  []string      `yaml:"ignore_keys,omitempty"`
	InitialText string        `yaml:"initial_text,omitempty"`
}

// WorkspaceConfig is the persisted .symnav/config.yaml.
type WorkspaceConfig struct {
	Search        SearchSettings        `yaml:"search"`
	LSPServers    []ast.LSPServerConfig `yaml:"lsp_servers,omitempty"`
	Exclude       []string              `yaml:"exclude,omitempty"`
	ServerAddr    string                `yaml:"server_addr,omitempty"`
	TelemetryPath string                `yaml:"telemetry_path,omitempty"`
	LastUpdated   int64                 `yaml:"last_updated"`
}

// Apply copies the workspace overrides onto cfg. Flags set explicitly by
// the caller are applied afterwards by the CLI.
func (w WorkspaceConfig) Apply(cfg *Config) {
	if w.Search.Delay > 0 {
		cfg.Search.Delay = w.Search.Delay
	}
	if w.Search.CancelKey != "" {
		cfg.Search.CancelKey = w.Search.CancelKey
	}
	if len(w.Search.IgnoreKeys) > 0 {
		cfg.Search.IgnoreKeys = append([]string(nil), w.Search.IgnoreKeys...)
	}
	if w.Search.InitialText != "" {
		cfg.Search.InitialText = w.Search.InitialText
	}
	if w.ServerAddr != "" {
		cfg.ServerAddr = w.ServerAddr
	}
	cfg.Exclude = append(cfg.Exclude, w.Exclude...)
	if w.TelemetryPath != "" && cfg.TelemetryPath == "" {
		cfg.TelemetryPath = w.TelemetryPath
		if !filepath.IsAbs(cfg.TelemetryPath) {
			cfg.TelemetryPath = filepath.Join(cfg.Workspace, cfg.TelemetryPath)
		}
	}
}

// DefaultWorkspaceConfig is written by `symnav init`.
func DefaultWorkspaceConfig() WorkspaceConfig {
	return WorkspaceConfig{
		Search: SearchSettings{
			Delay:       search.DefaultDelay,
			CancelKey:   "esc",
			IgnoreKeys:  append([]string(nil), search.DefaultIgnoreKeys...),
			InitialText: "Filter...",
		},
		LSPServers: ast.DefaultLSPServers(),
		ServerAddr: ":8080",
	}
}

// LoadWorkspaceConfig loads the workspace configuration from disk.
func LoadWorkspaceConfig(path string) (WorkspaceConfig, error) {
	if path == "" {
		return WorkspaceConfig{}, fmt.Errorf("config path required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return WorkspaceConfig{}, err
	}
	var cfg WorkspaceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return WorkspaceConfig{}, err
	}
	return cfg, nil
}

// SaveWorkspaceConfig persists the configuration for future sessions.
func SaveWorkspaceConfig(path string, cfg WorkspaceConfig) error {
	if path == "" {
		return fmt.Errorf("config path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	cfg.LastUpdated = time.Now().Unix()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
