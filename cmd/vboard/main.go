package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/evanschultz/vboard/internal/adapters/server"
	"github.com/evanschultz/vboard/internal/adapters/server/common"
	"github.com/evanschultz/vboard/internal/adapters/storage/memory"
	"github.com/evanschultz/vboard/internal/adapters/storage/sqlite"
	"github.com/evanschultz/vboard/internal/app"
	"github.com/evanschultz/vboard/internal/config"
	"github.com/evanschultz/vboard/internal/platform"
	"github.com/evanschultz/vboard/internal/seed"
	"github.com/evanschultz/vboard/internal/tui"
)

// version is replaced at build time via -ldflags.
var version = "dev"

// program is the part of tea.Program the CLI drives.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests swap it for a stub.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// fang prints the styled error itself.
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes the command tree for args.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	seedPath   string
	appName    string
	devMode    bool
	stdout     io.Writer
	stderr     io.Writer
}

// newRootCommand builds the vboard command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	opts := &rootOptions{
		appName: platform.DefaultAppName,
		devMode: version == "dev",
		stdout:  stdout,
		stderr:  stderr,
	}
	if envDev, ok := parseBoolEnv("VBOARD_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("VBOARD_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:           "vboard",
		Short:         "A vision board for tasks that places cards without overlap",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.seedPath, "seed", "", "TOML or YAML file of tasks to load at startup")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newServeCommand(opts),
		newPlaceCommand(opts),
		newExportCommand(opts),
		newPathsCommand(opts),
	)
	return root
}

// newServeCommand builds `vboard serve`.
func newServeCommand(opts *rootOptions) *cobra.Command {
	var httpBind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP, MCP and websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, httpBind)
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "listen address (overrides server.http_bind)")
	return cmd
}

// newPlaceCommand builds `vboard place`.
func newPlaceCommand(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Run placement over a seed file and print the resolved boxes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlace(cmd.Context(), opts, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")
	return cmd
}

// newExportCommand builds `vboard export`.
func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		format  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the session board as a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd.Context(), opts, format, outPath)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

// newPathsCommand builds `vboard paths`.
func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := opts.paths()
			if err != nil {
				return err
			}
			out := opts.stdout
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", opts.resolveConfigPath(paths))
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "seed: %s\n", paths.SeedPath)
			_, _ = fmt.Fprintf(out, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

// paths resolves platform paths for the current app name and mode.
func (o *rootOptions) paths() (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
}

// resolveConfigPath applies flag, then VBOARD_CONFIG, then the platform default.
func (o *rootOptions) resolveConfigPath(paths platform.Paths) string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return p
	}
	if envPath := strings.TrimSpace(os.Getenv("VBOARD_CONFIG")); envPath != "" {
		return envPath
	}
	return paths.ConfigPath
}

// session is everything one command flow needs: config, logger and a seeded service.
type session struct {
	cfg       config.Config
	logger    *runtimeLogger
	svc       *app.Service
	closeRepo func() error
}

// Close releases the repository and log sinks.
func (s *session) Close() {
	if s.closeRepo != nil {
		if err := s.closeRepo(); err != nil {
			s.logger.Warn("repository close failed", "err", err)
		}
	}
	if err := s.logger.Close(); err != nil && s.logger.consoleEnabled() {
		_, _ = fmt.Fprintf(s.logger.console.w, "warning: close runtime log sink: %v\n", err)
	}
}

// openSession loads config, builds the logger and store, and imports the seed.
// With console false the console sink is muted before anything is logged.
func (o *rootOptions) openSession(ctx context.Context, command string, console bool) (*session, error) {
	paths, err := o.paths()
	if err != nil {
		return nil, err
	}
	configPath := o.resolveConfigPath(paths)
	cfg, err := config.Load(configPath, config.Default(paths.SeedPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	seedExplicit := cfg.Seed.Path != paths.SeedPath
	if p := strings.TrimSpace(o.seedPath); p != "" {
		cfg.Seed.Path = p
		seedExplicit = true
	}

	logger, err := newRuntimeLogger(o.stderr, o.appName, o.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	logger.SetConsoleEnabled(console)
	s := &session{cfg: cfg, logger: logger}

	logger.Info("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "seed_path", cfg.Seed.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	var repo app.Repository
	switch cfg.Storage.Backend {
	case config.StorageBackendSQLite:
		sqliteRepo, err := sqlite.OpenSession()
		if err != nil {
			logger.Error("sqlite open failed", "err", err)
			s.Close()
			return nil, fmt.Errorf("open sqlite repository: %w", err)
		}
		repo = sqliteRepo
		s.closeRepo = sqliteRepo.Close
		logger.Info("sqlite session repository ready", "name", sqliteRepo.Name())
	default:
		repo = memory.New()
		logger.Debug("memory repository ready")
	}

	s.svc = app.NewService(repo, nil, nil, app.ServiceConfig{
		Layout: cfg.LayoutParams(),
		Logger: logger.Component("app"),
	})

	if err := s.importSeed(ctx, cfg.Seed.Path, seedExplicit); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// importSeed loads path into the service. A missing default seed is skipped;
// a missing seed that was asked for is an error.
func (s *session) importSeed(ctx context.Context, path string, explicit bool) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !explicit {
		s.logger.Debug("default seed absent; starting empty", "seed_path", path)
		return nil
	}
	file, err := seed.Load(path)
	if err != nil {
		return fmt.Errorf("load seed %q: %w", path, err)
	}
	snap, err := file.Snapshot()
	if err != nil {
		return fmt.Errorf("normalize seed %q: %w", path, err)
	}
	created, err := s.svc.ImportSnapshot(ctx, snap)
	if err != nil {
		return fmt.Errorf("import seed %q: %w", path, err)
	}
	s.logger.Info("seed imported", "seed_path", path, "tasks", len(created))
	return nil
}

// runTUI runs the interactive board.
func runTUI(ctx context.Context, opts *rootOptions) error {
	// Runtime logs stay in the dev-file sink while the board owns the terminal.
	s, err := opts.openSession(ctx, "tui", false)
	if err != nil {
		return err
	}
	defer s.Close()

	m := tui.NewModel(
		s.svc,
		tui.WithLogger(s.logger.Component("tui")),
		tui.WithTitle(opts.appName),
	)
	s.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		s.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	s.logger.Info("command flow complete", "command", "tui")
	return nil
}

// runServe serves the session board until ctx is cancelled.
func runServe(ctx context.Context, opts *rootOptions, httpBind string) error {
	s, err := opts.openSession(ctx, "serve", true)
	if err != nil {
		return err
	}
	defer s.Close()

	bind := s.cfg.Server.HTTPBind
	if b := strings.TrimSpace(httpBind); b != "" {
		bind = b
	}
	adapter := common.NewAppServiceAdapter(s.svc)
	err = server.Run(ctx, server.Config{
		HTTPBind:      bind,
		APIEndpoint:   s.cfg.Server.APIEndpoint,
		MCPEndpoint:   s.cfg.Server.MCPEndpoint,
		WSEndpoint:    s.cfg.Server.WSEndpoint,
		ServerName:    opts.appName,
		ServerVersion: version,
	}, server.Dependencies{
		Board:  adapter,
		Feed:   adapter,
		Logger: s.logger.Component("server"),
	})
	if err != nil {
		s.logger.Error("command flow failed", "command", "serve", "err", err)
		return fmt.Errorf("run serve command: %w", err)
	}
	s.logger.Info("command flow complete", "command", "serve")
	return nil
}

// placementRow is one line of `vboard place` output.
type placementRow struct {
	ID       int64   `json:"id"`
	Text     string  `json:"text"`
	Priority string  `json:"priority"`
	Status   string  `json:"status"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	// Source is "seed" for boxes given in the seed file and "default" for the
	// provisional card size at the default position.
	Source string `json:"source"`
}

// runPlace imports the seed, measures every card that has no seeded box at
// its provisional size, and prints the final placements.
func runPlace(ctx context.Context, opts *rootOptions, format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "table" && format != "json" {
		return fmt.Errorf("unsupported place format %q", format)
	}
	if strings.TrimSpace(opts.seedPath) == "" {
		return errors.New("place requires --seed")
	}
	s, err := opts.openSession(ctx, "place", true)
	if err != nil {
		return err
	}
	defer s.Close()

	board, err := s.svc.Board(ctx)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	sources := make(map[int64]string, len(board.Cards))
	for _, card := range board.Cards {
		if card.Measured {
			sources[card.Task.ID] = "seed"
			continue
		}
		sources[card.Task.ID] = "default"
		if _, err := s.svc.MeasureTask(ctx, card.Task.ID, card.Placement.Box); err != nil {
			return fmt.Errorf("measure task %d: %w", card.Task.ID, err)
		}
	}

	board, err = s.svc.Board(ctx)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	rows := make([]placementRow, 0, len(board.Cards))
	for _, card := range board.Cards {
		p := card.Placement
		rows = append(rows, placementRow{
			ID:       card.Task.ID,
			Text:     card.Task.Text,
			Priority: string(card.Task.Priority),
			Status:   string(card.Task.Status),
			X:        p.X,
			Y:        p.Y,
			Width:    p.Width,
			Height:   p.Height,
			Source:   sources[card.Task.ID],
		})
	}
	s.logger.Info("placement complete", "tasks", len(rows))

	if format == "json" {
		encoded, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("encode placements json: %w", err)
		}
		_, err = fmt.Fprintln(opts.stdout, string(encoded))
		return err
	}
	_, err = fmt.Fprintln(opts.stdout, renderPlacementTable(rows))
	return err
}

// runExport writes the session snapshot in the requested format.
func runExport(ctx context.Context, opts *rootOptions, format, outPath string) error {
	var encode func(app.Snapshot) ([]byte, error)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		encode = func(snap app.Snapshot) ([]byte, error) {
			out, err := json.MarshalIndent(snap, "", "  ")
			return append(out, '\n'), err
		}
	case "yaml", "yml":
		encode = func(snap app.Snapshot) ([]byte, error) {
			return yaml.Marshal(snap)
		}
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}

	s, err := opts.openSession(ctx, "export", true)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := s.svc.ExportSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	encoded, err := encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", format, err)
	}

	if outPath == "" || outPath == "-" {
		if _, err := opts.stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	s.logger.Info("snapshot exported", "path", outPath, "tasks", len(snap.Tasks))
	return nil
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
