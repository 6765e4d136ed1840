package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/evanschultz/vboard/internal/domain"
	"github.com/evanschultz/vboard/internal/layout"
)

// StorageBackend selects the session task store.
type StorageBackend string

const (
	StorageBackendMemory StorageBackend = "memory"
	StorageBackendSQLite StorageBackend = "sqlite"
)

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Layout  LayoutConfig  `toml:"layout"`
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
	Seed    SeedConfig    `toml:"seed"`
}

type StorageConfig struct {
	Backend StorageBackend `toml:"backend"`
}

// LayoutConfig carries the canvas size and the adjustment loop constants.
type LayoutConfig struct {
	CanvasWidth    float64 `toml:"canvas_width"`
	CanvasHeight   float64 `toml:"canvas_height"`
	VerticalStep   float64 `toml:"vertical_step"`
	HorizontalStep float64 `toml:"horizontal_step"`
	WrapY          float64 `toml:"wrap_y"`
	MaxIterations  int     `toml:"max_iterations"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
	WSEndpoint  string `toml:"ws_endpoint"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// SeedConfig names an optional TOML or YAML file of tasks loaded at startup.
type SeedConfig struct {
	Path string `toml:"path"`
}

func Default(seedPath string) Config {
	lp := layout.DefaultParams()
	return Config{
		Storage: StorageConfig{Backend: StorageBackendMemory},
		Layout: LayoutConfig{
			CanvasWidth:    lp.Canvas.Width,
			CanvasHeight:   lp.Canvas.Height,
			VerticalStep:   lp.VerticalStep,
			HorizontalStep: lp.HorizontalStep,
			WrapY:          lp.WrapY,
			MaxIterations:  lp.MaxIterations,
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:5437",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
			WSEndpoint:  "/ws",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".vboard/log",
			},
		},
		Seed: SeedConfig{Path: seedPath},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case StorageBackendMemory, StorageBackendSQLite:
	default:
		return fmt.Errorf("invalid storage.backend: %q", c.Storage.Backend)
	}

	positive := []struct {
		name  string
		value float64
	}{
		{"layout.canvas_width", c.Layout.CanvasWidth},
		{"layout.canvas_height", c.Layout.CanvasHeight},
		{"layout.vertical_step", c.Layout.VerticalStep},
		{"layout.horizontal_step", c.Layout.HorizontalStep},
		{"layout.wrap_y", c.Layout.WrapY},
	}
	for _, field := range positive {
		if math.IsNaN(field.value) || math.IsInf(field.value, 0) || field.value <= 0 {
			return fmt.Errorf("%s must be > 0", field.name)
		}
	}
	if c.Layout.MaxIterations <= 0 {
		return errors.New("layout.max_iterations must be > 0")
	}

	if strings.TrimSpace(c.Server.HTTPBind) == "" {
		return errors.New("server.http_bind is required")
	}
	seen := map[string]string{}
	for name, endpoint := range map[string]string{
		"server.api_endpoint": c.Server.APIEndpoint,
		"server.mcp_endpoint": c.Server.MCPEndpoint,
		"server.ws_endpoint":  c.Server.WSEndpoint,
	} {
		endpoint = strings.TrimSpace(endpoint)
		if !strings.HasPrefix(endpoint, "/") || endpoint == "/" {
			return fmt.Errorf("%s must be an absolute sub-path, got %q", name, endpoint)
		}
		if other, ok := seen[endpoint]; ok {
			return fmt.Errorf("%s duplicates %s: %q", name, other, endpoint)
		}
		seen[endpoint] = name
	}

	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	return nil
}

// LayoutParams converts the layout section into engine parameters.
func (c Config) LayoutParams() layout.Params {
	return layout.Params{
		VerticalStep:   c.Layout.VerticalStep,
		HorizontalStep: c.Layout.HorizontalStep,
		WrapY:          c.Layout.WrapY,
		MaxIterations:  c.Layout.MaxIterations,
		Canvas:         domain.Canvas{Width: c.Layout.CanvasWidth, Height: c.Layout.CanvasHeight},
	}
}
