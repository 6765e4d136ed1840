package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evanschultz/vboard/internal/adapters/server/common"
	"github.com/evanschultz/vboard/internal/adapters/storage/memory"
	"github.com/evanschultz/vboard/internal/app"
)

// newDeps builds server dependencies over a fresh in-memory board.
func newDeps() Dependencies {
	svc := app.NewService(memory.New(), nil, nil, app.ServiceConfig{})
	adapter := common.NewAppServiceAdapter(svc)
	return Dependencies{Board: adapter, Feed: adapter}
}

// TestNormalizeConfig verifies endpoint defaults and collision checks.
func TestNormalizeConfig(t *testing.T) {
	cfg, err := normalizeConfig(Config{})
	if err != nil {
		t.Fatalf("normalizeConfig() error = %v", err)
	}
	if cfg.HTTPBind != defaultBindAddress || cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.WSEndpoint != "/ws" {
		t.Fatalf("unexpected defaults %#v", cfg)
	}
	if cfg.ServerName != "vboard" || cfg.ServerVersion != "dev" {
		t.Fatalf("unexpected server identity %#v", cfg)
	}

	cfg, err = normalizeConfig(Config{APIEndpoint: "api//", MCPEndpoint: " /tools/ ", WSEndpoint: "/"})
	if err != nil {
		t.Fatalf("normalizeConfig() error = %v", err)
	}
	if cfg.APIEndpoint != "/api" || cfg.MCPEndpoint != "/tools" || cfg.WSEndpoint != "/ws" {
		t.Fatalf("unexpected normalized endpoints %#v", cfg)
	}

	cases := []Config{
		{APIEndpoint: "/same", MCPEndpoint: "/same"},
		{MCPEndpoint: "/feed", WSEndpoint: "/feed"},
		{APIEndpoint: "/api", WSEndpoint: "/api/ws"},
	}
	for _, tc := range cases {
		if _, err := normalizeConfig(tc); err == nil {
			t.Fatalf("normalizeConfig(%#v) error = nil, want error", tc)
		}
	}
}

// TestNewHandlerRequiresDependencies verifies missing adapters fail construction.
func TestNewHandlerRequiresDependencies(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("NewHandler() error = nil, want board error")
	}
	deps := newDeps()
	deps.Feed = nil
	if _, _, err := NewHandler(Config{}, deps); err == nil {
		t.Fatal("NewHandler() error = nil, want feed error")
	}
}

// TestHandlerRoutes verifies health, REST, MCP and websocket endpoints are mounted.
func TestHandlerRoutes(t *testing.T) {
	handler, cfg, err := NewHandler(Config{}, newDeps())
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()
	defer handler.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := server.Client().Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
			t.Fatalf("GET %s = %d %#v", path, resp.StatusCode, body)
		}
	}

	resp, err := server.Client().Post(server.URL+cfg.APIEndpoint+"/tasks", "application/json", strings.NewReader(`{"text":"mounted"}`))
	if err != nil {
		t.Fatalf("POST tasks error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST tasks status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	resp, err = server.Client().Get(server.URL + cfg.APIEndpoint + "/board")
	if err != nil {
		t.Fatalf("GET board error = %v", err)
	}
	var board app.Board
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	_ = resp.Body.Close()
	if len(board.Cards) != 1 || board.Cards[0].Task.Text != "mounted" {
		t.Fatalf("unexpected board %#v", board)
	}

	resp, err = server.Client().Post(server.URL+cfg.MCPEndpoint, "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"vboard-test","version":"1.0.0"}}}`))
	if err != nil {
		t.Fatalf("POST mcp error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST mcp status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	conn, wsResp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+cfg.WSEndpoint, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if wsResp != nil && wsResp.Body != nil {
		_ = wsResp.Body.Close()
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event app.BoardEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if event.Type != app.BoardEventSnapshot || event.Board == nil || len(event.Board.Cards) != 1 {
		t.Fatalf("unexpected snapshot %#v", event)
	}
}

// TestServeShutsDownOnCancel verifies graceful shutdown when ctx is cancelled.
func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve(ctx, ln, Config{}, newDeps())
	}()

	url := "http://" + ln.Addr().String() + "/healthz"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became ready: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

// TestServeRejectsBadConfig verifies config errors surface before serving.
func TestServeRejectsBadConfig(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	err = Serve(context.Background(), ln, Config{APIEndpoint: "/x", MCPEndpoint: "/x"}, newDeps())
	if err == nil {
		t.Fatal("Serve() error = nil, want config error")
	}
}
