// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/evanschultz/vboard/internal/adapters/server/common"
	"github.com/evanschultz/vboard/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the board tools.
func NewHandler(cfg Config, board common.BoardService) (*Handler, error) {
	if board == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerTaskTools(mcpSrv, board)
	registerBoardTools(mcpSrv, board)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "vboard"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// priorityEnum and statusEnum list the canonical values advertised in tool schemas.
func priorityEnum() []string {
	out := []string{}
	for _, p := range domain.Priorities() {
		out = append(out, string(p))
	}
	return out
}

func statusEnum() []string {
	out := []string{}
	for _, s := range domain.Statuses() {
		out = append(out, string(s))
	}
	return out
}

// registerTaskTools registers task list/create/update/delete tools.
func registerTaskTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"vboard.list_tasks",
			mcp.WithDescription("List board tasks in insertion order."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			tasks, err := board.ListTasks(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"tasks": tasks})
			if err != nil {
				return nil, fmt.Errorf("encode list_tasks result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"vboard.create_task",
			mcp.WithDescription("Create one task. Blank text is accepted and reported as applied=false."),
			mcp.WithString("text", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("priority", mcp.Description("Task priority (default Low)"), mcp.Enum(priorityEnum()...)),
			mcp.WithString("status", mcp.Description("Task status (default Created)"), mcp.Enum(statusEnum()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			text, err := req.RequireString("text")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out, err := board.CreateTask(ctx, common.CreateTaskRequest{
				Text:     text,
				Priority: req.GetString("priority", ""),
				Status:   req.GetString("status", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode create_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"vboard.update_task",
			mcp.WithDescription("Replace one task's text, priority and status in place. Unknown ids report applied=false."),
			mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task id")),
			mcp.WithString("text", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("priority", mcp.Description("Task priority (default Low)"), mcp.Enum(priorityEnum()...)),
			mcp.WithString("status", mcp.Description("Task status (default Created)"), mcp.Enum(statusEnum()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := requireTaskID(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			text, err := req.RequireString("text")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out, err := board.UpdateTask(ctx, common.UpdateTaskRequest{
				TaskID:   taskID,
				Text:     text,
				Priority: req.GetString("priority", ""),
				Status:   req.GetString("status", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode update_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"vboard.delete_task",
			mcp.WithDescription("Delete one task and its placement. Unknown ids report applied=false."),
			mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := requireTaskID(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out, err := board.DeleteTask(ctx, taskID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode delete_task result: %w", err)
			}
			return result, nil
		},
	)
}

// registerBoardTools registers measurement and board read tools.
func registerBoardTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"vboard.measure_task",
			mcp.WithDescription("Report a rendered card box; returns the collision-free placement."),
			mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task id")),
			mcp.WithNumber("x", mcp.Required(), mcp.Description("Left edge in canvas units")),
			mcp.WithNumber("y", mcp.Required(), mcp.Description("Top edge in canvas units")),
			mcp.WithNumber("width", mcp.Required(), mcp.Description("Card width in canvas units")),
			mcp.WithNumber("height", mcp.Required(), mcp.Description("Card height in canvas units")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := requireTaskID(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			var box domain.Box
			for _, field := range []struct {
				name string
				dst  *float64
			}{
				{"x", &box.X},
				{"y", &box.Y},
				{"width", &box.Width},
				{"height", &box.Height},
			} {
				v, err := req.RequireFloat(field.name)
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				*field.dst = v
			}
			out, err := board.MeasureTask(ctx, common.MeasureTaskRequest{TaskID: taskID, Box: box})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode measure_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"vboard.board",
			mcp.WithDescription("Return the canvas and every card with placement, gradient and badge color."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			out, err := board.Board(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode board result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"vboard.list_activity",
			mcp.WithDescription("List recent board activity, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum events to return (0 for all)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			events, err := board.ListActivity(ctx, req.GetInt("limit", 0))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"events": events})
			if err != nil {
				return nil, fmt.Errorf("encode list_activity result: %w", err)
			}
			return result, nil
		},
	)
}

// requireTaskID reads a positive integral task_id argument.
func requireTaskID(req mcp.CallToolRequest) (int64, error) {
	raw, err := req.RequireFloat("task_id")
	if err != nil {
		return 0, err
	}
	if raw <= 0 || raw != math.Trunc(raw) {
		return 0, fmt.Errorf("task_id must be a positive integer")
	}
	return int64(raw), nil
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
