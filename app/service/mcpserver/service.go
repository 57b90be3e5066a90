// Package mcpserver exposes the folder index, system status and command safety check as MCP tools over stdio.
package mcpserver

import (
	"context"
	"eleven/app/client/sysinfo"
	"eleven/app/config"
	"eleven/app/service/folderindex"
	"eleven/app/service/safety"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
)

const (
	serverName     = "eleven"
	serverVersion  = "1.0.0"
	defaultResults = 5
)

type Indexer interface {
	Query(ctx context.Context, name string, limit int) ([]string, error)
	FindFile(ctx context.Context, name string) (string, error)
	Rescan(ctx context.Context) (int, error)
}

type System interface {
	Status(ctx context.Context) (sysinfo.Status, error)
}

type Gate interface {
	Validate(command string) safety.Verdict
}

type Service struct {
	cfg     *config.Store
	indexer Indexer
	system  System
	gate    Gate
	server  *server.MCPServer
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*config.Store](di),
		do.MustInvoke[*folderindex.Service](di),
		do.MustInvoke[*sysinfo.Client](di),
		do.MustInvoke[*safety.Service](di),
	), nil
}

func NewService(cfg *config.Store, indexer Indexer, system System, gate Gate) *Service {
	s := &Service{
		cfg:     cfg,
		indexer: indexer,
		system:  system,
		gate:    gate,
		server:  server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}

	s.registerTools()

	return s
}

// Server returns the underlying MCP server, used by in-process clients.
func (s *Service) Server() *server.MCPServer {
	return s.server
}

// ServeStdio answers MCP requests on stdin/stdout until ctx is cancelled or stdin closes.
func (s *Service) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

func (s *Service) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	slog.Info("MCP server started", "transport", "stdio")

	if err := server.NewStdioServer(s.server).Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio server failed: %w", err)
	}

	return nil
}

func (s *Service) registerTools() {
	s.server.AddTool(mcp.NewTool("search_folders",
		mcp.WithDescription("Find indexed folders whose name contains the given text, shortest paths first"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Folder name or part of it")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of paths to return")),
	), s.searchFolders)

	s.server.AddTool(mcp.NewTool("find_file",
		mcp.WithDescription("Find a file by name inside the indexed folders"),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name or part of it")),
	), s.findFile)

	s.server.AddTool(mcp.NewTool("rescan_folders",
		mcp.WithDescription("Rebuild the folder index and return the number of indexed folders"),
	), s.rescanFolders)

	s.server.AddTool(mcp.NewTool("system_status",
		mcp.WithDescription("Current CPU, memory and disk usage"),
	), s.systemStatus)

	s.server.AddTool(mcp.NewTool("check_command",
		mcp.WithDescription("Classify a shell command as safe, sensitive or forbidden without running it"),
		mcp.WithString("command", mcp.Required(), mcp.Description("Shell command line")),
	), s.checkCommand)

	s.server.AddTool(mcp.NewTool("get_personality",
		mcp.WithDescription("Current personality trait percentages"),
	), s.getPersonality)
}

func (s *Service) searchFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	limit := req.GetInt("limit", defaultResults)
	if limit <= 0 {
		limit = defaultResults
	}

	paths, err := s.indexer.Query(ctx, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}

	return jsonResult(map[string]any{"paths": paths})
}

func (s *Service) findFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path, err := s.indexer.FindFile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find file: %w", err)
	}

	if path == "" {
		return mcp.NewToolResultError(fmt.Sprintf("file %q not found", name)), nil
	}

	return mcp.NewToolResultText(path), nil
}

func (s *Service) rescanFolders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count, err := s.indexer.Rescan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to rescan folders: %w", err)
	}

	return jsonResult(map[string]any{"folders": count})
}

func (s *Service) systemStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.system.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(status)
}

func (s *Service) checkCommand(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	verdict := s.gate.Validate(command)

	return jsonResult(map[string]any{
		"level":  verdict.Level.String(),
		"safe":   verdict.Safe,
		"reason": verdict.Reason,
	})
}

func (s *Service) getPersonality(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := s.cfg.Personality()

	result := make(map[config.Trait]int, len(config.Traits))
	for _, t := range config.Traits {
		result[t] = p.Get(t)
	}

	return jsonResult(result)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return mcp.NewToolResultText(string(data)), nil
}
