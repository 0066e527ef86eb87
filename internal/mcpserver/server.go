// Package mcpserver exposes the conversion pipeline as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/anchorforms/formpipe/internal/config"
	"github.com/anchorforms/formpipe/internal/pipeline"
)

var log = logrus.WithField("component", "mcpserver")

type converter interface {
	Convert(ctx context.Context, strategy string, req pipeline.Request) (*pipeline.Artifact, error)
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	svc       converter
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *pipeline.Service) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("pipeline service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		svc:       svc,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	convertAITool := mcp.NewTool(
		"form_convert_ai",
		mcp.WithDescription("Convert a PDF form into an HTML form using the generative model only (no rasterization, no document processors)"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithString("instructions",
			mcp.Description("Optional free-text instructions forwarded to the model"),
		),
		mcp.WithString("template_id",
			mcp.Description("Optional identifier stamped into the resulting schema"),
		),
	)
	s.mcpServer.AddTool(convertAITool, s.handleConvert(config.StrategyAI))

	convertDocAITool := mcp.NewTool(
		"form_convert_docai",
		mcp.WithDescription("Convert a PDF form into an HTML form via document processors: layout analysis plus per-page form parsing, rendered locally from the normalized schema"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithString("instructions",
			mcp.Description("Optional free-text instructions stored in the schema"),
		),
		mcp.WithString("template_id",
			mcp.Description("Optional identifier stamped into the resulting schema"),
		),
	)
	s.mcpServer.AddTool(convertDocAITool, s.handleConvert(config.StrategyDocAI))

	convertVisionTool := mcp.NewTool(
		"form_convert_vision",
		mcp.WithDescription("Convert a PDF form into an HTML form by sending the PDF plus rendered page images to a vision model; produces an interactive form, a printable template and a label validation report"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithString("instructions",
			mcp.Description("Optional free-text instructions forwarded to the model"),
		),
		mcp.WithString("template_id",
			mcp.Description("Optional identifier stamped into the resulting schema"),
		),
	)
	s.mcpServer.AddTool(convertVisionTool, s.handleConvert(config.StrategyVision))
}

// handleConvert builds the tool handler for one strategy. All three tools
// share the read-convert-marshal shape and differ only in the strategy.
func (s *Server) handleConvert(strategy string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		args := request.GetArguments()
		instructions := ""
		if v, ok := args["instructions"].(string); ok {
			instructions = v
		}
		templateID := ""
		if v, ok := args["template_id"].(string); ok {
			templateID = v
		}

		pdfBytes, err := os.ReadFile(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reading %s: %v", path, err)), nil
		}

		art, err := s.svc.Convert(ctx, strategy, pipeline.Request{
			PDF:          pdfBytes,
			FileName:     path,
			TemplateID:   templateID,
			Instructions: instructions,
		})
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"strategy": strategy,
				"path":     path,
			}).Warn("conversion failed")
			return mcp.NewToolResultError(err.Error()), nil
		}

		payload, err := json.Marshal(art)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encoding artifact: %v", err)), nil
		}

		return mcp.NewToolResultText(string(payload)), nil
	}
}

// Run starts the MCP server over stdio and blocks until the transport closes.
func (s *Server) Run(_ context.Context) error {
	log.WithFields(logrus.Fields{
		"server":  s.config.ServerName,
		"version": s.config.Version,
	}).Info("starting MCP server in stdio mode")

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
