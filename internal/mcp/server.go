package mcp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/a3tai/mcp-pdf-parts/internal/config"
	"github.com/a3tai/mcp-pdf-parts/internal/descriptions"
	"github.com/a3tai/mcp-pdf-parts/internal/export"
	"github.com/a3tai/mcp-pdf-parts/internal/parts"
	"github.com/a3tai/mcp-pdf-parts/internal/pdf"
	pdferrors "github.com/a3tai/mcp-pdf-parts/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-parts/internal/pdf/security"
)

const (
	formatText = "text"
	formatCSV  = "csv"

	// serverInfoFileLimit caps the files listed by parts_server_info.
	serverInfoFileLimit = 10
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	pipeline  *parts.Pipeline
	search    *pdf.Search
	paths     *security.PathValidator
	mcpServer *server.MCPServer
	logger    *logrus.Entry
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pipeline *parts.Pipeline) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}

	paths, err := security.NewPathValidator(cfg.PDFDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // the tool set is fixed
	)

	s := &Server{
		config:    cfg,
		pipeline:  pipeline,
		search:    pdf.NewSearch(cfg.MaxFileSize),
		paths:     paths,
		mcpServer: mcpServer,
		logger:    logrus.WithField("component", "mcp"),
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	partsListTool := mcp.NewTool(
		"parts_list",
		mcp.WithDescription(descriptions.GetToolDescription("parts_list")),
		withFileArguments(),
		withFormatArgument(),
	)
	s.mcpServer.AddTool(partsListTool, s.handlePartsList)

	partsSearchTool := mcp.NewTool(
		"parts_search",
		mcp.WithDescription(descriptions.GetToolDescription("parts_search")),
		withFileArguments(),
		mcp.WithString("l_value",
			mcp.Description("Length to match, e.g. 20 or 20.5"),
		),
		mcp.WithString("w_value",
			mcp.Description("Width to match"),
		),
		mcp.WithString("t_value",
			mcp.Description("Thickness to match"),
		),
		withFormatArgument(),
	)
	s.mcpServer.AddTool(partsSearchTool, s.handlePartsSearch)

	pdfLinesTool := mcp.NewTool(
		"pdf_lines",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_lines")),
		withFileArguments(),
		withFormatArgument(),
	)
	s.mcpServer.AddTool(pdfLinesTool, s.handlePDFLines)

	serverInfoTool := mcp.NewTool(
		"parts_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("parts_server_info")),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// withFileArguments declares the paths and directory arguments shared by
// the extraction tools.
func withFileArguments() mcp.ToolOption {
	return func(t *mcp.Tool) {
		mcp.WithString("paths",
			mcp.Description("Comma or newline separated PDF paths, relative to the configured directory or absolute inside it"),
		)(t)
		mcp.WithString("directory",
			mcp.Description("Use every PDF in this directory when paths is empty (uses default if empty)"),
		)(t)
	}
}

func withFormatArgument() mcp.ToolOption {
	return mcp.WithString("format",
		mcp.Description("Output format: 'text' (default) or 'csv'"),
		mcp.Enum(formatText, formatCSV),
	)
}

// Handler functions
func (s *Server) handlePartsList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runPipeline(ctx, request, parts.ModePartsList)
}

func (s *Server) handlePartsSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runPipeline(ctx, request, parts.ModeAuto)
}

func (s *Server) handlePDFLines(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runPipeline(ctx, request, parts.ModeLines)
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.search.FindPDFsInDirectory(s.paths.Root())
	if err != nil {
		s.logger.WithError(err).Debug("directory listing failed")
		files = nil
	}
	return mcp.NewToolResultText(s.formatServerInfo(files)), nil
}

// runPipeline resolves the requested files, runs the pipeline in mode and
// renders the response. Every failure is reported as a tool error.
func (s *Server) runPipeline(ctx context.Context, request mcp.CallToolRequest, mode parts.Mode) (
	*mcp.CallToolResult, error,
) {
	format := strings.ToLower(request.GetString("format", formatText))
	if format != formatText && format != formatCSV {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported format %q (must be 'text' or 'csv')", format)), nil
	}

	files, err := s.resolveFiles(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := parts.Request{Files: files, Mode: mode}
	if mode == parts.ModeAuto {
		req.L = request.GetString("l_value", "")
		req.W = request.GetString("w_value", "")
		req.T = request.GetString("t_value", "")
	}

	resp, err := s.pipeline.Run(ctx, req)
	if err != nil {
		s.logger.WithError(err).WithField("category", pdferrors.TypeOf(err).String()).Warn("tool run failed")
		return mcp.NewToolResultError(pdferrors.Describe(err)), nil
	}

	if format == formatText {
		return mcp.NewToolResultText(export.Summary(resp)), nil
	}

	var buf bytes.Buffer
	fileName, err := export.WriteResponse(&buf, resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write CSV: %v", err)), nil
	}
	note := fmt.Sprintf("CSV content for %s (%d file(s))", fileName, resp.Stats.Files)
	for _, a := range resp.Annotations {
		note += "\n" + export.FormatAnnotation(a)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(buf.String()),
			mcp.NewTextContent(note),
		},
	}, nil
}

// resolveFiles reads the PDFs named by the paths argument, or every PDF of
// the directory argument when no paths were given.
func (s *Server) resolveFiles(request mcp.CallToolRequest) ([]pdf.NamedFile, error) {
	var resolved []string
	for _, p := range splitPaths(request.GetString("paths", "")) {
		abs, err := s.paths.Resolve(p)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, abs)
	}

	if len(resolved) == 0 {
		dir, err := s.paths.ResolveDirectory(request.GetString("directory", ""))
		if err != nil {
			return nil, err
		}
		found, err := s.search.FindPDFsInDirectory(dir)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no PDF files found in directory: %s", dir)
		}
		for _, f := range found {
			resolved = append(resolved, f.Path)
		}
	}

	return s.search.ReadFiles(resolved)
}

// splitPaths splits a comma or newline separated list, dropping blanks.
func splitPaths(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Formatting methods
func (s *Server) formatServerInfo(files []pdf.FileInfo) string {
	opts := s.pipeline.Options()

	text := fmt.Sprintf("%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Default Directory: %s\n", s.paths.Root())
	text += fmt.Sprintf("Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("Tolerance: %g\n", opts.Tolerance)
	if s.pipeline.OCRAvailable() {
		text += fmt.Sprintf("OCR: enabled (%d dpi, languages: %s)\n",
			opts.OCR.DPI, strings.Join(opts.OCR.Languages, "+"))
	} else {
		text += "OCR: unavailable, scanned pages cannot be read\n"
	}
	text += "\n"

	if len(files) > 0 {
		stats := pdf.SummarizeFiles(files)
		text += fmt.Sprintf("Directory Contents (%d PDF files found, %d bytes total, largest %s):\n",
			stats.TotalFiles, stats.TotalSize, stats.LargestFileName)
		for i, file := range files {
			if i >= serverInfoFileLimit {
				text += fmt.Sprintf("   ... and %d more files\n", len(files)-serverInfoFileLimit)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "Directory Contents: No PDF files found in default directory\n\n"
	}

	text += "Available Tools:\n"
	for _, name := range descriptions.GetAllToolNames() {
		summary, _, _ := strings.Cut(descriptions.GetToolDescription(name), "\n")
		text += fmt.Sprintf("• %s: %s\n", name, summary)
	}

	return text
}

// Run serves the MCP tools over standard I/O until ctx is done or stdin
// closes.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithField("directory", s.paths.Root()).Debug("starting PDF parts MCP server in stdio mode")

	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
