package mcp

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dfe-digital/nomination-uploader/internal/config"
	"github.com/dfe-digital/nomination-uploader/internal/kissflow"
	"github.com/dfe-digital/nomination-uploader/internal/shortlist"
	"github.com/dfe-digital/nomination-uploader/internal/uploader"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *uploader.Service
	client    *kissflow.Client
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *uploader.Service, client *kissflow.Client) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		service:   service,
		client:    client,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	nominationExtractTool := mcp.NewTool(
		"nomination_extract",
		mcp.WithDescription("Extract the section/question/answer structure from a nomination PDF without submitting it"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Nomination PDF file name, resolved against the nomination directory"),
		),
	)
	s.mcpServer.AddTool(nominationExtractTool, s.handleNominationExtract)

	nominationUploadTool := mcp.NewTool(
		"nomination_upload",
		mcp.WithDescription("Structure a nomination PDF, upload it with its evidence files, and file a new workflow case"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Nomination PDF file name, resolved against the nomination directory"),
		),
	)
	s.mcpServer.AddTool(nominationUploadTool, s.handleNominationUpload)

	shortlistExportTool := mcp.NewTool(
		"shortlist_export",
		mcp.WithDescription("Render the working shortlist workbook for a directorate or round"),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("Path to write the xlsx workbook to"),
		),
		mcp.WithString("directorate",
			mcp.Description("Only include cases awaiting ranking in this directorate"),
		),
		mcp.WithString("round",
			mcp.Description("Only include directorate-ranked cases in this round, e.g. '2026 BD'"),
		),
	)
	s.mcpServer.AddTool(shortlistExportTool, s.handleShortlistExport)

	shortlistExportFinalTool := mcp.NewTool(
		"shortlist_export_final",
		mcp.WithDescription("Render the final submission sheet for the central secretariat"),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("Path to write the xlsx workbook to"),
		),
		mcp.WithString("round",
			mcp.Description("Round to export, e.g. '2026 BD'; other values disable the filter"),
		),
	)
	s.mcpServer.AddTool(shortlistExportFinalTool, s.handleShortlistExportFinal)

	shortlistImportTool := mcp.NewTool(
		"shortlist_import",
		mcp.WithDescription("Read rankings back from an edited shortlist workbook and apply them to the workflow"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the edited xlsx workbook"),
		),
	)
	s.mcpServer.AddTool(shortlistImportTool, s.handleShortlistImport)

	uploaderInfoTool := mcp.NewTool(
		"uploader_info",
		mcp.WithDescription("Get server information, configured directories, and the workflow host in use"),
	)
	s.mcpServer.AddTool(uploaderInfoTool, s.handleUploaderInfo)
}

// Handler functions
func (s *Server) handleNominationExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.ExtractNomination(uploader.ExtractNominationRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Extracted nomination: %s\n", result.Path)
	responseText += fmt.Sprintf("Sections: %d\n", result.Sections)
	responseText += "\nDocument:\n"
	responseText += result.Text

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleNominationUpload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.UploadNomination(ctx, uploader.UploadNominationRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := "Nomination filed on the workflow\n"
	responseText += fmt.Sprintf("Case ID: %s\n", result.CaseID)
	if result.NomineeName != "" {
		responseText += fmt.Sprintf("Nominee: %s\n", result.NomineeName)
	}
	responseText += fmt.Sprintf("Support documents uploaded: %d\n", result.SupportDocuments)
	responseText += fmt.Sprintf("Next step: %s\n", result.NextStepURI)

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleShortlistExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := request.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	directorate, _ := args["directorate"].(string)
	round, _ := args["round"].(string)

	workbook, err := shortlist.Export(ctx, s.client, directorate, round)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := workbook.SaveAs(output); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save workbook: %v", err)), nil
	}

	responseText := fmt.Sprintf("Shortlist written to %s\n", output)
	if directorate != "" {
		responseText += fmt.Sprintf("Directorate: %s\n", directorate)
	}
	if round != "" {
		responseText += fmt.Sprintf("Round: %s\n", round)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleShortlistExportFinal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := request.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	round, _ := args["round"].(string)

	workbook, err := shortlist.ExportFinal(ctx, s.client, round)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := workbook.SaveAs(output); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save workbook: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Final submission sheet written to %s", output)), nil
}

func (s *Server) handleShortlistImport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := shortlist.Import(ctx, s.client, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Shortlist imported from %s\n", path)
	responseText += fmt.Sprintf("Cases updated: %d\n", result.Updated)
	responseText += fmt.Sprintf("Cases progressed: %d\n", result.Progressed)
	if result.Skipped > 0 {
		responseText += fmt.Sprintf("Rows skipped (no matching case): %d\n", result.Skipped)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleUploaderInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info := s.service.Info(uploader.InfoRequest{})

	responseText := fmt.Sprintf("%s v%s\n", s.config.ServerName, s.config.Version)
	responseText += fmt.Sprintf("Nomination directory: %s\n", info.NominationDir)
	responseText += fmt.Sprintf("Evidence bucket: %s\n", info.BucketDir)
	responseText += fmt.Sprintf("Workflow host: %s\n", info.WorkflowHost)
	responseText += fmt.Sprintf("Max file size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	responseText += "\nTools:\n"
	responseText += "• nomination_extract - inspect a nomination PDF's structure\n"
	responseText += "• nomination_upload - file a nomination and its evidence on the workflow\n"
	responseText += "• shortlist_export - render the working shortlist workbook\n"
	responseText += "• shortlist_export_final - render the final submission sheet\n"
	responseText += "• shortlist_import - apply edited rankings back to the workflow\n"

	return mcp.NewToolResultText(responseText), nil
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting nomination uploader in stdio mode")
		log.Printf("Nomination directory: %s", s.config.NominationDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server in HTTP server mode
func (s *Server) runServerMode(ctx context.Context) error {
	// The mark3labs transport only does stdio for now.
	log.Printf("Server mode not yet implemented with mark3labs/mcp-go")
	log.Printf("Falling back to stdio mode")
	return s.runStdioMode(ctx)
}
