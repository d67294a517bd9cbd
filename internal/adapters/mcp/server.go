// Package mcpadapter exposes the notice answer pipeline as an MCP tool.
package mcpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
	"github.com/kirillkom/campus-notice-assistant/internal/core/ports"
)

const (
	serverName    = "Campus Notice Assistant MCP"
	serverVersion = "0.1.0"

	askToolName = "ask_campus_notices"
)

type Server struct {
	mcpServer *server.MCPServer
}

// AskInput mirrors the HTTP chat request.
type AskInput struct {
	Question   string `json:"question"`
	UserID     string `json:"user_id,omitempty"`
	Department string `json:"department,omitempty"`
	Grade      string `json:"grade,omitempty"`
}

func New(chat ports.ChatService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)
	mcpServer.AddTool(askTool(), askHandler(chat, logger))
	return &Server{mcpServer: mcpServer}
}

// Serve runs the server on stdio until stdin closes.
func (s *Server) Serve() error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

func askTool() mcp.Tool {
	return mcp.NewTool(
		askToolName,
		mcp.WithDescription("Answers a question about campus notices with citations, or refuses with a reason code"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question about campus notices, 3 to 400 characters"),
			mcp.MinLength(domain.MinQuestionRunes),
			mcp.MaxLength(domain.MaxQuestionRunes),
		),
		mcp.WithString("user_id",
			mcp.Description("Caller identifier echoed in the response metadata"),
		),
		mcp.WithString("department",
			mcp.Description("Department code used to boost and filter notices"),
		),
		mcp.WithString("grade",
			mcp.Description("Student grade used to boost and filter notices"),
		),
		mcp.WithOutputSchema[domain.ChatResponse](),
	)
}

func askHandler(chat ports.ChatService, logger *slog.Logger) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var input AskInput
		if err := request.BindArguments(&input); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid ask_campus_notices arguments", err), nil
		}
		if n := utf8.RuneCountInString(input.Question); n < domain.MinQuestionRunes || n > domain.MaxQuestionRunes {
			return mcp.NewToolResultError(fmt.Sprintf("question must be %d-%d characters, got %d",
				domain.MinQuestionRunes, domain.MaxQuestionRunes, n)), nil
		}

		resp, err := chat.Answer(ctx, domain.ChatRequest{
			Question:   input.Question,
			UserID:     input.UserID,
			Department: input.Department,
			Grade:      input.Grade,
		})
		if err != nil {
			logger.ErrorContext(ctx, "mcp_chat_failed", "tool", askToolName, "error", err)
			return mcp.NewToolResultError("chat_failure"), nil
		}

		return mcp.NewToolResultStructured(resp, resp.Answer), nil
	}
}
