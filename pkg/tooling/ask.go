package tooling

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
)

const AskToolName = "ask"

func (s *Service) AskTool() mcp.Tool {
	return mcp.NewTool(AskToolName,
		mcp.WithDescription("Answer a question about the database: generates SQL from the trained context, runs it and returns the rows."),
		mcp.WithString("question", mcp.Description("Question in natural language"), mcp.Required()),
	)
}

func (s *Service) Ask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question is required"), nil
	}

	ans, err := s.Agent.Ask(ctx, question)
	if err != nil {
		log.Warn().Str("question", question).Err(err).Msg("Failed to answer question")
		if ans != nil && ans.SQL != "" {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to answer question: %v\nGenerated SQL:\n%s", err, ans.SQL)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to answer question: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"sql":    ans.SQL,
		"result": ans.Result,
	})
}

const GenerateSQLToolName = "generate_sql"

func (s *Service) GenerateSQLTool() mcp.Tool {
	return mcp.NewTool(GenerateSQLToolName,
		mcp.WithDescription("Generate SQL for a question without running it."),
		mcp.WithString("question", mcp.Description("Question in natural language"), mcp.Required()),
	)
}

func (s *Service) GenerateSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question is required"), nil
	}

	sql, _, err := s.Agent.GenerateSQL(ctx, question)
	if err != nil {
		log.Warn().Str("question", question).Err(err).Msg("Failed to generate SQL")
		return mcp.NewToolResultError(fmt.Sprintf("Failed to generate SQL: %v", err)), nil
	}
	return mcp.NewToolResultText(sql), nil
}

const ListTablesToolName = "list_tables"

func (s *Service) ListTablesTool() mcp.Tool {
	return mcp.NewTool(ListTablesToolName,
		mcp.WithDescription("List tables of the connected database."),
	)
}

func (s *Service) ListTables(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tables, err := s.Agent.Tables(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list tables: %v", err)), nil
	}
	return jsonResult(tables)
}
