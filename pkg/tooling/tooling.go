package tooling

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/doubletabai/tabsql/pkg/agent"
)

const serverInstructions = "tabsql answers questions about a relational database by generating SQL from trained " +
	"DDL, documentation and example queries. Train it before asking."

// Service exposes the agent as MCP tools.
type Service struct {
	Agent   *agent.Agent
	Version string
}

func New(a *agent.Agent, version string) *Service {
	return &Service{Agent: a, Version: version}
}

// Server builds an MCP server with every tool registered.
func (s *Service) Server() *server.MCPServer {
	srv := server.NewMCPServer(
		"tabsql",
		s.Version,
		server.WithToolCapabilities(false),
		server.WithInstructions(serverInstructions),
		server.WithRecovery(),
	)
	srv.AddTool(s.AskTool(), s.Ask)
	srv.AddTool(s.GenerateSQLTool(), s.GenerateSQL)
	srv.AddTool(s.TrainTool(), s.Train)
	srv.AddTool(s.ListTrainingDataTool(), s.ListTrainingData)
	srv.AddTool(s.RemoveTrainingDataTool(), s.RemoveTrainingData)
	srv.AddTool(s.ListTablesTool(), s.ListTables)
	return srv
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
