package tooling

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"

	"github.com/doubletabai/tabsql/pkg/training"
)

const TrainToolName = "train"

func (s *Service) TrainTool() mcp.Tool {
	return mcp.NewTool(TrainToolName,
		mcp.WithDescription("Add training data: a DDL statement, a piece of documentation, or an example SQL query with the question it answers."),
		mcp.WithString("kind",
			mcp.Description("Kind of training data"),
			mcp.Required(),
			mcp.Enum(string(training.KindDDL), string(training.KindDocumentation), string(training.KindSQL)),
		),
		mcp.WithString("content", mcp.Description("DDL, documentation text or SQL query"), mcp.Required()),
		mcp.WithString("question", mcp.Description("Question answered by the SQL query. Generated when omitted.")),
	)
}

func (s *Service) Train(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawKind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError("kind is required"), nil
	}
	kind, err := training.ParseKind(rawKind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content is required"), nil
	}
	question := req.GetString("question", "")

	var item training.Item
	switch kind {
	case training.KindSQL:
		item, err = s.Agent.TrainSQL(ctx, question, content, training.SourceMCP)
	default:
		item, err = s.Agent.Train(ctx, kind, "", content, training.SourceMCP)
	}
	if err != nil {
		log.Warn().Str("kind", rawKind).Err(err).Msg("Failed to store training data")
		return mcp.NewToolResultError(fmt.Sprintf("Failed to store training data: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stored training data %s", item.ID)), nil
}

const ListTrainingDataToolName = "list_training_data"

func (s *Service) ListTrainingDataTool() mcp.Tool {
	return mcp.NewTool(ListTrainingDataToolName,
		mcp.WithDescription("List all stored training data."),
	)
}

func (s *Service) ListTrainingData(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.Agent.TrainingData(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list training data: %v", err)), nil
	}
	return jsonResult(items)
}

const RemoveTrainingDataToolName = "remove_training_data"

func (s *Service) RemoveTrainingDataTool() mcp.Tool {
	return mcp.NewTool(RemoveTrainingDataToolName,
		mcp.WithDescription("Remove a training data item by id."),
		mcp.WithString("id", mcp.Description("Training data id"), mcp.Required()),
	)
}

func (s *Service) RemoveTrainingData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}
	if err := s.Agent.RemoveTrainingData(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to remove training data: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed training data %s", id)), nil
}
