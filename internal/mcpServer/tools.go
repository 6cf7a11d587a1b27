package mcpServer

import (
	"context"
	"errors"
	"strings"

	"github.com/akolanti/StudyRAG/internal/rag/prompts"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultSearchLimit = 5

type SearchNotesInput struct {
	Query string `json:"query" jsonschema:"the question or phrase to look up in the study notes"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
}

type SearchNotesOutput struct {
	Results []NoteChunk `json:"results"`
	Count   int         `json:"count"`
}

type NoteChunk struct {
	ID       string  `json:"id"`
	FileName string  `json:"file_name"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

type ListDocumentsInput struct{}

type ListDocumentsOutput struct {
	Documents []string `json:"documents"`
	Count     int      `json:"count"`
}

type GenerateInput struct {
	Tool  string `json:"tool,omitempty" jsonschema:"one of ask-question, exam-questions, flashcards, revision-questions, case-study, topic-summary (default ask-question)"`
	Topic string `json:"topic" jsonschema:"the topic or question"`
	Level string `json:"level,omitempty" jsonschema:"AS Level or A2 Level (default AS Level)"`
	Notes string `json:"notes,omitempty" jsonschema:"extra notes from the student"`
}

type GenerateOutput struct {
	Tool   string `json:"tool"`
	Answer string `json:"answer"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_notes",
		Description: "Find the study note chunks most similar to a query",
	}, s.handleSearchNotes)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the names of the ingested documents",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate",
		Description: "Run one of the study tools against the notes",
	}, s.handleGenerate)
}

func (s *Server) handleSearchNotes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchNotesInput,
) (*mcp.CallToolResult, SearchNotesOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchNotesOutput{}, errors.New("query must not be empty")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	records, err := s.rag.Sources(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchNotesOutput{}, err
	}

	output := SearchNotesOutput{
		Results: make([]NoteChunk, len(records)),
		Count:   len(records),
	}
	for i := range records {
		output.Results[i] = NoteChunk{
			ID:       records[i].Record.Id,
			FileName: records[i].Record.FileName,
			Text:     records[i].Record.Text,
			Score:    records[i].Score,
		}
	}
	return nil, output, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	names, err := s.rag.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	if names == nil {
		names = []string{}
	}
	return nil, ListDocumentsOutput{Documents: names, Count: len(names)}, nil
}

func (s *Server) handleGenerate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateInput,
) (*mcp.CallToolResult, GenerateOutput, error) {
	tool := prompts.ToolID(input.Tool)
	if tool == "" {
		tool = prompts.AskQuestion
	}
	if _, err := prompts.Lookup(tool); err != nil {
		return nil, GenerateOutput{}, err
	}
	if strings.TrimSpace(input.Topic) == "" {
		return nil, GenerateOutput{}, errors.New("topic must not be empty")
	}

	answer, err := s.rag.Generate(ctx, tool, input.Topic, input.Level, input.Notes)
	if err != nil {
		s.logger.Error("generate tool failed", "tool", tool, "error", err)
		return nil, GenerateOutput{}, err
	}
	return nil, GenerateOutput{Tool: string(tool), Answer: answer}, nil
}
