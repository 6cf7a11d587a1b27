package mcpServer

import (
	"context"
	"errors"

	"github.com/akolanti/StudyRAG/internal/rag"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "0.1.0"

// Server exposes the study notes to MCP clients over stdio.
type Server struct {
	rag    rag.Service
	server *mcp.Server
	logger *logger_i.Logger
}

func New(ragService rag.Service) (*Server, error) {
	if ragService == nil {
		return nil, errors.New("mcp server needs a rag service")
	}

	impl := &mcp.Implementation{
		Name:    "studyrag",
		Version: Version,
	}

	s := &Server{
		rag:    ragService,
		server: mcp.NewServer(impl, nil),
		logger: logger_i.NewLogger("MCP Server"),
	}
	s.registerTools()
	return s, nil
}

// Run blocks until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
