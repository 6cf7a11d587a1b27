package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	JobType   string            `json:"job_type,omitempty" example:"Generate"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"503"`
	Message string `json:"message" example:"Embedding service unavailable"`
	Reason  string `json:"reason,omitempty" example:"unreachable"`
	Retry   bool   `json:"can_retry" example:"true"`
}

type RAGResponse struct {
	Tool    string   `json:"tool,omitempty"`
	Topic   string   `json:"topic"`
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type IngestResponse struct {
	FileName       string `json:"file_name"`
	ChunksProduced int    `json:"chunks_produced"`
	ChunksStored   int    `json:"chunks_stored"`
	ChunksSkipped  int    `json:"chunks_skipped"`
}

type Result struct {
	Status              string          `json:"status"`
	CurrentStep         string          `json:"current_step,omitempty"`
	RAGExternalResponse *RAGResponse    `json:"rag_response,omitempty"`
	Ingest              *IngestResponse `json:"ingest,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type DocumentsResponse struct {
	Documents []string `json:"documents"`
}

type DeleteDocumentResponse struct {
	FileName string `json:"file_name"`
	Deleted  int64  `json:"deleted"`
}

type Tool struct {
	Id          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ToolsResponse struct {
	Tools  []Tool   `json:"tools"`
	Levels []string `json:"levels"`
}

// requests---------------------

type GenerateRequest struct {
	Tool  string `json:"tool,omitempty" validate:"omitempty,max=64"`
	Topic string `json:"topic" validate:"required,max=2000"`
	Level string `json:"level,omitempty" validate:"omitempty,max=32"`
	Notes string `json:"notes,omitempty" validate:"max=10000"`
}

type IngestDocumentRequest struct {
	DocumentName string `validate:"required,max=255"`
	Replace      bool
}
