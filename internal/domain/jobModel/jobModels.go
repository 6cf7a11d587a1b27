package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	GenerateInit  InternalStatus = "Init"
	RetrievalCall InternalStatus = "Retrieval"
	LLMCall       InternalStatus = "LLM"
	RefineCall    InternalStatus = "Refinement"

	// ingestion steps mirror the progress labels reported by the ingest package
	IngestInit InternalStatus = "IngestInit"
	Error      InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeGenerate JobType = "Generate"
	JobTypeIngest   JobType = "Ingest"
)

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Tool    string   `json:"tool,omitempty"`
	Topic   string   `json:"topic,omitempty"`
	Level   string   `json:"level,omitempty"`
	Notes   string   `json:"notes,omitempty"`
	Answer  string   `json:"answer,omitempty"`
	Sources []string `json:"sources,omitempty"`

	IngestFileName string `json:"ingest_file_name,omitempty"`
	IngestPath     string `json:"ingest_path,omitempty"`
	Replace        bool   `json:"replace,omitempty"`
	ChunksProduced int    `json:"chunks_produced,omitempty"`
	ChunksStored   int    `json:"chunks_stored,omitempty"`
	ChunksSkipped  int    `json:"chunks_skipped,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}
