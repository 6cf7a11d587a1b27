package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/StudyRAG/internal/api"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/internal/rag/prompts"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Reason:  job.Error.Reason,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:      string(job.Status),
		CurrentStep: string(job.CurrentStep),
	}
	if job.JobType == jobModel.JobTypeIngest {
		result.Ingest = ToIngestResponse(job.JobPayload)
	} else {
		result.RAGExternalResponse = ToRAGExternalStatus(job.JobPayload)
	}

	return api.JobResponse{
		Id:        job.Id,
		JobType:   string(job.JobType),
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}
	return &api.RAGResponse{
		Tool:    ragData.Tool,
		Topic:   ragData.Topic,
		Answer:  ragData.Answer,
		Sources: ragData.Sources,
	}
}

func ToIngestResponse(p jobModel.JobPayload) *api.IngestResponse {
	if p.IngestFileName == "" {
		return nil
	}
	return &api.IngestResponse{
		FileName:       p.IngestFileName,
		ChunksProduced: p.ChunksProduced,
		ChunksStored:   p.ChunksStored,
		ChunksSkipped:  p.ChunksSkipped,
	}
}

func ToToolsResponse(tools []prompts.Tool) api.ToolsResponse {
	out := api.ToolsResponse{
		Tools:  make([]api.Tool, 0, len(tools)),
		Levels: []string{string(prompts.LevelAS), string(prompts.LevelA2)},
	}
	for _, t := range tools {
		out.Tools = append(out.Tools, api.Tool{Id: string(t.ID), Title: t.Title, Description: t.Description})
	}
	return out
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return BadRequestWithReason(id, error, "", code)
}

func BadRequestWithReason(id string, error string, reason string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Reason:  reason,
			Retry:   false,
		},
	}
}
