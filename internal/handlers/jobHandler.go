package handlers

import (
	"context"

	"github.com/akolanti/StudyRAG/internal/adapter/utils"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/internal/job"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
)

type JobHandler struct {
	service *job.Service
	logger  *logger_i.Logger
}

func NewJobHandler(jobService *job.Service) *JobHandler {
	h := &JobHandler{service: jobService, logger: logger_i.NewLogger("JobHandler")}
	h.logger.Info("Starting job handler")
	return h
}

// CreateNewJob queues a job for the request in ctx and returns its id.
func (h *JobHandler) CreateNewJob(ctx context.Context, jobType jobModel.JobType, payload jobModel.JobPayload) (string, error) {
	j := job.NewJob(utils.GetNewUUID(), utils.TraceID(ctx), jobType, payload)
	return j.Id, h.service.Submit(ctx, j)
}

func (h *JobHandler) GetJobStatus(ctx context.Context, id string) (jobModel.Job, bool) {
	return h.service.Status(ctx, id)
}
