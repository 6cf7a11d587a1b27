package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/StudyRAG/internal/adapter"
	"github.com/akolanti/StudyRAG/internal/adapter/utils"
	"github.com/akolanti/StudyRAG/internal/api"
	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/internal/rag"
	"github.com/akolanti/StudyRAG/internal/rag/prompts"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/go-playground/validator/v10"
)

// multipart parts above this stay on disk while parsing
const multipartMemory = 8 << 20

type Config struct {
	UploadDir        string
	MaxDocumentBytes int64
}

type RequestHandler struct {
	jobs     *JobHandler
	rag      rag.Service
	validate *validator.Validate
	cfg      Config
}

func NewRequestHandler(jobs *JobHandler, ragService rag.Service, cfg Config) *RequestHandler {
	// rebuilt so it picks up the handler installed by logger_i.Init
	logRH = logger_i.NewLogger("RequestHandler")
	return &RequestHandler{
		jobs:     jobs,
		rag:      ragService,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cfg:      cfg,
	}
}

// Health
// @Summary      Liveness check
// @Tags         Service
// @Produce      json
// @Success      200  {object}  map[string]string  "status ok"
// @Router       /healthz [get]
func (h *RequestHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Tools
// @Summary      List the study tools and levels
// @Tags         Service
// @Produce      json
// @Success      200  {object}  api.ToolsResponse
// @Router       /tools [get]
func (h *RequestHandler) Tools(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, adapter.ToToolsResponse(prompts.Tools()))
}

// Generate queues a generation job for one of the study tools.
// @Summary      Queue a generation job
// @Description  Validates the request and queues a job that retrieves from the ingested notes, completes and refines. Poll status_url for the answer.
// @Tags         Generation
// @Accept       json
// @Produce      json
// @Param        request  body      api.GenerateRequest  true  "Tool, topic, level and optional notes"
// @Success      202      {object}  api.InitJobResponse  "Job queued"
// @Failure      400      {object}  api.JobResponse      "Invalid body or unknown tool"
// @Failure      503      {object}  api.JobResponse      "Queue unavailable"
// @Router       /generate [post]
func (h *RequestHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	defer r.Body.Close()

	var req api.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Request body must be JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", validationMessage(err))
		return
	}
	if req.Tool != "" {
		if _, err := prompts.Lookup(prompts.ToolID(req.Tool)); err != nil {
			writeClassifiedError(w, r.Context(), "", err)
			return
		}
	}

	h.queue(w, r, jobModel.JobTypeGenerate, jobModel.JobPayload{
		Tool:  req.Tool,
		Topic: req.Topic,
		Level: string(prompts.ParseLevel(req.Level)),
		Notes: req.Notes,
	})
}

// GetStatus
// @Summary      Get job status
// @Description  Current step, result or classified error of a job.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse
// @Failure      404  {object}  api.JobResponse  "Job not found"
// @Router       /status/{id} [get]
func (h *RequestHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	result, found := h.jobs.GetJobStatus(r.Context(), id)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, id, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostDocument stores the upload under the upload dir and queues an
// ingestion job. The worker removes the file once it is ingested.
// @Summary      Upload a document for ingestion
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        document       formData  file    true   "PDF, DOCX, ODT, RTF, TXT or MD file"
// @Param        document_name  formData  string  false  "Name to store it under, defaults to the file name"
// @Param        replace        formData  bool    false  "Replace the records already stored under this name"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.JobResponse  "Missing file or unsupported type"
// @Failure      413  {object}  api.JobResponse  "Document too large"
// @Router       /documents [post]
func (h *RequestHandler) PostDocument(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	if err := ensureDirectory(h.cfg.UploadDir); err != nil {
		logRH.Error("Couldn't create upload directory", "dir", h.cfg.UploadDir, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxDocumentBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeClassifiedError(w, r.Context(), "", ragErrors.ErrDocumentTooLarge)
			return
		}
		WriteErrorResponse(w, http.StatusBadRequest, "", "Expected a multipart form with a document")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fileReader, header, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	req := api.IngestDocumentRequest{
		DocumentName: documentName(r.FormValue("document_name"), header.Filename),
	}
	if v := r.FormValue("replace"); v != "" {
		req.Replace, err = strconv.ParseBool(v)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "replace must be true or false")
			return
		}
	}
	if err := h.validate.Struct(req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", validationMessage(err))
		return
	}
	if commonModels.GetDocType(req.DocumentName) == commonModels.ERR {
		WriteErrorResponse(w, http.StatusBadRequest, req.DocumentName, "Unsupported document type")
		return
	}
	if header.Size > h.cfg.MaxDocumentBytes {
		writeClassifiedError(w, r.Context(), req.DocumentName, ragErrors.ErrDocumentTooLarge)
		return
	}

	tempFilePath := filepath.Join(h.cfg.UploadDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), req.DocumentName))
	if err := saveUpload(tempFilePath, fileReader); err != nil {
		logRH.Error("Couldn't store upload", "path", tempFilePath, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, req.DocumentName, "Storage error")
		return
	}

	if !h.queue(w, r, jobModel.JobTypeIngest, jobModel.JobPayload{
		IngestFileName: req.DocumentName,
		IngestPath:     tempFilePath,
		Replace:        req.Replace,
	}) {
		_ = os.Remove(tempFilePath)
	}
}

// ListDocuments
// @Summary      List ingested documents
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.DocumentsResponse
// @Failure      503  {object}  api.JobResponse  "Vector store unavailable"
// @Router       /documents [get]
func (h *RequestHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	names, err := h.rag.ListDocuments(r.Context())
	if err != nil {
		writeClassifiedError(w, r.Context(), "", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJsonResponse(w, http.StatusOK, api.DocumentsResponse{Documents: names})
}

// DeleteDocument
// @Summary      Delete every chunk of a document
// @Tags         Documents
// @Produce      json
// @Param        name  path      string  true  "Document name"
// @Success      200   {object}  api.DeleteDocumentResponse
// @Failure      400   {object}  api.JobResponse  "Missing name"
// @Failure      503   {object}  api.JobResponse  "Vector store unavailable"
// @Router       /documents/{name} [delete]
func (h *RequestHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	name, err := documentParam(r)
	if err != nil || strings.TrimSpace(name) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Document name is required")
		return
	}
	n, err := h.rag.DeleteDocument(r.Context(), name)
	if err != nil {
		writeClassifiedError(w, r.Context(), name, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.DeleteDocumentResponse{FileName: name, Deleted: n})
}

// documentParam returns the decoded {name}. chi matches on RawPath when the
// request has one, and only then is the param still escaped.
func documentParam(r *http.Request) (string, error) {
	name := utils.GetChiURLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, nil
	}
	return url.PathUnescape(name)
}

func (h *RequestHandler) queue(w http.ResponseWriter, r *http.Request, jobType jobModel.JobType, payload jobModel.JobPayload) bool {
	id, err := h.jobs.CreateNewJob(r.Context(), jobType, payload)
	if err != nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, id, "Could not queue job")
		return false
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(id))
	return true
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return err
	}
	return dst.Close()
}

// documentName prefers the explicit form value and strips any directories.
func documentName(formValue, uploaded string) string {
	name := strings.TrimSpace(formValue)
	if name == "" {
		name = uploaded
	}
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		return ""
	}
	return name
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag())
	}
	return "Bad Request"
}
