package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const defaultPageTimeout = 10 * time.Second

// Extractor pulls plain text out of PDF, Word, OpenDocument, RTF and plain
// text files.
type Extractor struct {
	PageTimeout time.Duration
	logger      *logger_i.Logger
}

func NewExtractor() *Extractor {
	return &Extractor{
		PageTimeout: defaultPageTimeout,
		logger:      logger_i.NewLogger("text_extraction"),
	}
}

func (e *Extractor) Extract(ctx context.Context, data []byte, fileName string) (string, error) {
	switch commonModels.GetDocType(fileName) {
	case commonModels.PDF:
		return e.extractPDF(ctx, data)
	case commonModels.DOCX, commonModels.TXT:
		return e.extractDocument(data)
	default:
		return "", fmt.Errorf("%w: unsupported file type %q", ragErrors.ErrExtractionFailed, fileName)
	}
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	log := e.logger.Trace(ctx, config.TRACE_ID_KEY)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	validationErr := api.Validate(bytes.NewReader(data), conf)
	if validationErr != nil {
		log.Warn("PDF failed validation, trying to read it anyway", "error", validationErr)
	}

	reader, err := openPDF(data)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open pdf: %w", ragErrors.ErrExtractionFailed, errors.Join(validationErr, err))
	}

	numPages := reader.NumPage()
	log.Debug("extractPDF", "number of pages", numPages)

	var pages []string
	failed := 0
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := e.protectExtract(ctx, page)
		if err != nil {
			// keep going, one bad page should not lose the document
			log.Warn("Error parsing page content", "page", i, "error", err)
			failed++
			continue
		}
		if strings.TrimSpace(content) != "" {
			pages = append(pages, content)
		}
	}

	if numPages > 0 && failed == numPages {
		return "", fmt.Errorf("%w: no page could be read", ragErrors.ErrExtractionFailed)
	}
	return strings.Join(pages, "\n\n"), nil
}

// openPDF recovers from panics inside the parser on malformed input.
func openPDF(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("pdf parser panic: %v", p)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func (e *Extractor) protectExtract(ctx context.Context, page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				resChan <- result{err: fmt.Errorf("page parser panic: %v", p)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	select {
	case r := <-resChan:
		return r.content, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(e.PageTimeout):
		return "", errors.New("page extraction timeout")
	}
}

func (e *Extractor) extractDocument(data []byte) (string, error) {
	text, err := cat.FromBytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ragErrors.ErrExtractionFailed, err)
	}
	return text, nil
}
