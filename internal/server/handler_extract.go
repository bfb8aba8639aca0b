package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/toricodesthings/credit-report-service/internal/creditreport"
	"github.com/toricodesthings/credit-report-service/internal/extract"
)

func (s *Server) handleExtractAndSummarize(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}

	up, err := readUpload(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, ErrMissingFile):
			s.metrics.incRejected()
			writeErr(w, http.StatusBadRequest, "No file part in the request")
		case errors.Is(err, ErrEmptyFilename):
			s.metrics.incRejected()
			writeErr(w, http.StatusBadRequest, "No selected file")
		case errors.As(err, &maxErr):
			s.metrics.incRejected()
			writeErr(w, http.StatusRequestEntityTooLarge, "File exceeds upload limit")
		default:
			s.logger.Warn("upload read failed", "error", err)
			s.metrics.incRejected()
			writeErr(w, http.StatusBadRequest, "Failed to read uploaded file")
		}
		return
	}

	ctx := r.Context()
	start := time.Now()

	text, pages, err := extract.Text(ctx, s.extractor, up.Data)
	if err != nil {
		var perr *extract.ParseError
		if errors.As(err, &perr) {
			s.logger.Info("document rejected",
				"filename", sanitizeLogString(up.Filename),
				"content_type", sanitizeLogString(up.ContentType),
				"bytes", len(up.Data),
				"error", perr.Error())
			s.metrics.incRejected()
			writeErr(w, http.StatusBadRequest, "Failed to extract text from PDF: "+sanitizeError(perr))
			return
		}
		s.logger.Error("text extraction failed", "backend", s.extractor.Name(), "error", err)
		writeErr(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	words, chars := extract.BuildCounts(text)
	s.logger.Debug("text extracted",
		"backend", s.extractor.Name(), "pages", pages, "words", words, "chars", chars, "duration", time.Since(start))

	res, err := creditreport.Extract(ctx, s.annotator, text)
	if err != nil {
		s.logger.Error("annotation failed", "error", err)
		writeErr(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.metrics.incExtracted()
	writeJSON(w, http.StatusOK, res)
}
