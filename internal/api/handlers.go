package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/ppiankov/clausewatch/internal/extract"
	"github.com/ppiankov/clausewatch/internal/llm"
	"github.com/ppiankov/clausewatch/internal/store"
)

const maxJSONBody = 1 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size, with 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "No file part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := store.SanitizeFilename(header.Filename)
	extractor, err := extract.ForFile(filename)
	if err != nil {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	doc, err := extractor.Extract(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Warn("extraction failed", "filename", filename, "error", err)
		jsonError(w, "could not extract text: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	clauses := s.pipeline.Segment(ctx, doc.Text)

	id, err := s.store.Save(filename, bytes.NewReader(data), clauses)
	if err != nil {
		s.log.Error("store upload failed", "filename", filename, "error", err)
		jsonError(w, "failed to store document", http.StatusInternalServerError)
		return
	}

	report := s.pipeline.AnalyzeClauses(ctx, filename, clauses)
	s.log.Info("document uploaded",
		"doc_id", id,
		"format", doc.Format,
		"clauses", len(clauses),
		"flagged", report.Stats.Flagged,
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":        id,
		"risks":         report.Findings,
		"num_sentences": len(clauses),
		"message":       fmt.Sprintf("%s uploaded, sentences extracted, and risks analyzed.", formatLabel(doc.Format)),
	})
}

type analyzeRequest struct {
	DocID string `json:"doc_id"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.DocID == "" {
		jsonError(w, "No doc_id provided", http.StatusBadRequest)
		return
	}

	clauses, ok := s.loadClauses(w, req.DocID)
	if !ok {
		return
	}

	report := s.pipeline.AnalyzeClauses(r.Context(), req.DocID, clauses)
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis": report.Findings,
		"score":    report.Score,
	})
}

type askRequest struct {
	Question string `json:"question"`
	DocID    string `json:"doc_id"`
}

// handleAsk answers with plain text
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var clauses []string
	if req.DocID != "" {
		var ok bool
		if clauses, ok = s.loadClauses(w, req.DocID); !ok {
			return
		}
	}

	answer, err := s.pipeline.Ask(r.Context(), req.Question, clauses)
	switch {
	case errors.Is(err, llm.ErrEmptyQuestion):
		jsonError(w, "No question provided", http.StatusBadRequest)
		return
	case errors.Is(err, llm.ErrAssistantDisabled):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		jsonError(w, "failed to answer question", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, answer.Answer)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := s.store.Delete(docID); err != nil {
		if errors.Is(err, store.ErrNotFound) || store.ValidateID(docID) != nil {
			jsonError(w, "Document not found", http.StatusNotFound)
			return
		}
		s.log.Error("delete document failed", "doc_id", docID, "error", err)
		jsonError(w, "failed to delete document", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadClauses writes the error response itself when it returns false
func (s *Server) loadClauses(w http.ResponseWriter, id string) ([]string, bool) {
	clauses, err := s.store.Clauses(id)
	if err == nil {
		return clauses, true
	}
	// A malformed id can never name a stored document
	if errors.Is(err, store.ErrNotFound) || store.ValidateID(id) != nil {
		jsonError(w, "Document not found", http.StatusNotFound)
		return nil, false
	}
	s.log.Error("load clauses failed", "doc_id", id, "error", err)
	jsonError(w, "failed to load document", http.StatusInternalServerError)
	return nil, false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(v)
}

func formatLabel(format string) string {
	switch format {
	case extract.FormatPDF:
		return "PDF"
	case extract.FormatDOCX:
		return "DOCX"
	case extract.FormatMarkdown:
		return "Markdown"
	case extract.FormatHTML:
		return "HTML"
	default:
		return "Document"
	}
}
