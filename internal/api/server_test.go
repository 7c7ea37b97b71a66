package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/clausewatch/internal/llm"
	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/pipeline"
	"github.com/ppiankov/clausewatch/internal/store"
)

const contractText = "This lease is subject to automatic renewal. Rent is due on the first day of each month. " +
	"The deposit is non-refundable."

type stubProvider struct {
	answer string
	err    error
	prompt string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *stubProvider) Answer(ctx context.Context, req llm.AskRequest) (*llm.AskResponse, error) {
	p.prompt = req.Prompt
	if p.err != nil {
		return nil, p.err
	}
	return &llm.AskResponse{Answer: p.answer, Model: "stub-1"}, nil
}

func newTestServer(t *testing.T, provider llm.Provider, apiKey string) (*Server, *store.Store) {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Server.APIKey = apiKey

	p, err := pipeline.NewWithComponents(cfg, nil, pipeline.Components{Provider: provider})
	require.NoError(t, err)
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	return NewServer(p, st, nil, cfg.Server), st
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type uploadResponse struct {
	DocID        string              `json:"doc_id"`
	Risks        []model.RiskFinding `json:"risks"`
	NumSentences int                 `json:"num_sentences"`
	Message      string              `json:"message"`
}

func upload(t *testing.T, srv *Server) uploadResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "lease.txt", contractText))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil, "")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","assistant":false}`, rec.Body.String())
}

func TestPatterns(t *testing.T) {
	srv, _ := newTestServer(t, nil, "")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patterns", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Patterns []struct {
			Name     string `json:"name"`
			Severity string `json:"severity"`
		} `json:"patterns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Patterns, 10)
	assert.Equal(t, "automatic renewal", resp.Patterns[0].Name)
}

func TestUpload(t *testing.T) {
	srv, st := newTestServer(t, nil, "")
	resp := upload(t, srv)

	require.NoError(t, store.ValidateID(resp.DocID))
	assert.Equal(t, 3, resp.NumSentences)
	assert.Equal(t, "Document uploaded, sentences extracted, and risks analyzed.", resp.Message)
	require.Len(t, resp.Risks, 2)
	assert.Equal(t, []string{"automatic renewal"}, resp.Risks[0].Risks)
	assert.Equal(t, 2, resp.Risks[1].Position)

	clauses, err := st.Clauses(resp.DocID)
	require.NoError(t, err)
	assert.Equal(t, "The deposit is non-refundable.", clauses[2])
}

func TestUpload_Errors(t *testing.T) {
	srv, _ := newTestServer(t, nil, "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "sheet.xlsx", "a,b"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, jsonRequest(http.MethodPost, "/upload", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "broken.pdf", "not a pdf"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAnalyze(t *testing.T) {
	srv, _ := newTestServer(t, nil, "")
	doc := upload(t, srv)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, jsonRequest(http.MethodPost, "/analyze", `{"doc_id":"`+doc.DocID+`"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Analysis []model.RiskFinding `json:"analysis"`
		Score    model.Score         `json:"score"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, doc.Risks, resp.Analysis)
	assert.Positive(t, resp.Score.Index)
}

func TestAnalyze_Errors(t *testing.T) {
	srv, _ := newTestServer(t, nil, "")

	tests := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"missing doc_id", `{}`, http.StatusBadRequest, "No doc_id provided"},
		{"invalid json", `{`, http.StatusBadRequest, "invalid JSON body"},
		{"unknown doc", `{"doc_id":"0b8f5b7e-8f0c-4f62-9a53-6f1d2b0f8d11"}`, http.StatusNotFound, "Document not found"},
		{"path traversal", `{"doc_id":"../etc/passwd"}`, http.StatusNotFound, "Document not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, jsonRequest(http.MethodPost, "/analyze", tt.body))
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.msg)
		})
	}
}

func TestAsk(t *testing.T) {
	provider := &stubProvider{answer: "No, the deposit is non-refundable."}
	srv, _ := newTestServer(t, provider, "")
	doc := upload(t, srv)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, jsonRequest(http.MethodPost, "/ask",
		`{"question":"Can I get my deposit back?","doc_id":"`+doc.DocID+`"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No, the deposit is non-refundable.", rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, provider.prompt, "Rent is due on the first day of each month.\nThe deposit is non-refundable.")
}

func TestAsk_Errors(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv, _ := newTestServer(t, nil, "")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, jsonRequest(http.MethodPost, "/ask", `{"question":"Is this fair?"}`))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("empty question", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubProvider{answer: "x"}, "")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, jsonRequest(http.MethodPost, "/ask", `{"question":"  "}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("provider error", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubProvider{err: errors.New("upstream 500")}, "")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, jsonRequest(http.MethodPost, "/ask", `{"question":"Is this fair?"}`))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("unknown document", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubProvider{answer: "x"}, "")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, jsonRequest(http.MethodPost, "/ask",
			`{"question":"Is this fair?","doc_id":"0b8f5b7e-8f0c-4f62-9a53-6f1d2b0f8d11"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteDocument(t *testing.T) {
	srv, st := newTestServer(t, nil, "")
	doc := upload(t, srv)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/documents/"+doc.DocID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := st.Clauses(doc.DocID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/documents/"+doc.DocID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := newTestServer(t, nil, "secret")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, jsonRequest(http.MethodPost, "/analyze", `{}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := jsonRequest(http.MethodPost, "/analyze", `{}`)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = jsonRequest(http.MethodPost, "/analyze", `{}`)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Health stays public
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
