package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/dataset"
	"github.com/JonMunkholm/sheetbridge/internal/web/templates"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

// defaultSampleRows is the number of rows per table a preview returns.
const defaultSampleRows = 20

const maxListLimit = 500

// previewRequest is the body of POST /api/preview.
type previewRequest struct {
	SpreadsheetID string `json:"google_sheet_id"`
	SampleRows    *int   `json:"sample_rows,omitempty"`
}

type skippedSheet struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type previewResponse struct {
	Dataset      dataset.Dataset `json:"dataset"`
	Skipped      []skippedSheet  `json:"skipped"`
	SchemaFaults int             `json:"schema_faults"`
	DecodeFaults int             `json:"decode_faults"`
	TotalRows    int             `json:"total_rows"`
}

type healthResponse struct {
	Status    string                     `json:"status"`
	Layout    string                     `json:"layout"`
	Transfers core.TransferLimiterStatus `json:"transfers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Layout:    s.service.Layout().Name,
		Transfers: s.service.Limiter().Status(),
	})
}

// handleTransfer runs a transfer synchronously and returns the run record.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req core.TransferRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	req.SpreadsheetID = strings.TrimSpace(req.SpreadsheetID)
	if req.SpreadsheetID == "" {
		badRequest(w, "google_sheet_id is required")
		return
	}
	if req.Replace && req.DatasetID == "" {
		badRequest(w, "replace requires dataset_id")
		return
	}

	run, err := s.service.Transfer(WithRequestMetadata(r.Context(), r), req)
	if err != nil {
		if errors.Is(err, core.ErrTooManyTransfers) {
			w.Header().Set("Retry-After", "30")
		}
		respondRunError(w, r, err, statusFor(err), run.ID)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// handlePreview builds the dataset without pushing it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	req.SpreadsheetID = strings.TrimSpace(req.SpreadsheetID)
	if req.SpreadsheetID == "" {
		badRequest(w, "google_sheet_id is required")
		return
	}
	sample := defaultSampleRows
	if req.SampleRows != nil {
		sample = *req.SampleRows
	}

	p, err := s.service.Preview(r.Context(), req.SpreadsheetID, sample)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	resp := previewResponse{
		Dataset:      p.Dataset,
		Skipped:      make([]skippedSheet, 0, len(p.Skipped)),
		SchemaFaults: p.SchemaFaults,
		DecodeFaults: p.DecodeFaults,
		TotalRows:    p.TotalRows,
	}
	for _, sk := range p.Skipped {
		resp.Skipped = append(resp.Skipped, skippedSheet{Name: sk.Name, Error: sk.Err.Error()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", s.cfg.History.ListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}

	runs, err := s.service.ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if runs == nil {
		runs = []core.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.RunPage(run).Render(r.Context(), w); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
	}
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (core.RunRecord, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		badRequest(w, "invalid run id")
		return core.RunRecord{}, false
	}
	run, err := s.service.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return core.RunRecord{}, false
	}
	return run, true
}

// decodeBody decodes a JSON body of at most maxBodySize bytes into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
