// Package web serves the engine operations as a JSON API. It has no
// authentication; callers are expected to sit behind a trusted front end.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clubhours/batch"
	"clubhours/internal/observability"
	"clubhours/internal/timeutil"
	"clubhours/output"
	"clubhours/reconcile"
	"clubhours/report"
	"clubhours/session"
	"clubhours/worklog"

	"github.com/sirupsen/logrus"
)

// Service is the engine surface the API exposes.
type Service interface {
	CheckIn(ctx context.Context, input session.CheckInInput) (worklog.Entry, error)
	CheckOut(ctx context.Context, id string, sessionStart time.Time) (session.Credit, error)
	AddEntry(ctx context.Context, input session.AddInput) (worklog.Entry, error)
	AddBulk(ctx context.Context, inputs []session.AddInput, sheetID string) (*batch.Result, error)
	Edit(ctx context.Context, patch worklog.Patch) (worklog.Entry, error)
	Approve(ctx context.Context, id string) (worklog.Entry, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (worklog.Entry, error)
	ImportFiles(ctx context.Context, paths []string, format, sheetID string) (*reconcile.Result, error)
	ExportAll(ctx context.Context) ([]output.ExportRow, error)
	GetAggregates(ctx context.Context, fiscalYear int) (report.Aggregates, error)
	BackfillLegacyTypes(ctx context.Context) (int, error)
	ActiveSessions(ctx context.Context) ([]worklog.Entry, error)
	PendingQueue(ctx context.Context) ([]worklog.Entry, error)
	LogsBySheet(ctx context.Context, sheetID string) ([]worklog.Entry, error)
	MemberLogs(ctx context.Context, email string) ([]worklog.Entry, error)
	Location() *time.Location
}

type Server struct {
	service Service
	log     logrus.FieldLogger
	mux     *http.ServeMux
}

func NewServer(service Service, log logrus.FieldLogger) http.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	server := &Server{service: service, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", server.handleCheckIn)
	mux.HandleFunc("GET /api/sessions/active", server.handleActiveSessions)
	mux.HandleFunc("GET /api/sessions/pending", server.handlePendingQueue)
	mux.HandleFunc("POST /api/sessions/{id}/checkout", server.handleCheckOut)
	mux.HandleFunc("POST /api/logs", server.handleAddLog)
	mux.HandleFunc("GET /api/logs/{id}", server.handleGetLog)
	mux.HandleFunc("PATCH /api/logs/{id}", server.handleEditLog)
	mux.HandleFunc("POST /api/logs/{id}/approve", server.handleApproveLog)
	mux.HandleFunc("DELETE /api/logs/{id}", server.handleDeleteLog)
	mux.HandleFunc("GET /api/sheets/{sheet}/logs", server.handleSheetLogs)
	mux.HandleFunc("POST /api/sheets/{sheet}/logs", server.handleBulkLogs)
	mux.HandleFunc("GET /api/members/{email}/logs", server.handleMemberLogs)
	mux.HandleFunc("GET /api/aggregates", server.handleAggregates)
	mux.HandleFunc("POST /api/import", server.handleImport)
	mux.HandleFunc("GET /api/export", server.handleExport)
	mux.HandleFunc("POST /api/backfill", server.handleBackfill)
	mux.Handle("GET /metrics", observability.Handler())
	server.mux = mux

	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(recorder, r)
	s.log.WithFields(logrus.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   recorder.status,
		"duration": time.Since(started).String(),
	}).Debug("request served")
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var body checkInRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := s.service.CheckIn(r.Context(), body.input())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, BuildEntryView(entry))
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	var body checkOutRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var start time.Time
	if strings.TrimSpace(body.SessionStart) != "" {
		parsed, err := timeutil.ParseTimestamp(body.SessionStart, s.service.Location())
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid sessionStart: %v", err), http.StatusBadRequest)
			return
		}
		start = parsed
	}

	credit, err := s.service.CheckOut(r.Context(), r.PathValue("id"), start)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creditResponse{ClockHours: credit.ClockHours, CreditedHours: credit.CreditedHours})
}

func (s *Server) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	s.writeEntries(w, func() ([]worklog.Entry, error) { return s.service.ActiveSessions(r.Context()) })
}

func (s *Server) handlePendingQueue(w http.ResponseWriter, r *http.Request) {
	s.writeEntries(w, func() ([]worklog.Entry, error) { return s.service.PendingQueue(r.Context()) })
}

func (s *Server) handleSheetLogs(w http.ResponseWriter, r *http.Request) {
	sheet := r.PathValue("sheet")
	s.writeEntries(w, func() ([]worklog.Entry, error) { return s.service.LogsBySheet(r.Context(), sheet) })
}

func (s *Server) handleMemberLogs(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	s.writeEntries(w, func() ([]worklog.Entry, error) { return s.service.MemberLogs(r.Context(), email) })
}

func (s *Server) handleAddLog(w http.ResponseWriter, r *http.Request) {
	var body addLogRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input, err := body.input(s.service.Location())
	if err != nil {
		s.writeError(w, err)
		return
	}

	entry, err := s.service.AddEntry(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, BuildEntryView(entry))
}

func (s *Server) handleBulkLogs(w http.ResponseWriter, r *http.Request) {
	var body bulkLogRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inputs := make([]session.AddInput, 0, len(body.Entries))
	for i, item := range body.Entries {
		input, err := item.input(s.service.Location())
		if err != nil {
			s.writeError(w, fmt.Errorf("entry %d: %w", i+1, err))
			return
		}
		inputs = append(inputs, input)
	}

	result, err := s.service.AddBulk(r.Context(), inputs, r.PathValue("sheet"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bulkLogResponse{
		GroupsCommitted: result.GroupsCommitted,
		TotalGroups:     result.TotalGroups,
		CreatedIDs:      result.CreatedIDs,
	})
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BuildEntryView(entry))
}

func (s *Server) handleEditLog(w http.ResponseWriter, r *http.Request) {
	var body editLogRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	patch, err := body.patch(r.PathValue("id"), s.service.Location())
	if err != nil {
		s.writeError(w, err)
		return
	}

	entry, err := s.service.Edit(r.Context(), patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BuildEntryView(entry))
}

func (s *Server) handleApproveLog(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BuildEntryView(entry))
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAggregates(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	aggregates, err := s.service.GetAggregates(r.Context(), year)
	if err != nil {
		s.writeError(w, err)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" || format == "json" {
		writeJSON(w, http.StatusOK, aggregates)
		return
	}
	s.serveTable(w, format, "member-summary", func(path string) error {
		return output.WriteMemberSummaries(path, format, aggregates)
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, fmt.Sprintf("parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", tempUploadPattern(header.Filename))
	if err != nil {
		http.Error(w, fmt.Sprintf("create temp upload: %v", err), http.StatusInternalServerError)
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		http.Error(w, fmt.Sprintf("save upload: %v", err), http.StatusInternalServerError)
		return
	}
	if err := tmp.Close(); err != nil {
		http.Error(w, fmt.Sprintf("close upload temp file: %v", err), http.StatusInternalServerError)
		return
	}

	format := strings.TrimSpace(r.FormValue("format"))
	sheetID := strings.TrimSpace(r.FormValue("sheet"))
	result, err := s.service.ImportFiles(r.Context(), []string{tmpPath}, format, sheetID)
	// Unreadable uploads fail before any result exists.
	if err != nil && result == nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, importResponse{
		Processed: result.Processed,
		Created:   result.Created,
		Updated:   result.Updated,
		Skipped:   result.Skipped,
		Groups:    result.Groups,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.service.ExportAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" || format == "json" {
		writeJSON(w, http.StatusOK, rows)
		return
	}
	writer, err := output.WriterForFormat(format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.serveTable(w, format, "logs", func(path string) error {
		return writer.Write(path, rows)
	})
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	updated, err := s.service.BackfillLegacyTypes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (s *Server) writeEntries(w http.ResponseWriter, load func() ([]worklog.Entry, error)) {
	entries, err := load()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BuildEntryViews(entries))
}

// serveTable renders a csv or excel file to a temp path and streams it back.
func (s *Server) serveTable(w http.ResponseWriter, format, name string, write func(path string) error) {
	ext := ".csv"
	contentType := "text/csv"
	switch format {
	case "csv":
	case "excel", "xlsx":
		ext = ".xlsx"
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		http.Error(w, fmt.Sprintf("unsupported format: %s (supported: json, csv, excel)", format), http.StatusBadRequest)
		return
	}

	dir, err := os.MkdirTemp("", "clubhours-export-*")
	if err != nil {
		http.Error(w, fmt.Sprintf("create temp export dir: %v", err), http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name+ext)
	if err := write(path); err != nil {
		s.writeError(w, err)
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		http.Error(w, fmt.Sprintf("read export: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+ext))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	http.Error(w, err.Error(), status)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, worklog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, worklog.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseYear(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(value)
	if err != nil || year < 1900 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", value)
	}
	return year, nil
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, out any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return decodeJSON(r, out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func tempUploadPattern(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "" || base == "." {
		return "upload-*"
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = "upload"
	}
	if ext == "" {
		return stem + "-*"
	}
	return stem + "-*" + ext
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
