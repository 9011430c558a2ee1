package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/autoeda/internal/query"
	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/errors"
	"github.com/inferloop/autoeda/pkg/models"
)

// maxJSONBody bounds request bodies other than uploads
const maxJSONBody = 1 << 20

type queryRequest struct {
	SQL string `json:"sql"`
}

type createJobRequest struct {
	models.JobSpec
	RunOnCreate bool `json:"run_on_create"`
}

// health handles GET /api/health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": constants.AppName,
		"version": constants.AppVersion,
	})
}

// upload handles POST /api/upload
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			e := errors.NewInvalidInputError(errors.CodeInvalidParameter, "Uploaded file is too large.").
				WithContext("limit_bytes", tooLarge.Limit)
			e.HTTPStatus = http.StatusRequestEntityTooLarge
			s.writeError(w, r, e)
			return
		}
		s.writeError(w, r, errors.NewInvalidInputError(errors.CodeMissingSource, "A CSV file is required in the 'file' field."))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.writeError(w, r, errors.NewInvalidInputError(errors.CodeMissingSource, "A file name is required."))
		return
	}
	if !constants.IsCSVFile(header.Filename) {
		s.writeError(w, r, errors.NewInvalidInputError(errors.CodeInvalidParameter, "Only CSV files are supported."))
		return
	}

	autoFix := true
	if v := strings.TrimSpace(r.FormValue("auto_fix")); v != "" {
		autoFix, err = strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, errors.NewValidationError(errors.CodeInvalidParameter, "auto_fix must be a boolean"))
			return
		}
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, errors.WrapError(err, errors.ErrorTypeInvalidInput, errors.CodeReadFailed, "Failed to read upload"))
		return
	}

	result, err := s.ingester.Ingest(r.Context(), raw, header.Filename, models.IngestOptions{
		AutoFix: autoFix,
		Mode:    models.IngestModeUpload,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// listDatasets handles GET /api/datasets
func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := s.datasets.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.DatasetSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": list})
}

// getDataset handles GET /api/datasets/{id}
func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	report, err := s.datasets.GetReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set(constants.HeaderContentType, constants.MimeTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report)
}

// queryDataset handles POST /api/datasets/{id}/query
func (s *Server) queryDataset(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		s.writeError(w, r, errors.NewValidationError(errors.CodeMissingField, "sql is required"))
		return
	}
	if err := query.ValidateReadOnly(req.SQL); err != nil {
		s.writeError(w, r, err)
		return
	}

	table, err := s.datasets.LoadCleaned(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	snap, err := query.NewSnapshot(r.Context(), table, s.logger)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer snap.Close()

	result, err := snap.Query(r.Context(), req.SQL, constants.MaxQueryRows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// listJobs handles GET /api/batch/jobs
func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": s.registry.ListJobs()})
}

// createJob handles POST /api/batch/jobs
func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.WatchDir) == "" {
		s.writeError(w, r, errors.NewValidationError(errors.CodeMissingField, "watch_dir is required"))
		return
	}

	job, err := s.registry.CreateJob(r.Context(), req.JobSpec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var run *models.RunRecord
	if req.RunOnCreate {
		run, err = s.registry.RunJob(r.Context(), job.JobID, models.TriggerCreate)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if refreshed, err := s.registry.GetJob(job.JobID); err == nil {
			job = refreshed
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"job": job, "run": run})
}

// updateJob handles PATCH /api/batch/jobs/{id}
func (s *Server) updateJob(w http.ResponseWriter, r *http.Request) {
	var upd models.JobUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		s.writeError(w, r, err)
		return
	}

	job, err := s.registry.UpdateJob(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"job": job})
}

// deleteJob handles DELETE /api/batch/jobs/{id}
func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteJob(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// runJob handles POST /api/batch/jobs/{id}/run
func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	run, err := s.registry.RunJob(r.Context(), mux.Vars(r)["id"], models.TriggerManual)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"run": run})
}

// listRuns handles GET /api/batch/runs
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := constants.DefaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > constants.MaxRunsLimit {
			s.writeError(w, r, errors.NewValidationError(errors.CodeInvalidParameter, "limit must be an integer between 1 and 200").
				WithContext("limit", v))
			return
		}
		limit = n
	}
	runs := s.registry.ListRuns(limit)
	if runs == nil {
		runs = []models.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return errors.NewValidationError(errors.CodeMissingField, "request body is required")
		}
		return errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeInvalidParameter, "invalid JSON body").
			WithDetails(err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.MimeTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its HTTP status with a {"detail": ...} body
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.AsAppError(err)
	status := errors.HTTPStatusOf(appErr)

	detail := appErr.Error()
	if appErr.Type == errors.ErrorTypeNotFound || status >= http.StatusInternalServerError {
		detail = appErr.Message
	}

	entry := s.logger.WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"status":     status,
		"code":       appErr.Code,
		"request_id": getRequestID(r),
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	writeJSON(w, status, errors.ErrorResponse{
		Error:     appErr,
		Detail:    detail,
		RequestID: getRequestID(r),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	})
}
