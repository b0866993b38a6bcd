// Package upload serves the bulk member upload endpoints.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/aanand-mishra/membership-api/internal/http/handlers/audit"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
	"github.com/aanand-mishra/membership-api/internal/utils/request"
	"github.com/aanand-mishra/membership-api/internal/utils/response"

	pipeline "github.com/aanand-mishra/membership-api/internal/upload"
)

// maxUploadBytes caps the multipart body.
const maxUploadBytes = 32 << 20

// Processor runs the upload pipeline and records the job.
type Processor interface {
	Process(ctx context.Context, name string, r io.Reader, opts pipeline.Options) (types.UploadJob, error)
}

// Create handles POST /api/v1/uploads
//
// Multipart form with the spreadsheet in "file". verify_iec=true asks for
// voter-roll checks; verifyDefault applies when the field is absent.
//
// The run is synchronous. A file that cannot be processed at all (wrong
// format, missing columns, too many rows) is a 400 carrying the failed
// job; any other failure (the database, say) is a 500. Row-level problems
// are in the job counts and the report.
func Create(store storage.AuditStore, p Processor, verifyDefault bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			response.BadRequest(w, fmt.Errorf("missing upload file: %w", err))
			return
		}
		defer file.Close()

		opts := pipeline.Options{VerifyIEC: verifyDefault}
		if v := r.FormValue("verify_iec"); v != "" {
			if opts.VerifyIEC, err = strconv.ParseBool(v); err != nil {
				response.BadRequest(w, fmt.Errorf("invalid verify_iec %q", v))
				return
			}
		}

		name := filepath.Base(header.Filename)
		slog.Info("upload received", slog.String("file", name), slog.Int64("bytes", header.Size),
			slog.Bool("verify_iec", opts.VerifyIEC))

		job, err := p.Process(r.Context(), name, file, opts)
		var fileErr *pipeline.FileError
		if errors.As(err, &fileErr) {
			resp := response.GeneralError(err)
			resp.Data = job
			response.WriteJSON(w, http.StatusBadRequest, resp)
			return
		}
		if err != nil {
			response.Error(w, err)
			return
		}

		audit.Record(r, store, audit.ActionUpload, "upload", job.ID,
			fmt.Sprintf("%s: %d created, %d updated, %d rejected", name, job.Created, job.Updated, job.Rejected))
		response.WriteJSON(w, http.StatusCreated, response.OK("upload processed", job))
	}
}

// List handles GET /api/v1/uploads?limit=
func List(store storage.UploadStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := store.ListUploadJobs(r.Context(), request.QueryInt(r, "limit", 50))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", jobs))
	}
}

func Get(store storage.UploadStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := store.GetUploadJob(r.Context(), r.PathValue("id"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", job))
	}
}

// Report handles GET /api/v1/uploads/{id}/report and serves the .xlsx
// result workbook.
func Report(store storage.UploadStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := store.GetUploadJob(r.Context(), r.PathValue("id"))
		if err != nil {
			response.Error(w, err)
			return
		}
		if job.ReportPath == "" {
			response.Error(w, fmt.Errorf("upload %s has no report: %w", job.ID, storage.ErrNotFound))
			return
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="upload-report-%s.xlsx"`, job.ID))
		http.ServeFile(w, r, job.ReportPath)
	}
}
