// Package backup takes database backups on request and serves the files.
package backup

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/membership-api/internal/http/handlers/audit"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
	"github.com/aanand-mishra/membership-api/internal/utils/request"
	"github.com/aanand-mishra/membership-api/internal/utils/response"
)

// Create handles POST /api/v1/backups
//
// The copy is taken synchronously into dir. Every attempt leaves a
// BackupRecord: 201 when it completed, 501 when the database engine has no
// online copy (MySQL; use mysqldump) and 500 otherwise.
func Create(store storage.Storage, dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		started := time.Now().UTC()
		id := uuid.NewString()
		name := fmt.Sprintf("members-%s-%s.db", started.Format("20060102-150405"), id[:8])

		rec := types.BackupRecord{
			ID:        id,
			FileName:  name,
			Path:      filepath.Join(dir, name),
			Status:    types.BackupRunning,
			CreatedBy: audit.Actor(r),
			StartedAt: started,
		}
		if err := store.CreateBackupRecord(ctx, rec); err != nil {
			response.Error(w, err)
			return
		}

		err := os.MkdirAll(dir, 0o755)
		if err == nil {
			err = store.Backup(ctx, rec.Path)
		}
		finished := time.Now().UTC()
		rec.FinishedAt = &finished

		if err != nil {
			rec.Status = types.BackupFailed
			rec.Error = err.Error()
		} else {
			rec.Status = types.BackupCompleted
			if fi, statErr := os.Stat(rec.Path); statErr == nil {
				rec.SizeBytes = fi.Size()
			}
		}
		if updErr := store.UpdateBackupRecord(ctx, rec); updErr != nil {
			response.Error(w, errors.Join(err, updErr))
			return
		}

		if err != nil {
			status := response.StatusFor(err)
			slog.Error("backup failed", slog.String("id", id), slog.String("error", err.Error()))
			resp := response.GeneralError(errors.New("backup failed"))
			if status == http.StatusNotImplemented {
				resp = response.GeneralError(err)
			}
			resp.Data = rec
			response.WriteJSON(w, status, resp)
			return
		}

		slog.Info("backup written", slog.String("id", id), slog.String("file", name), slog.Int64("bytes", rec.SizeBytes))
		audit.Record(r, store, audit.ActionBackup, "backup", id, name)
		response.WriteJSON(w, http.StatusCreated, response.OK("backup completed", rec))
	}
}

// List handles GET /api/v1/backups?limit=
func List(store storage.BackupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := store.ListBackupRecords(r.Context(), request.QueryInt(r, "limit", 50))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", recs))
	}
}

func Get(store storage.BackupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := store.GetBackupRecord(r.Context(), r.PathValue("id"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", rec))
	}
}

// Download handles GET /api/v1/backups/{id}/download. Only completed
// backups whose file is still on disk can be downloaded.
func Download(store storage.BackupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := store.GetBackupRecord(r.Context(), r.PathValue("id"))
		if err != nil {
			response.Error(w, err)
			return
		}
		if rec.Status != types.BackupCompleted {
			response.Error(w, fmt.Errorf("backup %s is %s: %w", rec.ID, rec.Status, storage.ErrConflict))
			return
		}
		if _, err := os.Stat(rec.Path); err != nil {
			response.Error(w, fmt.Errorf("backup file %s: %w", rec.FileName, storage.ErrNotFound))
			return
		}

		w.Header().Set("Content-Type", "application/vnd.sqlite3")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rec.FileName))
		http.ServeFile(w, r, rec.Path)
	}
}
