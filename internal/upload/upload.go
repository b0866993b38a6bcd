// Package upload is the bulk member import pipeline:
//
//	read sheet -> validate ID numbers -> pre-validate -> IEC check (optional)
//	-> batched upsert -> Excel report
//
// A row never fails the whole run. Each row ends up created, updated or
// rejected with a reason, and the report lists all of them.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/membership-api/internal/config"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
)

// Summary is the outcome of one run.
type Summary struct {
	FileName   string
	StartedAt  time.Time
	FinishedAt time.Time

	Total    int
	Accepted int
	Rejected int
	Created  int
	Updated  int
	Warnings int

	Results []Result
}

func (s *Summary) tally() {
	s.Total = len(s.Results)
	s.Accepted, s.Rejected, s.Created, s.Updated, s.Warnings = 0, 0, 0, 0, 0
	for _, r := range s.Results {
		switch r.Status {
		case StatusCreated:
			s.Created++
		case StatusUpdated:
			s.Updated++
		default:
			s.Rejected++
		}
		if len(r.Warnings) > 0 {
			s.Warnings++
		}
	}
	s.Accepted = s.Created + s.Updated
}

// FileError means the uploaded file itself is unusable: unsupported
// format, unreadable, missing required columns or too many rows.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("read %s: %v", e.Name, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// Options tune a single run.
type Options struct {
	// VerifyIEC checks every accepted row against the voters' roll.
	VerifyIEC bool
}

// Processor runs uploads against one store. It holds no per-run state, so
// one Processor serves concurrent uploads.
type Processor struct {
	store     storage.Storage
	verifier  VoterVerifier
	batchSize int
	maxRows   int
	reportDir string
	now       func() time.Time
}

// NewProcessor builds a pipeline. verifier may be nil, in which case IEC
// verification requests only add a warning.
func NewProcessor(store storage.Storage, verifier VoterVerifier, cfg config.Upload) *Processor {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 500
	}
	return &Processor{
		store:     store,
		verifier:  verifier,
		batchSize: batch,
		maxRows:   cfg.MaxRows,
		reportDir: cfg.ReportDir,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the pipeline over one file. The returned error covers
// whole-file problems: a *FileError for the file itself (unreadable,
// missing columns, too many rows), anything else for the database. Row
// problems end up in the summary.
func (p *Processor) Run(ctx context.Context, name string, r io.Reader, opts Options) (*Summary, error) {
	s := &Summary{FileName: name, StartedAt: p.now()}

	rows, err := ReadFile(name, r, p.maxRows)
	if err != nil {
		return nil, &FileError{Name: name, Err: err}
	}

	s.Results, err = Prevalidate(ctx, p.store, rows, s.StartedAt)
	if err != nil {
		return nil, err
	}

	if opts.VerifyIEC {
		if p.verifier != nil {
			verifyVoters(ctx, p.verifier, s.Results)
		} else {
			for i := range s.Results {
				if s.Results[i].pending() {
					s.Results[i].warn("IEC verification skipped: not configured")
				}
			}
		}
	}

	writeBatches(ctx, p.store, s.Results, p.batchSize)

	s.FinishedAt = p.now()
	s.tally()
	slog.Info("upload processed",
		slog.String("file", name),
		slog.Int("total", s.Total),
		slog.Int("created", s.Created),
		slog.Int("updated", s.Updated),
		slog.Int("rejected", s.Rejected))
	return s, nil
}

// Process runs the pipeline, records it as an UploadJob and saves the
// report under the configured report directory.
func (p *Processor) Process(ctx context.Context, name string, r io.Reader, opts Options) (types.UploadJob, error) {
	job := types.UploadJob{
		ID:        uuid.NewString(),
		FileName:  name,
		Status:    types.UploadRunning,
		StartedAt: p.now(),
	}
	if err := p.store.CreateUploadJob(ctx, job); err != nil {
		return job, fmt.Errorf("Process: %w", err)
	}

	s, runErr := p.Run(ctx, name, r, opts)
	finished := p.now()
	job.FinishedAt = &finished

	if runErr != nil {
		job.Status = types.UploadFailed
		job.Error = runErr.Error()
	} else {
		job.Status = types.UploadCompleted
		job.Total, job.Accepted, job.Rejected = s.Total, s.Accepted, s.Rejected
		job.Created, job.Updated = s.Created, s.Updated

		path := filepath.Join(p.reportDir, job.ID+".xlsx")
		if err := SaveReport(path, s); err != nil {
			slog.Error("upload report not saved", slog.String("job", job.ID), slog.String("error", err.Error()))
			job.Error = "report not saved: " + err.Error()
		} else {
			job.ReportPath = path
		}
	}

	if err := p.store.UpdateUploadJob(ctx, job); err != nil {
		return job, fmt.Errorf("Process: %w", err)
	}
	return job, runErr
}
