package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
)

type written struct {
	status string
	id     int64
}

// writeBatches upserts pending rows by ID number, batchSize rows per
// transaction. A batch that fails is rolled back, its rows are rejected
// with the database error, and the next batch still runs.
func writeBatches(ctx context.Context, store storage.Storage, results []Result, batchSize int) {
	var pending []int
	for i := range results {
		if results[i].pending() {
			pending = append(pending, i)
		}
	}

	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))
		batch := pending[start:end]

		out := make([]written, len(batch))
		err := store.WithTx(ctx, func(tx storage.Storage) error {
			for j, i := range batch {
				w, err := upsertMember(ctx, tx, &results[i])
				if err != nil {
					return fmt.Errorf("row %d: %w", results[i].Line, err)
				}
				out[j] = w
			}
			return nil
		})
		if err != nil {
			slog.Error("upload batch failed",
				slog.Int("first_row", results[batch[0]].Line),
				slog.Int("rows", len(batch)),
				slog.String("error", err.Error()))
			for _, i := range batch {
				results[i].reject("database error: " + err.Error())
			}
			continue
		}

		for j, i := range batch {
			results[i].Status = out[j].status
			results[i].MemberID = out[j].id
		}
	}
}

// upsertMember updates the member with res's ID number, or creates one.
// A create that loses a race against a concurrent insert of the same ID
// number is retried as an update.
func upsertMember(ctx context.Context, tx storage.Storage, res *Result) (written, error) {
	existing, err := tx.GetMemberByIDNumber(ctx, res.IDNumber)
	switch {
	case err == nil:
		return updateMember(ctx, tx, existing, res)

	case errors.Is(err, storage.ErrNotFound):
		id, err := tx.CreateMember(ctx, types.Member{
			IDNumber:           res.IDNumber,
			FirstName:          res.FirstName,
			Surname:            res.Surname,
			DateOfBirth:        res.DateOfBirth,
			Gender:             res.Gender,
			Cellphone:          res.Cellphone,
			Email:              res.Email,
			WardCode:           res.WardCode,
			VotingDistrictCode: res.VotingDistrictCode,
			Status:             types.MemberActive,
		})
		if errors.Is(err, storage.ErrConflict) {
			existing, err := tx.GetMemberByIDNumber(ctx, res.IDNumber)
			if err != nil {
				return written{}, err
			}
			return updateMember(ctx, tx, existing, res)
		}
		if err != nil {
			return written{}, err
		}
		return written{status: StatusCreated, id: id}, nil

	default:
		return written{}, err
	}
}

func updateMember(ctx context.Context, tx storage.Storage, existing types.Member, res *Result) (written, error) {
	existing.FirstName = res.FirstName
	existing.Surname = res.Surname
	existing.DateOfBirth = res.DateOfBirth
	existing.Gender = res.Gender
	existing.WardCode = res.WardCode
	if res.Cellphone != "" {
		existing.Cellphone = res.Cellphone
	}
	if res.Email != "" {
		existing.Email = res.Email
	}
	if res.VotingDistrictCode != "" {
		existing.VotingDistrictCode = res.VotingDistrictCode
	}
	if err := tx.UpdateMember(ctx, existing); err != nil {
		return written{}, err
	}
	return written{status: StatusUpdated, id: existing.ID}, nil
}
