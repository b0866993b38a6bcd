package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/aanand-mishra/membership-api/internal/idnumber"
	"github.com/aanand-mishra/membership-api/internal/iec"
	"github.com/aanand-mishra/membership-api/internal/phone"
)

// Row outcomes in the report.
const (
	StatusCreated  = "created"
	StatusUpdated  = "updated"
	StatusRejected = "rejected"

	// statusPending marks a row that passed validation and waits for the
	// database write.
	statusPending = "pending"
)

var validate = validator.New()

// Result is a row together with everything the pipeline learned about it.
type Result struct {
	Row
	Status   string
	Reason   string
	Warnings []string
	MemberID int64

	DateOfBirth time.Time
	Gender      string
}

func (r *Result) reject(reason string) {
	r.Status = StatusRejected
	r.Reason = reason
}

func (r *Result) warn(w string) {
	r.Warnings = append(r.Warnings, w)
}

func (r *Result) pending() bool {
	return r.Status == statusPending
}

// WardChecker reports whether a ward code exists. storage.GeoStore
// satisfies it.
type WardChecker interface {
	WardExists(ctx context.Context, code string) (bool, error)
}

// Prevalidate checks every row before anything touches the members table:
// required fields, the ID number, duplicates within the file, the ward and
// the optional contact details. It returns one Result per row, in order.
func Prevalidate(ctx context.Context, wards WardChecker, rows []Row, now time.Time) ([]Result, error) {
	var (
		results   = make([]Result, len(rows))
		firstSeen = make(map[string]int) // ID number -> line
		wardOK    = make(map[string]bool)
	)

	for i, row := range rows {
		res := &results[i]
		res.Row = row
		res.Status = statusPending

		// Spreadsheets store IDs as numbers and drop the leading zero of
		// anyone born in 2000-2009.
		if len(res.IDNumber) == idnumber.Length-1 && allDigits(res.IDNumber) {
			res.IDNumber = "0" + res.IDNumber
		}

		if missing := missingFields(row); len(missing) > 0 {
			res.reject("missing " + strings.Join(missing, ", "))
			continue
		}

		info, err := idnumber.ValidateAt(res.IDNumber, now)
		if err != nil {
			res.reject(err.Error())
			continue
		}
		res.DateOfBirth = info.DateOfBirth
		res.Gender = info.Gender

		if line, dup := firstSeen[res.IDNumber]; dup {
			res.reject(fmt.Sprintf("duplicate ID number in file (row %d)", line))
			continue
		}
		firstSeen[res.IDNumber] = row.Line

		ok, known := wardOK[row.WardCode]
		if !known {
			ok, err = wards.WardExists(ctx, row.WardCode)
			if err != nil {
				return nil, fmt.Errorf("Prevalidate: %w", err)
			}
			wardOK[row.WardCode] = ok
		}
		if !ok {
			res.reject(fmt.Sprintf("unknown ward %q", row.WardCode))
			continue
		}

		if row.Email != "" {
			if err := validate.Var(row.Email, "email"); err != nil {
				res.reject(fmt.Sprintf("invalid email %q", row.Email))
				continue
			}
		}

		if row.Cellphone != "" {
			n, err := phone.Normalize(row.Cellphone)
			if err != nil {
				res.reject(err.Error())
				continue
			}
			res.Cellphone = n
		}
	}
	return results, nil
}

func missingFields(row Row) []string {
	var missing []string
	if row.IDNumber == "" {
		missing = append(missing, "ID number")
	}
	if row.FirstName == "" {
		missing = append(missing, "first name")
	}
	if row.Surname == "" {
		missing = append(missing, "surname")
	}
	if row.WardCode == "" {
		missing = append(missing, "ward")
	}
	return missing
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// VoterVerifier checks an ID number against the voters' roll.
type VoterVerifier interface {
	VerifyVoter(ctx context.Context, idNumber string) (iec.Voter, error)
}

// verifyConcurrency bounds parallel voter-roll lookups.
const verifyConcurrency = 8

// verifyVoters adds warnings to pending rows that the voters' roll does not
// back up. It never rejects a row.
func verifyVoters(ctx context.Context, v VoterVerifier, results []Result) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)

	for i := range results {
		res := &results[i]
		if !res.pending() {
			continue
		}
		g.Go(func() error {
			voter, err := v.VerifyVoter(ctx, res.IDNumber)
			switch {
			case errors.Is(err, iec.ErrNotConfigured):
				res.warn("IEC verification skipped: not configured")
			case err != nil:
				res.warn("IEC verification failed: " + err.Error())
			case !voter.Registered:
				res.warn("not registered on the voters' roll")
			case voter.WardCode != "" && voter.WardCode != res.WardCode:
				res.warn(fmt.Sprintf("registered in ward %s, not %s", voter.WardCode, res.WardCode))
			}
			return nil
		})
	}
	g.Wait()
}
