package member

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/aanand-mishra/membership-api/internal/idnumber"
	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
	"github.com/aanand-mishra/membership-api/internal/utils/response"
)

const (
	exportSheet    = "Members"
	exportPageSize = 1000
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeader = []any{
	"ID Number", "First Name", "Surname", "Date of Birth", "Age", "Gender",
	"Cellphone", "Email", "Ward", "Voting District", "Status", "Membership Expiry",
}

// Export handles GET /api/v1/members/export?ward=&status=
//
// Streams every matching member as an .xlsx workbook.
func Export(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := types.MemberFilter{
			WardCode: q.Get("ward"),
			Status:   q.Get("status"),
			Limit:    exportPageSize,
		}

		f := excelize.NewFile()
		defer f.Close()
		if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
			response.Error(w, err)
			return
		}
		if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
			response.Error(w, err)
			return
		}

		now := time.Now()
		row := 2
		for {
			page, err := store.ListMembers(r.Context(), filter)
			if err != nil {
				response.Error(w, err)
				return
			}
			for _, m := range page {
				cell, _ := excelize.CoordinatesToCellName(1, row)
				values := []any{
					m.IDNumber, m.FirstName, m.Surname, m.DateOfBirth.Format(time.DateOnly),
					idnumber.Info{DateOfBirth: m.DateOfBirth}.Age(now), m.Gender,
					m.Cellphone, m.Email, m.WardCode, m.VotingDistrictCode, m.Status, "",
				}
				if m.MembershipExpiry != nil {
					values[11] = m.MembershipExpiry.Format(time.DateOnly)
				}
				if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
					response.Error(w, err)
					return
				}
				row++
			}
			if len(page) < exportPageSize {
				break
			}
			filter.Offset += exportPageSize
		}

		name := "members.xlsx"
		if filter.WardCode != "" {
			name = fmt.Sprintf("members-%s.xlsx", filter.WardCode)
		}
		w.Header().Set("Content-Type", xlsxMIME)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		if err := f.Write(w); err != nil {
			slog.Error("member export write failed", slog.String("error", err.Error()))
			return
		}
		slog.Info("members exported", slog.Int("rows", row-2), slog.String("ward", filter.WardCode))
	}
}
