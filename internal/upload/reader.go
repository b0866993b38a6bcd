package upload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file type: upload an .xlsx or .csv file")
	ErrEmptyFile         = errors.New("file has no header row")
	ErrTooManyRows       = errors.New("file has too many rows")
)

// Row is one data row of an uploaded sheet. Line is the spreadsheet row
// number (the header is line 1).
type Row struct {
	Line               int
	IDNumber           string
	FirstName          string
	Surname            string
	Cellphone          string
	Email              string
	WardCode           string
	VotingDistrictCode string
}

type column int

const (
	colIDNumber column = iota
	colFirstName
	colSurname
	colCellphone
	colEmail
	colWard
	colVotingDistrict
)

// headerAliases maps a normalised header cell onto a column. Normalising
// lower-cases, turns '_' and '-' into spaces and collapses whitespace.
var headerAliases = map[string]column{
	"id number":            colIDNumber,
	"idnumber":             colIDNumber,
	"id no":                colIDNumber,
	"id":                   colIDNumber,
	"first name":           colFirstName,
	"firstname":            colFirstName,
	"first names":          colFirstName,
	"name":                 colFirstName,
	"surname":              colSurname,
	"last name":            colSurname,
	"lastname":             colSurname,
	"cell":                 colCellphone,
	"cellphone":            colCellphone,
	"cell number":          colCellphone,
	"cellphone number":     colCellphone,
	"phone":                colCellphone,
	"mobile":               colCellphone,
	"email":                colEmail,
	"email address":        colEmail,
	"ward":                 colWard,
	"ward code":            colWard,
	"wardcode":             colWard,
	"voting district":      colVotingDistrict,
	"voting district code": colVotingDistrict,
	"vd code":              colVotingDistrict,
	"vd":                   colVotingDistrict,
}

var requiredColumns = []struct {
	col  column
	name string
}{
	{colIDNumber, "id number"},
	{colFirstName, "first name"},
	{colSurname, "surname"},
	{colWard, "ward"},
}

func normaliseHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ReadFile parses an .xlsx (first sheet) or .csv upload. maxRows caps the
// number of data rows; zero means no limit.
func ReadFile(name string, r io.Reader, maxRows int) ([]Row, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		records, err = readXLSX(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return parseRecords(records, maxRows)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func parseRecords(records [][]string, maxRows int) ([]Row, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	index := make(map[column]int)
	for i, cell := range records[0] {
		col, ok := headerAliases[normaliseHeader(cell)]
		if !ok {
			continue
		}
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}
	var missing []string
	for _, rc := range requiredColumns {
		if _, ok := index[rc.col]; !ok {
			missing = append(missing, rc.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}

	get := func(rec []string, col column) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		if maxRows > 0 && len(rows) == maxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, maxRows)
		}
		rows = append(rows, Row{
			Line:               n + 2,
			IDNumber:           get(rec, colIDNumber),
			FirstName:          get(rec, colFirstName),
			Surname:            get(rec, colSurname),
			Cellphone:          get(rec, colCellphone),
			Email:              get(rec, colEmail),
			WardCode:           get(rec, colWard),
			VotingDistrictCode: get(rec, colVotingDistrict),
		})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
