// Package leads parses and validates uploaded lead CSV files.
package leads

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/outreach-personalizer/internal/types"
)

// MaxRows caps the number of data rows accepted in one upload.
const MaxRows = 5000

// Canonical column names. Header matching is case-insensitive and treats
// underscores and spaces as equivalent.
const (
	colFirstName      = "first name"
	colLastName       = "last name"
	colEmail          = "email"
	colTitle          = "title"
	colCompany        = "company"
	colLocation       = "location"
	colLinkedInURL    = "linkedin url"
	colCompanyWebsite = "company website"
)

var requiredColumns = []string{colFirstName, colLastName}

// normalizeHeader maps a raw header cell to its canonical column name.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(h))
	h = strings.ReplaceAll(h, "_", " ")
	for strings.Contains(h, "  ") {
		h = strings.ReplaceAll(h, "  ", " ")
	}
	return h
}

// ParseCSV reads an uploaded lead list. It tolerates a UTF-8 BOM, matches
// headers case-insensitively, trims every field, and skips rows that are
// entirely empty. It returns a FormatError when required columns are missing,
// the file has no data rows, or the row cap is exceeded.
func ParseCSV(r io.Reader) ([]types.RawLead, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Rows with trailing blank cells are common in spreadsheet exports.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &FormatError{Message: "uploaded CSV is empty"}
	}
	if err != nil {
		return nil, &FormatError{Message: "failed to read CSV header", Cause: err}
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[normalizeHeader(h)] = i
	}

	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, &FormatError{
				Message: fmt.Sprintf("missing required column %q (required: %s)",
					required, strings.Join(requiredColumns, ", ")),
			}
		}
	}

	field := func(row []string, col string) string {
		i, ok := columns[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rows []types.RawLead
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FormatError{Message: "failed to read CSV row", Cause: err}
		}

		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		if len(rows) >= MaxRows {
			return nil, &FormatError{Message: fmt.Sprintf("CSV exceeds maximum %d rows", MaxRows)}
		}

		rows = append(rows, types.RawLead{
			Index:          len(rows),
			FirstName:      field(row, colFirstName),
			LastName:       field(row, colLastName),
			Email:          field(row, colEmail),
			Title:          field(row, colTitle),
			Company:        field(row, colCompany),
			Location:       field(row, colLocation),
			LinkedInURL:    field(row, colLinkedInURL),
			CompanyWebsite: field(row, colCompanyWebsite),
		})
	}

	if len(rows) == 0 {
		return nil, &FormatError{Message: "uploaded CSV has no data rows"}
	}

	return rows, nil
}
