// Package contacts reads contact lists from spreadsheets.
package contacts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/callwave/callwave/pkg/domain"
)

// ErrUnsupportedFormat is returned for files that are neither .csv nor .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrNoPhoneColumn is returned when the header row has no phone column.
var ErrNoPhoneColumn = errors.New("no phone column in header row")

// Result is the outcome of an import.
type Result struct {
	Contacts []domain.Contact
	// Skipped counts data rows without a phone number.
	Skipped int
}

// ImportFile reads path, choosing the parser by extension.
func ImportFile(path string) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("contacts.ImportFile: %w", err)
		}
		defer f.Close() //nolint:errcheck // read-only
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("contacts.ImportFile: %w", err)
		}
		defer f.Close() //nolint:errcheck // read-only
		return ReadXLSX(f)
	default:
		return nil, fmt.Errorf("contacts.ImportFile: %s: %w", filepath.Ext(path), ErrUnsupportedFormat)
	}
}

// ReadCSV parses comma-separated rows with a header.
func ReadCSV(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("contacts.ReadCSV: %w", err)
	}
	return fromRows(rows)
}

// ReadXLSX parses the first sheet of a workbook.
func ReadXLSX(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("contacts.ReadXLSX: %w", err)
	}
	defer f.Close() //nolint:errcheck // in-memory workbook
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Result{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("contacts.ReadXLSX: %w", err)
	}
	return fromRows(rows)
}

type columns struct {
	name, phone, email int
}

func detectColumns(header []string) (columns, error) {
	cols := columns{name: -1, phone: -1, email: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name", "full name", "contact", "contact name":
			if cols.name < 0 {
				cols.name = i
			}
		case "phone", "phone number", "mobile", "number", "tel":
			if cols.phone < 0 {
				cols.phone = i
			}
		case "email", "e-mail", "email address":
			if cols.email < 0 {
				cols.email = i
			}
		}
	}
	if cols.phone < 0 {
		return cols, ErrNoPhoneColumn
	}
	return cols, nil
}

func fromRows(rows [][]string) (*Result, error) {
	if len(rows) == 0 {
		return &Result{}, nil
	}
	cols, err := detectColumns(rows[0])
	if err != nil {
		return nil, err
	}
	res := &Result{}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		phone := NormalizePhone(cell(row, cols.phone))
		if phone == "" {
			res.Skipped++
			continue
		}
		res.Contacts = append(res.Contacts, domain.Contact{
			ID:    "row-" + strconv.Itoa(len(res.Contacts)+1),
			Name:  strings.TrimSpace(cell(row, cols.name)),
			Phone: phone,
			Email: strings.TrimSpace(cell(row, cols.email)),
		})
	}
	return res, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// NormalizePhone strips spaces, dashes, dots and parentheses, keeping a
// leading plus.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch r {
		case ' ', '-', '(', ')', '.', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
