package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// ParseError the upload could not be turned into rows; the import is aborted.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse spreadsheet: " + e.Reason + ": " + e.Err.Error()
	}
	return "parse spreadsheet: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Row one data row keyed by normalized header name.
// Line is the 1-based row number in the source sheet.
type Row struct {
	Line  int
	Cells map[string]string
}

// Get returns the first non-empty value among the given keys.
func (r Row) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r.Cells[k]); v != "" {
			return v
		}
	}
	return ""
}

// Has reports whether any of the keys was a column of the sheet.
func (r Row) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := r.Cells[k]; ok {
			return true
		}
	}
	return false
}

// Parse reads the first sheet of an uploaded spreadsheet. The format is chosen
// by file extension: .xlsx/.xlsm, .xls or .csv.
func Parse(filename string, r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Reason: "read upload", Err: err}
	}

	var raw [][]string
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xlsm":
		raw, err = readXLSX(data)
	case ".xls":
		raw, err = readXLS(data)
	case ".csv":
		raw, err = readCSV(data)
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("unsupported file type %q", ext)}
	}
	if err != nil {
		return nil, err
	}
	return BuildRows(raw)
}

// BuildRows zips every data row with the header row.
func BuildRows(raw [][]string) ([]Row, error) {
	if len(raw) < 2 {
		return nil, &ParseError{Reason: "sheet needs a header row and at least one data row"}
	}

	headers := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		headers[i] = NormalizeHeader(h)
	}

	rows := make([]Row, 0, len(raw)-1)
	for i, cells := range raw[1:] {
		if isBlank(cells) {
			continue
		}
		row := Row{Line: i + 2, Cells: make(map[string]string, len(headers))}
		for col, key := range headers {
			if key == "" {
				continue
			}
			// duplicate headers: first column wins
			if _, seen := row.Cells[key]; seen {
				continue
			}
			if col < len(cells) {
				row.Cells[key] = strings.TrimSpace(cells[col])
			} else {
				row.Cells[key] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NormalizeHeader "PP Number " -> "ppnumber"
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Reason: "open xlsx", Err: err}
	}
	defer f.Close()

	// raw values keep date cells as serial numbers
	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Reason: "read first sheet", Err: err}
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, &ParseError{Reason: "open xls", Err: err}
	}
	if wb.NumSheets() == 0 {
		return nil, &ParseError{Reason: "workbook has no sheets"}
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, &ParseError{Reason: "workbook has no sheets"}
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// skipBOM strips a UTF-8 byte order mark.
func skipBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

func readCSV(data []byte) ([][]string, error) {
	data = skipBOM(data)
	if !utf8.Valid(data) {
		// exports from older Excel builds are Windows-1252
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, &ParseError{Reason: "decode csv", Err: err}
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &ParseError{Reason: "read csv", Err: err}
	}
	return rows, nil
}
