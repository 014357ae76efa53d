package table

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
)

const bom = "\xEF\xBB\xBF"

// Format is an export format chosen by file extension.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatCSVGz Format = "csv.gz"
	FormatCSVXz Format = "csv.xz"
	FormatXLSX  Format = "xlsx"
)

// FormatOf picks the export format for a file name.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return FormatCSVGz
	case ".xz":
		return FormatCSVXz
	case ".xlsx":
		return FormatXLSX
	}
	return FormatCSV
}

// ParseFormat validates a format name coming from configuration or a request.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(name, "."))); f {
	case FormatCSV, FormatCSVGz, FormatCSVXz, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupportedFormat, name)
}

// Extension returns the file extension without a leading dot.
func (f Format) Extension() string { return string(f) }

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSVGz:
		return "application/gzip"
	case FormatCSVXz:
		return "application/x-xz"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// WriteCSV writes the table as UTF-8 comma separated text with a BOM and
// "\n" line endings. Fields holding a comma, quote or newline are quoted.
func (t *Table) WriteCSV(w io.Writer, withHeader bool) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if withHeader {
		if err := cw.Write(t.Headers); err != nil {
			return err
		}
	}
	record := make([]string, len(t.Headers))
	for _, row := range t.Rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, cellString(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses text written by WriteCSV. Without a header row, columns are
// named by position. Empty fields read back as nil.
func ReadCSV(r io.Reader, withHeader bool) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && string(head) == bom {
		_, _ = br.Discard(len(bom))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	t := New()
	if len(records) == 0 {
		return t, nil
	}
	if withHeader {
		t.Headers, records = records[0], records[1:]
	} else {
		for i := range records[0] {
			t.Headers = append(t.Headers, strconv.Itoa(i))
		}
	}
	for _, record := range records {
		row := make([]any, len(t.Headers))
		for i := 0; i < len(record) && i < len(row); i++ {
			if record[i] != "" {
				row[i] = record[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteXLSX writes the table as a single sheet workbook.
func (t *Table) WriteXLSX(w io.Writer, sheet string, withHeader bool) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Report"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("xlsx header style: %w", err)
	}

	line := 1
	if withHeader {
		for i, h := range t.Headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, line)
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
				return err
			}
		}
		line++
	}
	for _, row := range t.Rows {
		for i, v := range row {
			cell, _ := excelize.CoordinatesToCellName(i+1, line)
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		line++
	}
	return f.Write(w)
}

// Encode renders the table in the given format.
func (t *Table) Encode(w io.Writer, format Format, withHeader bool) error {
	switch format {
	case FormatXLSX:
		return t.WriteXLSX(w, "", withHeader)
	case FormatCSVGz:
		zw := gzip.NewWriter(w)
		if err := t.WriteCSV(zw, withHeader); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	case FormatCSVXz:
		zw, err := xz.NewWriter(w)
		if err != nil {
			return err
		}
		if err := t.WriteCSV(zw, withHeader); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}
	return t.WriteCSV(w, withHeader)
}

// Bytes renders the table into memory.
func (t *Table) Bytes(format Format, withHeader bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Encode(&buf, format, withHeader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveToFile writes the table to path. The extension selects compression
// (.gz, .xz) or a workbook (.xlsx); anything else is plain CSV.
func (t *Table) SaveToFile(path string, withHeader bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.Encode(file, FormatOf(path), withHeader); err != nil {
		file.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	return file.Close()
}

// LoadFromFile reads a CSV file written by SaveToFile.
func LoadFromFile(path string, withHeader bool) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var r io.Reader = file
	switch FormatOf(path) {
	case FormatCSVGz:
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	case FormatCSVXz:
		zr, err := xz.NewReader(file)
		if err != nil {
			return nil, err
		}
		r = zr
	case FormatXLSX:
		return nil, fmt.Errorf("load %s: workbooks are write only", path)
	}
	return ReadCSV(r, withHeader)
}
