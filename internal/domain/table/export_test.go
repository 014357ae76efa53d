package table

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func quotingTable() *Table {
	tbl := New("name", "note, with comma")
	tbl.Append("a", `say "hi"`)
	tbl.Append("b", "line\nbreak")
	tbl.Append("c", "plain")
	return tbl
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, quotingTable().WriteCSV(&buf, true))

	out := buf.String()
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte(bom)))
	assert.Contains(t, out, "name,\"note, with comma\"\n")
	assert.Contains(t, out, "a,\"say \"\"hi\"\"\"\n")
	assert.Contains(t, out, "c,plain\n")
	assert.NotContains(t, out, "\r\n")
}

func TestWriteCSVWithoutHeader(t *testing.T) {
	tbl := New("a", "b")
	tbl.Append(1, nil)
	tbl.Append(2.5, true)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf, false))
	assert.Equal(t, bom+"1,\n2.5,1\n", buf.String())
}

func TestCSVRoundTrip(t *testing.T) {
	src := quotingTable()
	var buf bytes.Buffer
	require.NoError(t, src.WriteCSV(&buf, true))

	got, err := ReadCSV(&buf, true)
	require.NoError(t, err)
	assert.Equal(t, src.Headers, got.Headers)
	assert.Equal(t, src.Rows, got.Rows)
}

func TestSaveAndLoadCompressed(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plain.csv", "report.csv.gz", "report.csv.xz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			src := quotingTable()
			require.NoError(t, src.SaveToFile(path, true))

			got, err := LoadFromFile(path, true)
			require.NoError(t, err)
			assert.Equal(t, src.Headers, got.Headers)
			assert.Equal(t, src.Rows, got.Rows)
		})
	}
}

func TestWriteXLSX(t *testing.T) {
	tbl := New("date", "users")
	tbl.Append("2020-01-01", 10)

	data, err := tbl.Bytes(FormatXLSX, true)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Report")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"date", "users"}, {"2020-01-01", "10"}}, rows)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatCSVGz, FormatOf("out/report.csv.gz"))
	assert.Equal(t, FormatCSVXz, FormatOf("report.CSV.XZ"))
	assert.Equal(t, FormatXLSX, FormatOf("report.xlsx"))
	assert.Equal(t, FormatCSV, FormatOf("report.txt"))

	f, err := ParseFormat(".csv.gz")
	require.NoError(t, err)
	assert.Equal(t, FormatCSVGz, f)
	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
