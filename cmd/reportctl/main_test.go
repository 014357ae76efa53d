package main

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlreport/internal/domain/query"
)

func setupTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func TestParamFlagsValues(t *testing.T) {
	flags := ParamFlags{
		Params: `{"app":"x","days":7}`,
		Param: map[string]string{
			"ids":  "[1,2,null]",
			"days": "30",
			"name": "O'Brien",
			"obj":  `{"a":1}`,
		},
	}

	params, err := flags.Values()
	require.NoError(t, err)
	assert.Equal(t, query.Params{
		"app":  "x",
		"days": float64(30),
		"ids":  []any{float64(1), float64(2), nil},
		"name": "O'Brien",
		"obj":  `{"a":1}`,
	}, params)

	_, err = ParamFlags{Params: "{"}.Values()
	assert.Error(t, err)
}

func TestReadTemplateFromStdin(t *testing.T) {
	tpl, err := readTemplate("-", strings.NewReader("SELECT 1\n"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", tpl)

	tpl, err = readTemplate("SELECT 2", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", tpl)
}

func TestFormatCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := FormatCmd{
		Template:   "SELECT * FROM t WHERE app = ${app} AND country = ${country}",
		ParamFlags: ParamFlags{Param: map[string]string{"app": "x"}},
	}
	require.NoError(t, cmd.Run(&out))
	assert.Contains(t, out.String(), `"sql": "SELECT * FROM t WHERE app = :app AND 1=1`)
	assert.Contains(t, out.String(), `":app": "x"`)
}

func TestCountSQLCmd(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&CountSQLCmd{Template: "SELECT a, b FROM t WHERE a = ${a} ORDER BY b"}).Run(&out))
	assert.Equal(t, "SELECT COUNT(1) FROM t WHERE a = ${a}\n", out.String())

	assert.Error(t, (&CountSQLCmd{Template: "UPDATE t SET a = 1"}).Run(&out))
}

func TestValidateCmd(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&ValidateCmd{Template: "SELECT 1"}).Run(&out))
	assert.Equal(t, "ok\n", out.String())
	assert.ErrorIs(t, (&ValidateCmd{Template: "DROP TABLE t"}).Run(&out), query.ErrForbiddenStatement)
}

func TestRunCmd(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "stats.db")

	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE users (name TEXT, score INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users VALUES ('ann', 2), ('bob', 5), ('cid', 0)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	defPath := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(defPath, []byte(`{
		"name": "scores",
		"title": "Scores",
		"queries": [{"sql": "SELECT name, score FROM users WHERE score > ${min} ORDER BY name"}],
		"headers": {"score": "Score"}
	}`), 0o644))

	cmd := RunCmd{
		Definition: defPath,
		Driver:     "sqlite3",
		DSN:        dsn,
		Page:       1,
		Timeout:    time.Minute,
		ParamFlags: ParamFlags{Param: map[string]string{"min": "1"}},
	}

	var out bytes.Buffer
	require.NoError(t, cmd.Run(&out, setupTestLogger()))
	assert.Equal(t, "\xEF\xBB\xBFname,Score\nann,2\nbob,5\n", out.String())

	cmd.Output = filepath.Join(dir, "out", "scores.csv.gz")
	require.NoError(t, cmd.Run(&out, setupTestLogger()))
	_, err = os.Stat(cmd.Output)
	assert.NoError(t, err)
}

func TestRunCmdNeedsPool(t *testing.T) {
	dir := t.TempDir()
	defPath := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(defPath, []byte(`{"name":"r","title":"R","queries":[{"sql":"SELECT 1"}]}`), 0o644))

	err := (&RunCmd{Definition: defPath, Timeout: time.Minute}).Run(&bytes.Buffer{}, setupTestLogger())
	assert.ErrorContains(t, err, "no pools")
}
