// Command reportctl formats SQL templates and builds reports from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"sqlreport/internal/config"
	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/report"
	"sqlreport/internal/domain/table"
	sqlpool "sqlreport/internal/infrastructure/sql"
	"sqlreport/internal/logging"
	"sqlreport/internal/usecase"
)

// CLI defines the command-line interface for reportctl.
var CLI struct {
	LogLevel string `name:"log-level" default:"warn" enum:"trace,debug,info,warn,error" help:"Log level"`

	Format   FormatCmd   `cmd:"" help:"Expand a SQL template into SQL with bind markers"`
	CountSQL CountSQLCmd `cmd:"" name:"count-sql" help:"Derive the row count query of a template"`
	Validate ValidateCmd `cmd:"" help:"Check a template for forbidden statements"`
	Run      RunCmd      `cmd:"" help:"Build a report from a definition file"`
}

// ParamFlags are the template parameters given on the command line.
type ParamFlags struct {
	Param  map[string]string `short:"p" help:"Template parameter name=value; the value may be JSON"`
	Params string            `help:"Template parameters as a JSON object"`
}

// Values merges --params and -p flags, -p winning.
func (f ParamFlags) Values() (query.Params, error) {
	params := query.Params{}
	if f.Params != "" {
		if err := json.Unmarshal([]byte(f.Params), &params); err != nil {
			return nil, fmt.Errorf("invalid --params: %w", err)
		}
	}
	for name, raw := range f.Param {
		params[name] = parseValue(raw)
	}
	return params, nil
}

// parseValue reads JSON scalars and arrays; anything else stays a string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	if _, isObject := v.(map[string]any); isObject {
		return raw
	}
	return v
}

// readTemplate returns the template text; "-" reads stdin.
func readTemplate(arg string, stdin io.Reader) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// FormatCmd prints the expanded SQL and its binds.
type FormatCmd struct {
	Template string `arg:"" help:"SQL template, or - to read stdin"`
	ParamFlags `embed:""`
}

func (c *FormatCmd) Run(out io.Writer) error {
	tpl, err := readTemplate(c.Template, os.Stdin)
	if err != nil {
		return err
	}
	params, err := c.Values()
	if err != nil {
		return err
	}
	sql, binds, err := query.Format(tpl, params)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"sql": sql, "binds": binds})
}

// CountSQLCmd prints the count query of a template.
type CountSQLCmd struct {
	Template string `arg:"" help:"SQL template, or - to read stdin"`
}

func (c *CountSQLCmd) Run(out io.Writer) error {
	tpl, err := readTemplate(c.Template, os.Stdin)
	if err != nil {
		return err
	}
	sql, err := query.BuildCount(tpl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, sql)
	return err
}

// ValidateCmd fails when a template is not a read-only query.
type ValidateCmd struct {
	Template string `arg:"" help:"SQL template, or - to read stdin"`
}

func (c *ValidateCmd) Run(out io.Writer) error {
	tpl, err := readTemplate(c.Template, os.Stdin)
	if err != nil {
		return err
	}
	if err := query.Validate(tpl); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, "ok")
	return err
}

// RunCmd builds a report against the configured pools.
type RunCmd struct {
	Definition string        `arg:"" type:"existingfile" help:"Report definition JSON file"`
	Config     string        `type:"path" help:"Config file with pools"`
	Driver     string        `default:"postgres" enum:"postgres,pgx,sqlite3" help:"Driver of the default pool"`
	DSN        string        `name:"dsn" help:"DSN of the default pool"`
	Output     string        `short:"o" type:"path" help:"Write the table to a file; .gz, .xz and .xlsx select the format"`
	NoHeader   bool          `help:"Omit the header row"`
	Page       int           `default:"1" help:"Page of a paged report"`
	PageSize   int           `help:"Rows per page of a paged report"`
	Timeout    time.Duration `default:"5m" help:"Report timeout"`
	ParamFlags `embed:""`
}

type fileDefinitions struct {
	def report.Definition
}

func (f fileDefinitions) GetByName(_ context.Context, name string) (report.Definition, error) {
	if name != f.def.Name {
		return report.Definition{}, fmt.Errorf("report %s not found", name)
	}
	return f.def, nil
}

func loadDefinition(path string) (report.Definition, error) {
	var def report.Definition
	b, err := os.ReadFile(path)
	if err != nil {
		return def, err
	}
	if err := json.Unmarshal(b, &def); err != nil {
		return def, fmt.Errorf("parse %s: %w", path, err)
	}
	return def, def.Validate()
}

func (c *RunCmd) pools(logger *logrus.Logger) (*sqlpool.Pools, error) {
	configs := map[string]sqlpool.PoolConfig{}
	if c.Config != "" {
		cfg, err := config.LoadFile(c.Config)
		if err != nil {
			return nil, err
		}
		for name, pool := range cfg.Pools {
			configs[name] = pool
		}
	}
	if c.DSN != "" {
		configs[usecase.DefaultPool] = sqlpool.PoolConfig{Driver: c.Driver, DSN: c.DSN}
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no pools: pass --dsn or --config")
	}
	return sqlpool.OpenPools(configs, logger)
}

func (c *RunCmd) Run(out io.Writer, logger *logrus.Logger) error {
	def, err := loadDefinition(c.Definition)
	if err != nil {
		return err
	}
	params, err := c.Values()
	if err != nil {
		return err
	}
	pools, err := c.pools(logger)
	if err != nil {
		return err
	}
	defer pools.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	runner := usecase.NewReportRunner(pools, fileDefinitions{def: def}, logger)
	res, err := runner.Run(ctx, def, params, usecase.Page{Number: c.Page, Size: c.PageSize})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{"rows": res.Table.Len(), "total": res.Total}).Info("report built")
	if c.Output != "" {
		return res.Table.SaveToFile(c.Output, !c.NoHeader)
	}
	return res.Table.Encode(out, table.FormatCSV, !c.NoHeader)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("reportctl"),
		kong.Description("SQL report templates and tables"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	logger := logging.New(config.Logging{Level: CLI.LogLevel})
	ctx.BindTo(os.Stdout, (*io.Writer)(nil))
	ctx.Bind(logger)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
