package journal

import (
	"fmt"
	"io"
	"os"
	"text/template"
	"time"
)

// Run summarises a finished backtest.
type Run struct {
	RunID    string
	Name     string
	Created  time.Time
	Start    time.Time
	End      time.Time
	Sessions int

	Transactions int
	Rejections   int

	StartCash float64
	EndValue  float64
	MaxDDPct  float64

	Pipelines []string
	Notes     []string
}

// NetPL is the change in portfolio value over the run.
func (r Run) NetPL() float64 { return r.EndValue - r.StartCash }

// ReturnPct is NetPL as a percentage of the starting cash.
func (r Run) ReturnPct() float64 {
	if r.StartCash == 0 {
		return 0
	}
	return r.NetPL() / r.StartCash * 100
}

var runOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// WriteOrg renders the run as an org-mode entry.
func (r Run) WriteOrg(w io.Writer) error {
	if err := runOrg.Execute(w, r); err != nil {
		return fmt.Errorf("render run %s: %w", r.RunID, err)
	}
	return nil
}

// WriteOrgFile renders the run to path.
func (r Run) WriteOrgFile(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteOrg(fh); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

const RunOrgTemplate = `* BACKTEST: {{if .Name}}{{.Name}}{{else}}(unnamed){{end}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:SESSIONS:    {{.Sessions}}
:START_CASH:  {{printf "%.2f" .StartCash}}
:END_VALUE:   {{printf "%.2f" .EndValue}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Activity
| Outcome      | Count |
|--------------+-------|
| Transactions | {{.Transactions}} |
| Rejections   | {{.Rejections}} |
{{- if .Pipelines }}

** Pipelines
{{- range .Pipelines }}
- {{.}}
{{- end }}
{{- end }}
{{- if .Notes }}

** Notes
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
