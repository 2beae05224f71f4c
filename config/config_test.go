package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
account: {id: SIM-001, cash: 1000000}
backtest: {start: 2024-01-02, end: 2024-03-29, workers: 3, board_lot: 100}
data: {bars: data/bars.csv}
pipelines:
  - name: momentum
    root: top
    terms:
      - {id: universe, logic: universe, output: assets}
      - {id: mom, logic: momentum, params: {window: 20}, output: scores, depends: [universe]}
      - {id: liquid, logic: volume_rank, params: {window: 20}, output: assets, depends: [universe]}
      - {id: top, logic: top_n, params: {n: 5}, output: assets, depends: [mom, liquid]}
restrictions:
  - {type: lifecycle, back: 66, forward: 30}
  - {type: band, threshold: 0.099}
controls:
  trading:
    - {type: long_only}
    - {type: max_order_size, max_notional: 0.05, window: 20, on_violation: log}
    - {type: max_position_size, max_fraction: 0.2, on_violation: warn}
capital: {type: equal}
execution: {limit_ratio: 0.1, stop_ratio: 0.1, slippage: 0.001, commission_rate: 0.0003, min_commission: 5}
journal: {type: sqlite, db_path: ./backtest.sqlite}
logging: {level: info, format: text}
`

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, 1_000_000.0, cfg.Account.Cash)
	assert.Equal(t, 100, cfg.Backtest.BoardLot)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backtest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "SIM-001", cfg.Account.ID)
	start, err := cfg.Backtest.StartDate()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", start.Format("2006-01-02"))

	require.Len(t, cfg.Pipelines, 1)
	p := cfg.Pipelines[0]
	assert.Equal(t, "top", p.Root)
	require.Len(t, p.Terms, 4)
	assert.Equal(t, []string{"mom", "liquid"}, p.Terms[3].Depends)
	assert.EqualValues(t, 20, p.Terms[1].Params["window"])

	assert.Len(t, cfg.Restrictions, 2)
	assert.Len(t, cfg.Controls.Trading, 3)
	assert.Equal(t, "warn", cfg.Controls.Trading[2].OnViolation)
	assert.Equal(t, 0.0003, cfg.Execution.CommissionRate)

	assert.Equal(t, filepath.Join(dir, "data", "bars.csv"), cfg.Data.Bars)
	assert.Equal(t, filepath.Join(dir, "backtest.sqlite"), cfg.Journal.DBPath)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account: [\n"), 0o644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "tried YAML and JSON")
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	for _, name := range []string{"cfg.yaml", "cfg.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := Default()
			cfg.Data.Bars = "/data/bars.csv"
			require.NoError(t, cfg.SaveToFile(path))

			got, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.Backtest, got.Backtest)
			assert.Equal(t, cfg.Execution, got.Execution)
			assert.Equal(t, cfg.Pipelines[0].Root, got.Pipelines[0].Root)
			assert.Equal(t, "/data/bars.csv", got.Data.Bars)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"no cash", func(c *Config) { c.Account.Cash = 0 }, "account.cash must be positive"},
		{"bad start", func(c *Config) { c.Backtest.Start = "01/02/2024" }, "backtest.start"},
		{"end before start", func(c *Config) { c.Backtest.End = "2023-12-29" }, "is before"},
		{"bad holiday", func(c *Config) { c.Backtest.Holidays = []string{"x"} }, "backtest.holidays"},
		{"negative workers", func(c *Config) { c.Backtest.Workers = -1 }, "backtest.workers"},
		{"negative holdings", func(c *Config) { c.Backtest.MaxHoldings = -1 }, "backtest.max_holdings"},
		{"no bars", func(c *Config) { c.Data.Bars = "" }, "data.bars is required"},
		{"no pipelines", func(c *Config) { c.Pipelines = nil }, "at least one pipeline"},
		{"duplicate pipeline", func(c *Config) { c.Pipelines = append(c.Pipelines, c.Pipelines[0]) }, "duplicate name"},
		{"duplicate term id", func(c *Config) {
			c.Pipelines[0].Terms = append(c.Pipelines[0].Terms, TermConfig{ID: "mom", Logic: "momentum"})
		}, `duplicate id "mom"`},
		{"unknown dependency", func(c *Config) { c.Pipelines[0].Terms[1].Depends = []string{"nope"} }, `unknown dependency "nope"`},
		{"bad output", func(c *Config) { c.Pipelines[0].Terms[1].Output = "matrix" }, "unknown output type"},
		{"bad root", func(c *Config) { c.Pipelines[0].Root = "x" }, "is not a term id"},
		{"bad exit", func(c *Config) { c.Exit = &PipelineConfig{Name: "exit"} }, "exit.terms is empty"},
		{"unknown restriction", func(c *Config) { c.Restrictions = []RestrictionConfig{{Type: "blacklist"}} }, "unknown restriction type"},
		{"empty static", func(c *Config) { c.Restrictions = []RestrictionConfig{{Type: "static"}} }, "needs assets"},
		{"band threshold", func(c *Config) { c.Restrictions = []RestrictionConfig{{Type: "band", Threshold: 1}} }, "threshold"},
		{"unknown control", func(c *Config) { c.Controls.Trading = []ControlConfig{{Type: "max_leverage"}} }, "unknown control type"},
		{"account control in trading", func(c *Config) { c.Controls.Trading = []ControlConfig{{Type: "net_leverage"}} }, "unknown control type"},
		{"bad policy", func(c *Config) { c.Controls.Trading[0].OnViolation = "ignore" }, "on_violation"},
		{"order size window", func(c *Config) { c.Controls.Trading[1].Window = 0 }, "max_order_size"},
		{"fixed capital", func(c *Config) { c.Capital = CapitalConfig{Type: "fixed"} }, "capital.amount"},
		{"capital type", func(c *Config) { c.Capital.Type = "kelly" }, "capital.type"},
		{"stop ratio", func(c *Config) { c.Execution.StopRatio = 1 }, "stop_ratio must be below 1"},
		{"zero limit", func(c *Config) { c.Execution.LimitRatio = 0 }, "must be positive"},
		{"csv journal", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }, "transactions_file"},
		{"sqlite journal", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }, "db_path"},
		{"journal type", func(c *Config) { c.Journal.Type = "kafka" }, "journal.type"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
