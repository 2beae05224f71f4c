// Package config loads and validates backtest configuration files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/algotrader/risk"
	"github.com/rustyeddy/algotrader/term"
	"gopkg.in/yaml.v3"
)

// Config represents a complete backtest configuration.
type Config struct {
	Account      AccountConfig       `json:"account" yaml:"account"`
	Backtest     BacktestConfig      `json:"backtest" yaml:"backtest"`
	Data         DataConfig          `json:"data" yaml:"data"`
	Pipelines    []PipelineConfig    `json:"pipelines" yaml:"pipelines"`
	Exit         *PipelineConfig     `json:"exit,omitempty" yaml:"exit,omitempty"`
	Restrictions []RestrictionConfig `json:"restrictions,omitempty" yaml:"restrictions,omitempty"`
	Controls     ControlsConfig      `json:"controls" yaml:"controls"`
	Capital      CapitalConfig       `json:"capital" yaml:"capital"`
	Execution    ExecutionConfig     `json:"execution" yaml:"execution"`
	Journal      JournalConfig       `json:"journal" yaml:"journal"`
	Logging      LoggingConfig       `json:"logging" yaml:"logging"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID   string  `json:"id" yaml:"id"`
	Cash float64 `json:"cash" yaml:"cash"`
}

// BacktestConfig bounds the session loop.
type BacktestConfig struct {
	Start    string   `json:"start" yaml:"start"` // 2006-01-02
	End      string   `json:"end" yaml:"end"`
	Workers  int      `json:"workers,omitempty" yaml:"workers,omitempty"`
	BoardLot int      `json:"board_lot,omitempty" yaml:"board_lot,omitempty"`
	Universe []string `json:"universe,omitempty" yaml:"universe,omitempty"` // empty: every asset with data
	Holidays []string `json:"holidays,omitempty" yaml:"holidays,omitempty"`
	Domains  []string `json:"domains,omitempty" yaml:"domains,omitempty"` // supported term domains; empty accepts all

	// MaxHoldings caps the number of assets held; zero means no cap.
	MaxHoldings int `json:"max_holdings,omitempty" yaml:"max_holdings,omitempty"`
	// Rotate funds each entry from one exit's proceeds.
	Rotate bool `json:"rotate,omitempty" yaml:"rotate,omitempty"`
}

func (b BacktestConfig) StartDate() (time.Time, error) { return parseDate("backtest.start", b.Start) }
func (b BacktestConfig) EndDate() (time.Time, error)   { return parseDate("backtest.end", b.End) }

// HolidayDates parses the holiday list.
func (b BacktestConfig) HolidayDates() ([]time.Time, error) {
	out := make([]time.Time, 0, len(b.Holidays))
	for _, h := range b.Holidays {
		d, err := parseDate("backtest.holidays", h)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// DataConfig names the bar files to load.
type DataConfig struct {
	Bars    string `json:"bars" yaml:"bars"`
	Minutes string `json:"minutes,omitempty" yaml:"minutes,omitempty"`
}

// PipelineConfig declares a term graph by id.
type PipelineConfig struct {
	Name  string       `json:"name" yaml:"name"`
	Root  string       `json:"root" yaml:"root"`
	Terms []TermConfig `json:"terms" yaml:"terms"`
}

type TermConfig struct {
	ID      string         `json:"id" yaml:"id"`
	Logic   string         `json:"logic" yaml:"logic"`
	Params  map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Output  string         `json:"output,omitempty" yaml:"output,omitempty"`
	Depends []string       `json:"depends,omitempty" yaml:"depends,omitempty"`
}

// RestrictionConfig selects one restriction. Unused fields are ignored.
type RestrictionConfig struct {
	Type      string   `json:"type" yaml:"type"` // static, lifecycle, band, halt, after_hours
	Assets    []string `json:"assets,omitempty" yaml:"assets,omitempty"`
	Back      int      `json:"back,omitempty" yaml:"back,omitempty"`
	Forward   int      `json:"forward,omitempty" yaml:"forward,omitempty"`
	Threshold float64  `json:"threshold,omitempty" yaml:"threshold,omitempty"`
}

type ControlsConfig struct {
	Trading []ControlConfig `json:"trading,omitempty" yaml:"trading,omitempty"`
	Account []ControlConfig `json:"account,omitempty" yaml:"account,omitempty"`
}

// ControlConfig selects one trading or account control.
type ControlConfig struct {
	Type        string  `json:"type" yaml:"type"`
	MaxNotional float64 `json:"max_notional,omitempty" yaml:"max_notional,omitempty"`
	Window      int     `json:"window,omitempty" yaml:"window,omitempty"`
	MaxFraction float64 `json:"max_fraction,omitempty" yaml:"max_fraction,omitempty"`
	Base        float64 `json:"base,omitempty" yaml:"base,omitempty"`
	OnViolation string  `json:"on_violation,omitempty" yaml:"on_violation,omitempty"`
}

type CapitalConfig struct {
	Type      string  `json:"type" yaml:"type"` // equal or fixed
	Amount    float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
	MaxAssets int     `json:"max_assets,omitempty" yaml:"max_assets,omitempty"`
}

type ExecutionConfig struct {
	LimitRatio     float64 `json:"limit_ratio" yaml:"limit_ratio"`
	StopRatio      float64 `json:"stop_ratio" yaml:"stop_ratio"`
	Slippage       float64 `json:"slippage" yaml:"slippage"`
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate"`
	MinCommission  float64 `json:"min_commission" yaml:"min_commission"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type             string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TransactionsFile string `json:"transactions_file,omitempty" yaml:"transactions_file,omitempty"`
	EquityFile       string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath           string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrgPath          string `json:"org_path,omitempty" yaml:"org_path,omitempty"`
}

type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

func parseDate(field, s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: want YYYY-MM-DD, got %q", field, s)
	}
	return d, nil
}

// LoadFromFile loads configuration from a file (YAML, or JSON as fallback)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = &Config{}
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// resolvePaths makes relative data and journal paths relative to the
// config file's directory.
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{
		&c.Data.Bars, &c.Data.Minutes,
		&c.Journal.TransactionsFile, &c.Journal.EquityFile, &c.Journal.DBPath, &c.Journal.OrgPath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the structure of the configuration. Term logic names and
// params are checked later, when the graph is built.
func (c *Config) Validate() error {
	if c.Account.Cash <= 0 {
		return fmt.Errorf("account.cash must be positive")
	}
	start, err := c.Backtest.StartDate()
	if err != nil {
		return err
	}
	end, err := c.Backtest.EndDate()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("backtest.end %s is before backtest.start %s", c.Backtest.End, c.Backtest.Start)
	}
	if _, err := c.Backtest.HolidayDates(); err != nil {
		return err
	}
	if c.Backtest.Workers < 0 {
		return fmt.Errorf("backtest.workers must be >= 0")
	}
	if c.Backtest.BoardLot < 0 {
		return fmt.Errorf("backtest.board_lot must be >= 0")
	}
	if c.Backtest.MaxHoldings < 0 {
		return fmt.Errorf("backtest.max_holdings must be >= 0")
	}
	if c.Data.Bars == "" {
		return fmt.Errorf("data.bars is required")
	}

	if len(c.Pipelines) == 0 {
		return fmt.Errorf("at least one pipeline is required")
	}
	names := map[string]bool{}
	for i, p := range c.Pipelines {
		if err := p.validate(fmt.Sprintf("pipelines[%d]", i)); err != nil {
			return err
		}
		if names[p.Name] {
			return fmt.Errorf("pipelines[%d]: duplicate name %q", i, p.Name)
		}
		names[p.Name] = true
	}
	if c.Exit != nil {
		if err := c.Exit.validate("exit"); err != nil {
			return err
		}
	}

	for i, r := range c.Restrictions {
		if err := r.validate(fmt.Sprintf("restrictions[%d]", i)); err != nil {
			return err
		}
	}
	for i, ctl := range c.Controls.Trading {
		if err := ctl.validate(fmt.Sprintf("controls.trading[%d]", i), tradingControls); err != nil {
			return err
		}
	}
	for i, ctl := range c.Controls.Account {
		if err := ctl.validate(fmt.Sprintf("controls.account[%d]", i), accountControls); err != nil {
			return err
		}
	}

	switch c.Capital.Type {
	case "", "equal":
	case "fixed":
		if c.Capital.Amount <= 0 {
			return fmt.Errorf("capital.amount must be positive for fixed allocation")
		}
	default:
		return fmt.Errorf("capital.type must be 'equal' or 'fixed'")
	}
	if c.Capital.MaxAssets < 0 {
		return fmt.Errorf("capital.max_assets must be >= 0")
	}

	if err := c.Execution.validate(); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TransactionsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal transactions_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json'")
	}
	return nil
}

func (p PipelineConfig) validate(field string) error {
	if p.Name == "" {
		return fmt.Errorf("%s.name is required", field)
	}
	if len(p.Terms) == 0 {
		return fmt.Errorf("%s.terms is empty", field)
	}
	ids := map[string]bool{}
	for i, t := range p.Terms {
		tf := fmt.Sprintf("%s.terms[%d]", field, i)
		if t.ID == "" {
			return fmt.Errorf("%s.id is required", tf)
		}
		if ids[t.ID] {
			return fmt.Errorf("%s: duplicate id %q", tf, t.ID)
		}
		ids[t.ID] = true
		if t.Logic == "" {
			return fmt.Errorf("%s.logic is required", tf)
		}
		if _, err := term.ParseOutputType(t.Output); err != nil {
			return fmt.Errorf("%s: %w", tf, err)
		}
	}
	for i, t := range p.Terms {
		for _, d := range t.Depends {
			if !ids[d] {
				return fmt.Errorf("%s.terms[%d]: unknown dependency %q", field, i, d)
			}
		}
	}
	if !ids[p.Root] {
		return fmt.Errorf("%s.root %q is not a term id", field, p.Root)
	}
	return nil
}

func (r RestrictionConfig) validate(field string) error {
	switch r.Type {
	case "static":
		if len(r.Assets) == 0 {
			return fmt.Errorf("%s: static restriction needs assets", field)
		}
	case "lifecycle":
		if r.Back < 0 || r.Forward < 0 {
			return fmt.Errorf("%s: back and forward must be >= 0", field)
		}
	case "band":
		if r.Threshold < 0 || r.Threshold >= 1 {
			return fmt.Errorf("%s: threshold must be in [0, 1)", field)
		}
	case "none", "halt", "after_hours":
	default:
		return fmt.Errorf("%s: unknown restriction type %q", field, r.Type)
	}
	return nil
}

var (
	tradingControls = []string{"long_only", "max_order_size", "max_position_size"}
	accountControls = []string{"net_leverage"}
)

func (c ControlConfig) validate(field string, known []string) error {
	found := false
	for _, k := range known {
		if c.Type == k {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%s: unknown control type %q", field, c.Type)
	}
	switch risk.ParseOnViolation(c.OnViolation) {
	case risk.Fail, risk.Log, risk.Warn:
	default:
		return fmt.Errorf("%s: on_violation must be fail, log or warn", field)
	}
	switch c.Type {
	case "max_order_size":
		if c.MaxNotional <= 0 || c.Window <= 0 {
			return fmt.Errorf("%s: max_order_size needs positive max_notional and window", field)
		}
	case "max_position_size":
		if c.MaxFraction <= 0 {
			return fmt.Errorf("%s: max_position_size needs positive max_fraction", field)
		}
	case "net_leverage":
		if c.Base < 0 {
			return fmt.Errorf("%s: net_leverage base must be >= 0", field)
		}
	}
	return nil
}

func (e ExecutionConfig) validate() error {
	if e.LimitRatio <= 0 || e.StopRatio <= 0 {
		return fmt.Errorf("execution limit_ratio and stop_ratio must be positive")
	}
	if e.StopRatio >= 1 {
		return fmt.Errorf("execution.stop_ratio must be below 1")
	}
	if e.Slippage < 0 || e.CommissionRate < 0 || e.MinCommission < 0 {
		return fmt.Errorf("execution slippage and commission must be >= 0")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:   "SIM-001",
			Cash: 1_000_000,
		},
		Backtest: BacktestConfig{
			Start:    "2024-01-02",
			End:      "2024-03-29",
			Workers:  3,
			BoardLot: 100,
		},
		Data: DataConfig{Bars: "./bars.csv"},
		Pipelines: []PipelineConfig{{
			Name: "momentum",
			Root: "top",
			Terms: []TermConfig{
				{ID: "universe", Logic: "universe"},
				{ID: "mom", Logic: "momentum", Params: map[string]any{"window": 20}, Output: "scores", Depends: []string{"universe"}},
				{ID: "liquid", Logic: "volume_rank", Params: map[string]any{"window": 20}, Depends: []string{"universe"}},
				{ID: "top", Logic: "top_n", Params: map[string]any{"n": 5}, Depends: []string{"mom", "liquid"}},
			},
		}},
		Restrictions: []RestrictionConfig{
			{Type: "lifecycle", Back: 66, Forward: 30},
			{Type: "band", Threshold: 0.099},
		},
		Controls: ControlsConfig{
			Trading: []ControlConfig{
				{Type: "long_only"},
				{Type: "max_order_size", MaxNotional: 0.05, Window: 20, OnViolation: "log"},
			},
		},
		Capital: CapitalConfig{Type: "equal"},
		Execution: ExecutionConfig{
			LimitRatio:     0.1,
			StopRatio:      0.1,
			Slippage:       0.001,
			CommissionRate: 0.0003,
			MinCommission:  5,
		},
		Journal: JournalConfig{Type: "none"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
