package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rustyeddy/algotrader/broker"
	"github.com/rustyeddy/algotrader/config"
	"github.com/rustyeddy/algotrader/journal"
	"github.com/rustyeddy/algotrader/market"
	"github.com/rustyeddy/algotrader/restriction"
	"github.com/rustyeddy/algotrader/risk"
	"github.com/rustyeddy/algotrader/sim"
	"github.com/rustyeddy/algotrader/term"
)

// Deps are the collaborators a configuration is wired against.
type Deps struct {
	Portal   market.DataPortal
	Finder   market.AssetFinder
	Calendar market.Calendar
	Journal  journal.Journal // nil records nothing
	Logger   *slog.Logger    // nil uses slog.Default
	Registry prometheus.Registerer
}

// Backtest is a fully wired run.
type Backtest struct {
	Config    *config.Config
	Terms     *term.Registry
	Pipelines []*term.Pipeline
	Exit      *term.Pipeline
	Engine    *Engine
	Broker    *broker.Broker
	Ledger    *sim.Ledger
	Runner    *Runner
	Metrics   *broker.Metrics
}

// Build wires cfg into a runnable backtest. Term construction, domain and
// control errors surface here, before any session runs.
func Build(cfg *config.Config, deps Deps) (*Backtest, error) {
	if deps.Portal == nil || deps.Finder == nil || deps.Calendar == nil {
		return nil, fmt.Errorf("build: portal, finder and calendar are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	domains := make([]term.Domain, 0, len(cfg.Backtest.Domains))
	for _, d := range cfg.Backtest.Domains {
		domains = append(domains, term.Domain(d))
	}
	loader := &term.PortalLoader{Portal: deps.Portal, Domains: domains}
	bt := &Backtest{Config: cfg, Terms: term.NewRegistry(loader)}

	for _, pc := range cfg.Pipelines {
		p, err := buildPipeline(bt.Terms, pc, loader, deps.Calendar)
		if err != nil {
			return nil, err
		}
		bt.Pipelines = append(bt.Pipelines, p)
	}
	if cfg.Exit != nil {
		p, err := buildPipeline(bt.Terms, *cfg.Exit, loader, deps.Calendar)
		if err != nil {
			return nil, err
		}
		bt.Exit = p
	}

	restrictions, err := buildRestrictions(cfg.Restrictions, deps)
	if err != nil {
		return nil, err
	}
	trading, err := buildTradingControls(cfg.Controls.Trading, deps.Portal, logger)
	if err != nil {
		return nil, err
	}
	account, err := buildAccountControls(cfg.Controls.Account)
	if err != nil {
		return nil, err
	}
	capital, err := buildCapital(cfg.Capital)
	if err != nil {
		return nil, err
	}

	if deps.Registry != nil {
		bt.Metrics = broker.NewMetrics(deps.Registry)
	}

	ex := cfg.Execution
	blotter := broker.NewBlotter(deps.Portal,
		broker.RatioCommission{Rate: ex.CommissionRate, Min: ex.MinCommission},
		broker.FixedSlippage{Rate: ex.Slippage},
		broker.FixedExecution{Limit: ex.LimitRatio, Stop: ex.StopRatio},
	)
	blotter.Logger = logger
	blotter.Metrics = bt.Metrics

	universe := make([]market.Asset, 0, len(cfg.Backtest.Universe))
	for _, a := range cfg.Backtest.Universe {
		universe = append(universe, market.Asset(a))
	}
	bt.Engine = &Engine{
		Entry:        bt.Pipelines,
		Exit:         bt.Exit,
		Restrictions: restrictions,
		Finder:       deps.Finder,
		Universe:     universe,
		MaxHoldings:  cfg.Backtest.MaxHoldings,
		Rotate:       cfg.Backtest.Rotate,
		Logger:       logger,
	}
	bt.Broker = &broker.Broker{
		Source:          bt.Engine,
		Generator:       broker.NewGenerator(blotter, trading, cfg.Backtest.BoardLot),
		Capital:         capital,
		AccountControls: account,
		Workers:         cfg.Backtest.Workers,
		Logger:          logger,
		Metrics:         bt.Metrics,
	}

	bt.Ledger = sim.NewLedger(cfg.Account.Cash, deps.Journal)
	bt.Ledger.Logger = logger

	start, _ := cfg.Backtest.StartDate()
	end, _ := cfg.Backtest.EndDate()
	bt.Runner = &Runner{
		Broker:   bt.Broker,
		Ledger:   bt.Ledger,
		Portal:   deps.Portal,
		Calendar: deps.Calendar,
		Start:    start,
		End:      end,
		Logger:   logger,
	}
	return bt, nil
}

// Run executes the session loop.
func (b *Backtest) Run(ctx context.Context) (Result, error) {
	return b.Runner.Run(ctx)
}

// Describe renders every pipeline's term graph.
func (b *Backtest) Describe() []string {
	out := make([]string, 0, len(b.Pipelines)+1)
	for _, p := range b.Pipelines {
		out = append(out, fmt.Sprintf("%s: %s", p.Name(), p.Root()))
	}
	if b.Exit != nil {
		out = append(out, fmt.Sprintf("exit %s: %s", b.Exit.Name(), b.Exit.Root()))
	}
	return out
}

// Close releases the pipeline roots from the term registry.
func (b *Backtest) Close() {
	for _, p := range b.Pipelines {
		b.Terms.Release(p.Root())
	}
	if b.Exit != nil {
		b.Terms.Release(b.Exit.Root())
	}
	b.Pipelines, b.Exit = nil, nil
}

// buildPipeline builds the terms reachable from the root, dependencies
// first.
func buildPipeline(reg *term.Registry, pc config.PipelineConfig, loader term.Loader, cal market.Calendar) (*term.Pipeline, error) {
	byID := make(map[string]config.TermConfig, len(pc.Terms))
	for _, tc := range pc.Terms {
		byID[tc.ID] = tc
	}
	built := make(map[string]*term.Term, len(pc.Terms))
	visiting := make(map[string]bool)

	var build func(id string) (*term.Term, error)
	build = func(id string) (*term.Term, error) {
		if t, ok := built[id]; ok {
			return t, nil
		}
		if visiting[id] {
			return nil, fmt.Errorf("pipeline %s: dependency cycle through %q", pc.Name, id)
		}
		tc, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("pipeline %s: unknown term %q", pc.Name, id)
		}
		visiting[id] = true
		defer delete(visiting, id)

		deps := make([]*term.Term, 0, len(tc.Depends))
		for _, d := range tc.Depends {
			dt, err := build(d)
			if err != nil {
				return nil, err
			}
			deps = append(deps, dt)
		}
		out, err := term.ParseOutputType(tc.Output)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: term %s: %w", pc.Name, id, err)
		}
		t, err := reg.Builder(tc.Logic).Params(term.Params(tc.Params)).Output(out).DependsOn(deps...).Build()
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: term %s: %w", pc.Name, id, err)
		}
		built[id] = t
		return t, nil
	}

	root, err := build(pc.Root)
	// The pipeline owns only the root; dependents keep the rest alive.
	for id, t := range built {
		if err != nil || id != pc.Root {
			reg.Release(t)
		}
	}
	if err != nil {
		return nil, err
	}
	p, err := term.NewPipeline(pc.Name, root, loader, cal)
	if err != nil {
		reg.Release(root)
		return nil, err
	}
	return p, nil
}

func buildRestrictions(cfgs []config.RestrictionConfig, deps Deps) (restriction.Restriction, error) {
	rs := make([]restriction.Restriction, 0, len(cfgs))
	for _, rc := range cfgs {
		switch rc.Type {
		case "none":
			rs = append(rs, restriction.NoRestriction{})
		case "static":
			assets := make([]market.Asset, 0, len(rc.Assets))
			for _, a := range rc.Assets {
				assets = append(assets, market.Asset(a))
			}
			rs = append(rs, restriction.NewStatic(assets...))
		case "lifecycle":
			l := restriction.NewLifecycle(deps.Finder, deps.Calendar)
			if rc.Back > 0 {
				l.Back = rc.Back
			}
			if rc.Forward > 0 {
				l.Forward = rc.Forward
			}
			rs = append(rs, l)
		case "band":
			b := restriction.NewBand(deps.Portal)
			if rc.Threshold > 0 {
				b.Threshold = rc.Threshold
			}
			rs = append(rs, b)
		case "halt":
			rs = append(rs, restriction.Halt{})
		case "after_hours":
			rs = append(rs, restriction.AfterHours{})
		default:
			return nil, fmt.Errorf("unknown restriction type %q", rc.Type)
		}
	}
	return restriction.Union(rs...), nil
}

func buildTradingControls(cfgs []config.ControlConfig, portal market.DataPortal, logger *slog.Logger) (risk.TradingControl, error) {
	controls := make([]risk.TradingControl, 0, len(cfgs))
	for _, cc := range cfgs {
		policy := risk.Policy{OnError: risk.ParseOnViolation(cc.OnViolation), Logger: logger}
		switch cc.Type {
		case "long_only":
			controls = append(controls, risk.LongOnly{Policy: policy})
		case "max_order_size":
			controls = append(controls, &risk.MaxOrderSize{Policy: policy, Portal: portal, MaxNotional: cc.MaxNotional, Window: cc.Window})
		case "max_position_size":
			controls = append(controls, &risk.MaxPositionSize{Policy: policy, Portal: portal, MaxFraction: cc.MaxFraction})
		default:
			return nil, fmt.Errorf("unknown trading control %q", cc.Type)
		}
	}
	return risk.Union(controls...), nil
}

func buildAccountControls(cfgs []config.ControlConfig) ([]risk.AccountControl, error) {
	out := make([]risk.AccountControl, 0, len(cfgs))
	for _, cc := range cfgs {
		switch cc.Type {
		case "net_leverage":
			c, err := risk.NewNetLeverage(cc.Base)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		default:
			return nil, fmt.Errorf("unknown account control %q", cc.Type)
		}
	}
	return out, nil
}

func buildCapital(cc config.CapitalConfig) (risk.CapitalModel, error) {
	switch cc.Type {
	case "", "equal":
		return risk.EqualAllocation{MaxAssets: cc.MaxAssets}, nil
	case "fixed":
		return risk.FixedAllocation{Amount: cc.Amount}, nil
	}
	return nil, fmt.Errorf("unknown capital model %q", cc.Type)
}

// Market is the in-memory market a CLI run reads from.
type Market struct {
	Portal   *market.MemoryPortal
	Finder   *market.MemoryFinder
	Calendar *market.SessionCalendar
}

// LoadMarket reads the configured bar files. The calendar is every weekday
// from the first bar to the later of the last bar and backtest.end, minus
// the configured holidays; a weekday without a bar inside an asset's range
// counts as a suspension of that asset.
func LoadMarket(cfg *config.Config) (*Market, error) {
	portal := market.NewMemoryPortal()
	for _, path := range []string{cfg.Data.Bars, cfg.Data.Minutes} {
		if path == "" {
			continue
		}
		if _, err := market.LoadBarsCSV(path, portal); err != nil {
			return nil, fmt.Errorf("load bars %s: %w", path, err)
		}
	}
	return NewMarket(portal, cfg.Backtest)
}

// NewMarket derives the calendar and finder from the bars in portal.
func NewMarket(portal *market.MemoryPortal, bc config.BacktestConfig) (*Market, error) {
	days := portal.Days()
	if len(days) == 0 {
		return nil, fmt.Errorf("market: no daily bars loaded")
	}
	holidays, err := bc.HolidayDates()
	if err != nil {
		return nil, err
	}
	last := days[len(days)-1]
	if end, err := bc.EndDate(); err == nil && end.After(last) {
		last = end
	}
	cal := market.WeekdayCalendar(days[0], last, holidays...)
	return &Market{
		Portal:   portal,
		Finder:   market.FinderFromPortal(portal, cal),
		Calendar: cal,
	}, nil
}

// Deps returns the market collaborators.
func (m *Market) Deps() Deps {
	return Deps{Portal: m.Portal, Finder: m.Finder, Calendar: m.Calendar}
}

