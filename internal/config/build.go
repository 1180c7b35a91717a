package config

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rishav/cryptoengine/internal/analytics"
	"github.com/rishav/cryptoengine/internal/decision"
	"github.com/rishav/cryptoengine/internal/decisionengine"
	"github.com/rishav/cryptoengine/internal/eventbus"
	"github.com/rishav/cryptoengine/internal/exchange"
	"github.com/rishav/cryptoengine/internal/exchange/simulated"
	"github.com/rishav/cryptoengine/internal/execution"
	"github.com/rishav/cryptoengine/internal/executionengine"
	"github.com/rishav/cryptoengine/internal/marketdata/simfeed"
	"github.com/rishav/cryptoengine/internal/metrics"
	"github.com/rishav/cryptoengine/internal/notification"
	"github.com/rishav/cryptoengine/internal/ordermanager"
	"github.com/rishav/cryptoengine/internal/orders"
	"github.com/rishav/cryptoengine/internal/positionmonitor"
	"github.com/rishav/cryptoengine/internal/risk"
	"github.com/rishav/cryptoengine/internal/snapshot"
	"github.com/rishav/cryptoengine/internal/storage"
)

// Runtime holds every always-on and reactive component Build wired
// together, plus the handles cmd/engine needs to drive the process
// lifecycle (start order, shutdown order) and to serve its status endpoint.
type Runtime struct {
	Bus      *eventbus.Bus
	Factory  *exchange.Factory
	Storage  *storage.Pool
	Snapshot *snapshot.Cache

	Analytics        *analytics.Engine
	DecisionEngine   *decisionengine.Engine
	ExecutionEngine  *executionengine.Engine
	Notifications    *notification.Router
	PositionMonitor  *positionmonitor.Monitor
	Metrics          *metrics.Collector
	OrderManager     *ordermanager.Manager
	Feeds            []*simfeed.Generator

	components []component
}

type component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Build constructs the full dependency graph described by doc. No package
// in this graph reaches for a global/singleton: every collaborator is
// passed in explicitly, mirroring an application-layer composition root
// rather than a reflection-based container.
func Build(doc *Document, log zerolog.Logger) (*Runtime, error) {
	bus := eventbus.New(eventbus.Config{MailboxSize: doc.EventBus.MailboxSize}, log)

	factory := exchange.NewFactory()
	for _, ex := range doc.Exchanges {
		ex := ex
		if !ex.Simulated {
			return nil, fmt.Errorf("exchange %q: only simulated adapters are wired by this build", ex.Name)
		}
		factory.Register(ex.Name, func(key exchange.Key) (exchange.Adapter, error) {
			return simulated.NewAdapter(simulated.Config{
				AccountID:   ex.Name,
				JournalDir:  ex.JournalDir,
				InitialCash: ex.InitialCash * orders.Scale,
				Symbols:     ex.Symbols,
				Logger:      log,
			})
		})
	}

	pool, err := storage.NewPool(storage.DefaultConfig(doc.Storage.DataDir), doc.Storage.MaxOpenHandles)
	if err != nil {
		return nil, fmt.Errorf("build storage pool: %w", err)
	}

	snapCache := snapshot.NewCache()
	om := ordermanager.New(ordermanager.DefaultMaxHistorySize, log)

	riskChecker := risk.NewChecker(risk.Config{
		MaxOrderSize:     int64(doc.Risk.MaxOrderSize * orders.Scale),
		MaxOrderValue:    int64(doc.Risk.MaxOrderValue * orders.Scale),
		MaxPositionSize:  int64(doc.Risk.MaxPositionSize * orders.Scale),
		MaxDailyVolume:   int64(doc.Risk.MaxDailyVolume * orders.Scale),
		PriceBandPercent: doc.Risk.PriceBandPercent,
	})

	allowed := make(map[string]bool, len(doc.Execution.AllowedExchanges))
	for _, name := range doc.Execution.AllowedExchanges {
		allowed[name] = true
	}

	balances := &factoryBalanceProvider{factory: factory}

	positionMon := positionmonitor.New(positionmonitor.Config{
		MaxHoldTime:             doc.Monitor.MaxHoldTime,
		TrailingStopDistancePct: doc.Monitor.TrailingStopDistancePct,
		PollInterval:            doc.Monitor.PollInterval,
	}, bus, &cachePriceSource{cache: snapCache, exchange: doc.Decision.Exchange}, log)

	pipeline := execution.NewPipeline(
		execution.NewValidationHandler(execution.ValidationConfig{
			MinConfluence:    doc.Decision.MinConfluenceScore,
			MaxConfluence:    100,
			AllowedExchanges: allowed,
		}),
		execution.NewRiskSizingHandler(execution.RiskConfig{
			MaxConcurrentPositions:     doc.Execution.MaxConcurrentPositions,
			MaxPositionSizePercent:     doc.Execution.MaxPositionSizePercent,
			MinRiskRewardRatio:         doc.Execution.MinRiskRewardRatio,
			MaxStopLossDistancePercent: doc.Execution.MaxStopLossDistancePercent,
			QuoteAsset:                 doc.Execution.QuoteAsset,
		}, balances, &monitorPositionCounter{monitor: positionMon}, riskChecker),
		execution.NewPlacementHandler(execution.BackoffConfig{
			MaxAdditionalAttempts: doc.Execution.RetryMaxAdditionalAttempts,
			Base:                  doc.Execution.RetryBase,
			Factor:                doc.Execution.RetryFactor,
			Ceiling:               doc.Execution.RetryCeiling,
			JitterPercent:         doc.Execution.RetryJitterPercent,
		}, log),
		execution.NewReconciliationHandler(execution.ReconciliationConfig{
			Enabled:            doc.Execution.ReconciliationEnabled,
			PollInterval:       doc.Execution.ReconciliationPollInterval,
			PollTimeout:        doc.Execution.ReconciliationPollTimeout,
			MaxSlippagePercent: doc.Execution.MaxSlippagePercent,
			MinFillRatio:       doc.Execution.MinFillRatio,
		}),
	)

	execEngine := executionengine.New(pipeline, factory, om, bus, log)

	decisionPipeline := decision.New(decision.Config{
		Analyzers:                  []decision.Analyzer{decision.NewOrderFlowAnalyzer(), decision.NewMicrostructureAnalyzer()},
		Filters:                    []decision.Filter{decision.NewMarketProfileFilter(), decision.NewDemandZoneFilter()},
		MinConfluenceScore:         doc.Decision.MinConfluenceScore,
		Exchange:                   doc.Decision.Exchange,
		DefaultPositionSizePercent: doc.Decision.DefaultPositionSizePercent,
	}, log)

	analyticsEngine := analytics.New(analytics.DefaultConfig(), bus, snapCache)
	decEngine := decisionengine.New(decisionPipeline, snapCache, bus, execEngine, log)

	notifyCfg := notification.DefaultConfig()
	notifyCfg.RatePerHour = doc.Notification.RatePerHour
	router := notification.New(notifyCfg, bus, notification.NewLogSender(log), doc.Notification.Recipient, log)

	collector := metrics.NewCollector(bus, om, doc.Metrics.CollectInterval)

	rt := &Runtime{
		Bus: bus, Factory: factory, Storage: pool, Snapshot: snapCache,
		Analytics: analyticsEngine, DecisionEngine: decEngine, ExecutionEngine: execEngine,
		Notifications: router, PositionMonitor: positionMon, Metrics: collector,
		OrderManager: om,
	}
	rt.components = []component{analyticsEngine, decEngine, router, positionMon}
	if doc.Metrics.Enabled {
		rt.components = append(rt.components, collector)
	}

	seed := int64(1)
	for _, ex := range doc.Exchanges {
		for _, symbol := range ex.Symbols {
			gen := simfeed.New(simfeed.Config{
				Exchange:   ex.Name,
				Symbol:     symbol,
				StartPrice: 50_000 * orders.Scale,
			}, bus, seed)
			rt.Feeds = append(rt.Feeds, gen)
			rt.components = append(rt.components, gen)
			seed++
		}
	}

	return rt, nil
}

// Start starts every always-on/reactive component in wiring order.
func (rt *Runtime) Start(ctx context.Context) error {
	for _, c := range rt.components {
		if err := c.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops every component in reverse wiring order, then shuts down the
// exchange factory and closes the storage pool.
func (rt *Runtime) Stop(ctx context.Context) error {
	for i := len(rt.components) - 1; i >= 0; i-- {
		if err := rt.components[i].Stop(ctx); err != nil {
			return err
		}
	}
	rt.Factory.Shutdown(ctx)
	rt.Storage.Close()
	return nil
}

// factoryBalanceProvider adapts the exchange factory to
// execution.BalanceProvider by acquiring the named exchange's adapter and
// reading its quote-asset balance.
type factoryBalanceProvider struct {
	factory *exchange.Factory
}

func (p *factoryBalanceProvider) QuoteBalance(ctx context.Context, exchangeName, asset string) (int64, error) {
	adapter, err := p.factory.Acquire(ctx, exchange.Key{Name: exchangeName, Market: exchange.MarketSpot})
	if err != nil {
		return 0, err
	}
	balances, err := adapter.GetBalance(ctx, asset)
	if err != nil {
		return 0, err
	}
	bal, ok := balances[asset]
	if !ok {
		return 0, nil
	}
	return bal.Free, nil
}

// monitorPositionCounter adapts positionmonitor.Monitor to
// execution.PositionCountProvider. The monitor tracks positions across all
// exchanges together, so exchangeName is informational only here.
type monitorPositionCounter struct {
	monitor *positionmonitor.Monitor
}

func (p *monitorPositionCounter) OpenPositionCount(exchangeName string) int {
	return p.monitor.OpenCount()
}

// cachePriceSource adapts the snapshot cache to positionmonitor.PriceSource
// for the single configured decision exchange.
type cachePriceSource struct {
	cache    *snapshot.Cache
	exchange string
}

func (s *cachePriceSource) LastPrice(symbol string) (int64, bool) {
	snap, ok := s.cache.Get(s.exchange, symbol)
	if !ok {
		return 0, false
	}
	return snap.Price, true
}
