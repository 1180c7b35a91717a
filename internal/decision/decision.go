// Package decision implements the two-stage signal evaluator: an ordered
// set of primary analyzers that must all pass (a hard gate), followed by
// an unordered set of weighted secondary filters whose scores are summed
// into a confluence score. At most one trade signal is produced per
// invocation.
package decision

import (
	"github.com/rs/zerolog"

	"github.com/rishav/cryptoengine/internal/orders"
	"github.com/rishav/cryptoengine/internal/snapshot"
)

// Direction is a primary analyzer's read on where price should move.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionBuy
	DirectionSell
)

// PrimaryResult is one analyzer's verdict.
type PrimaryResult struct {
	Name      string
	Passed    bool
	Direction Direction
	Reason    string
}

// Analyzer is a primary gate: analyze(snapshot) -> passed/direction/reason.
type Analyzer interface {
	Name() string
	Analyze(snap snapshot.Snapshot) PrimaryResult
}

// Filter is a secondary, weighted scorer: evaluate(snapshot) -> score in
// [0, Weight()].
type Filter interface {
	Name() string
	Weight() float64
	Evaluate(snap snapshot.Snapshot) float64
}

// Confidence classifies a signal's secondary score relative to the
// maximum possible.
type Confidence string

const (
	ConfidenceLow      Confidence = "LOW"
	ConfidenceMedium   Confidence = "MEDIUM"
	ConfidenceHigh     Confidence = "HIGH"
	ConfidenceVeryHigh Confidence = "VERY_HIGH"
)

func classify(ratio float64) Confidence {
	switch {
	case ratio < 0.5:
		return ConfidenceLow
	case ratio < 0.7:
		return ConfidenceMedium
	case ratio < 0.85:
		return ConfidenceHigh
	default:
		return ConfidenceVeryHigh
	}
}

// Signal is the pipeline's sole output: at most one per invocation.
type Signal struct {
	Symbol          string
	Exchange        string
	Side            orders.Side
	ConfluenceScore float64
	PrimaryResults  []PrimaryResult
	FilterScores    map[string]float64
	EntryPrice      int64
	TimestampNs     int64
	Confidence      Confidence

	// StopLoss and TakeProfit are in Scale fixed-point units; 0 means
	// omitted. PositionSizePercent is a percent of account balance (0,100].
	// These are seeded from Config defaults here; internal/execution's
	// risk/sizing handler synthesizes a stop-loss if still 0.
	StopLoss            int64
	TakeProfit           int64
	PositionSizePercent float64
}

// Config configures a Pipeline.
type Config struct {
	Analyzers          []Analyzer
	Filters            []Filter
	MinConfluenceScore float64 // default 3.0

	// Exchange and DefaultPositionSizePercent are stamped onto every
	// emitted signal; the decision pipeline itself has no opinion on stop
	// loss / take profit placement, so those are left for execution's
	// risk/sizing handler to fill in.
	Exchange                   string
	DefaultPositionSizePercent float64
}

// DefaultMinConfluenceScore is the documented default threshold.
const DefaultMinConfluenceScore = 3.0

// Pipeline is purely functional in its inputs: each Evaluate call depends
// only on its arguments, never on state left over from a previous call
// (aside from the metrics counters).
type Pipeline struct {
	cfg Config
	log zerolog.Logger

	maxPossibleScore float64

	evaluations   uint64
	signalsEmitted uint64
}

// New builds a Pipeline. maxPossibleScore is precomputed as the sum of
// every filter's weight.
func New(cfg Config, log zerolog.Logger) *Pipeline {
	if cfg.MinConfluenceScore == 0 {
		cfg.MinConfluenceScore = DefaultMinConfluenceScore
	}
	var max float64
	for _, f := range cfg.Filters {
		max += f.Weight()
	}
	return &Pipeline{cfg: cfg, log: log, maxPossibleScore: max}
}

// Evaluate runs the full primary-gate + secondary-scoring algorithm
// against snap and returns a Signal, or nil if no signal should fire.
func (p *Pipeline) Evaluate(snap snapshot.Snapshot, currentPrice int64, timestampNs int64) *Signal {
	p.evaluations++

	results := make([]PrimaryResult, 0, len(p.cfg.Analyzers))
	agreed := DirectionNone

	for _, a := range p.cfg.Analyzers {
		r := a.Analyze(snap)
		results = append(results, r)

		if !r.Passed {
			return nil
		}
		if r.Direction == DirectionNone {
			continue
		}
		if agreed == DirectionNone {
			agreed = r.Direction
		} else if agreed != r.Direction {
			return nil
		}
	}

	if agreed == DirectionNone {
		return nil
	}

	scores := make(map[string]float64, len(p.cfg.Filters))
	var sum float64
	for _, f := range p.cfg.Filters {
		score := p.safeEvaluate(f, snap)
		scores[f.Name()] = score
		sum += score
	}

	if sum < p.cfg.MinConfluenceScore {
		return nil
	}

	ratio := 0.0
	if p.maxPossibleScore > 0 {
		ratio = sum / p.maxPossibleScore
	}

	side := orders.SideBuy
	if agreed == DirectionSell {
		side = orders.SideSell
	}

	sig := &Signal{
		Symbol:              snap.Symbol,
		Exchange:            p.cfg.Exchange,
		Side:                side,
		ConfluenceScore:     sum,
		PrimaryResults:      results,
		FilterScores:        scores,
		EntryPrice:          currentPrice,
		TimestampNs:         timestampNs,
		Confidence:          classify(ratio),
		PositionSizePercent: p.cfg.DefaultPositionSizePercent,
	}
	p.signalsEmitted++
	return sig
}

// safeEvaluate runs f.Evaluate, treating a panic as a contributed score of
// zero — a misbehaving filter never aborts the pipeline.
func (p *Pipeline) safeEvaluate(f Filter, snap snapshot.Snapshot) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("filter", f.Name()).Interface("panic", r).Msg("secondary filter panicked")
			score = 0
		}
	}()
	return f.Evaluate(snap)
}

// MaxPossibleScore returns the precomputed sum of filter weights.
func (p *Pipeline) MaxPossibleScore() float64 { return p.maxPossibleScore }

// Stats returns (evaluations, signals emitted) for observability.
func (p *Pipeline) Stats() (uint64, uint64) { return p.evaluations, p.signalsEmitted }
