package storage

import (
	"path/filepath"
	"sync"
	"time"
)

// Config controls retention windows and on-disk layout for a Store.
type Config struct {
	RootDir           string
	TickRetention     time.Duration // default 15m
	Candle1mRetention time.Duration // default 15m
	Candle5mRetention time.Duration // default 1h; also applies to 15m candles
	CandleLongRetention time.Duration // order-flow metrics, profile, zones, gaps
	SyncMode          bool
}

// DefaultConfig returns the retention windows named in the storage contract.
func DefaultConfig(rootDir string) Config {
	return Config{
		RootDir:             rootDir,
		TickRetention:       15 * time.Minute,
		Candle1mRetention:   15 * time.Minute,
		Candle5mRetention:   time.Hour,
		CandleLongRetention: 4 * time.Hour,
		SyncMode:            false,
	}
}

// Key identifies one logically separate per-pair store.
type Key struct {
	Exchange string
	Market   string
	Symbol   string
}

// Path returns the on-disk directory for k under root, matching the
// persisted layout `<root>/<exchange>/<market>/<symbol>/`.
func (k Key) Path(root string) string {
	return filepath.Join(root, k.Exchange, k.Market, k.Symbol)
}

// Store is the per-pair time-series sink: one append-only Log per record
// kind, plus an in-memory recent window per kind for cheap queries. The
// core only ever talks to this surface; the on-disk format is this
// package's concern alone.
type Store struct {
	key    Key
	cfg    Config
	mu     sync.RWMutex
	logs   map[RecordKind]*Log
	recent map[RecordKind][]timedRecord
}

type timedRecord struct {
	timestampNs int64
	data        interface{}
}

// Open creates or reopens the per-pair store at key, replaying each kind's
// log to warm the recent-window cache.
func Open(key Key, cfg Config) (*Store, error) {
	dir := key.Path(cfg.RootDir)
	s := &Store{
		key:    key,
		cfg:    cfg,
		logs:   make(map[RecordKind]*Log),
		recent: make(map[RecordKind][]timedRecord),
	}

	kinds := []RecordKind{
		RecordKindTick, RecordKindCandle1m, RecordKindCandle5m, RecordKindCandle15m,
		RecordKindOrderFlowMetric, RecordKindMarketProfile, RecordKindZone, RecordKindGap,
	}
	for _, k := range kinds {
		l, err := NewLog(LogConfig{Path: filepath.Join(dir, k.String()+".log"), SyncMode: cfg.SyncMode})
		if err != nil {
			return nil, err
		}
		s.logs[k] = l
		s.recent[k] = nil
		if err := l.Replay(func(_ uint64, kind RecordKind, data interface{}) error {
			s.recent[kind] = append(s.recent[kind], timedRecord{timestampNs: recordTimestamp(data), data: data})
			return nil
		}); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func recordTimestamp(data interface{}) int64 {
	switch r := data.(type) {
	case TickRecord:
		return r.TimestampNs
	case CandleRecord:
		return r.OpenTimeNs
	case OrderFlowMetricRecord:
		return r.TimestampNs
	case MarketProfileRecord:
		return r.TimestampNs
	case ZoneRecord:
		return r.TimestampNs
	case GapRecord:
		return r.TimestampNs
	default:
		return 0
	}
}

// Append appends one record of kind, updating the in-memory recent window.
func (s *Store) Append(kind RecordKind, data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[kind]
	if !ok {
		return errUnknownKind(kind)
	}
	if _, err := l.Append(kind, data); err != nil {
		return err
	}
	s.recent[kind] = append(s.recent[kind], timedRecord{timestampNs: recordTimestamp(data), data: data})
	return nil
}

// Recent returns every record of kind with timestamp >= sinceNs, oldest first.
func (s *Store) Recent(kind RecordKind, sinceNs int64) []interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.recent[kind]
	out := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		if r.timestampNs >= sinceNs {
			out = append(out, r.data)
		}
	}
	return out
}

// Sweep drops in-memory rows older than each kind's configured retention.
// It does not compact the on-disk log; retention bounds query-path memory
// and is enforced again on the next process restart via log rotation
// (left to the deployment's log-rotation tooling, same as the disk-growth
// note in the persisted-state layout).
func (s *Store) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoffs := map[RecordKind]time.Duration{
		RecordKindTick:            s.cfg.TickRetention,
		RecordKindCandle1m:        s.cfg.Candle1mRetention,
		RecordKindCandle5m:        s.cfg.Candle5mRetention,
		RecordKindCandle15m:       s.cfg.Candle5mRetention,
		RecordKindOrderFlowMetric: s.cfg.CandleLongRetention,
		RecordKindMarketProfile:   s.cfg.CandleLongRetention,
		RecordKindZone:            s.cfg.CandleLongRetention,
		RecordKindGap:             s.cfg.CandleLongRetention,
	}

	for kind, retention := range cutoffs {
		cutoffNs := now.Add(-retention).UnixNano()
		rows := s.recent[kind]
		kept := rows[:0:0]
		for _, r := range rows {
			if r.timestampNs >= cutoffNs {
				kept = append(kept, r)
			}
		}
		s.recent[kind] = kept
	}
}

// Close closes every underlying log.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, l := range s.logs {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type errUnknownKind RecordKind

func (e errUnknownKind) Error() string {
	return "storage: unknown record kind " + RecordKind(e).String()
}
