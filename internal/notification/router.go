package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/eventbus"
	"github.com/rishav/cryptoengine/internal/lifecycle"
)

const handlerName = "notification_router"

// checkInterval is how often the batch flush loop wakes to test whether a
// tier's batch interval has elapsed. Matches the original polling cadence.
const checkInterval = 10 * time.Second

// Router subscribes to every event kind, routes each by its severity tier
// (CRITICAL sent immediately with retry, WARNING/INFO batched on their own
// interval), and rate limits each kind independently.
type Router struct {
	cfg       Config
	bus       *eventbus.Bus
	sender    Sender
	recipient string
	log       zerolog.Logger

	lifecycle *lifecycle.AlwaysOn

	limitersMu sync.Mutex
	limiters   map[events.Kind]*rate.Limiter

	batchMu   sync.Mutex
	batches   map[events.Severity][]events.Event
	lastFlush map[events.Severity]time.Time
}

// New builds a Router. recipient is the opaque address passed to sender
// for every delivery (an email address, webhook URL, etc).
func New(cfg Config, bus *eventbus.Bus, sender Sender, recipient string, log zerolog.Logger) *Router {
	if cfg.Tiers == nil {
		cfg = DefaultConfig()
	}
	r := &Router{
		cfg:       cfg,
		bus:       bus,
		sender:    sender,
		recipient: recipient,
		log:       log,
		limiters:  make(map[events.Kind]*rate.Limiter),
		batches:   make(map[events.Severity][]events.Event),
		lastFlush: make(map[events.Severity]time.Time),
	}
	r.lifecycle = lifecycle.NewAlwaysOn("notification_router", r.flushLoop)
	return r
}

// Start subscribes to every publishable kind and begins the batch flush
// loop.
func (r *Router) Start(ctx context.Context) error {
	for _, kind := range events.AllKinds() {
		kind := kind
		r.bus.Subscribe(kind, handlerName, func(ctx context.Context, ev events.Event) error {
			return r.handle(ctx, ev)
		})
	}
	return r.lifecycle.Start(ctx)
}

// Stop unsubscribes from every kind and stops the flush loop, flushing
// whatever remains batched.
func (r *Router) Stop(ctx context.Context) error {
	if err := r.lifecycle.Stop(ctx); err != nil {
		return err
	}
	for _, kind := range events.AllKinds() {
		r.bus.Unsubscribe(kind, handlerName)
	}
	r.flushDue(ctx, true)
	return nil
}

// Health reports the router's lifecycle health.
func (r *Router) Health() lifecycle.Health { return r.lifecycle.Health() }

func (r *Router) handle(ctx context.Context, ev events.Event) error {
	if r.limited(ev.Kind) {
		r.log.Warn().Str("kind", ev.Kind.String()).Msg("notification rate limited, dropping")
		return nil
	}

	tier := r.cfg.Tiers[ev.Kind.Severity()]
	if tier.SendImmediately {
		return r.sendWithRetry(ctx, ev, tier)
	}

	r.batchMu.Lock()
	r.batches[ev.Kind.Severity()] = append(r.batches[ev.Kind.Severity()], ev)
	r.batchMu.Unlock()
	return nil
}

func (r *Router) limited(kind events.Kind) bool {
	perHour := r.cfg.RatePerHour
	if perHour <= 0 {
		perHour = DefaultRatePerHour
	}

	r.limitersMu.Lock()
	lim, ok := r.limiters[kind]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(perHour)/3600.0), perHour)
		r.limiters[kind] = lim
	}
	r.limitersMu.Unlock()

	return !lim.Allow()
}

func (r *Router) sendWithRetry(ctx context.Context, ev events.Event, tier TierConfig) error {
	msg := render(ev)
	attempts := 1
	if tier.RetryOnFailure {
		attempts += tier.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := r.sender.Send(ctx, r.recipient, msg); err != nil {
			lastErr = err
			continue
		}
		r.bus.Publish(events.Event{Kind: events.KindNotificationSent, Timestamp: time.Now().UnixNano(),
			Payload: events.NotificationSentPayload{Tier: severityName(ev.Kind.Severity()), NotifyType: ev.Kind.String(), RecipientHash: hashRecipient(r.recipient)}})
		return nil
	}

	r.bus.Publish(events.Event{Kind: events.KindNotificationFailed, Timestamp: time.Now().UnixNano(),
		Payload: events.NotificationFailedPayload{Tier: severityName(ev.Kind.Severity()), NotifyType: ev.Kind.String(), Reason: lastErr.Error()}})
	return fmt.Errorf("send after %d attempts: %w", attempts, lastErr)
}

func (r *Router) flushLoop(ctx context.Context, _ *lifecycle.Base) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.flushDue(ctx, false)
		}
	}
}

// flushDue sends any batch whose interval has elapsed, or every non-empty
// batch if force is true.
func (r *Router) flushDue(ctx context.Context, force bool) {
	for _, sev := range []events.Severity{events.SeverityWarning, events.SeverityInfo} {
		tier := r.cfg.Tiers[sev]

		r.batchMu.Lock()
		batch := r.batches[sev]
		due := force || (len(batch) > 0 && time.Since(r.lastFlush[sev]) >= tier.BatchInterval)
		if due {
			r.batches[sev] = nil
			r.lastFlush[sev] = time.Now()
		}
		r.batchMu.Unlock()

		if !due || len(batch) == 0 {
			continue
		}
		r.sendBatch(ctx, sev, batch)
	}
}

func (r *Router) sendBatch(ctx context.Context, sev events.Severity, batch []events.Event) {
	lines := make([]string, 0, len(batch))
	for _, ev := range batch {
		msg := render(ev)
		lines = append(lines, fmt.Sprintf("- %s: %s", msg.Subject, msg.Body))
	}
	msg := Message{
		Subject: fmt.Sprintf("[%s] %d events", severityName(sev), len(batch)),
		Body:    strings.Join(lines, "\n"),
	}

	if err := r.sender.Send(ctx, r.recipient, msg); err != nil {
		r.bus.Publish(events.Event{Kind: events.KindNotificationFailed, Timestamp: time.Now().UnixNano(),
			Payload: events.NotificationFailedPayload{Tier: severityName(sev), NotifyType: "batch", Reason: err.Error()}})
		return
	}
	r.bus.Publish(events.Event{Kind: events.KindNotificationSent, Timestamp: time.Now().UnixNano(),
		Payload: events.NotificationSentPayload{Tier: severityName(sev), NotifyType: "batch", RecipientHash: hashRecipient(r.recipient)}})
}

// hashRecipient avoids putting a raw address into stats/logs downstream.
func hashRecipient(recipient string) string {
	if recipient == "" {
		return ""
	}
	var h uint32 = 2166136261
	for i := 0; i < len(recipient); i++ {
		h ^= uint32(recipient[i])
		h *= 16777619
	}
	return fmt.Sprintf("%08x", h)
}
