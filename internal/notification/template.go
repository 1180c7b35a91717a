package notification

import (
	"fmt"

	"github.com/rishav/cryptoengine/internal/events"
)

// Message is the rendered, sender-agnostic form of a notification: a
// short subject line plus a one-line body, suitable for an email subject/
// preview or a chat message.
type Message struct {
	Kind    events.Kind
	Subject string
	Body    string
}

// render formats ev into a Message using its typed payload. Kinds with no
// specific case fall back to a generic rendering rather than being
// dropped, since the catalog grows by addition only and a sender should
// never silently swallow a new kind.
func render(ev events.Event) Message {
	subject := fmt.Sprintf("[%s] %s", severityName(ev.Kind.Severity()), ev.Kind.String())

	switch p := ev.Payload.(type) {
	case events.OrderFailedPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("order %s on %s failed at stage %q: %s", p.ClientOrderID, p.Symbol, p.FailedStage, p.Reason)}
	case events.MarketDataConnectionLostPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("market data connection to %s lost: %s", p.Exchange, p.Reason)}
	case events.SystemErrorPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("%s: %s", p.Component, p.Reason)}
	case events.CircuitBreakerTriggeredPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("circuit breaker tripped for %s: %s", p.Scope, p.Reason)}
	case events.ForceExitRequiredPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("force exit requested for %s on %s: %s", p.ClientOrderID, p.Symbol, p.Reason)}
	case events.DataQualityIssuePayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("data quality issue on %s %s: %s", p.Exchange, p.Symbol, p.Reason)}
	case events.PortfolioHealthDegradedPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("portfolio drawdown %.2f%%: %s", p.DrawdownPct*100, p.Reason)}
	case events.DumpDetectedPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("%s %s dropped %.2f%%", p.Exchange, p.Symbol, p.DropPct*100)}
	case events.CorrelatedDumpDetectedPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("correlated dump across %v, %.2f%%", p.Symbols, p.DropPct*100)}
	case events.MaxHoldTimeExceededPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("position %s on %s held %ds past its limit", p.ClientOrderID, p.Symbol, p.HeldSeconds)}
	case events.SignalGeneratedPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("signal on %s: side=%s confluence=%.1f confidence=%s", p.Symbol, p.Side.String(), p.ConfluenceScore, p.Confidence)}
	case events.OrderFilledPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("order %s on %s filled %d @ %d (partial=%v)", p.ClientOrderID, p.Symbol, p.FilledQty, p.AvgFillPrice, p.Partial)}
	case events.PositionOpenedPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("position opened %s %s qty=%d entry=%d", p.Symbol, p.Side.String(), p.Quantity, p.EntryPrice)}
	case events.PositionClosedPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("position closed %s exit=%d reason=%s", p.Symbol, p.ExitPrice, p.Reason)}
	case events.TrailingStopHitPayload:
		return Message{Kind: ev.Kind, Subject: subject,
			Body: fmt.Sprintf("trailing stop hit on %s: stop=%d trigger=%d", p.Symbol, p.StopPrice, p.TriggerPrice)}
	default:
		return Message{Kind: ev.Kind, Subject: subject, Body: fmt.Sprintf("%+v", ev.Payload)}
	}
}

func severityName(s events.Severity) string {
	switch s {
	case events.SeverityCritical:
		return "CRITICAL"
	case events.SeverityWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}
