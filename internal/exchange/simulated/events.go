package simulated

import (
	"github.com/rishav/cryptoengine/internal/orders"
)

// internalEventType identifies the variant of an internal matching-engine
// event, used only for this adapter's own crash-recovery log — it is not
// part of the process-wide event catalog in internal/events.
type internalEventType uint8

const (
	internalEventNewOrder internalEventType = iota + 1
	internalEventCancelOrder
	internalEventOrderAccepted
	internalEventOrderRejected
	internalEventFill
	internalEventOrderCancelled
)

func (t internalEventType) String() string {
	switch t {
	case internalEventNewOrder:
		return "NEW_ORDER"
	case internalEventCancelOrder:
		return "CANCEL_ORDER"
	case internalEventOrderAccepted:
		return "ORDER_ACCEPTED"
	case internalEventOrderRejected:
		return "ORDER_REJECTED"
	case internalEventFill:
		return "FILL"
	case internalEventOrderCancelled:
		return "ORDER_CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// internalEvent is the base shape shared by every matching-engine journal
// record: replaying these in sequence order reconstructs the book and
// clearing house state after a restart.
type internalEvent struct {
	SequenceNum uint64
	Timestamp   int64
	Type        internalEventType
}

// newOrderEvent journals a new order's entry into the book.
type newOrderEvent struct {
	internalEvent
	OrderID       uint64
	Symbol        string
	Side          orders.Side
	OrderType     orders.OrderType
	Price         int64
	Quantity      int64
	AccountID     string
	ClientOrderID string
}

// cancelOrderEvent journals a cancellation request.
type cancelOrderEvent struct {
	internalEvent
	OrderID   uint64
	Symbol    string
	AccountID string
}

// orderAcceptedEvent journals acceptance of a new order into the book.
type orderAcceptedEvent struct {
	internalEvent
	OrderID    uint64
	Symbol     string
	RestingQty int64 // quantity added to book (0 if fully filled)
}

// orderRejectedEvent journals a rejection.
type orderRejectedEvent struct {
	internalEvent
	OrderID      uint64
	Symbol       string
	RejectReason string
}

// fillEvent journals a trade execution between a resting and incoming order.
type fillEvent struct {
	internalEvent
	TradeID        uint64
	Symbol         string
	Price          int64
	Quantity       int64
	MakerOrderID   uint64
	TakerOrderID   uint64
	MakerAccountID string
	TakerAccountID string
	TakerSide      orders.Side
}

// orderCancelledEvent journals a completed cancellation.
type orderCancelledEvent struct {
	internalEvent
	OrderID      uint64
	Symbol       string
	CancelledQty int64
	Reason       string
}
