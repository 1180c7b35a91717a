package main

import (
	"encoding/json"
	"net/http"

	"github.com/rishav/cryptoengine/internal/config"
	"github.com/rishav/cryptoengine/internal/events"
)

// statusResponse is the read-only snapshot enginectl polls.
type statusResponse struct {
	OrdersActive      int                    `json:"orders_active"`
	OrdersHistory     int                    `json:"orders_history"`
	OpenPositions     int                    `json:"open_positions"`
	BusQueues         map[string]queueStatus `json:"bus_queues"`
}

type queueStatus struct {
	Published      uint64 `json:"published"`
	Delivered      uint64 `json:"delivered"`
	HandlerErrors  uint64 `json:"handler_errors"`
	DroppedOverrun uint64 `json:"dropped_overrun"`
	QueueDepth     int    `json:"queue_depth"`
}

func statusHandler(rt *config.Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		omStats := rt.OrderManager.Stats()
		resp := statusResponse{
			OrdersActive:  omStats.ActiveCount,
			OrdersHistory: omStats.HistoryCount,
			OpenPositions: rt.PositionMonitor.OpenCount(),
			BusQueues:     make(map[string]queueStatus, len(events.AllKinds())),
		}
		for _, kind := range events.AllKinds() {
			s := rt.Bus.Stats(kind)
			resp.BusQueues[kind.String()] = queueStatus{
				Published: s.Published, Delivered: s.Delivered,
				HandlerErrors: s.HandlerErrors, DroppedOverrun: s.DroppedOverrun,
				QueueDepth: s.QueueDepth,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
