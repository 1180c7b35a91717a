// Package main provides enginectl, a read-only CLI that polls a running
// engine process's status endpoint.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "enginectl",
	Short: "Read-only status client for the crypto trading engine",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "engine", "http://localhost:8081", "engine status endpoint base URL")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print order, position, and event bus counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(serverURL + "/status")
		if err != nil {
			return fmt.Errorf("fetch status: %w", err)
		}
		defer resp.Body.Close()

		var status struct {
			OrdersActive  int `json:"orders_active"`
			OrdersHistory int `json:"orders_history"`
			OpenPositions int `json:"open_positions"`
			BusQueues     map[string]struct {
				Published      uint64 `json:"published"`
				Delivered      uint64 `json:"delivered"`
				HandlerErrors  uint64 `json:"handler_errors"`
				DroppedOverrun uint64 `json:"dropped_overrun"`
				QueueDepth     int    `json:"queue_depth"`
			} `json:"bus_queues"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return fmt.Errorf("decode status: %w", err)
		}

		fmt.Printf("orders: %d active, %d history\n", status.OrdersActive, status.OrdersHistory)
		fmt.Printf("open positions: %d\n", status.OpenPositions)
		fmt.Println("event kind            published   delivered   errors   dropped   queue")

		kinds := make([]string, 0, len(status.BusQueues))
		for kind := range status.BusQueues {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			q := status.BusQueues[kind]
			fmt.Printf("%-20s  %10d  %10d  %7d  %8d  %5d\n",
				kind, q.Published, q.Delivered, q.HandlerErrors, q.DroppedOverrun, q.QueueDepth)
		}
		return nil
	},
}
