// Package metrics exposes Prometheus collectors for the bridge and the HTTP endpoint that serves them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nlowe/rfmbridge/log"
)

// Reasons a message is dropped, used as the "reason" label of MessagesDropped.
const (
	ReasonUnknownGateway  = "unknown_gateway"
	ReasonDecode          = "decode"
	ReasonUnknownNodeType = "unknown_node_type"
	ReasonNodeTypeChanged = "node_type_changed"
)

var (
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfmbridge_messages_received_total",
		Help: "Total number of node frames received from a configured gateway",
	}, []string{"gateway"})

	MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfmbridge_messages_dropped_total",
		Help: "Total number of node frames that did not update any entity",
	}, []string{"reason"})

	NodesRegistered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfmbridge_nodes_registered_total",
		Help: "Total number of nodes registered, including nodes restored from the store",
	}, []string{"gateway"})

	StateUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfmbridge_state_updates_total",
		Help: "Total number of entity states published",
	}, []string{"quantity"})

	HandleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rfmbridge_message_handle_seconds",
		Help:    "Histogram of node frame handling durations, including publishes",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
)

// Handler returns the http.Handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	l := log.ForComponent("metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.With(log.Error(err)).Warn("Failed to shut down metrics server")
		}
	}()

	l.With(slog.String("addr", addr)).Info("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: serve %s: %w", addr, err)
	}

	return nil
}
