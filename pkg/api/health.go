package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
)

// HealthServer serves health, metrics and the record journal over HTTP
type HealthServer struct {
	store storage.RecordStore
	mux   *http.ServeMux
}

// NewHealthServer creates the HTTP server. store may be nil when the
// journal is disabled, in which case /records answers 404.
func NewHealthServer(store storage.RecordStore) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		store: store,
		mux:   mux,
	}

	// Register endpoints
	mux.HandleFunc("/health", getOnly(metrics.HealthHandler()))
	mux.HandleFunc("/ready", getOnly(metrics.ReadyHandler()))
	mux.HandleFunc("/live", getOnly(metrics.LivenessHandler()))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/records", hs.recordsHandler)

	return hs
}

// Run serves on addr until ctx is canceled
func (hs *HealthServer) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger := log.WithComponent("api")
	logger.Info().Str("addr", addr).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// GetHandler returns the HTTP handler for embedding in other servers
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}

// RecordsResponse is the body of /records
type RecordsResponse struct {
	Count   int                     `json:"count"`
	Records []*types.ObservedRecord `json:"records"`
}

// recordsHandler lists journal records. Query parameters name, type and
// active narrow the listing.
func (hs *HealthServer) recordsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if hs.store == nil {
		http.Error(w, "record journal disabled", http.StatusNotFound)
		return
	}

	query := r.URL.Query()
	filter := types.RecordFilter{
		Name:       query.Get("name"),
		Type:       query.Get("type"),
		ActiveOnly: query.Get("active") == "true",
	}

	records, err := hs.store.ListRecords(filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*types.ObservedRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(RecordsResponse{Count: len(records), Records: records})
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
