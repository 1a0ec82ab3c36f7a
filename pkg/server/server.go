// Package server exposes stored transactions over a read-only JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/metrics"
)

const dateLayout = "2006-01-02"

// Querier is the read side of an api.Store.
type Querier interface {
	Query(ctx context.Context, f api.Filter) ([]*api.TransactionRecord, error)
}

// Server serves the transactions API.
type Server struct {
	store   Querier
	logger  *slog.Logger
	metrics *metrics.Recorder
	handler http.Handler
}

// New builds the router. rec may be nil, in which case /metrics is not served.
func New(store Querier, logger *slog.Logger, rec *metrics.Recorder) *Server {
	s := &Server{
		store:   store,
		logger:  logger.With("component", "server"),
		metrics: rec,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/transactions", s.listTransactions).Methods(http.MethodGet)
	r.HandleFunc("/api/transactions/{id}", s.getTransaction).Methods(http.MethodGet)
	r.HandleFunc("/api/summary", s.summary).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	if rec != nil {
		r.Handle("/metrics", rec.Handler()).Methods(http.MethodGet)
		r.Use(rec.Middleware(routeTemplate))
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.handler = Recovery(s.logger)(
		RequestID(
			Logger(s.logger)(
				CORS(r),
			),
		),
	)
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// listTransactions handles GET /api/transactions
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.store.Query(r.Context(), f)
	if err != nil {
		s.logger.Error("failed to query transactions", "error", err, "request_id", RequestIDFrom(r.Context()))
		WriteError(w, http.StatusInternalServerError, "failed to query transactions")
		return
	}
	if records == nil {
		records = []*api.TransactionRecord{}
	}

	s.writeJSON(w, r, records)
}

// getTransaction handles GET /api/transactions/{id}
func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	records, err := s.store.Query(r.Context(), api.Filter{MessageID: id, Limit: 1})
	if err != nil {
		s.logger.Error("failed to get transaction", "error", err, "message_id", id)
		WriteError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}
	if len(records) == 0 {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("transaction %q not found", id))
		return
	}

	s.writeJSON(w, r, records[0])
}

// summary handles GET /api/summary
func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.store.Query(r.Context(), f)
	if err != nil {
		s.logger.Error("failed to summarize transactions", "error", err)
		WriteError(w, http.StatusInternalServerError, "failed to summarize transactions")
		return
	}

	s.writeJSON(w, r, Summarize(records))
}

// writeJSON writes a 200 response, logging bodies that fail to encode.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, data any) {
	if err := WriteJSON(w, http.StatusOK, data); err != nil {
		s.logger.Error("failed to write response", "error", err, "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()))
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ParseFilter reads the query parameters type, date_start, date_end,
// amount_min, amount_max and limit. Dates are inclusive UTC days. Amount bounds
// that are not plain digits are ignored.
func ParseFilter(r *http.Request) (api.Filter, error) {
	q := r.URL.Query()
	var f api.Filter

	if v := q.Get("type"); v != "" {
		f.Type = api.TransactionType(v)
	}

	if v := q.Get("date_start"); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			return api.Filter{}, fmt.Errorf("invalid date_start %q: want YYYY-MM-DD", v)
		}
		f.From = d
	}

	if v := q.Get("date_end"); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			return api.Filter{}, fmt.Errorf("invalid date_end %q: want YYYY-MM-DD", v)
		}
		f.To = d.AddDate(0, 0, 1)
	}

	f.AmountMin = digitsParam(q.Get("amount_min"))
	f.AmountMax = digitsParam(q.Get("amount_max"))

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return api.Filter{}, fmt.Errorf("invalid limit %q: want a positive integer", v)
		}
		f.Limit = n
	}

	return f, nil
}

func digitsParam(v string) *int64 {
	if v == "" {
		return nil
	}
	for _, c := range v {
		if c < '0' || c > '9' {
			return nil
		}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
