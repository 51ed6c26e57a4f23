package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samvad-hq/quota-watch/internal/commands"
	"github.com/samvad-hq/quota-watch/internal/domain"
	"github.com/samvad-hq/quota-watch/internal/logger"
	"github.com/samvad-hq/quota-watch/internal/metrics"
	"github.com/samvad-hq/quota-watch/pkg/gateway"
	"github.com/samvad-hq/quota-watch/pkg/sites"
)

const maxCommandBody = 1 << 20

// SnapshotReader returns the latest stored snapshot for a site.
type SnapshotReader interface {
	LatestSnapshot(ctx context.Context, siteID string) (domain.Snapshot, bool, error)
}

// Server exposes the gateway commands and monitored snapshots over HTTP.
type Server struct {
	dispatcher *commands.Dispatcher
	sites      *sites.Registry
	snapshots  SnapshotReader
	log        logger.Logger
}

// NewServer creates an HTTP API server. sites and snapshots may be nil when
// only the command endpoint is served.
func NewServer(d *commands.Dispatcher, reg *sites.Registry, snapshots SnapshotReader, log logger.Logger) *Server {
	return &Server{
		dispatcher: d,
		sites:      reg,
		snapshots:  snapshots,
		log:        logger.Ensure(log),
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/commands/{name}", s.invokeCommand)
		r.Get("/sites", s.listSites)
		r.Get("/sites/{id}/snapshot", s.siteSnapshot)
	})
	return r
}

type commandResponse struct {
	Result *string `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// invokeCommand handles POST /api/commands/{name}.
func (s *Server) invokeCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	args := commands.Args{}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxCommandBody))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, commandResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	body, err := s.dispatcher.Invoke(r.Context(), name, args)
	if err != nil {
		status := commandStatus(err)
		s.log.WarnObj("command failed", "command_error", map[string]any{
			"command": name,
			"status":  status,
			"kind":    gateway.KindOf(err).String(),
		})
		writeJSON(w, status, commandResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, commandResponse{Result: &body})
}

func commandStatus(err error) int {
	var argErr *commands.ArgumentError
	switch {
	case errors.Is(err, commands.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.As(err, &argErr):
		return http.StatusBadRequest
	}
	switch gateway.KindOf(err) {
	case gateway.KindValidation:
		return http.StatusBadRequest
	case gateway.KindTransport:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// listSites handles GET /api/sites. Cookies are never returned.
func (s *Server) listSites(w http.ResponseWriter, _ *http.Request) {
	all := s.sites.All()
	out := make([]sites.Site, 0, len(all))
	for _, site := range all {
		out = append(out, site.Redacted())
	}
	writeJSON(w, http.StatusOK, map[string]any{"sites": out})
}

// siteSnapshot handles GET /api/sites/{id}/snapshot.
func (s *Server) siteSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.sites.ByID(id); !ok {
		writeJSON(w, http.StatusNotFound, commandResponse{Error: "site not found"})
		return
	}
	if s.snapshots == nil {
		writeJSON(w, http.StatusNotFound, commandResponse{Error: "no snapshot recorded"})
		return
	}

	snap, found, err := s.snapshots.LatestSnapshot(r.Context(), id)
	if err != nil {
		s.log.ErrorObj("snapshot lookup failed", "snapshot_error", map[string]any{
			"site_id": id,
			"error":   err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, commandResponse{Error: "snapshot lookup failed"})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, commandResponse{Error: "no snapshot recorded"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
