package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router wraps the standard library ServeMux.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers a plain http.Handler, e.g. the metrics exporter.
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterReadingRoutes wires ingest, series and sensor listing.
func (r *Router) RegisterReadingRoutes(h *ReadingHandler) {
	r.Handle("/api/readings", func(w http.ResponseWriter, req *http.Request) {
		if !allow(w, req, http.MethodPost) {
			return
		}
		h.Ingest(w, req)
	})
	r.Handle("/api/readings/series", func(w http.ResponseWriter, req *http.Request) {
		if !allow(w, req, http.MethodGet) {
			return
		}
		h.Series(w, req)
	})
	r.Handle("/api/sensors", func(w http.ResponseWriter, req *http.Request) {
		if !allow(w, req, http.MethodGet) {
			return
		}
		h.Sensors(w, req)
	})
}

// RegisterEventRoutes wires cycle events and manual alerts.
func (r *Router) RegisterEventRoutes(h *EventHandler) {
	r.Handle("/api/cycle-events", func(w http.ResponseWriter, req *http.Request) {
		if !allow(w, req, http.MethodPost) {
			return
		}
		h.CycleEvent(w, req)
	})
	r.Handle("/api/alerts", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			h.RaiseAlert(w, req)
		case http.MethodGet:
			h.RecentAlerts(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// RegisterPredictionRoutes wires the model endpoints.
func (r *Router) RegisterPredictionRoutes(h *PredictionHandler) {
	r.Handle("/api/predict/state", func(w http.ResponseWriter, req *http.Request) {
		if !allow(w, req, http.MethodPost) {
			return
		}
		h.State(w, req)
	})
	r.Handle("/api/predict/failure24h", func(w http.ResponseWriter, req *http.Request) {
		if !allow(w, req, http.MethodPost) {
			return
		}
		h.Failure(w, req)
	})
	r.Handle("/api/predict/snapshot", func(w http.ResponseWriter, req *http.Request) {
		if !allow(w, req, http.MethodGet) {
			return
		}
		h.Snapshot(w, req)
	})
}

// RegisterOpsRoutes wires health and metrics.
func (r *Router) RegisterOpsRoutes(metrics http.Handler) {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.HandleHandler("/metrics", metrics)
	}
}
