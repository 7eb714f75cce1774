package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/logger"
	"github.com/vnykmshr/taskflow/pkg/scheduling/manager"
	"github.com/vnykmshr/taskflow/pkg/sharedstate"
	"github.com/vnykmshr/taskflow/pkg/taskservice"
)

// Options configures optional gateway behaviour.
type Options struct {
	// Cache backs the cache endpoints. Defaults to the shared in-process cache.
	Cache CacheBackend

	// Gatherer is served on MetricsPath. Nil disables the endpoint.
	Gatherer    prometheus.Gatherer
	MetricsPath string

	Logger *zap.Logger
}

// Server exposes the task service and shared state over HTTP.
type Server struct {
	svc    *taskservice.Service
	m      *manager.Manager
	state  *sharedstate.State
	cache  CacheBackend
	logger *zap.Logger
	now    func() time.Time

	router *mux.Router
}

// New builds the gateway and its routes.
func New(svc *taskservice.Service, m *manager.Manager, st *sharedstate.State, opts Options) *Server {
	s := &Server{
		svc:    svc,
		m:      m,
		state:  st,
		cache:  opts.Cache,
		logger: opts.Logger,
		now:    time.Now,
	}
	if s.cache == nil {
		s.cache = NewMemoryCache(st.Cache)
	}
	s.logger = logger.OrNop(s.logger).With(zap.String("component", "gateway"))

	router := mux.NewRouter()
	router.Use(s.logRequests)

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if opts.Gatherer != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// Full paths on the root router so a method mismatch reports 405
	router.HandleFunc("/api/pools", s.handlePools).Methods("GET")
	router.HandleFunc("/api/tasks/async", s.handleAsync).Methods("POST")
	router.HandleFunc("/api/tasks/heavy", s.handleHeavy).Methods("POST")
	router.HandleFunc("/api/tasks/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/api/tasks/cache", s.handleCachePut).Methods("POST")
	router.HandleFunc("/api/tasks/cache/{key}", s.handleCacheGet).Methods("GET")
	router.HandleFunc("/api/tasks/queue", s.handleQueueOffer).Methods("POST")
	router.HandleFunc("/api/tasks/events", s.handleEvents).Methods("GET")
	router.HandleFunc("/api/tasks/region/read", s.handleRegionRead).Methods("POST")
	router.HandleFunc("/api/tasks/region/write", s.handleRegionWrite).Methods("POST")

	s.router = router
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleAsync(w http.ResponseWriter, r *http.Request) {
	name, ok := requireParam(w, r, "taskName")
	if !ok {
		return
	}

	if _, err := s.svc.RunLatencyTask(name); err != nil {
		s.sendSubmitError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]string{
		"status": "Task submitted",
		"task":   name,
	})
}

func (s *Server) handleHeavy(w http.ResponseWriter, r *http.Request) {
	raw, ok := requireParam(w, r, "iterations")
	if !ok {
		return
	}
	iterations, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "iterations must be an integer")
		return
	}

	if _, err := s.svc.RunComputeTask(iterations); err != nil {
		s.sendSubmitError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]any{
		"status":        "Heavy task submitted",
		"iterations":    iterations,
		"activeThreads": s.m.ActiveTaskCount(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{
		"activeTasks":  s.m.ActiveTaskCount(),
		"counterValue": s.state.Counter.Value(),
		"timestamp":    s.now().UnixMilli(),
	})
}

func (s *Server) handleCachePut(w http.ResponseWriter, r *http.Request) {
	key, ok := requireParam(w, r, "key")
	if !ok {
		return
	}
	q := r.URL.Query()
	if !q.Has("value") {
		sendError(w, http.StatusBadRequest, "missing required parameter: value")
		return
	}
	value := q.Get("value")

	if err := s.cache.Put(r.Context(), key, value); err != nil {
		s.logger.Error("cache put failed", zap.String("key", key), zap.Error(err))
		sendError(w, http.StatusBadGateway, "cache unavailable")
		return
	}

	sendJSON(w, http.StatusOK, map[string]string{
		"key":    key,
		"value":  value,
		"status": "Cached",
	})
}

func (s *Server) handleCacheGet(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	value, found, err := s.cache.Get(r.Context(), key)
	if err != nil {
		s.logger.Error("cache get failed", zap.String("key", key), zap.Error(err))
		sendError(w, http.StatusBadGateway, "cache unavailable")
		return
	}

	resp := map[string]any{"key": key, "value": nil}
	if found {
		resp["value"] = value
	}
	sendJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQueueOffer(w http.ResponseWriter, r *http.Request) {
	item, ok := requireParam(w, r, "item")
	if !ok {
		return
	}

	sendJSON(w, http.StatusOK, map[string]any{
		"item":     item,
		"accepted": s.state.OfferTask(item),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{
		"events": s.state.Events.Snapshot(),
	})
}

func (s *Server) handleRegionRead(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.RunRegionRead(); err != nil {
		s.sendSubmitError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]string{"status": "Read submitted"})
}

func (s *Server) handleRegionWrite(w http.ResponseWriter, r *http.Request) {
	event, ok := requireParam(w, r, "event")
	if !ok {
		return
	}

	if _, err := s.svc.RunRegionWrite(event); err != nil {
		s.sendSubmitError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]string{
		"status": "Write submitted",
		"event":  event,
	})
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{
		"activeTasks": s.m.ActiveTaskCount(),
		"pools":       s.m.PoolStats(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.m.Closed() {
		sendJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) sendSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tferrors.ErrPoolClosed):
		sendError(w, http.StatusServiceUnavailable, err.Error())
	case tferrors.IsValidationError(err):
		sendError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("submit failed", zap.Error(err))
		sendError(w, http.StatusInternalServerError, err.Error())
	}
}

func requireParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		sendError(w, http.StatusBadRequest, "missing required parameter: "+name)
		return "", false
	}
	return v, true
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, msg string) {
	sendJSON(w, status, map[string]string{"error": msg})
}
