// Package api exposes the HTTP surface: catalog inspection and refresh,
// per-object state and track queries, fleet snapshots, and close-approach
// analysis.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/auth"
	"github.com/orbitwatch/orbitwatch/internal/catalog"
	"github.com/orbitwatch/orbitwatch/internal/conjunction"
	"github.com/orbitwatch/orbitwatch/internal/elements"
	"github.com/orbitwatch/orbitwatch/internal/health"
	"github.com/orbitwatch/orbitwatch/internal/httputil"
	"github.com/orbitwatch/orbitwatch/internal/metrics"
	"github.com/orbitwatch/orbitwatch/internal/propagation"
	"github.com/orbitwatch/orbitwatch/internal/transform"
)

// Request bounds. Oversized asks are client errors, not capacity planning.
const (
	maxTrackSamples = 10000
	maxSearchWindow = 7 * 24 * time.Hour
)

// Deps carries the server's collaborators.
type Deps struct {
	Auth     auth.Config
	Limiter  *httputil.RateLimiter
	Store    *catalog.Store
	Loader   *catalog.Loader
	Prop     *propagation.Propagator
	Fleet    *propagation.FleetPool
	Analyzer *conjunction.Analyzer
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	deps       Deps
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, deps Deps) *Server {
	s := &Server{logger: logger, deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(deps.Store.Ready))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/catalog", s.handleCatalog)
	mux.HandleFunc("POST /api/v1/catalog/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/v1/elements/{catnum}", s.handleElements)
	mux.HandleFunc("GET /api/v1/state/{catnum}", s.handleState)
	mux.HandleFunc("GET /api/v1/track/{catnum}", s.handleTrack)
	mux.HandleFunc("GET /api/v1/groundtrack/{catnum}", s.handleGroundTrack)
	mux.HandleFunc("GET /api/v1/fleet", s.handleFleet)
	mux.HandleFunc("GET /api/v1/conjunction", s.handleConjunction)
	mux.HandleFunc("GET /api/v1/conjunction/screen", s.handleScreen)

	// Middleware chain: metrics -> ratelimit -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(deps.Auth)(handler)
	handler = loggingMiddleware(logger)(handler)
	if deps.Limiter != nil {
		handler = deps.Limiter.Middleware(handler)
	}
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// --- handlers ---

type catalogObject struct {
	CatalogNumber  int       `json:"catalog_number"`
	Name           string    `json:"name,omitempty"`
	IntlDesignator string    `json:"intl_designator"`
	Epoch          time.Time `json:"epoch"`
}

type catalogResponse struct {
	Count     int             `json:"count"`
	Groups    []string        `json:"groups"`
	FetchedAt time.Time       `json:"fetched_at"`
	Stale     bool            `json:"stale"`
	Objects   []catalogObject `json:"objects"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Store.Snapshot()
	if snap == nil {
		writeErrorBody(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}

	resp := catalogResponse{
		Count:     snap.Len(),
		Groups:    snap.Groups,
		FetchedAt: snap.FetchedAt,
		Stale:     snap.Stale,
		Objects:   make([]catalogObject, 0, snap.Len()),
	}
	for _, set := range snap.All() {
		resp.Objects = append(resp.Objects, catalogObject{
			CatalogNumber:  set.CatalogNumber,
			Name:           set.Name,
			IntlDesignator: set.IntlDesignator,
			Epoch:          set.Epoch,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Loader.Refresh(r.Context())
	if err != nil {
		metrics.IncCatalogFetchFailures()
		s.logger.Error("catalog refresh failed", "error", err)
		writeErrorBody(w, http.StatusBadGateway, err.Error())
		return
	}
	metrics.SetCatalogObjects(n)
	writeJSON(w, http.StatusOK, map[string]int{"objects": n})
}

type elementResponse struct {
	CatalogNumber    int       `json:"catalog_number"`
	Name             string    `json:"name,omitempty"`
	Classification   string    `json:"classification"`
	IntlDesignator   string    `json:"intl_designator"`
	Epoch            time.Time `json:"epoch"`
	InclinationDeg   float64   `json:"inclination_deg"`
	RAANDeg          float64   `json:"raan_deg"`
	Eccentricity     float64   `json:"eccentricity"`
	ArgPerigeeDeg    float64   `json:"arg_perigee_deg"`
	MeanAnomalyDeg   float64   `json:"mean_anomaly_deg"`
	MeanMotionRevDay float64   `json:"mean_motion_rev_day"`
	MeanMotionDot    float64   `json:"mean_motion_dot"`
	MeanMotionDDot   float64   `json:"mean_motion_ddot"`
	BStar            float64   `json:"bstar"`
	ElementSetNumber int       `json:"element_set_number"`
	RevolutionNumber int       `json:"revolution_number"`
}

func elementJSON(set elements.ElementSet) elementResponse {
	return elementResponse{
		CatalogNumber:    set.CatalogNumber,
		Name:             set.Name,
		Classification:   string(set.Classification),
		IntlDesignator:   set.IntlDesignator,
		Epoch:            set.Epoch,
		InclinationDeg:   set.InclinationDeg,
		RAANDeg:          set.RAANDeg,
		Eccentricity:     set.Eccentricity,
		ArgPerigeeDeg:    set.ArgPerigeeDeg,
		MeanAnomalyDeg:   set.MeanAnomalyDeg,
		MeanMotionRevDay: set.MeanMotion,
		MeanMotionDot:    set.MeanMotionDot,
		MeanMotionDDot:   set.MeanMotionDDot,
		BStar:            set.BStar,
		ElementSetNumber: set.ElementSetNumber,
		RevolutionNumber: set.RevolutionNumber,
	}
}

func (s *Server) handleElements(w http.ResponseWriter, r *http.Request) {
	set, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, elementJSON(set))
}

type stateResponse struct {
	CatalogNumber int                     `json:"catalog_number"`
	Name          string                  `json:"name,omitempty"`
	State         propagation.StateVector `json:"state"`
	Subpoint      transform.Geodetic      `json:"subpoint"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	set, ok := s.lookup(w, r)
	if !ok {
		return
	}
	at, err := timeParam(r, "at", time.Now())
	if err != nil {
		writeErrorBody(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	state, err := s.deps.Prop.Propagate(set, at)
	metrics.ObservePropagation(time.Since(start), err)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{
		CatalogNumber: set.CatalogNumber,
		Name:          set.Name,
		State:         state,
		Subpoint:      transform.ToGeodetic(state, transform.WGS84()),
	})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	set, ok := s.lookup(w, r)
	if !ok {
		return
	}
	start, duration, interval, err := sampleParams(r)
	if err != nil {
		writeErrorBody(w, http.StatusBadRequest, err.Error())
		return
	}

	traj, err := propagation.Track(r.Context(), s.deps.Prop, set, start, duration, interval)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, traj)
}

func (s *Server) handleGroundTrack(w http.ResponseWriter, r *http.Request) {
	set, ok := s.lookup(w, r)
	if !ok {
		return
	}
	start, duration, interval, err := sampleParams(r)
	if err != nil {
		writeErrorBody(w, http.StatusBadRequest, err.Error())
		return
	}

	gt, err := transform.ComputeGroundTrack(r.Context(), s.deps.Prop, set, start, duration, interval, transform.WGS84())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gt)
}

type fleetEntryResponse struct {
	CatalogNumber int                      `json:"catalog_number"`
	Name          string                   `json:"name,omitempty"`
	State         *propagation.StateVector `json:"state,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

type fleetResponse struct {
	At      time.Time            `json:"at"`
	Total   int                  `json:"total"`
	Failed  int                  `json:"failed"`
	Entries []fleetEntryResponse `json:"entries"`
}

func (s *Server) handleFleet(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Store.Snapshot()
	if snap == nil {
		writeErrorBody(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}
	at, err := timeParam(r, "at", time.Now())
	if err != nil {
		writeErrorBody(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, failed := s.deps.Fleet.Snapshot(r.Context(), s.deps.Prop, snap.All(), at)
	resp := fleetResponse{
		At:      at,
		Total:   len(entries),
		Failed:  failed,
		Entries: make([]fleetEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		fe := fleetEntryResponse{CatalogNumber: e.CatalogNumber, Name: e.Name}
		if e.Err != nil {
			fe.Error = e.Err.Error()
		} else {
			state := e.State
			fe.State = &state
		}
		resp.Entries = append(resp.Entries, fe)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConjunction(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Store.Snapshot()
	if snap == nil {
		writeErrorBody(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}

	setA, ok := s.lookupQuery(w, snap, r.URL.Query().Get("a"))
	if !ok {
		return
	}
	setB, ok := s.lookupQuery(w, snap, r.URL.Query().Get("b"))
	if !ok {
		return
	}
	win, err := windowParams(r)
	if err != nil {
		writeErrorBody(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.deps.Analyzer.Analyze(r.Context(), setA, setB, win)
	if err != nil {
		s.writeError(w, err)
		return
	}
	metrics.IncConjunctionAnalysis(res.Risk.String())
	writeJSON(w, http.StatusOK, res)
}

type screenResponse struct {
	Primary int                  `json:"primary"`
	Results []conjunction.Result `json:"results"`
	Failed  int                  `json:"failed"`
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Store.Snapshot()
	if snap == nil {
		writeErrorBody(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}

	primary, ok := s.lookupQuery(w, snap, r.URL.Query().Get("primary"))
	if !ok {
		return
	}
	win, err := windowParams(r)
	if err != nil {
		writeErrorBody(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeErrorBody(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
	}

	results, failed := s.deps.Analyzer.Screen(r.Context(), primary, snap.All(), win)
	for _, res := range results {
		metrics.IncConjunctionAnalysis(res.Risk.String())
	}
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []conjunction.Result{}
	}
	writeJSON(w, http.StatusOK, screenResponse{
		Primary: primary.CatalogNumber,
		Results: results,
		Failed:  len(failed),
	})
}

// --- request helpers ---

// lookup resolves the {catnum} path parameter against the current snapshot.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (elements.ElementSet, bool) {
	snap := s.deps.Store.Snapshot()
	if snap == nil {
		writeErrorBody(w, http.StatusServiceUnavailable, "catalog not loaded")
		return elements.ElementSet{}, false
	}
	return s.lookupQuery(w, snap, r.PathValue("catnum"))
}

func (s *Server) lookupQuery(w http.ResponseWriter, snap *catalog.Snapshot, raw string) (elements.ElementSet, bool) {
	catnum, err := strconv.Atoi(raw)
	if err != nil || catnum <= 0 {
		writeErrorBody(w, http.StatusBadRequest, fmt.Sprintf("invalid catalog number %q", raw))
		return elements.ElementSet{}, false
	}
	set, ok := snap.Get(catnum)
	if !ok {
		writeErrorBody(w, http.StatusNotFound, fmt.Sprintf("no object %d in catalog", catnum))
		return elements.ElementSet{}, false
	}
	return set, true
}

func timeParam(r *http.Request, name string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: must be RFC 3339", name, raw)
	}
	return t, nil
}

func durationParam(r *http.Request, name string, def time.Duration) (time.Duration, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a Go duration", name, raw)
	}
	return d, nil
}

func sampleParams(r *http.Request) (start time.Time, duration, interval time.Duration, err error) {
	start, err = timeParam(r, "start", time.Now())
	if err != nil {
		return
	}
	duration, err = durationParam(r, "duration", 90*time.Minute)
	if err != nil {
		return
	}
	interval, err = durationParam(r, "interval", time.Minute)
	if err != nil {
		return
	}
	if interval <= 0 || duration <= 0 {
		err = fmt.Errorf("duration %v and interval %v must be positive", duration, interval)
		return
	}
	if int64(duration/interval)+1 > maxTrackSamples {
		err = fmt.Errorf("requested %d samples exceeds the %d sample limit",
			int64(duration/interval)+1, maxTrackSamples)
	}
	return
}

func windowParams(r *http.Request) (conjunction.Window, error) {
	start, err := timeParam(r, "start", time.Now())
	if err != nil {
		return conjunction.Window{}, err
	}
	window, err := durationParam(r, "window", 24*time.Hour)
	if err != nil {
		return conjunction.Window{}, err
	}
	if window <= 0 || window > maxSearchWindow {
		return conjunction.Window{}, fmt.Errorf("window %v must be positive and at most %v", window, maxSearchWindow)
	}
	return conjunction.Window{Start: start, Duration: window}, nil
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError maps domain failures onto status codes: malformed input is
// 400, an orbit the model cannot produce is 422, everything else 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var parseErr *elements.ParseError
	var decayErr *propagation.DecayedOrbitError
	var propErr *propagation.PropagationError
	var caErr *conjunction.CloseApproachError

	switch {
	case errors.As(err, &parseErr):
		writeErrorBody(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &decayErr), errors.As(err, &propErr), errors.As(err, &caErr):
		writeErrorBody(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeErrorBody(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeErrorBody(w, http.StatusInternalServerError, "internal error")
	}
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
