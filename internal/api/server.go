// Package api provides the HTTP API for observing and steering a live run.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/dtosim/internal/agents"
	"github.com/talgya/dtosim/internal/engine"
	"github.com/talgya/dtosim/internal/metrics"
	"github.com/talgya/dtosim/internal/network"
	"github.com/talgya/dtosim/internal/persistence"
	"github.com/talgya/dtosim/internal/series"
	"github.com/talgya/dtosim/internal/stats"
)

// maxStep bounds the ticks one step request may advance.
const maxStep = 10 * 365

// Server serves a run over HTTP.
type Server struct {
	Eng      *engine.Engine
	DB       *persistence.DB   // nil disables snapshots
	Metrics  *metrics.Registry // nil disables /metrics
	RunID    string
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Tick of the last progress save, so each save only appends what is new.
	saveMu    sync.Mutex
	savedTick uint64
}

// Handler builds the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	stepLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/series", s.handleSeries)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agent/{id}", s.handleAgentDetail)
	mux.HandleFunc("/api/v1/network", s.handleNetwork)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/params", s.handleParams)
	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics.Handler())
	}

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/step", s.adminOnly(RateLimitMiddleware(stepLimiter, s.handleStep)))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return corsMiddleware(s.instrument(mux))
}

// ListenAndServe serves the API until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "run", s.RunID)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set DTOSIM_CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("DTOSIM_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	if s.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		s.Metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(sr.status), time.Since(start))
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.AdminKey)) == 1
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no DTOSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Eng.Do(func(sim *engine.Simulation) {
		cfg := sim.Config()
		org := sim.Organization()
		status = map[string]any{
			"run_id":          s.RunID,
			"seed":            sim.Seed(),
			"tick":            sim.Tick(),
			"horizon":         cfg.TotalTicks(),
			"done":            sim.Done(),
			"scenario":        cfg.ScenarioVariant(),
			"arrest_scenario": cfg.ArrestScenario,
			"disruption_tick": cfg.DisruptionTick,
			"lockdown":        org.InLockdown(sim.Tick()),
			"lockdown_until":  org.LockdownUntil,
			"summary":         sim.Summary(),
		}
		if err := sim.Err(); err != nil {
			status["error"] = err.Error()
		}
	})
	status["speed"] = s.Eng.Speed()
	status["paused"] = s.Eng.Paused()
	writeJSON(w, status)
}

// handleSeries returns one metric over a tick range, or the metric names
// when no metric is given.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric := q.Get("metric")
	if metric == "" {
		writeJSON(w, map[string]any{"metrics": series.Names()})
		return
	}
	from, err := tickParam(q.Get("from"), 0)
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := tickParam(q.Get("to"), ^uint64(0))
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}

	var (
		ticks  []uint64
		values []float64
		found  bool
	)
	s.Eng.Do(func(sim *engine.Simulation) {
		var column []float64
		column, found = sim.Series().Column(metric)
		if !found {
			return
		}
		for i, rec := range sim.Series().Records() {
			if rec.Tick < from || rec.Tick > to {
				continue
			}
			ticks = append(ticks, rec.Tick)
			values = append(values, column[i])
		}
	})
	if !found {
		http.Error(w, fmt.Sprintf("unknown metric %q", metric), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"metric": metric,
		"ticks":  ticks,
		"values": values,
	})
}

func tickParam(v string, def uint64) (uint64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

type agentSummary struct {
	ID           agents.AgentID `json:"id"`
	Role         string         `json:"role"`
	Active       bool           `json:"active"`
	JoinedTick   uint64         `json:"joined_tick"`
	ArrestedTick uint64         `json:"arrested_tick,omitempty"`
	Expertise    float64        `json:"expertise"`
	Drug         float64        `json:"drug"`
	Cash         float64        `json:"cash"`
	Degree       int            `json:"degree"`
}

func summarize(g *network.Graph, a *agents.Agent) agentSummary {
	return agentSummary{
		ID:           a.ID,
		Role:         a.Role.String(),
		Active:       a.Active,
		JoinedTick:   a.JoinedTick,
		ArrestedTick: a.ArrestedTick,
		Expertise:    a.Expertise,
		Drug:         a.Drug,
		Cash:         a.Cash,
		Degree:       g.Degree(a.ID),
	}
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var role *agents.Role
	if name := q.Get("role"); name != "" {
		parsed, err := agents.ParseRole(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		role = &parsed
	}
	all := q.Get("all") == "true"

	result := []agentSummary{}
	s.Eng.Do(func(sim *engine.Simulation) {
		g := sim.Graph()
		for _, a := range g.All() {
			if !all && !a.Active {
				continue
			}
			if role != nil && a.Role != *role {
				continue
			}
			result = append(result, summarize(g, a))
		}
	})
	writeJSON(w, result)
}

func (s *Server) handleAgentDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}

	type link struct {
		ID     agents.AgentID `json:"id"`
		Role   string         `json:"role"`
		Weight float64        `json:"weight"`
	}
	type agentDetail struct {
		agentSummary
		DailyProfit  float64 `json:"daily_profit"`
		Acquisitions int     `json:"acquisitions"`
		Links        []link  `json:"links"`
	}

	var (
		detail agentDetail
		found  bool
	)
	s.Eng.Do(func(sim *engine.Simulation) {
		g := sim.Graph()
		a, ok := g.Agent(agents.AgentID(id))
		if !ok {
			return
		}
		found = true
		detail = agentDetail{
			agentSummary: summarize(g, a),
			DailyProfit:  a.DailyProfit,
			Acquisitions: a.Acquisitions,
			Links:        []link{},
		}
		for _, n := range g.Neighbors(a.ID) {
			other, _ := g.Agent(n)
			detail.Links = append(detail.Links, link{ID: n, Role: other.Role.String(), Weight: g.Weight(a.ID, n)})
		}
	})
	if !found {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, detail)
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	type node struct {
		ID     agents.AgentID `json:"id"`
		Role   string         `json:"role"`
		Degree int            `json:"degree"`
	}
	var (
		nodes     []node
		edges     []network.Edge
		m         stats.Metrics
		statsTick uint64
	)
	s.Eng.Do(func(sim *engine.Simulation) {
		g := sim.Graph()
		for _, a := range g.ActiveAgents() {
			nodes = append(nodes, node{ID: a.ID, Role: a.Role.String(), Degree: g.Degree(a.ID)})
		}
		edges = g.Edges()
		m, statsTick = sim.Metrics()
	})
	writeJSON(w, map[string]any{
		"nodes":      nodes,
		"edges":      edges,
		"metrics":    m,
		"stats_tick": statsTick,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	category := r.URL.Query().Get("category")

	var events []engine.Event
	s.Eng.Do(func(sim *engine.Simulation) { events = sim.Events() })

	if category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, events[start:])
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	var out map[string]any
	s.Eng.Do(func(sim *engine.Simulation) {
		out = map[string]any{
			"tick":     sim.Tick(),
			"params":   sim.Params(),
			"extremes": sim.Organization().Extremes,
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := 1
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > maxStep {
			http.Error(w, fmt.Sprintf("n must be 1-%d", maxStep), http.StatusBadRequest)
			return
		}
		n = parsed
	}

	recs, err := s.Eng.Step(n)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrRunAborted) {
			status = http.StatusConflict
		}
		slog.Error("step failed", "error", err)
		http.Error(w, err.Error(), status)
		return
	}
	slog.Info("stepped", "ticks", len(recs), "tick", s.Eng.Tick())
	writeJSON(w, map[string]any{
		"tick":    s.Eng.Tick(),
		"records": recs,
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed  *float64 `json:"speed"`
			Paused *bool    `json:"paused"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed != nil {
			if *req.Speed > 1000 {
				http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
				return
			}
			if err := s.Eng.SetSpeed(*req.Speed); err != nil {
				http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
				return
			}
			slog.Info("speed changed", "speed", *req.Speed)
		}
		if req.Paused != nil {
			if *req.Paused {
				s.Eng.Pause()
			} else {
				s.Eng.Resume()
			}
			slog.Info("pacing changed", "paused", *req.Paused)
		}
	}

	writeJSON(w, map[string]any{"speed": s.Eng.Speed(), "paused": s.Eng.Paused()})
}

// handleSnapshot lists stored snapshots (GET) or saves the run's progress (POST).
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if r.Method != http.MethodPost {
		infos, err := s.DB.Snapshots(s.RunID)
		if err != nil {
			slog.Error("list snapshots failed", "error", err)
			http.Error(w, "list failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, infos)
		return
	}

	tick, err := s.SaveProgress()
	if err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"run_id":  s.RunID,
		"tick":    tick,
		"message": "snapshot saved",
	})
}

// SaveProgress stores the records, events and snapshot produced since the
// previous save. It returns the saved tick.
func (s *Server) SaveProgress() (uint64, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	var (
		tick uint64
		err  error
	)
	s.Eng.Do(func(sim *engine.Simulation) {
		tick = sim.Tick()
		err = s.DB.SaveProgress(s.RunID, sim, s.savedTick)
	})
	if err != nil {
		return 0, err
	}
	s.savedTick = tick
	return tick, nil
}

// SetSavedTick records that progress up to tick is already stored, as
// after resuming from a stored snapshot.
func (s *Server) SetSavedTick(tick uint64) {
	s.saveMu.Lock()
	s.savedTick = tick
	s.saveMu.Unlock()
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
