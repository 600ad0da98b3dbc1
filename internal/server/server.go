// Package server exposes the optimization service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ThatGeoGuy/argmin/internal/config"
	"github.com/ThatGeoGuy/argmin/internal/logging"
	"github.com/ThatGeoGuy/argmin/internal/optimization"
	"github.com/ThatGeoGuy/argmin/internal/optimization/functions"
	"github.com/ThatGeoGuy/argmin/internal/optimization/linesearch"
	"github.com/ThatGeoGuy/argmin/internal/optimization/solver"
)

var (
	optimizationsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "argmin_optimizations_started_total",
		Help: "Number of optimization jobs accepted.",
	})
	optimizationsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "argmin_optimizations_finished_total",
		Help: "Number of optimization jobs finished, by terminal status.",
	}, []string{"status"})
)

// Logger defines the logging interface used by the server.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Job tracks one optimization run. Access is guarded by the server's
// job mutex.
type Job struct {
	ID          string
	Objective   string
	Status      string // "pending", "running", "completed", "failed", "cancelled"
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	Result      *optimization.Result
	Err         string

	optimizer optimization.Optimizer
	cancel    context.CancelFunc
}

// Server manages optimization jobs and serves the REST API.
type Server struct {
	cfg    *config.Config
	logger Logger

	jobs   map[string]*Job
	jobsMu sync.RWMutex
	nextID uint64
}

// NewServer creates a server with the given config and logger.
func NewServer(cfg *config.Config, logger Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		jobs:   make(map[string]*Job),
	}
}

// RegisterRoutes mounts the API routes on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
	})
}

// OptimizeRequest is the body of POST /api/v1/optimize.
type OptimizeRequest struct {
	// Objective names a function from the built-in catalog.
	Objective string `json:"objective"`
	// InitialPoint is the starting iterate.
	InitialPoint []float64 `json:"initial_point"`
	// Options overrides the configured solver defaults when present.
	Options struct {
		MaxIterations     int     `json:"max_iterations,omitempty"`
		GradientTolerance float64 `json:"gradient_tolerance,omitempty"`
		InitialStep       float64 `json:"initial_step,omitempty"`
	} `json:"options"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	fn, ok := functions.Lookup(req.Objective)
	if !ok {
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("unknown objective %q, known objectives: %v", req.Objective, functions.Names()))
		return
	}
	if len(req.InitialPoint) == 0 {
		s.respondError(w, http.StatusBadRequest, "initial_point is required")
		return
	}

	gd, err := s.buildSolver(fn, req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:          s.newJobID(),
		Objective:   req.Objective,
		Status:      "pending",
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
		optimizer:   gd,
		cancel:      cancel,
	}

	s.jobsMu.Lock()
	s.jobs[job.ID] = job
	s.jobsMu.Unlock()

	optimizationsStarted.Inc()
	s.logger.Info("Optimization accepted", map[string]interface{}{
		"optimization_id": job.ID,
		"objective":       req.Objective,
		"dimensions":      len(req.InitialPoint),
	})

	go s.runJob(ctx, job)

	// Only the immutable ID may be read here; the job goroutine owns
	// the mutable fields once started.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"optimization_id": job.ID,
		"status":          "pending",
	})
}

func (s *Server) buildSolver(fn optimization.Objective, req OptimizeRequest) (*solver.GradientDescent, error) {
	lsCfg := linesearch.NewConfig()
	if err := lsCfg.SetConditions(s.cfg.LineSearch.DecreaseFactor, s.cfg.LineSearch.CurvatureFactor); err != nil {
		return nil, err
	}
	if err := lsCfg.SetStepBounds(s.cfg.LineSearch.MinStep, s.cfg.LineSearch.MaxStep); err != nil {
		return nil, err
	}
	if err := lsCfg.SetStepTolerance(s.cfg.LineSearch.StepTolerance); err != nil {
		return nil, err
	}

	cfg := solver.Config{
		InitialPoint:         req.InitialPoint,
		MaxIterations:        s.cfg.Solver.MaxIterations,
		GradientTolerance:    s.cfg.Solver.GradientTolerance,
		InitialStep:          s.cfg.Solver.InitialStep,
		LineSearchIterations: s.cfg.LineSearch.MaxIterations,
	}
	if req.Options.MaxIterations > 0 {
		cfg.MaxIterations = req.Options.MaxIterations
	}
	if req.Options.GradientTolerance > 0 {
		cfg.GradientTolerance = req.Options.GradientTolerance
	}
	if req.Options.InitialStep > 0 {
		cfg.InitialStep = req.Options.InitialStep
	}

	engine := linesearch.NewEngine(fn, lsCfg)
	gd, err := solver.New(fn, engine, cfg)
	if err != nil {
		return nil, err
	}

	// Iteration traces from the engine and solver flow through the zap
	// adapter into the same structured output as the request logs.
	zl := logging.NewZapLogger(s.logger.WithFields(map[string]interface{}{
		"component": "solver",
	}))
	engine.SetLogger(zl)
	gd.SetLogger(zl)

	return gd, nil
}

// runJob executes one optimization job in its own goroutine.
func (s *Server) runJob(ctx context.Context, job *Job) {
	s.jobsMu.Lock()
	job.Status = "running"
	job.LastUpdated = time.Now()
	s.jobsMu.Unlock()

	result, err := job.optimizer.Optimize(ctx)

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if job.Status == "cancelled" {
		optimizationsFinished.WithLabelValues("cancelled").Inc()
		return
	}

	now := time.Now()
	job.EndTime = &now
	job.LastUpdated = now

	if err != nil {
		job.Status = "failed"
		job.Err = err.Error()
		optimizationsFinished.WithLabelValues("failed").Inc()
		s.logger.Error("Optimization failed", map[string]interface{}{
			"optimization_id": job.ID,
			"error":           err.Error(),
		})
		return
	}

	job.Status = "completed"
	job.Result = result
	optimizationsFinished.WithLabelValues("completed").Inc()
	s.logger.Info("Optimization completed", map[string]interface{}{
		"optimization_id": job.ID,
		"iterations":      result.Iterations,
		"converged":       result.Converged,
		"reason":          result.Reason,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		s.respondError(w, http.StatusNotFound, "optimization not found")
		return
	}

	response := map[string]interface{}{
		"optimization_id": job.ID,
		"objective":       job.Objective,
		"status":          job.Status,
		"start_time":      job.StartTime.Format(time.RFC3339),
		"last_update":     job.LastUpdated.Format(time.RFC3339),
	}
	if job.EndTime != nil {
		response["end_time"] = job.EndTime.Format(time.RFC3339)
	}
	if job.Err != "" {
		response["error"] = job.Err
	}
	// Solution and history are reported only for terminal jobs; the
	// solver goroutine still mutates them while the job runs.
	if job.Result != nil {
		response["iterations"] = job.Result.Iterations
		response["converged"] = job.Result.Converged
		response["reason"] = job.Result.Reason

		if best := job.Result.BestSolution; best != nil {
			response["best_solution"] = map[string]interface{}{
				"parameters": best.Parameters,
				"value":      best.Value,
			}
		}
		if len(job.Result.History) > 0 {
			entries := make([]map[string]interface{}, len(job.Result.History))
			for i, eval := range job.Result.History {
				entries[i] = map[string]interface{}{
					"iteration":     eval.Iteration,
					"parameters":    eval.Solution.Parameters,
					"value":         eval.Solution.Value,
					"gradient_norm": eval.GradientNorm,
				}
			}
			response["history"] = entries
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		s.respondError(w, http.StatusNotFound, "optimization not found")
		return
	}

	switch job.Status {
	case "completed", "failed", "cancelled":
		s.respondError(w, http.StatusConflict,
			fmt.Sprintf("cannot cancel optimization with status %q", job.Status))
		return
	}

	job.cancel()
	job.Status = "cancelled"
	now := time.Now()
	job.EndTime = &now
	job.LastUpdated = now

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "cancelled",
	})
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  status,
		"message": message,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func (s *Server) newJobID() string {
	return fmt.Sprintf("opt_%d_%d", time.Now().UnixNano(), atomic.AddUint64(&s.nextID, 1))
}

// Close cancels all running optimizations.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	for _, job := range s.jobs {
		if job.cancel != nil {
			job.cancel()
		}
	}
	return nil
}
