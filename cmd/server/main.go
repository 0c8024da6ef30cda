package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	persistlog "gaia.world/internal/persistence/log"
	"gaia.world/internal/sim/scenario"
	"gaia.world/internal/sim/tuning"
	"gaia.world/internal/sim/world"
	"gaia.world/internal/transport/observer"
)

// RunInfo is written to <run>/run.json so a replay can rebuild the same world.
type RunInfo struct {
	WorldID  string `json:"world_id"`
	Epoch    int64  `json:"epoch"`
	Scenario string `json:"scenario"`
	Tuning   string `json:"tuning"`
}

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		configDir    = flag.String("configs", "./configs", "config directory")
		scenarioPath = flag.String("scenario", "", "path to scenario yaml (default: <configs>/gaia.yaml)")
		tuningPath   = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite tick/audit index")
		remoteObs    = flag.Bool("observer_remote", false, "serve the observer feed to non-loopback clients")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	sp := strings.TrimSpace(*scenarioPath)
	if sp == "" {
		sp = filepath.Join(*configDir, "gaia.yaml")
	}
	sc, err := scenario.Load(sp)
	if err != nil {
		logger.Fatalf("load scenario: %v", err)
	}

	epoch := world.WallClock()
	w, err := world.New(sc.WorldConfig(tune, epoch))
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	cfg := w.Config()

	runDir := filepath.Join(*dataDir, "worlds", cfg.ID, "runs", strconv.FormatInt(epoch, 10))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Fatalf("run dir: %v", err)
	}
	if err := writeRunInfo(runDir, RunInfo{WorldID: cfg.ID, Epoch: epoch, Scenario: absPath(sp), Tuning: absPath(tp)}); err != nil {
		logger.Fatalf("run info: %v", err)
	}

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(runDir, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		idx.SetMeta("world_id", cfg.ID)
		idx.SetMeta("epoch", strconv.FormatInt(epoch, 10))
		idx.SetMeta("scenario", sp)
	}

	tickLog := persistlog.NewTickLogger(runDir)
	auditLog := persistlog.NewAuditLogger(runDir)
	defer tickLog.Close()
	defer auditLog.Close()
	ticks := persistlog.MultiTick{tickLog}
	audits := persistlog.MultiAudit{auditLog}
	if idx != nil {
		ticks = append(ticks, idx)
		audits = append(audits, idx)
	}
	w.SetTickLogger(ticks)
	w.SetAuditLogger(audits)

	st, err := sc.Apply(w, tune, epoch)
	if err != nil {
		logger.Fatalf("apply scenario: %v", err)
	}
	logger.Printf("world=%s %dx%d backgrounds=%d entities=%d run=%s",
		cfg.ID, cfg.Rows, cfg.Cols, st.Backgrounds, st.Entities, runDir)

	hub := observer.NewHub()
	hub.Publish(w)
	stats := &runtimeStats{worldID: cfg.ID}

	ctx, cancel := signalContext()
	defer cancel()

	every := time.Duration(tune.TickDurationMs) * time.Millisecond
	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		var last time.Time
		after := func(w *world.World) {
			step := time.Since(last)
			hub.Publish(w)
			stats.update(w, step)
		}
		clock := func() int64 {
			last = time.Now()
			return last.UnixMilli()
		}
		onErr := func(err error) { logger.Printf("advance: %v", err) }
		if err := w.Run(ctx, every, clock, after, onErr); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
		_ = tickLog.Flush()
		_ = auditLog.Flush()
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		stats.writeMetrics(rw, idx)
	})

	if envBool("GAIA_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !observer.IsLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(stats.snapshot())
		})
	} else {
		logger.Printf("admin endpoints disabled (GAIA_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("GAIA_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	obsSrv := observer.NewServer(hub, observer.Config{
		MaxHz:       tune.Observer.MaxHz,
		MaxSessions: tune.Observer.MaxSessions,
		AllowRemote: *remoteObs,
	}, logger)
	mux.HandleFunc("/v1/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", obsSrv.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	<-worldDone
	logger.Printf("stopped at now=%d", stats.snapshot().Now)
}

// runtimeStats is written by the simulation goroutine and read by HTTP handlers.
type runtimeStats struct {
	mu sync.Mutex
	s  stateResponse

	worldID string
}

type stateResponse struct {
	WorldID  string  `json:"world_id"`
	Now      int64   `json:"now"`
	Entities int     `json:"entities"`
	Pending  int     `json:"pending"`
	Digest   string  `json:"digest"`
	StepMS   float64 `json:"step_ms"`
}

func (r *runtimeStats) update(w *world.World, step time.Duration) {
	s := stateResponse{
		WorldID:  r.worldID,
		Now:      w.Now(),
		Entities: len(w.Entities()),
		Pending:  w.Pending(),
		Digest:   w.Digest(),
		StepMS:   float64(step.Microseconds()) / 1000,
	}
	r.mu.Lock()
	r.s = s
	r.mu.Unlock()
}

func (r *runtimeStats) snapshot() stateResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.s
	s.WorldID = r.worldID
	return s
}

func (r *runtimeStats) writeMetrics(rw http.ResponseWriter, idx runtimeIndex) {
	s := r.snapshot()

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP gaia_world_now_ms Timestamp of the last advance.\n")
	fmt.Fprintf(rw, "# TYPE gaia_world_now_ms gauge\n")
	fmt.Fprintf(rw, "gaia_world_now_ms{world=%q} %d\n", s.WorldID, s.Now)

	fmt.Fprintf(rw, "# HELP gaia_world_entities Entities currently on the grid.\n")
	fmt.Fprintf(rw, "# TYPE gaia_world_entities gauge\n")
	fmt.Fprintf(rw, "gaia_world_entities{world=%q} %d\n", s.WorldID, s.Entities)

	fmt.Fprintf(rw, "# HELP gaia_world_pending_events Scheduled events not yet fired.\n")
	fmt.Fprintf(rw, "# TYPE gaia_world_pending_events gauge\n")
	fmt.Fprintf(rw, "gaia_world_pending_events{world=%q} %d\n", s.WorldID, s.Pending)

	fmt.Fprintf(rw, "# HELP gaia_world_step_ms Last advance duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE gaia_world_step_ms gauge\n")
	fmt.Fprintf(rw, "gaia_world_step_ms{world=%q} %.3f\n", s.WorldID, s.StepMS)

	if idx == nil {
		return
	}
	is := idx.Stats()
	fmt.Fprintf(rw, "# HELP gaia_index_queue_depth Pending index writes.\n")
	fmt.Fprintf(rw, "# TYPE gaia_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "gaia_index_queue_depth{world=%q} %d\n", s.WorldID, is.QueueDepth)

	fmt.Fprintf(rw, "# HELP gaia_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE gaia_index_dropped_total counter\n")
	fmt.Fprintf(rw, "gaia_index_dropped_total{world=%q,kind=%q} %d\n", s.WorldID, "tick", is.DropTickTotal)
	fmt.Fprintf(rw, "gaia_index_dropped_total{world=%q,kind=%q} %d\n", s.WorldID, "audit", is.DropAuditTotal)
}

func writeRunInfo(runDir string, info RunInfo) error {
	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, "run.json"), b, 0o644)
}

func absPath(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}
