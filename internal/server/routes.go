package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"monkeysnype/internal/broadcast"
	"monkeysnype/internal/config"
	"monkeysnype/internal/events"
	"monkeysnype/internal/metrics"
	"monkeysnype/internal/session"
	"monkeysnype/internal/settings"
	"monkeysnype/internal/stats"
	"monkeysnype/internal/targets"
	"monkeysnype/internal/wshub"
)

func Run() error {
	appCfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := New(ctx, appCfg)

	addr := "0.0.0.0:" + appCfg.Port
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.Routes(),
	}

	go func() {
		<-ctx.Done()
		srv.Session.End()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Server] Shutdown error: %v\n", err)
		}
	}()

	fmt.Printf("Server listening on http://localhost:%s\n", appCfg.Port)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// New wires the game core and the view-facing plumbing. Spawn loops stop
// when ctx is cancelled.
func New(ctx context.Context, cfg config.Config) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	st := stats.NewStore()
	bus := events.NewBus()
	tc := targets.NewController(st, bus, m, targets.Config{
		Interval:   cfg.SpawnInterval,
		Diameter:   cfg.TargetDiameter,
		PlayWidth:  cfg.PlayWidth,
		PlayHeight: cfg.PlayHeight,
	})

	srv := &Server{
		Session:     session.New(ctx, st, tc, settings.NewStore(), bus, m),
		Broadcaster: broadcast.NewBroadcaster(bus, st),
		Hub:         wshub.NewHub(),
		Registry:    reg,
	}
	go srv.pumpHub(ctx)
	return srv
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/session/start", s.handleStart)
	mux.HandleFunc("POST /api/session/end", s.handleEnd)
	mux.HandleFunc("POST /api/session/dismiss", s.handleDismiss)
	mux.HandleFunc("POST /api/click", s.handleClick)
	mux.HandleFunc("POST /api/target/{id}", s.handleTarget)
	mux.HandleFunc("POST /api/play-area", s.handlePlayArea)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/settings", s.handleSetSettings)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /ws", s.handleWS)
	return s.withSession(mux)
}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s.Session)))
	})
}

// pumpHub relays every broadcast to the connected websocket views and
// closes the broadcaster when ctx ends.
func (s *Server) pumpHub(ctx context.Context) {
	sub := s.Broadcaster.Subscribe()
	defer s.Broadcaster.Close()
	defer s.Broadcaster.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub:
			s.Hub.Broadcast(wshub.ServerMessage{Type: msg.Event, Data: json.RawMessage(msg.Msg)})
		}
	}
}
