package telemetry

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"RaceCommentator/internal/config"
	"RaceCommentator/internal/metrics"

	"go.uber.org/zap"
)

// Ensure interface compliance
var _ Source = (*Receiver)(nil)

// Receiver принимает кадры телеметрии по HTTP (POST) и складывает их в Feed.
type Receiver struct {
	cfg     config.TelemetryConfig
	feed    *Feed
	metrics *metrics.Metrics
	srv     *http.Server
	logger  *zap.SugaredLogger
	running atomic.Bool
}

// NewReceiver создаёт приёмник. m может быть nil - тогда /metrics не отдаётся.
func NewReceiver(cfg config.TelemetryConfig, feed *Feed, m *metrics.Metrics, logger *zap.SugaredLogger) *Receiver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:3000"
	}
	if cfg.Path == "" {
		cfg.Path = "/telemetry"
	}
	s := &Receiver{cfg: cfg, feed: feed, metrics: m, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, s.handleFrame)
	if m != nil && cfg.Path != "/metrics" {
		mux.Handle("/metrics", m.Handler())
	}

	s.srv = &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler отдаёт маршрутизатор приёмника (для тестов и встраивания).
func (s *Receiver) Handler() http.Handler { return s.srv.Handler }

func (s *Receiver) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	go func() {
		s.logger.Infow("Telemetry receiver listening", "addr", s.srv.Addr, "path", s.cfg.Path)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("Telemetry receiver stopped with error", "error", err)
		} else {
			s.logger.Infow("Telemetry receiver stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

func (s *Receiver) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("telemetry receiver shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

func (s *Receiver) Addr() string { return s.cfg.BindAddr }

func (s *Receiver) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed; use POST", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	frame, err := DecodeFrame(r.Body)
	if err != nil {
		s.logger.Warnw("Telemetry frame rejected", "remote", r.RemoteAddr, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.feed.Apply(frame); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.metrics.FrameReceived()
	s.logger.Debugw("Telemetry frame received", "remote", r.RemoteAddr, "mode", frame.Mode, "cars", len(frame.Cars))

	w.WriteHeader(http.StatusNoContent)
}

// authorized сверяет Bearer токен, если он задан в конфигурации.
func (s *Receiver) authorized(r *http.Request) bool {
	token := strings.TrimSpace(s.cfg.AuthToken)
	if token == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}
