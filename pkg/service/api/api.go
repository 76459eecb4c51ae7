// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package api exposes an mfg.Base over HTTP. Mutating requests are
// serialised, the block itself does no locking.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/u-root/mfgpm/config"
	"github.com/u-root/mfgpm/pkg/hardware/mediatek"
	"github.com/u-root/mfgpm/pkg/logger"
	"github.com/u-root/mfgpm/pkg/mfg"
)

const requestIDHeader = "X-Request-Id"

type gpuSystem interface {
	PowerOn(context.Context) (mfg.Result, error)
	PowerOff(context.Context) (mfg.Result, error)
	DevfreqOps() mfg.DevfreqOps
	SetOperatingPoint(context.Context, uint64, [2]int) error
	RestoreSource(context.Context) error
	State() mfg.PowerState
	Degraded() bool
}

type Server struct {
	// Held for every request that reaches the device.
	m       sync.Mutex
	gpu     gpuSystem
	devfreq mfg.DevfreqOps
	version *config.Version
	metrics http.Handler
	log     *zap.SugaredLogger
}

type Option func(*Server)

func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func WithVersion(v *config.Version) Option {
	return func(s *Server) { s.version = v }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Server) { s.log = l }
}

func New(gpu gpuSystem, opts ...Option) *Server {
	s := &Server{gpu: gpu, devfreq: gpu.DevfreqOps(), log: logger.LogContainer.GetSimpleLogger()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID)
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/status", s.status).Methods(http.MethodGet)
	v1.HandleFunc("/power/on", s.powerOn).Methods(http.MethodPost)
	v1.HandleFunc("/power/off", s.powerOff).Methods(http.MethodPost)
	v1.HandleFunc("/frequency", s.setFrequency).Methods(http.MethodPut)
	v1.HandleFunc("/frequency/restore", s.restoreSource).Methods(http.MethodPost)
	v1.HandleFunc("/opp", s.setOperatingPoint).Methods(http.MethodPut)
	v1.HandleFunc("/voltage/check", s.voltageCheck).Methods(http.MethodPost)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	return r
}

// Serve handles requests on l until ctx is done. It returns once
// in-flight requests have finished.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.log.Warnf("API shutdown: %v", err)
		}
	}()
	s.log.Infof("Serving API on %s", l.Addr())
	err := srv.Serve(l)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = xid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		s.log.Debugw("API request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) reply(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warnf("Writing response: %v", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, code int, err error) {
	rsp := ErrorResponse{Error: err.Error(), RequestID: w.Header().Get(requestIDHeader)}
	var ce *mfg.ClockError
	var pe *mfg.PowerSequenceError
	switch {
	case errors.As(err, &ce):
		rsp.Stage = ce.Stage.String()
	case errors.As(err, &pe):
		rsp.Stage = pe.Stage.String()
	}
	s.log.Errorw("API request failed", "error", err, "request_id", rsp.RequestID)
	s.reply(w, code, rsp)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.m.Lock()
	st := s.gpu.State()
	degraded := s.gpu.Degraded()
	s.m.Unlock()

	rsp := Status{
		Powered:     st.Powered,
		FrequencyHz: st.FrequencyHz,
		Voltages:    st.Voltages,
		Degraded:    degraded,
	}
	if s.version != nil {
		rsp.Version = s.version.Version
	}
	s.reply(w, http.StatusOK, rsp)
}

func (s *Server) power(w http.ResponseWriter, r *http.Request, f func(context.Context) (mfg.Result, error)) {
	s.m.Lock()
	res, err := f(r.Context())
	s.m.Unlock()
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, mediatek.ErrBusNotIdle) {
			code = http.StatusServiceUnavailable
		}
		s.fail(w, code, err)
		return
	}
	s.reply(w, http.StatusOK, PowerResponse{Result: res.String()})
}

func (s *Server) powerOn(w http.ResponseWriter, r *http.Request) {
	s.power(w, r, s.gpu.PowerOn)
}

func (s *Server) powerOff(w http.ResponseWriter, r *http.Request) {
	s.power(w, r, s.gpu.PowerOff)
}

func (s *Server) setFrequency(w http.ResponseWriter, r *http.Request) {
	var req FrequencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	if req.Hz == 0 {
		s.fail(w, http.StatusBadRequest, errors.New("hz must be positive"))
		return
	}

	s.m.Lock()
	err := s.devfreq.SetFrequency(r.Context(), req.Hz)
	degraded := s.gpu.Degraded()
	s.m.Unlock()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.reply(w, http.StatusOK, FrequencyResponse{Hz: req.Hz, Degraded: degraded})
}

func (s *Server) restoreSource(w http.ResponseWriter, r *http.Request) {
	s.m.Lock()
	err := s.gpu.RestoreSource(r.Context())
	st := s.gpu.State()
	degraded := s.gpu.Degraded()
	s.m.Unlock()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.reply(w, http.StatusOK, FrequencyResponse{Hz: st.FrequencyHz, Degraded: degraded})
}

// setOperatingPoint range checks the voltages, then applies the pair in
// the order the frequency change needs.
func (s *Server) setOperatingPoint(w http.ResponseWriter, r *http.Request) {
	var req OperatingPoint
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	if req.Hz == 0 {
		s.fail(w, http.StatusBadRequest, errors.New("hz must be positive"))
		return
	}

	s.m.Lock()
	err := s.gpu.SetOperatingPoint(r.Context(), req.Hz, req.Voltages)
	st := s.gpu.State()
	degraded := s.gpu.Degraded()
	s.m.Unlock()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.reply(w, http.StatusOK, OperatingPointResponse{Hz: st.FrequencyHz, Voltages: st.Voltages, Degraded: degraded})
}

func (s *Server) voltageCheck(w http.ResponseWriter, r *http.Request) {
	var req VoltageCheck
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	s.reply(w, http.StatusOK, VoltageCheck{Voltages: s.devfreq.VoltageRangeCheck(req.Voltages)})
}
