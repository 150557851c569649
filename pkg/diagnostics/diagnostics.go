/*
 * Copyright 2024 The RelayCache Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package diagnostics serves the application's observability surface:
// prometheus metrics, liveness, the running configuration, and JSON
// snapshots of cache and governor state
package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relaycache/relaycache/pkg/cache/entity"
	"github.com/relaycache/relaycache/pkg/config"
	"github.com/relaycache/relaycache/pkg/governor"
	"github.com/relaycache/relaycache/pkg/observability/logging"
	"github.com/relaycache/relaycache/pkg/observability/logging/logger"
	"github.com/relaycache/relaycache/pkg/observability/metrics"
	"github.com/relaycache/relaycache/pkg/runtime"
)

// defaultTrendWindow is applied when a trend request omits the window parameter
const defaultTrendWindow = 10 * time.Minute

// Server is the diagnostics HTTP listener
type Server struct {
	cfg    *config.Config
	caches map[string]*entity.Cache
	gov    *governor.Governor
	srv    *http.Server
}

// New returns an unstarted diagnostics Server for the provided components
func New(cfg *config.Config, caches map[string]*entity.Cache, gov *governor.Governor) *Server {
	s := &Server{cfg: cfg, caches: caches, gov: gov}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc(cfg.Main.PingHandlerPath, s.pingHandler)
	mux.HandleFunc(cfg.Main.ConfigHandlerPath, s.configHandler)
	mux.HandleFunc("/stats/caches", s.cachesHandler)
	mux.HandleFunc("/stats/governor", s.governorHandler)
	mux.HandleFunc("/stats/governor/trend", s.trendHandler)
	s.srv = &http.Server{
		Addr: fmt.Sprintf("%s:%d",
			cfg.Metrics.ListenAddress, cfg.Metrics.ListenPort),
		Handler: mux,
	}
	return s
}

// Start begins serving in a background goroutine
func (s *Server) Start() {
	logger.Info("diagnostics http endpoint starting",
		logging.Pairs{"address": s.cfg.Metrics.ListenAddress,
			"port": s.cfg.Metrics.ListenPort})
	go func() {
		if err := s.srv.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			logger.Error("unable to start diagnostics http server",
				logging.Pairs{"detail": err.Error()})
		}
	}()
}

// Shutdown gracefully stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s %s is alive on %s\n",
		runtime.ApplicationName, runtime.ApplicationVersion, runtime.Server)
}

// configHandler outputs the running configuration as YAML
func (s *Server) configHandler(w http.ResponseWriter, _ *http.Request) {
	b, err := yaml.Marshal(s.cfg)
	if err != nil {
		handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (s *Server) cachesHandler(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string]entity.Stats, len(s.caches))
	for name, c := range s.caches {
		out[name] = c.Stats()
	}
	writeJSON(w, out)
}

func (s *Server) governorHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.gov.Stats())
}

// trendHandler reports memory usage movement over the trailing window,
// provided via the "window" query parameter as a Go duration
func (s *Server) trendHandler(w http.ResponseWriter, r *http.Request) {
	window := defaultTrendWindow
	if v := r.URL.Query().Get("window"); v != "" {
		var err error
		window, err = time.ParseDuration(v)
		if err != nil {
			http.Error(w, "invalid window: "+v, http.StatusBadRequest)
			return
		}
	}
	report, err := s.gov.Trend(window)
	if err != nil {
		if errors.Is(err, governor.ErrInsufficientSamples) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		handleError(w, err)
		return
	}
	writeJSON(w, report)
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func handleError(w http.ResponseWriter, err error) {
	logger.Error("diagnostics handler error", logging.Pairs{"detail": err.Error()})
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
