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

// Package main is the main package for the RelayCache application
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	goruntime "runtime"
	"syscall"
	"time"

	"github.com/relaycache/relaycache/pkg/cache/entity"
	"github.com/relaycache/relaycache/pkg/config"
	"github.com/relaycache/relaycache/pkg/diagnostics"
	"github.com/relaycache/relaycache/pkg/governor"
	"github.com/relaycache/relaycache/pkg/observability/logging"
	"github.com/relaycache/relaycache/pkg/observability/logging/logger"
	"github.com/relaycache/relaycache/pkg/observability/metrics"
	"github.com/relaycache/relaycache/pkg/runtime"
	"github.com/relaycache/relaycache/pkg/sessions"
	"github.com/relaycache/relaycache/pkg/store"
	"github.com/relaycache/relaycache/pkg/store/providers"
)

var applicationGitCommitID string

const (
	applicationName    = "relaycache"
	applicationVersion = "1.0.0"
)

const shutdownTimeout = 10 * time.Second

func main() {
	runtime.ApplicationName = applicationName
	runtime.ApplicationVersion = applicationVersion

	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", "", "path to the configuration file")
	flag.BoolVar(&showVersion, "version", false, "print the version number and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(applicationVersion)
		return
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config from %s: %v\n", configPath, err)
			os.Exit(1)
		}
	} else {
		cfg = config.NewConfig()
		if err = cfg.Initialize(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize default config: %v\n", err)
			os.Exit(1)
		}
	}

	log := logging.New(&logging.FileLoggerOptions{
		LogFile:    cfg.Logging.LogFile,
		LogLevel:   cfg.Logging.LogLevel,
		InstanceID: cfg.Main.InstanceID,
	})
	logger.SetLogger(log)
	defer log.Close()

	metrics.BuildInfo.WithLabelValues(goruntime.Version(),
		applicationGitCommitID, applicationVersion).Set(1)

	logger.Info("application start up", logging.Pairs{
		"name":      applicationName,
		"version":   applicationVersion,
		"goVersion": goruntime.Version(),
		"goArch":    goruntime.GOARCH,
		"commitID":  applicationGitCommitID,
	})

	st, err := providers.New("default", cfg.Store)
	if err != nil {
		logger.Fatal(1, "unable to construct record store", logging.Pairs{"error": err})
	}
	if err = st.Connect(); err != nil {
		logger.Fatal(1, "unable to connect to record store", logging.Pairs{
			"provider": cfg.Store.Provider, "error": err})
	}
	defer st.Close()

	caches := make(map[string]*entity.Cache, len(cfg.Caches))
	for name, o := range cfg.Caches {
		caches[name] = entity.New(name, o)
	}

	if c, ok := caches["default"]; ok {
		loaded, err := store.Warm(st, c, 0)
		if err != nil {
			logger.Warn("cache warm-up incomplete", logging.Pairs{"error": err})
		} else if loaded > 0 {
			logger.Info("cache warmed from record store", logging.Pairs{"records": loaded})
		}
	}

	registry := sessions.NewRegistry("sessions")

	gov := governor.New(cfg.Governor)
	gov.Register(registry)
	for _, c := range caches {
		gov.Register(c)
	}

	diag := diagnostics.New(cfg, caches, gov)
	diag.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	logger.Info("shutting down", logging.Pairs{"signal": s.String()})

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = diag.Shutdown(ctx); err != nil {
		logger.Error("diagnostics shutdown error", logging.Pairs{"error": err})
	}
	gov.Shutdown()
	for _, c := range caches {
		c.Close()
	}
}
