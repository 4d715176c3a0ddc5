// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command topovisord serves the process topology of the container it
// runs in: who PID 1 is, what it supervises, and which process answered.
// It also runs a background task that samples the topology periodically
// and logs what it sees.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/net/netutil"

	"github.com/gdamore/topovisor"
	"github.com/gdamore/topovisor/config"
	"github.com/gdamore/topovisor/rest"
	"github.com/gdamore/topovisor/telemetry"
)

const version = "1.0.0"

// sample is the unit of work of the background task: it takes a
// snapshot and logs a summary of it.
func sample(r *topovisor.Reporter, logger *log.Logger) func(context.Context, int) error {
	return func(ctx context.Context, _ int) error {
		snap, e := r.Report(ctx)
		if e != nil {
			return e
		}
		up := 0
		for _, p := range snap.ManagedProcesses {
			if p.Running() {
				up++
			} else {
				logger.Printf("managed process %s is %s", p.Name, p.Token)
			}
		}
		logger.Printf("%d of %d managed processes running", up, len(snap.ManagedProcesses))
		return nil
	}
}

func run(cfg *config.Config) error {
	tasklog := topovisor.NewLog(cfg.LogRecords)
	ml := topovisor.NewMultiLogger(
		log.New(os.Stderr, "", log.LstdFlags),
		log.New(tasklog, "", 0),
	)
	logger := ml.Logger("")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exporter := cfg.TraceExporter
	if !cfg.OtelEnabled {
		exporter = "none"
	}
	tel, e := telemetry.New(ctx, telemetry.Config{
		ServiceName:    cfg.Name,
		ServiceVersion: version,
		Environment:    cfg.Env,
		TraceExporter:  exporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		OTLPInsecure:   true,
		TraceWriter:    os.Stderr,
		Metrics:        cfg.MetricsEnabled,
	})
	if e != nil {
		return fmt.Errorf("telemetry: %w", e)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if e := tel.Shutdown(sctx); e != nil {
			logger.Printf("telemetry shutdown: %v", e)
		}
	}()

	reporter := topovisor.NewReporter(
		&topovisor.SystemSource{Ps: cfg.Ps, Timeout: cfg.CommandTimeout},
		&topovisor.Supervisorctl{
			Path:    cfg.Supervisorctl,
			Config:  cfg.SupervisorConf,
			Timeout: cfg.CommandTimeout,
		},
		tel,
	)

	logger.Printf("Starting %s on %s", cfg.Name, cfg.ListenAddr())
	logger.Printf("Environment: %s", cfg.Env)
	logger.Printf("OpenTelemetry enabled: %v", cfg.OtelEnabled)

	taskDone := make(chan struct{})
	if cfg.WorkerEnabled {
		task := &topovisor.Task{
			Name:        "Worker",
			Work:        sample(reporter, logger),
			Idle:        cfg.WorkerIdle,
			Recovery:    cfg.WorkerRecovery,
			HealthEvery: cfg.WorkerHealthEvery,
			Logger:      logger,
			Telemetry:   tel,
		}
		go func() {
			task.Run(ctx)
			close(taskDone)
		}()
	} else {
		close(taskDone)
	}

	l, e := net.Listen("tcp", cfg.ListenAddr())
	if e != nil {
		return e
	}
	if cfg.MaxConns > 0 {
		l = netutil.LimitListener(l, cfg.MaxConns)
	}

	srv := &http.Server{
		Handler: rest.NewHandler(reporter, rest.Options{
			Service:     cfg.Name,
			Env:         cfg.Env,
			Port:        cfg.Port,
			OtelEnabled: cfg.OtelEnabled,
			Log:         tasklog,
			Telemetry:   tel,
			Logger:      logger,
			AuthUser:    cfg.AuthUser,
			AuthHash:    cfg.AuthHash,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Serve(l)
	}()

	// Wait for a termination signal, and shutdown cleanly if we get it.
	select {
	case <-ctx.Done():
		logger.Printf("Shutting down")
	case e = <-errs:
		stop()
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if se := srv.Shutdown(sctx); se != nil {
		logger.Printf("server shutdown: %v", se)
	}
	<-taskDone

	if e != nil && !errors.Is(e, http.ErrServerClosed) {
		return e
	}
	return nil
}

func main() {
	fs := pflag.NewFlagSet("topovisord", pflag.ExitOnError)
	config.Flags(fs)
	fs.Parse(os.Args[1:])

	cfg, e := config.Load(fs)
	if e != nil {
		log.Fatalf("Failed to load configuration: %v", e)
	}
	if e := run(cfg); e != nil {
		log.Fatalf("Failed: %v", e)
	}
}
