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

// Package telemetry bundles the optional tracing and metrics support.
//
// A *Telemetry is built once at startup and handed to the components that
// want it.  All methods are safe to call on a nil *Telemetry, in which case
// they do nothing; code that reports topology never needs to care whether
// telemetry was configured.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentation = "github.com/gdamore/topovisor"

var ErrUnknownExporter = errors.New("Unknown trace exporter")

var noopTracer = noop.NewTracerProvider().Tracer(instrumentation)

// Config selects what telemetry is produced.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string    // "stdout", "otlp" or "none"
	OTLPEndpoint   string    // host:port of the OTLP gRPC receiver
	OTLPInsecure   bool      // no TLS to the receiver
	TraceWriter    io.Writer // stdout exporter output, os.Stdout if nil
	Metrics        bool      // enable Prometheus metrics
}

type Telemetry struct {
	tracer     trace.Tracer
	tp         *sdktrace.TracerProvider
	registry   *prometheus.Registry
	reports    *prometheus.CounterVec
	failures   *prometheus.CounterVec
	iterations *prometheus.CounterVec
}

// New sets up tracing and metrics according to cfg.  The returned value
// must be shut down with Shutdown, to flush any pending spans.
func New(ctx context.Context, cfg Config) (*Telemetry, error) {
	t := &Telemetry{tracer: noopTracer}

	if cfg.TraceExporter != "" && cfg.TraceExporter != "none" {
		tp, e := newTracerProvider(ctx, cfg)
		if e != nil {
			return nil, e
		}
		otel.SetTracerProvider(tp)
		t.tp = tp
		t.tracer = tp.Tracer(instrumentation)
	}

	if cfg.Metrics {
		t.registry = prometheus.NewRegistry()
		t.reports = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "topovisor_reports_total",
			Help: "Topology reports produced, by output format.",
		}, []string{"format"})
		t.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "topovisor_source_failures_total",
			Help: "Failed raw data queries, by source.",
		}, []string{"source"})
		t.iterations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "topovisor_task_iterations_total",
			Help: "Background task iterations, by result.",
		}, []string{"result"})
		t.registry.MustRegister(t.reports, t.failures, t.iterations)
	}
	return t, nil
}

func newTracerProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	var exp sdktrace.SpanExporter
	var e error

	switch cfg.TraceExporter {
	case "stdout":
		w := cfg.TraceWriter
		if w == nil {
			w = os.Stdout
		}
		exp, e = stdouttrace.New(stdouttrace.WithWriter(w))
	case "otlp":
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exp, e = otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}
	if e != nil {
		return nil, fmt.Errorf("create exporter: %w", e)
	}

	res := resource.NewWithAttributes("",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}

// Shutdown flushes and stops the tracer provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.tp == nil {
		return nil
	}
	return t.tp.Shutdown(ctx)
}

// Start begins a span.  The returned function ends it, recording err
// on the span if it is not nil.
func (t *Telemetry) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	tracer := noopTracer
	if t != nil && t.tracer != nil {
		tracer = t.tracer
	}
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (t *Telemetry) CountReport(format string) {
	if t != nil && t.reports != nil {
		t.reports.WithLabelValues(format).Inc()
	}
}

func (t *Telemetry) CountSourceFailure(source string) {
	if t != nil && t.failures != nil {
		t.failures.WithLabelValues(source).Inc()
	}
}

func (t *Telemetry) CountIteration(result string) {
	if t != nil && t.iterations != nil {
		t.iterations.WithLabelValues(result).Inc()
	}
}

// Registry returns the metrics registry, or nil if metrics are disabled.
func (t *Telemetry) Registry() *prometheus.Registry {
	if t == nil {
		return nil
	}
	return t.registry
}

// MetricsHandler serves the Prometheus exposition format.  It returns
// nil when metrics are disabled.
func (t *Telemetry) MetricsHandler() http.Handler {
	if t == nil || t.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}
