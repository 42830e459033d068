package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

const (
	attrVerificationAction  = "identity.verification.action"
	attrVerificationOutcome = "identity.verification.outcome"
	attrExternalTarget      = "identity.external.target"
	attrExternalOperation   = "identity.external.operation"
)

// Outcome values for RecordVerification
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	httpRequestsCounter  metric.Int64Counter
	httpRequestDuration  metric.Float64Histogram
	externalCallsCounter metric.Int64Counter
	externalCallErrors   metric.Int64Counter
	externalCallDuration metric.Float64Histogram
	verificationsCounter metric.Int64Counter
	faceDistance         metric.Float64Histogram

	metricsHandler http.Handler
	initialized    int32
	initOnce       sync.Once
	initErr        error
)

// Config holds the configuration for OpenTelemetry metrics
type Config struct {
	// ExporterType is "prometheus", "otlp" or "none"
	ExporterType    string
	ServiceName     string
	ServiceVersion  string
	OTLPEndpoint    string
	OTLPHeaders     map[string]string
	OTLPTLSInsecure bool
	// HistogramBuckets are latency boundaries in seconds
	HistogramBuckets []float64
}

// DefaultConfig reads the exporter settings from the environment
func DefaultConfig(serviceName string) Config {
	return Config{
		ExporterType:     config.GetEnvOrDefault("OTEL_METRICS_EXPORTER", "prometheus"),
		ServiceName:      serviceName,
		ServiceVersion:   config.GetEnvOrDefault("SERVICE_VERSION", "dev"),
		OTLPEndpoint:     config.GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPHeaders:      parseHeaders(config.GetEnvOrDefault("OTEL_EXPORTER_OTLP_HEADERS", "")),
		OTLPTLSInsecure:  config.GetEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", false),
		HistogramBuckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}
}

// Initialize sets up the meter provider and instruments. Only the first call
// does any work; later calls return the first call's error.
func Initialize(cfg Config) error {
	initOnce.Do(func() {
		initErr = initialize(context.Background(), cfg)
		if initErr == nil {
			atomic.StoreInt32(&initialized, 1)
		}
	})
	return initErr
}

// IsInitialized reports whether metrics are being recorded
func IsInitialized() bool {
	return atomic.LoadInt32(&initialized) == 1
}

func initialize(ctx context.Context, cfg Config) error {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var reader sdkmetric.Reader

	switch cfg.ExporterType {
	case "prometheus", "":
		reg := prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		reader = exporter
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		slog.Info("Initialized OpenTelemetry metrics with Prometheus exporter", "service", cfg.ServiceName)

	case "otlp":
		exporter, err := newOTLPExporter(ctx, cfg)
		if err != nil {
			return err
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
		metricsHandler = textHandler("# Metrics exported via OTLP\n")
		slog.Info("Initialized OpenTelemetry metrics with OTLP exporter",
			"service", cfg.ServiceName,
			"endpoint", cfg.OTLPEndpoint,
			"insecure", cfg.OTLPTLSInsecure)

	case "none":
		reader = sdkmetric.NewManualReader()
		metricsHandler = textHandler("# Metrics disabled\n")
		slog.Info("OpenTelemetry metrics disabled", "service", cfg.ServiceName)

	default:
		return fmt.Errorf("unknown exporter type: %s (supported: prometheus, otlp, none)", cfg.ExporterType)
	}

	buckets := cfg.HistogramBuckets
	if len(buckets) == 0 {
		buckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	}
	latencyView := func(name string) sdkmetric.View {
		return sdkmetric.NewView(
			sdkmetric.Instrument{Name: name},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: buckets}},
		)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithView(latencyView("http_request_duration_seconds")),
		sdkmetric.WithView(latencyView("external_call_duration_seconds")),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "face_match_distance"},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
				Boundaries: []float64{.1, .2, .3, .4, .45, .5, .55, .6, .7, .8, 1},
			}},
		)),
	)
	otel.SetMeterProvider(provider)

	// Go runtime metrics (goroutines, GC, memory)
	if err := runtime.Start(
		runtime.WithMinimumReadMemStatsInterval(10*time.Second),
		runtime.WithMeterProvider(provider),
	); err != nil {
		slog.Warn("Failed to start runtime metrics", "error", err)
	}

	return createInstruments(otel.Meter("lysa-identity"))
}

func newOTLPExporter(ctx context.Context, cfg Config) (*otlpmetrichttp.Exporter, error) {
	if cfg.OTLPEndpoint == "" {
		return nil, fmt.Errorf("OTLP endpoint is required when using OTLP exporter")
	}
	endpointURL, err := url.Parse(cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid OTLP endpoint URL: %w", err)
	}
	if endpointURL.Scheme != "https" && !cfg.OTLPTLSInsecure {
		return nil, fmt.Errorf("OTLP endpoint must use HTTPS (got: %s); set OTEL_EXPORTER_OTLP_INSECURE=true to allow plain HTTP", endpointURL.Scheme)
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpointURL.Host)}
	if endpointURL.Path != "" && endpointURL.Path != "/" {
		opts = append(opts, otlpmetrichttp.WithURLPath(endpointURL.Path))
	}
	if cfg.OTLPTLSInsecure && endpointURL.Scheme == "http" {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.OTLPHeaders) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.OTLPHeaders))
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}

func createInstruments(meter metric.Meter) error {
	var err error

	if httpRequestsCounter, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"), metric.WithUnit("1")); err != nil {
		return fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}
	if httpRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"), metric.WithUnit("s")); err != nil {
		return fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}
	if externalCallsCounter, err = meter.Int64Counter("external_calls_total",
		metric.WithDescription("Total number of external service calls"), metric.WithUnit("1")); err != nil {
		return fmt.Errorf("failed to create external_calls_total counter: %w", err)
	}
	if externalCallErrors, err = meter.Int64Counter("external_call_errors_total",
		metric.WithDescription("Total number of failed external service calls"), metric.WithUnit("1")); err != nil {
		return fmt.Errorf("failed to create external_call_errors_total counter: %w", err)
	}
	if externalCallDuration, err = meter.Float64Histogram("external_call_duration_seconds",
		metric.WithDescription("External service call duration in seconds"), metric.WithUnit("s")); err != nil {
		return fmt.Errorf("failed to create external_call_duration_seconds histogram: %w", err)
	}
	if verificationsCounter, err = meter.Int64Counter("identity_verifications_total",
		metric.WithDescription("Registrations and verifications by action and outcome"), metric.WithUnit("1")); err != nil {
		return fmt.Errorf("failed to create identity_verifications_total counter: %w", err)
	}
	if faceDistance, err = meter.Float64Histogram("face_match_distance",
		metric.WithDescription("Distance between stored and presented face encodings"), metric.WithUnit("1")); err != nil {
		return fmt.Errorf("failed to create face_match_distance histogram: %w", err)
	}
	return nil
}

// Handler returns the /metrics handler
func Handler() http.Handler {
	if !IsInitialized() || metricsHandler == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("# Metrics not initialized\n"))
		})
	}
	return metricsHandler
}

// HTTPMetricsMiddleware records request counts and latencies. Routes are
// labelled with the chi route pattern so user-supplied paths never become labels.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsInitialized() {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		ctx := r.Context()
		httpRequestsCounter.Add(ctx, 1, metric.WithAttributes(
			semconv.HTTPRequestMethodKey.String(r.Method),
			semconv.HTTPRouteKey.String(route),
			semconv.HTTPResponseStatusCodeKey.Int(rw.statusCode),
		))
		httpRequestDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			semconv.HTTPRequestMethodKey.String(r.Method),
			semconv.HTTPRouteKey.String(route),
		))
	})
}

// RecordExternalCall records a call to a dependency such as the face encoder
func RecordExternalCall(ctx context.Context, target, operation string, duration time.Duration, err error) {
	if !IsInitialized() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrExternalTarget, target),
		attribute.String(attrExternalOperation, operation),
	)
	externalCallsCounter.Add(ctx, 1, attrs)
	externalCallDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		externalCallErrors.Add(ctx, 1, attrs)
	}
}

// RecordVerification counts a registration or verification attempt
func RecordVerification(ctx context.Context, action, outcome string) {
	if !IsInitialized() {
		return
	}
	verificationsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrVerificationAction, action),
		attribute.String(attrVerificationOutcome, outcome),
	))
}

// RecordFaceDistance records the distance computed by a face verification
func RecordFaceDistance(ctx context.Context, distance float64, matched bool) {
	if !IsInitialized() {
		return
	}
	faceDistance.Record(ctx, distance, metric.WithAttributes(attribute.Bool("identity.face.matched", matched)))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func textHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})
}

// parseHeaders parses "key1=value1,key2=value2"
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}
	for _, pair := range strings.Split(headerStr, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
