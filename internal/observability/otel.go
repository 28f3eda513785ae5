package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resumescreen/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	ConsoleOutput  bool
	PrettyPrint    bool
	SampleRate     float64
	Prometheus     PrometheusConfig
}

// Metrics holds all custom metrics for the screening pipeline
type Metrics struct {
	// Scoring metrics
	ScoringDuration   metric.Float64Histogram
	CandidatesScored  metric.Int64Counter
	Disqualifications metric.Int64Counter

	// Extraction metrics
	ExtractionDuration metric.Float64Histogram
	ExtractionErrors   metric.Int64Counter

	// Pipeline edge metrics
	StoreFailures  metric.Int64Counter
	NotifyFailures metric.Int64Counter

	// Rule set metrics
	RuleSetReloads metric.Int64Counter

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

// ObservabilityManager manages OpenTelemetry setup
type ObservabilityManager struct {
	config           ObservabilityConfig
	fullConfig       *config.Config
	tracerProvider   *trace.TracerProvider
	meterProvider    *sdkmetric.MeterProvider
	metrics          *Metrics
	shutdownFuncs    []func(context.Context) error
	prometheusServer *http.ServeMux
}

// NewObservabilityManager creates a new observability manager
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config) (*ObservabilityManager, error) {
	if !obsConfig.Enabled {
		return &ObservabilityManager{config: obsConfig, fullConfig: fullConfig}, nil
	}

	om := &ObservabilityManager{
		config:        obsConfig,
		fullConfig:    fullConfig,
		shutdownFuncs: make([]func(context.Context) error, 0),
	}

	if err := om.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := om.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return om, nil
}

// createResource creates the OpenTelemetry resource
func (om *ObservabilityManager) createResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(om.config.ServiceName),
			semconv.ServiceVersion(om.config.ServiceVersion),
			attribute.String("service.instance.id", om.getServiceInstanceID()),
		),
	)
}

// initTracing sets up OpenTelemetry tracing
func (om *ObservabilityManager) initTracing() error {
	var exporter trace.SpanExporter
	var err error

	if om.config.ConsoleOutput {
		// Console exporter for development
		opts := []stdouttrace.Option{}
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	} else if om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled {
		// OTLP exporter for production
		exporter, err = om.createOTLPExporter()
	} else {
		// No-op exporter when no production exporter is configured
		exporter = &noOpSpanExporter{}
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := om.createResource()
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(om.config.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)

	return nil
}

// initMetrics sets up OpenTelemetry metrics
func (om *ObservabilityManager) initMetrics() error {
	readers, err := om.setupMetricReaders()
	if err != nil {
		return err
	}

	res, err := om.createResource()
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	meterProviderOptions := []sdkmetric.Option{
		sdkmetric.WithResource(res),
	}
	for _, reader := range readers {
		meterProviderOptions = append(meterProviderOptions, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(meterProviderOptions...)

	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	return om.initCustomMetrics()
}

// setupMetricReaders sets up all metric readers based on configuration
func (om *ObservabilityManager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		interval := om.getMetricsCollectionInterval()
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled {
		otlpReader, err := om.createOTLPMetricsReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		if otlpReader != nil {
			readers = append(readers, otlpReader)
		}
	}

	if om.config.Prometheus.Enabled {
		prometheusReader, prometheusMux, err := SetupPrometheusExporter(om.config.Prometheus)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		if prometheusReader != nil {
			readers = append(readers, prometheusReader)
			om.prometheusServer = prometheusMux

			if err := StartPrometheusServer(prometheusMux, om.config.Prometheus.Port); err != nil {
				return nil, fmt.Errorf("failed to start Prometheus server: %w", err)
			}
		}
	}

	// If no readers configured, use manual reader as fallback
	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}

	return readers, nil
}

// initCustomMetrics creates all custom metrics for the pipeline
func (om *ObservabilityManager) initCustomMetrics() error {
	meter := om.meterProvider.Meter(om.config.ServiceName)
	om.metrics = &Metrics{}

	if err := om.createScoringMetrics(meter); err != nil {
		return err
	}
	if err := om.createExtractionMetrics(meter); err != nil {
		return err
	}
	if err := om.createEdgeMetrics(meter); err != nil {
		return err
	}
	return om.createInfraMetrics(meter)
}

// createScoringMetrics creates scoring-related metrics
func (om *ObservabilityManager) createScoringMetrics(meter metric.Meter) error {
	var err error

	om.metrics.ScoringDuration, err = meter.Float64Histogram(
		"resumescreen_scoring_duration_seconds",
		metric.WithDescription("Time spent scoring candidates"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create scoring duration metric: %w", err)
	}

	om.metrics.CandidatesScored, err = meter.Int64Counter(
		"resumescreen_candidates_scored_total",
		metric.WithDescription("Total number of candidates scored, by tier"),
	)
	if err != nil {
		return fmt.Errorf("failed to create candidates scored metric: %w", err)
	}

	om.metrics.Disqualifications, err = meter.Int64Counter(
		"resumescreen_disqualifications_total",
		metric.WithDescription("Total number of candidates disqualified by a required criterion"),
	)
	if err != nil {
		return fmt.Errorf("failed to create disqualifications metric: %w", err)
	}

	return nil
}

// createExtractionMetrics creates extraction-related metrics
func (om *ObservabilityManager) createExtractionMetrics(meter metric.Meter) error {
	var err error

	om.metrics.ExtractionDuration, err = meter.Float64Histogram(
		"resumescreen_extraction_duration_seconds",
		metric.WithDescription("Time spent extracting candidate fields"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create extraction duration metric: %w", err)
	}

	om.metrics.ExtractionErrors, err = meter.Int64Counter(
		"resumescreen_extraction_errors_total",
		metric.WithDescription("Total number of extraction failures"),
	)
	if err != nil {
		return fmt.Errorf("failed to create extraction errors metric: %w", err)
	}

	return nil
}

// createEdgeMetrics creates metrics for the store and notify edges
func (om *ObservabilityManager) createEdgeMetrics(meter metric.Meter) error {
	var err error

	om.metrics.StoreFailures, err = meter.Int64Counter(
		"resumescreen_store_failures_total",
		metric.WithDescription("Total number of result store failures"),
	)
	if err != nil {
		return fmt.Errorf("failed to create store failures metric: %w", err)
	}

	om.metrics.NotifyFailures, err = meter.Int64Counter(
		"resumescreen_notify_failures_total",
		metric.WithDescription("Total number of notification failures"),
	)
	if err != nil {
		return fmt.Errorf("failed to create notify failures metric: %w", err)
	}

	return nil
}

// createInfraMetrics creates infrastructure metrics
func (om *ObservabilityManager) createInfraMetrics(meter metric.Meter) error {
	var err error

	om.metrics.RuleSetReloads, err = meter.Int64Counter(
		"resumescreen_ruleset_reloads_total",
		metric.WithDescription("Total number of rule set reloads"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rule set reloads metric: %w", err)
	}

	om.metrics.RateLimitHits, err = meter.Int64Counter(
		"resumescreen_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return nil
}

// GetMetrics returns the metrics instance
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	return otelhttp.NewMiddleware(
		om.config.ServiceName,
		otelhttp.WithTracerProvider(om.tracerProvider),
		otelhttp.WithMeterProvider(om.meterProvider),
	)
}

// Tracer returns a tracer for the service
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if !om.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown gracefully shuts down all observability components
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RecordScore records the metrics for one scored candidate.
func (m *Metrics) RecordScore(ctx context.Context, ruleSet, tier string, disqualified bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("rule_set", ruleSet),
		attribute.String("tier", tier),
	)
	if m.CandidatesScored != nil {
		m.CandidatesScored.Add(ctx, 1, attrs)
	}
	if m.ScoringDuration != nil {
		m.ScoringDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if disqualified && m.Disqualifications != nil {
		m.Disqualifications.Add(ctx, 1, metric.WithAttributes(attribute.String("rule_set", ruleSet)))
	}
}

// RecordExtraction records the metrics for one extraction attempt.
func (m *Metrics) RecordExtraction(ctx context.Context, provider string, err error, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	if m.ExtractionDuration != nil {
		m.ExtractionDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if err != nil && m.ExtractionErrors != nil {
		m.ExtractionErrors.Add(ctx, 1, attrs)
	}
}

// RecordStoreFailure records a result store failure.
func (m *Metrics) RecordStoreFailure(ctx context.Context, backend string) {
	if m.StoreFailures != nil {
		m.StoreFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend)))
	}
}

// RecordNotifyFailure records a notification failure.
func (m *Metrics) RecordNotifyFailure(ctx context.Context) {
	if m.NotifyFailures != nil {
		m.NotifyFailures.Add(ctx, 1)
	}
}

// RecordRuleSetReload records a rule set reload attempt.
func (m *Metrics) RecordRuleSetReload(ctx context.Context, ruleSet string, success bool) {
	if m.RuleSetReloads != nil {
		m.RuleSetReloads.Add(ctx, 1, metric.WithAttributes(
			attribute.String("rule_set", ruleSet),
			attribute.Bool("success", success),
		))
	}
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, limitType string) {
	if m.RateLimitHits != nil {
		m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limit_type", limitType)))
	}
}

// No-op exporter for when console output is disabled
type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

// createOTLPExporter creates an OTLP HTTP trace exporter
func (om *ObservabilityManager) createOTLPExporter() (trace.SpanExporter, error) {
	if om.fullConfig == nil {
		return nil, fmt.Errorf("config not available for OTLP configuration")
	}

	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return exporter, nil
}

// createOTLPMetricsReader creates an OTLP HTTP metrics reader
func (om *ObservabilityManager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	if om.fullConfig == nil {
		return nil, fmt.Errorf("config not available for OTLP configuration")
	}

	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	interval := om.getMetricsCollectionInterval()
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)), nil
}

// getServiceInstanceID returns the service instance ID from config or a default
func (om *ObservabilityManager) getServiceInstanceID() string {
	if om.fullConfig != nil && om.fullConfig.Observability.ServiceInstance != "" {
		return om.fullConfig.Observability.ServiceInstance
	}
	return "resumescreen-1"
}

// getMetricsCollectionInterval returns the configured metrics collection interval
func (om *ObservabilityManager) getMetricsCollectionInterval() time.Duration {
	if om.fullConfig != nil && om.fullConfig.Observability.Metrics.CollectionInterval > 0 {
		return om.fullConfig.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}
