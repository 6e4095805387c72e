package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the analytics instruments.
type Metrics struct {
	scorecards         metric.Int64Counter
	scoredVendors      metric.Int64Histogram
	riskCategories     metric.Int64Counter
	dataSourceFailures metric.Int64Counter
	dataSourceRetries  metric.Int64Counter
	chatQueries        metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New builds the analytics instruments on the given provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "vendorscope"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.scorecards, err = meter.Int64Counter("vendorscope_scorecards_total",
		metric.WithDescription("Scorecards assembled per endpoint.")); err != nil {
		return nil, err
	}
	if m.scoredVendors, err = meter.Int64Histogram("vendorscope_scored_vendors",
		metric.WithDescription("Vendors returned per scorecard.")); err != nil {
		return nil, err
	}
	if m.riskCategories, err = meter.Int64Counter("vendorscope_risk_category_total",
		metric.WithDescription("Vendors assigned to each risk category.")); err != nil {
		return nil, err
	}
	if m.dataSourceFailures, err = meter.Int64Counter("vendorscope_data_source_failures_total",
		metric.WithDescription("Aggregate fetches that failed after retries.")); err != nil {
		return nil, err
	}
	if m.dataSourceRetries, err = meter.Int64Counter("vendorscope_data_source_retries_total",
		metric.WithDescription("Aggregate fetch attempts that were retried.")); err != nil {
		return nil, err
	}
	if m.chatQueries, err = meter.Int64Counter("vendorscope_chat_queries_total",
		metric.WithDescription("Chat queries proxied to the AI service.")); err != nil {
		return nil, err
	}
	if m.rateLimitDenied, err = meter.Int64Counter("vendorscope_rate_limit_denied_total",
		metric.WithDescription("Requests rejected by the rate limiter.")); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordScorecard counts one assembled scorecard and its size.
func (m *Metrics) RecordScorecard(ctx context.Context, endpoint string, vendors int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("endpoint", endpoint))...)
	m.scorecards.Add(ctx, 1, attrs)
	m.scoredVendors.Record(ctx, int64(vendors), attrs)
}

func (m *Metrics) RecordRiskCategory(ctx context.Context, category string, count int) {
	if m == nil || count == 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("risk_category", strings.ToLower(category)))
	m.riskCategories.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordDataSourceFailure(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("operation", operation))
	m.dataSourceFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordDataSourceRetry(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("operation", operation))
	m.dataSourceRetries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordChatQuery(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", status))
	m.chatQueries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("reason", reason),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":      {},
	"operation":     {},
	"status":        {},
	"status_code":   {},
	"risk_category": {},
	"reason":        {},
}

// FilterAttributes strips labels outside the allow list. Vendor names and
// ids never become metric labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
