package observability

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/httpapi/logger"
)

// Instrument names recorded by ClientMetrics.
const (
	MetricRequests       = "http.client.requests"
	MetricRequestSeconds = "http.client.request.duration"
	MetricActiveRequests = "http.client.active_requests"
	MetricErrors         = "http.client.errors"
)

// MeterConfig points the OTLP/HTTP metric exporter at a collector.
type MeterConfig struct {
	ServiceName    string        `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string        `yaml:"service_version" mapstructure:"service_version"`
	Environment    string        `yaml:"environment" mapstructure:"environment"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval       time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig exports to a local collector every 15 seconds.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a periodic-export meter provider as the otel global.
// Shut it down on exit to flush the last interval.
func InitMeter(ctx context.Context, cfg *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	res, err := serviceResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("metric resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("exporting metrics to "+cfg.Endpoint, logger.Fields("service", cfg.ServiceName, "interval", cfg.Interval.String()))
	return mp, nil
}

func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// ClientMetrics records one set of instruments per send, labelled by
// client name.
type ClientMetrics struct {
	requests metric.Int64Counter
	seconds  metric.Float64Histogram
	active   metric.Int64UpDownCounter
	errors   metric.Int64Counter
}

func NewClientMetrics(meter metric.Meter) (*ClientMetrics, error) {
	var (
		m    ClientMetrics
		err  error
		errs []error
	)
	m.requests, err = meter.Int64Counter(MetricRequests, metric.WithDescription("Completed client sends"))
	errs = append(errs, err)
	m.seconds, err = meter.Float64Histogram(MetricRequestSeconds,
		metric.WithDescription("Client send duration"), metric.WithUnit("s"))
	errs = append(errs, err)
	m.active, err = meter.Int64UpDownCounter(MetricActiveRequests, metric.WithDescription("Client sends in flight"))
	errs = append(errs, err)
	m.errors, err = meter.Int64Counter(MetricErrors, metric.WithDescription("Client faults by error code"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("client instruments: %w", err)
	}
	return &m, nil
}

func clientAttr(client string) attribute.KeyValue { return attribute.String("client", client) }

func (m *ClientMetrics) RecordStart(ctx context.Context, client string) {
	m.active.Add(ctx, 1, metric.WithAttributes(clientAttr(client)))
}

// RecordEnd closes what RecordStart opened and counts the finished send.
func (m *ClientMetrics) RecordEnd(ctx context.Context, client, method, outcome string, status int, d time.Duration) {
	m.active.Add(ctx, -1, metric.WithAttributes(clientAttr(client)))
	base := attribute.NewSet(clientAttr(client), attribute.String("method", method))
	m.seconds.Record(ctx, d.Seconds(), metric.WithAttributeSet(base))
	m.requests.Add(ctx, 1, metric.WithAttributeSet(base), metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("status", strconv.Itoa(status)),
	))
}

func (m *ClientMetrics) RecordError(ctx context.Context, client, code string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(clientAttr(client), attribute.String("code", code)))
}
