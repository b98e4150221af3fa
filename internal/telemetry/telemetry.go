// Package telemetry 记录请求指标；配置了 OTLP 端点时导出到采集器
// Package telemetry records request metrics and exports them over OTLP when an endpoint is configured.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kgchat/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName = "kgchat"
	meterName   = "kgchat/orchestrator"
)

// Version 由构建注入 / Version is injected at build time
var Version = "dev"

// Outcome 请求结果分类 / Outcome classifies how a request ended
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeLogical   Outcome = "logical_failure"
	OutcomeTransport Outcome = "transport_failure"
	OutcomeRejected  Outcome = "rejected"
)

// Provider 持有 MeterProvider 与关闭函数
// Provider holds the meter provider and its shutdown hook.
type Provider struct {
	MeterProvider metric.MeterProvider
	shutdown      func(context.Context) error
}

// Setup 未配置端点时返回 noop provider
// Setup returns a noop provider when no endpoint is configured.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (*Provider, error) {
	endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
	if endpoint == "" {
		return &Provider{
			MeterProvider: noop.NewMeterProvider(),
			shutdown:      func(context.Context) error { return nil },
		}, nil
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)
	return &Provider{MeterProvider: provider, shutdown: provider.Shutdown}, nil
}

// Shutdown 刷新并关闭 / Shutdown flushes pending metrics and closes the exporter
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// Metrics 编排器使用的指标集合；nil Metrics 的方法为空操作
// Metrics is the instrument set used by the orchestrator; methods on nil Metrics are no-ops.
type Metrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	tokens   metric.Int64Counter
	busy     metric.Int64Counter
}

// NewMetrics 在 mp 上创建指标；mp 为 nil 时使用全局 provider
// NewMetrics creates instruments on mp, or on the global provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	requests, err := meter.Int64Counter(
		"kgchat_requests_total",
		metric.WithDescription("Service requests by operation and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating requests counter: %w", err)
	}
	latency, err := meter.Float64Histogram(
		"kgchat_request_duration_seconds",
		metric.WithDescription("Service request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating latency histogram: %w", err)
	}
	tokens, err := meter.Int64Counter(
		"kgchat_tokens_total",
		metric.WithDescription("Tokens reported or estimated per answered question"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tokens counter: %w", err)
	}
	busy, err := meter.Int64Counter(
		"kgchat_busy_rejections_total",
		metric.WithDescription("Invocations rejected because the same operation was in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating busy counter: %w", err)
	}
	return &Metrics{requests: requests, latency: latency, tokens: tokens, busy: busy}, nil
}

// RecordRequest 记录一次请求 / RecordRequest records one request
func (m *Metrics) RecordRequest(ctx context.Context, op string, outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", string(outcome)),
	)
	m.requests.Add(ctx, 1, opt)
	m.latency.Record(ctx, elapsed.Seconds(), opt)
}

func (m *Metrics) RecordTokens(ctx context.Context, n int, estimated bool) {
	if m == nil || n <= 0 {
		return
	}
	m.tokens.Add(ctx, int64(n), metric.WithAttributes(attribute.Bool("estimated", estimated)))
}

func (m *Metrics) RecordBusy(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.busy.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}
