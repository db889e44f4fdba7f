// Package tracing configures OpenTelemetry and instruments fiber requests.
package tracing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dmitrijs2005/duplofs/internal/common"
)

// Options controls tracing initialization.
type Options struct {
	Enabled     bool
	Endpoint    string  // OTLP collector endpoint (host:port or URL)
	Protocol    string  // "grpc" (default) or "http"
	SampleRatio float64 // 0.0 - 1.0
	ServiceName string
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Init configures the global tracer provider and propagator. When tracing is
// disabled a no-op provider is installed. An exporter that cannot be built
// is an error; an empty endpoint records spans without exporting them.
func Init(ctx context.Context, opt Options) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	if !opt.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	svc := strings.TrimSpace(opt.ServiceName)
	if svc == "" {
		svc = common.ServiceName
	}
	res, err := resource.New(ctx,
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(attribute.String("service.name", svc)),
	)
	if err != nil {
		res = resource.Empty()
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(opt.SampleRatio)),
	}

	if strings.TrimSpace(opt.Endpoint) != "" {
		exp, err := newExporter(ctx, opt)
		if err != nil {
			return nil, fmt.Errorf("tracing exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, opt Options) (sdktrace.SpanExporter, error) {
	endpoint := stripScheme(opt.Endpoint)
	insecure := isInsecure(opt.Endpoint)

	switch strings.ToLower(strings.TrimSpace(opt.Protocol)) {
	case "http", "otlphttp", "otlp-http":
		httpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if insecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, httpOpts...)
	case "", "grpc":
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, grpcOpts...)
	default:
		return nil, fmt.Errorf("unknown protocol %q", opt.Protocol)
	}
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1.0:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

var skippedPaths = map[string]struct{}{
	"/livez":   {},
	"/readyz":  {},
	"/metrics": {},
}

// Middleware starts a server span per request and stores the span context
// in the request's user context, so downstream calls become child spans.
func Middleware() fiber.Handler {
	tracer := otel.Tracer(common.ServiceName + "/http")

	return func(c *fiber.Ctx) error {
		if _, ok := skippedPaths[c.Path()]; ok {
			return c.Next()
		}

		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), headerCarrier{c})
		ctx, span := tracer.Start(ctx, c.Method(), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.SetUserContext(ctx)
		err := c.Next()

		// the matched pattern is only known after routing
		route := c.Route().Path
		span.SetName(c.Method() + " " + route)

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		span.SetAttributes(
			attribute.String("http.method", c.Method()),
			attribute.String("http.route", route),
			attribute.String("url.path", c.Path()),
			attribute.Int("http.status_code", status),
			attribute.String("net.peer.ip", c.IP()),
		)
		if err != nil || status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
		}

		return err
	}
}

// headerCarrier adapts fiber request headers to propagation.TextMapCarrier.
type headerCarrier struct {
	c *fiber.Ctx
}

func (h headerCarrier) Get(key string) string { return h.c.Get(key) }

func (h headerCarrier) Set(key, value string) { h.c.Request().Header.Set(key, value) }

func (h headerCarrier) Keys() []string {
	keys := make([]string, 0)
	h.c.Request().Header.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}

// isInsecure decides whether to use insecure transport based on endpoint hints.
func isInsecure(endpoint string) bool {
	ep := strings.ToLower(strings.TrimSpace(endpoint))
	if strings.HasPrefix(ep, "http://") {
		return true
	}
	return strings.Contains(ep, "localhost") || strings.Contains(ep, "127.0.0.1")
}

// stripScheme removes the URL scheme; OTLP clients expect host:port.
func stripScheme(endpoint string) string {
	e := strings.TrimSpace(endpoint)
	for _, p := range []string{"http://", "https://"} {
		if strings.HasPrefix(strings.ToLower(e), p) {
			return e[len(p):]
		}
	}
	return e
}
