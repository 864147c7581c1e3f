package tracing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkTrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	ExporterCollector CollectorType = "collector"
	ExporterNone      CollectorType = "none"
)

const tracerName = "e2bridge"

type CollectorType string

type Config struct {
	Type        CollectorType   `env:"TYPE,default=none" yaml:"type"`
	ServiceName string          `env:"SERVICENAME,default=e2bridge" yaml:"serviceName"`
	Probability float64         `env:"PROBABILITY,default=0.5" yaml:"probability"`
	Collector   CollectorConfig `env:",prefix=COLLECTOR_" yaml:"collector"`
}

type CollectorConfig struct {
	Endpoint string `env:"ENDPOINT" yaml:"endpoint"`
}

// Tracer is used throughout the bridge. Until SetupTracing is called it
// delegates to the global provider, which is a no-op by default.
var Tracer trace.Tracer = otel.Tracer(tracerName)

// SetupTracing configure open telemetry to be used with otel exporter. Returns a tracer provider to be shut down and an error.
func SetupTracing(config Config, logger zerolog.Logger) (*sdkTrace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var traceProvider *sdkTrace.TracerProvider

	ll := logger.With().Str("tracerType", string(config.Type)).Logger()

	res := resource.NewSchemaless(attribute.String("service.name", config.ServiceName))

	switch config.Type {
	case ExporterCollector:
		ll.Info().Msg("configuring collector exporter for tracing")

		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(config.Collector.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			ll.Err(err).Msg("otlptracegrpc.New failed")
			return nil, errors.Wrap(err, "otlptracegrpc.New")
		}

		traceProvider = sdkTrace.NewTracerProvider(
			sdkTrace.WithBatcher(exporter),
			sdkTrace.WithResource(res),
			sdkTrace.WithSampler(sdkTrace.ParentBased(sdkTrace.TraceIDRatioBased(config.Probability))),
		)

		ll.Info().Msg("created collector sdkTrace exporter")
	default:
		ll.Warn().Msg("unrecognised tracer type configuration. Defaulting to no tracer")
		fallthrough
	case ExporterNone, "":
		// Create the most default sdkTrace provider and escape early.
		traceProvider = sdkTrace.NewTracerProvider(
			sdkTrace.WithResource(res),
			sdkTrace.WithSampler(sdkTrace.NeverSample()),
		)

		ll.Info().Msg("finished setting up default noop tracer")
	}

	ll.Info().Msg("setting up a global tracer")

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	Tracer = traceProvider.Tracer(tracerName)

	return traceProvider, nil
}
