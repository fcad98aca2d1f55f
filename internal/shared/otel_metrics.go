package shared

import (
	"context"
	"log/slog"
	"time"

	"github.com/ssherwood/placeservice/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/grpc/credentials"
)

func grpcMetricOptions() []otlpmetricgrpc.Option {
	options := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(config.OTELCollectorURL),
		otlpmetricgrpc.WithCompressor(config.OTELCompressor),
	}

	if config.OTELExporterInsecure {
		options = append(options, otlpmetricgrpc.WithInsecure())
	} else {
		options = append(options, otlpmetricgrpc.WithTLSCredentials(
			credentials.NewClientTLSFromCert(nil, ""),
		))
	}

	return options
}

// defaultMeterInterval replaces a non-positive OTEL_METER_INTERVAL.
const defaultMeterInterval = 10 * time.Second

// InitializeMetricProvider exports metrics over OTLP every OTEL_METER_INTERVAL and
// installs the provider globally.
// https://opentelemetry.io/docs/languages/go/instrumentation/#metrics
func InitializeMetricProvider(ctx context.Context) (*metric.MeterProvider, error) {
	metricExporter, err := otlpmetricgrpc.New(ctx, grpcMetricOptions()...)
	if err != nil {
		slog.Warn("Unable to initialize OTEL metric exporter", config.ErrAttr(err))
		return nil, err
	}

	meterProvider := NewMeterProvider(PeriodicReader(metricExporter, config.OTELMeterInterval))
	otel.SetMeterProvider(meterProvider)

	return meterProvider, nil
}

// NewMeterProvider builds a provider reading through reader and tagged with the service
// resource. Tests pass a metric.ManualReader.
func NewMeterProvider(reader metric.Reader) *metric.MeterProvider {
	return metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(serviceResource()),
	)
}

// PeriodicReader pushes to exporter every interval, or every 10s when interval is not
// positive.
func PeriodicReader(exporter metric.Exporter, interval time.Duration) metric.Reader {
	return metric.NewPeriodicReader(exporter, metric.WithInterval(meterInterval(interval)))
}

func meterInterval(interval time.Duration) time.Duration {
	if interval <= 0 {
		slog.Warn("Invalid OTEL_METER_INTERVAL, using default",
			slog.Duration("interval", interval), slog.Duration("default", defaultMeterInterval))
		return defaultMeterInterval
	}
	return interval
}
