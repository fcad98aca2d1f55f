package shared

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ssherwood/placeservice/internal/config"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"google.golang.org/grpc/credentials"
)

const loggerName = "github.com/ssherwood/placeservice"

func grpcLogOptions() []otlploggrpc.Option {
	options := []otlploggrpc.Option{
		otlploggrpc.WithEndpoint(config.OTELCollectorURL),
		otlploggrpc.WithCompressor(config.OTELCompressor),
	}

	if config.OTELExporterInsecure {
		options = append(options, otlploggrpc.WithInsecure())
	} else {
		options = append(options, otlploggrpc.WithTLSCredentials(
			credentials.NewClientTLSFromCert(nil, ""),
		))
	}

	return options
}

// InitializeLoggingProvider exports log records over OTLP when OTEL is enabled, or as
// OTEL JSON on stdout with OTEL_LOG_STDOUT. It returns a nil provider when neither is set.
func InitializeLoggingProvider(ctx context.Context) (*sdklog.LoggerProvider, error) {
	var processor sdklog.Processor

	switch {
	case config.OTELEnabled:
		grpcExporter, err := otlploggrpc.New(ctx, grpcLogOptions()...)
		if err != nil {
			slog.Error("Unable to initialize OTEL log grpcExporter", config.ErrAttr(err))
			return nil, err
		}
		processor = sdklog.NewBatchProcessor(grpcExporter)
	case config.OTELLogStdout:
		stdoutExporter, err := stdoutlog.New()
		if err != nil {
			slog.Error("Unable to initialize OTEL log stdoutExporter", config.ErrAttr(err))
			return nil, err
		}
		processor = sdklog.NewSimpleProcessor(stdoutExporter)
	default:
		return nil, nil
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(processor),
		sdklog.WithResource(serviceResource()),
	)

	global.SetLoggerProvider(provider)

	return provider, nil
}

// InitializeLogging installs the default slog logger. With a provider every record
// also goes to OTEL.
func InitializeLogging(provider otellog.LoggerProvider) {
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.SlogLevel(config.LogLevel),
	})
	if provider != nil {
		handler = NewOTLPLogHandler(handler, provider.Logger(loggerName))
	}
	slog.SetDefault(slog.New(handler))
}

// OTLPLogHandler writes to the console handler and emits the same record to an OTEL
// logger.
type OTLPLogHandler struct {
	consoleHandler slog.Handler
	logger         otellog.Logger
	attrs          []otellog.KeyValue
	groupPrefix    string
}

func NewOTLPLogHandler(consoleHandler slog.Handler, logger otellog.Logger) *OTLPLogHandler {
	return &OTLPLogHandler{consoleHandler: consoleHandler, logger: logger}
}

func (h *OTLPLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.consoleHandler.Enabled(ctx, level)
}

func (h *OTLPLogHandler) Handle(ctx context.Context, rec slog.Record) error {
	if err := h.consoleHandler.Handle(ctx, rec); err != nil {
		return err
	}

	var record otellog.Record
	record.SetTimestamp(rec.Time)
	record.SetObservedTimestamp(time.Now())
	record.SetSeverity(SeverityFromLevel(rec.Level))
	record.SetSeverityText(rec.Level.String())
	record.SetBody(otellog.StringValue(rec.Message))
	record.AddAttributes(h.attrs...)
	rec.Attrs(func(attr slog.Attr) bool {
		record.AddAttributes(convertAttr(h.groupPrefix, attr)...)
		return true
	})

	// the SDK takes trace and span ids from ctx
	h.logger.Emit(ctx, record)
	return nil
}

func (h *OTLPLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.consoleHandler = h.consoleHandler.WithAttrs(attrs)
	clone.attrs = append([]otellog.KeyValue(nil), h.attrs...)
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, convertAttr(h.groupPrefix, attr)...)
	}
	return &clone
}

func (h *OTLPLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.consoleHandler = h.consoleHandler.WithGroup(name)
	clone.groupPrefix = h.groupPrefix + name + "."
	return &clone
}

// SeverityFromLevel maps DEBUG/INFO/WARN/ERROR onto the first OTEL severity of each range.
func SeverityFromLevel(level slog.Level) otellog.Severity {
	return otellog.Severity(int(level) + 9)
}

func convertAttr(prefix string, attr slog.Attr) []otellog.KeyValue {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return nil
	}

	key := prefix + attr.Key
	switch attr.Value.Kind() {
	case slog.KindString:
		return []otellog.KeyValue{otellog.String(key, attr.Value.String())}
	case slog.KindInt64:
		return []otellog.KeyValue{otellog.Int64(key, attr.Value.Int64())}
	case slog.KindUint64:
		return []otellog.KeyValue{otellog.Int64(key, int64(attr.Value.Uint64()))}
	case slog.KindFloat64:
		return []otellog.KeyValue{otellog.Float64(key, attr.Value.Float64())}
	case slog.KindBool:
		return []otellog.KeyValue{otellog.Bool(key, attr.Value.Bool())}
	case slog.KindDuration:
		return []otellog.KeyValue{otellog.Int64(key, attr.Value.Duration().Nanoseconds())}
	case slog.KindTime:
		return []otellog.KeyValue{otellog.String(key, attr.Value.Time().Format(time.RFC3339Nano))}
	case slog.KindGroup:
		var kvs []otellog.KeyValue
		groupPrefix := key + "."
		if attr.Key == "" {
			groupPrefix = prefix
		}
		for _, member := range attr.Value.Group() {
			kvs = append(kvs, convertAttr(groupPrefix, member)...)
		}
		return kvs
	}
	return []otellog.KeyValue{otellog.String(key, fmt.Sprintf("%+v", attr.Value.Any()))}
}
