package output

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"mcguard/classifier"
	"mcguard/config"
	"mcguard/logger"
	"mcguard/scanner"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otelLog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// SchemaVersion tags every exported record so collectors can tell layouts apart.
const SchemaVersion = "1"

const otelEventName = "mcguard.record"

// Exporter ships scan results as OTLP log records.
type Exporter struct {
	provider *sdklog.LoggerProvider
	logger   otelLog.Logger
	timeout  time.Duration
	endpoint string
	policy   otelPolicy
}

type otelPolicy struct {
	includePaths bool
}

// NewExporter returns nil without error when no endpoint is configured.
func NewExporter(cfg *config.Config) (*Exporter, error) {
	if cfg == nil {
		return nil, nil
	}
	endpoint := resolveOtelEndpoint(cfg)
	if endpoint == "" {
		return nil, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("otel endpoint must include scheme (http or https)")
	}

	opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(endpoint)}
	if len(cfg.OtelHeaders) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.OtelHeaders))
	}
	if cfg.OtelTimeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(cfg.OtelTimeout))
	}

	exp, err := otlploghttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	return newExporter(sdklog.NewBatchProcessor(exp), cfg, endpoint), nil
}

func newExporter(processor sdklog.Processor, cfg *config.Config, endpoint string) *Exporter {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.OtelServiceName),
	)
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(processor),
		sdklog.WithResource(res),
	)
	return &Exporter{
		provider: provider,
		logger:   provider.Logger("mcguard"),
		timeout:  cfg.OtelTimeout,
		endpoint: endpoint,
		policy:   otelPolicy{includePaths: cfg.OtelExportPaths},
	}
}

func resolveOtelEndpoint(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	if endpoint := strings.TrimSpace(cfg.OtelEndpoint); endpoint != "" {
		return endpoint
	}
	if !cfg.OtelFromEnv {
		return ""
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

func (e *Exporter) Endpoint() string {
	if e == nil {
		return ""
	}
	return e.endpoint
}

// EmitResult emits one "scan" record, then a "process" record per scanned
// process and a "threat" record per flagged module.
func (e *Exporter) EmitResult(ctx context.Context, r *scanner.ScanResult) {
	if e == nil || e.logger == nil || r == nil {
		return
	}
	e.emit(ctx, "scan", scanAttributes(r))
	for _, pr := range r.Results {
		e.emit(ctx, "process", processAttributes(pr, e.policy))
		for _, threat := range pr.ThreatsFound {
			e.emit(ctx, "threat", threatAttributes(pr.PID, threat, e.policy))
		}
	}
}

func (e *Exporter) emit(ctx context.Context, recordType string, attrs []otelLog.KeyValue) {
	now := time.Now()
	var record otelLog.Record
	record.SetTimestamp(now)
	record.SetObservedTimestamp(now)
	record.SetEventName(otelEventName)
	record.AddAttributes(
		otelLog.String("record_type", recordType),
		otelLog.String("schema_version", SchemaVersion),
	)
	record.AddAttributes(attrs...)
	record.SetBody(otelLog.MapValue(attrs...))
	e.logger.Emit(ctx, record)
}

func (e *Exporter) Shutdown() {
	if e == nil || e.provider == nil {
		return
	}
	timeout := e.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := e.provider.Shutdown(ctx); err != nil {
		logger.Debugf("OTEL shutdown failed: %v", err)
	}
}

func scanAttributes(r *scanner.ScanResult) []otelLog.KeyValue {
	kvs := []otelLog.KeyValue{
		otelLog.String("mcguard.scan.status", string(r.Status)),
		otelLog.String("mcguard.scan.time", r.ScanTime),
		otelLog.Int("mcguard.scan.processes_scanned", r.ProcessesScanned),
		otelLog.Int("mcguard.scan.total_threats", r.TotalThreats()),
	}
	return appendStringAttr(kvs, "mcguard.scan.message", r.Message)
}

func processAttributes(pr scanner.ProcessScanResult, policy otelPolicy) []otelLog.KeyValue {
	kvs := []otelLog.KeyValue{
		otelLog.Int64(string(semconv.ProcessPIDKey), int64(pr.PID)),
		otelLog.String(string(semconv.ProcessExecutableNameKey), pr.ProcessName),
		otelLog.Int("mcguard.process.total_modules", pr.TotalModules),
		otelLog.Int("mcguard.process.suspicious_modules", pr.SuspiciousModules),
		otelLog.Int("mcguard.process.threats_found", len(pr.ThreatsFound)),
	}
	if policy.includePaths {
		kvs = appendStringAttr(kvs, string(semconv.ProcessExecutablePathKey), pr.ProcessExe)
	}
	return appendStringAttr(kvs, "mcguard.process.module_access", string(pr.ModuleAccess))
}

func threatAttributes(pid int32, threat classifier.Classification, policy otelPolicy) []otelLog.KeyValue {
	kvs := []otelLog.KeyValue{
		otelLog.Int64(string(semconv.ProcessPIDKey), int64(pid)),
		otelLog.String(string(semconv.FileNameKey), threat.Name),
		otelLog.String("mcguard.threat.risk", string(threat.Risk)),
		otelLog.String("mcguard.threat.detection_type", string(threat.DetectionType)),
		otelLog.String("mcguard.threat.description", threat.Description),
	}
	kvs = appendStringAttr(kvs, "mcguard.threat.display_name", threat.DisplayName)
	if policy.includePaths {
		kvs = appendStringAttr(kvs, string(semconv.FilePathKey), threat.File)
	}
	if ev := threat.Evidence; ev != nil {
		kvs = append(kvs, otelLog.Int64(string(semconv.FileSizeKey), ev.Size))
		kvs = appendStringAttr(kvs, "mcguard.threat.mime_type", ev.MimeType)
		for algo, value := range ev.Hashes {
			kvs = appendStringAttr(kvs, "mcguard.threat.hash."+algo, value)
		}
		for algo, value := range ev.FuzzyHashes {
			kvs = appendStringAttr(kvs, "mcguard.threat.fuzzy_hash."+algo, value)
		}
	}
	return kvs
}

func appendStringAttr(kvs []otelLog.KeyValue, key, value string) []otelLog.KeyValue {
	if value == "" {
		return kvs
	}
	return append(kvs, otelLog.String(key, value))
}
