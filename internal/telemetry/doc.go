// Package telemetry wires OpenTelemetry tracing and metrics for briefd.
//
// Spans and OTEL metrics are exported over OTLP (grpc or http/protobuf) to a
// collector. Telemetry is off by default; enable it in config.yaml:
//
//	observability:
//	  enable_telemetry: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc
//	  sample_rate: 1.0
//	  metrics_interval: 15s
//
// Usage:
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Observability, version), logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Initialization failures do not stop the server. The instance is marked
// degraded and the global no-op providers stay in place.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
