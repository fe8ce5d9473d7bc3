// Package logging provides briefd's structured logger.
//
// Logger wraps zap and takes a context.Context on every call so request and
// trace correlation fields are attached without callers threading them through:
//
//	ctx = logging.WithRequestID(ctx, c.Response().Header().Get(echo.HeaderXRequestID))
//	logger.Info(ctx, "tasks generated", zap.Int("count", len(tasks)))
//
// Output carries request.id, and trace_id/span_id when an OpenTelemetry span is
// active:
//
//	{"ts":"2026-10-19T10:15:30Z","level":"info","msg":"tasks generated","request.id":"6f1c...","count":8}
//
// The stdout encoder redacts sensitive keys (api_key, authorization, ...) and
// values matching bearer/api-key patterns. Levels below error are sampled;
// errors never are. An OpenTelemetry LoggerProvider may be supplied to mirror
// entries through the otelzap bridge.
//
// Tests use NewTestLogger, which records entries in memory:
//
//	tl := logging.NewTestLogger()
//	svc := vision.NewCaptioner(model, tl.Logger)
//	tl.AssertLogged(t, zapcore.ErrorLevel, "caption failed")
package logging
