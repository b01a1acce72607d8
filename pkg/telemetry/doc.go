// Package telemetry provides logging, tracing and metrics for ceres invocations.
//
// Logging uses zerolog. Tracing uses OpenTelemetry with a stdout or OTLP
// exporter and is disabled by default. Metrics are collected in a private
// Prometheus registry and written to a node exporter textfile on shutdown, since
// a ceres process does not live long enough to be scraped.
//
//	tel, err := telemetry.NewTelemetry(cfg, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//	telemetry.FromContext(ctx).Info("Starting")
//
// Code that only has a context uses StartSpan and MetricsFromContext; both work
// when the context carries no telemetry.
package telemetry
