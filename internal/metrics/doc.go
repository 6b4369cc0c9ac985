// Package metrics records what bloghub does with each issue.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	svc := publish.NewService(cfg, client, st, s) // uses metrics.NoopRecorder{}
//	svc.WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// The daemon serves the registry on /metrics; one-shot commands can dump it
// to a node_exporter textfile with WriteTextfile.
package metrics
